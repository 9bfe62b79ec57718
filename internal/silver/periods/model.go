// Package periods generates and persists the monthly fiscal period calendar
// that every silver-layer aggregate is keyed against.
package periods

import "time"

// Period is one calendar-month accounting period.
type Period struct {
	ID          int64
	Year        int
	Quarter     int
	Month       int
	Name        string
	StartDate   time.Time
	EndDate     time.Time
	IsClosed    bool
	ClosingDate *time.Time
}

// Contains reports whether the unix-second timestamp falls inside the
// period's [start of first day, end of last day] window.
func (p Period) Contains(unixSec int64) bool {
	start := p.StartDate.Unix()
	end := p.EndDate.AddDate(0, 0, 1).Add(-time.Second).Unix()
	return unixSec >= start && unixSec <= end
}
