package periods

import (
	"fmt"
	"time"
)

// Generate produces one period per calendar month from the month containing
// min through the month containing max, inclusive. Closed status is a
// snapshot judgment against now: a period is closed once its end date falls
// before the first day of now's month.
func Generate(min, max, now time.Time) []Period {
	start := time.Date(min.Year(), min.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(max.Year(), max.Month(), 1, 0, 0, 0, 0, time.UTC)
	currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var out []Period
	for cursor := start; !cursor.After(last); cursor = cursor.AddDate(0, 1, 0) {
		endOfMonth := cursor.AddDate(0, 1, -1)
		p := Period{
			Year:      cursor.Year(),
			Quarter:   (int(cursor.Month())-1)/3 + 1,
			Month:     int(cursor.Month()),
			Name:      fmt.Sprintf("%04d-%02d", cursor.Year(), int(cursor.Month())),
			StartDate: cursor,
			EndDate:   endOfMonth,
			IsClosed:  endOfMonth.Before(currentMonth),
		}
		if p.IsClosed {
			closing := endOfMonth
			p.ClosingDate = &closing
		}
		out = append(out, p)
	}
	return out
}

// Bounds derives the generation window from the observed transaction range.
// The calendar always extends through the end of next year so entries posted
// ahead of time still land in a period. With no observed transactions the
// window spans the previous calendar year through the next one.
func Bounds(minObserved, maxObserved *time.Time, now time.Time) (time.Time, time.Time) {
	end := time.Date(now.Year()+1, time.December, 31, 0, 0, 0, 0, time.UTC)
	if minObserved == nil {
		start := time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, end
	}
	start := time.Date(minObserved.Year(), minObserved.Month(), 1, 0, 0, 0, 0, time.UTC)
	if maxObserved != nil && maxObserved.After(end) {
		end = *maxObserved
	}
	return start, end
}

// ResolvePeriod finds the period containing the unix-second timestamp.
// Periods must be sorted ascending by start date; the first match wins.
func ResolvePeriod(ps []Period, unixSec int64) (Period, bool) {
	for _, p := range ps {
		if p.Contains(unixSec) {
			return p, true
		}
	}
	return Period{}, false
}
