package periods

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Loader regenerates the fiscal calendar from the observed ledger range.
type Loader struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewLoader constructs the periods loader.
func NewLoader(repo Repository, logger *slog.Logger) *Loader {
	return &Loader{repo: repo, logger: logger, now: time.Now}
}

// WithClock overrides the clock for deterministic tests.
func (l *Loader) WithClock(clock func() time.Time) {
	if clock != nil {
		l.now = clock
	}
}

// Load derives the calendar window from the landed ledger, generates the
// monthly periods and writes them. Full refresh replaces the calendar;
// otherwise periods are upserted by (year, month) so ids stay stable.
func (l *Loader) Load(ctx context.Context, fullRefresh bool) (int, error) {
	now := l.now().UTC()
	minObserved, maxObserved, err := l.repo.ObservedLedgerRange(ctx)
	if err != nil {
		return 0, fmt.Errorf("periods: observed range: %w", err)
	}
	start, end := Bounds(minObserved, maxObserved, now)
	generated := Generate(start, end, now)

	var count int
	if fullRefresh {
		count, err = l.repo.Replace(ctx, generated)
	} else {
		count, err = l.repo.Upsert(ctx, generated)
	}
	if err != nil {
		return 0, fmt.Errorf("periods: load calendar: %w", err)
	}
	l.logger.Info("loaded fiscal periods",
		slog.Int("periods", count), slog.Time("from", start), slog.Time("to", end),
		slog.Bool("full_refresh", fullRefresh))
	return count, nil
}
