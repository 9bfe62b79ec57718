package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlake/ledgerlake/internal/bronze"
	"github.com/ledgerlake/ledgerlake/internal/silver/periods"
)

// BronzeSource is the slice of the bronze repository the normalizer reads.
type BronzeSource interface {
	ListLedger(ctx context.Context) ([]bronze.LedgerRow, error)
}

// PeriodSource serves the fiscal calendar for period resolution.
type PeriodSource interface {
	List(ctx context.Context) ([]periods.Period, error)
}

// Normalizer folds landed ledger rows into one silver entry per entry number.
type Normalizer struct {
	source  BronzeSource
	periods PeriodSource
	repo    Repository
	logger  *slog.Logger
	now     func() time.Time
}

// NewNormalizer constructs the journal entry normalizer.
func NewNormalizer(source BronzeSource, periodSource PeriodSource, repo Repository, logger *slog.Logger) *Normalizer {
	return &Normalizer{source: source, periods: periodSource, repo: repo, logger: logger, now: time.Now}
}

// WithClock overrides the clock for deterministic tests.
func (n *Normalizer) WithClock(clock func() time.Time) {
	if clock != nil {
		n.now = clock
	}
}

// Load extracts ledger rows, folds them into entries and writes the result.
func (n *Normalizer) Load(ctx context.Context, fullRefresh bool) (int, error) {
	rows, err := n.source.ListLedger(ctx)
	if err != nil {
		return 0, fmt.Errorf("journal: extract ledger: %w", err)
	}
	calendar, err := n.periods.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("journal: fetch periods: %w", err)
	}
	entries := n.Normalize(rows, calendar)
	if err := n.repo.ReplaceEntries(ctx, entries, fullRefresh); err != nil {
		return 0, fmt.Errorf("journal: load entries: %w", err)
	}
	n.logger.Info("loaded journal entries", slog.Int("entries", len(entries)))
	return len(entries), nil
}

// Normalize groups rows by entry number: the entry keeps the earliest
// timestamp, the last descriptions seen, and the summed line totals. Entries
// falling outside every fiscal period keep a null period reference.
func (n *Normalizer) Normalize(rows []bronze.LedgerRow, calendar []periods.Period) []Entry {
	now := n.now().UTC()
	batchID := uuid.NewString()

	grouped := make(map[int64]*Entry)
	var order []int64
	for _, row := range rows {
		entry, ok := grouped[row.EntryNumber]
		if !ok {
			entry = &Entry{
				EntryNumber:       row.EntryNumber,
				OriginalTimestamp: row.Timestamp,
				Status:            "Posted",
				CreatedAt:         now,
				UpdatedAt:         now,
				SourceTable:       sourceTable,
				BatchID:           batchID,
			}
			grouped[row.EntryNumber] = entry
			order = append(order, row.EntryNumber)
		}
		if row.Timestamp < entry.OriginalTimestamp {
			entry.OriginalTimestamp = row.Timestamp
		}
		if row.Description != "" {
			entry.Description = row.Description
		}
		if row.DocDescription != "" {
			entry.DocumentDescription = row.DocDescription
		}
		if row.Type != "" {
			entry.EntryType = row.Type
		}
		entry.TotalDebit = entry.TotalDebit.Add(row.Debit)
		entry.TotalCredit = entry.TotalCredit.Add(row.Credit)
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]Entry, 0, len(order))
	for _, number := range order {
		entry := grouped[number]
		entry.EntryDate = time.Unix(entry.OriginalTimestamp, 0).UTC().Truncate(24 * time.Hour)

		if p, ok := periods.ResolvePeriod(calendar, entry.OriginalTimestamp); ok {
			id := p.ID
			entry.PeriodID = &id
		} else {
			n.logger.Warn("no fiscal period for entry",
				slog.Int64("entry_number", entry.EntryNumber), slog.Time("entry_date", entry.EntryDate))
		}

		upper := strings.ToUpper(entry.Description)
		entry.IsClosing = strings.Contains(upper, "CIERRE") || strings.Contains(upper, "CLOSING")
		entry.IsOpening = strings.Contains(upper, "APERTURA") || strings.Contains(upper, "OPENING")
		entry.IsAdjustment = strings.Contains(upper, "AJUSTE") || strings.Contains(upper, "ADJUSTMENT")

		out = append(out, *entry)
	}
	return out
}
