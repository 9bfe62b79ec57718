package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlake/ledgerlake/internal/bronze"
	"github.com/ledgerlake/ledgerlake/internal/silver/pgc"
)

// AccountSource serves the number-to-id mapping of the silver chart.
type AccountSource interface {
	NumberIDs(ctx context.Context) (map[int64]string, error)
}

// Resolver resolves landed ledger rows into silver journal lines against the
// silver chart of accounts.
type Resolver struct {
	source   BronzeSource
	accounts AccountSource
	repo     Repository
	logger   *slog.Logger
	now      func() time.Time
}

// ResolveStats summarizes one lines load.
type ResolveStats struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// NewResolver constructs the journal line resolver.
func NewResolver(source BronzeSource, accounts AccountSource, repo Repository, logger *slog.Logger) *Resolver {
	return &Resolver{source: source, accounts: accounts, repo: repo, logger: logger, now: time.Now}
}

// WithClock overrides the clock for deterministic tests.
func (r *Resolver) WithClock(clock func() time.Time) {
	if clock != nil {
		r.now = clock
	}
}

// Load extracts ledger rows, resolves them and writes the silver lines.
func (r *Resolver) Load(ctx context.Context, fullRefresh bool) (ResolveStats, error) {
	rows, err := r.source.ListLedger(ctx)
	if err != nil {
		return ResolveStats{}, fmt.Errorf("journal: extract ledger: %w", err)
	}
	accountIDs, err := r.accounts.NumberIDs(ctx)
	if err != nil {
		return ResolveStats{}, fmt.Errorf("journal: fetch accounts: %w", err)
	}
	lines, stats := r.Resolve(rows, accountIDs)
	if err := r.repo.ReplaceLines(ctx, lines, fullRefresh); err != nil {
		return ResolveStats{}, fmt.Errorf("journal: load lines: %w", err)
	}
	r.logger.Info("loaded journal lines",
		slog.Int("loaded", stats.Loaded), slog.Int("skipped", stats.Skipped))
	return stats, nil
}

// Resolve validates each row against the chart. Rows whose account is missing
// or unknown are skipped with a warning; duplicate (entry, line) keys keep the
// first row seen. Account numbers are canonicalised before lookup so short
// numbers resolve to their padded silver account.
func (r *Resolver) Resolve(rows []bronze.LedgerRow, accountIDs map[int64]string) ([]Line, ResolveStats) {
	now := r.now().UTC()
	batchID := uuid.NewString()
	stats := ResolveStats{}
	seen := make(map[[2]int64]bool)
	out := make([]Line, 0, len(rows))

	for _, row := range rows {
		key := [2]int64{row.EntryNumber, int64(row.Line)}
		if seen[key] {
			r.logger.Warn("duplicate journal line, keeping first",
				slog.Int64("entry_number", row.EntryNumber), slog.Int("line", row.Line))
			stats.Skipped++
			continue
		}
		seen[key] = true

		if row.Account == nil {
			r.logger.Warn("journal line without account, skipping",
				slog.Int64("entry_number", row.EntryNumber), slog.Int("line", row.Line))
			stats.Skipped++
			continue
		}
		number, err := pgc.Canonicalize(*row.Account)
		if err != nil {
			r.logger.Warn("journal line with invalid account, skipping",
				slog.Int64("entry_number", row.EntryNumber), slog.Int("line", row.Line), slog.Int64("account", *row.Account))
			stats.Skipped++
			continue
		}
		accountID, ok := accountIDs[number]
		if !ok {
			r.logger.Warn("journal line account not in chart, skipping",
				slog.Int64("entry_number", row.EntryNumber), slog.Int("line", row.Line), slog.Int64("account", number))
			stats.Skipped++
			continue
		}

		tags := ParseTags(row.Tags)
		tagsJSON, err := json.Marshal(tags)
		if err != nil || tags == nil {
			tagsJSON = []byte("[]")
		}
		costCenter, businessLine := Dimensions(tags)
		reconciled := row.Checked == "Yes"

		line := Line{
			EntryNumber:   row.EntryNumber,
			LineNumber:    row.Line,
			AccountID:     accountID,
			AccountNumber: number,
			Debit:         row.Debit,
			Credit:        row.Credit,
			Description:   row.Description,
			TagsJSON:      string(tagsJSON),
			IsChecked:     reconciled,
			IsReconciled:  reconciled,
			TaxRelevant:   pgc.TaxRelevant(number),
			CostCenter:    costCenter,
			BusinessLine:  businessLine,
			CreatedAt:     now,
			UpdatedAt:     now,
			SourceTable:   sourceTable,
			BatchID:       batchID,
		}
		slots := []**string{&line.Tag1, &line.Tag2, &line.Tag3, &line.Tag4}
		for i := 0; i < len(tags) && i < len(slots); i++ {
			tag := tags[i]
			*slots[i] = &tag
		}

		out = append(out, line)
		stats.Loaded++
	}
	return out, stats
}
