package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlake/ledgerlake/internal/bronze"
	"github.com/ledgerlake/ledgerlake/internal/silver/pgc"
)

const (
	sourceTable = "bronze.holded_accounts"

	// Eight-digit accounts sit at the analytic leaf of the PGC hierarchy.
	analyticLevel = 5
)

// BronzeSource is the slice of the bronze repository the loader reads.
type BronzeSource interface {
	ListAccounts(ctx context.Context) ([]bronze.AccountRow, error)
}

// Loader transforms bronze account rows into silver accounts.
type Loader struct {
	source BronzeSource
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewLoader constructs the accounts loader.
func NewLoader(source BronzeSource, repo Repository, logger *slog.Logger) *Loader {
	return &Loader{source: source, repo: repo, logger: logger, now: time.Now}
}

// WithClock overrides the clock for deterministic tests.
func (l *Loader) WithClock(clock func() time.Time) {
	if clock != nil {
		l.now = clock
	}
}

// Load extracts bronze accounts, classifies them and writes the silver rows.
func (l *Loader) Load(ctx context.Context, fullRefresh bool) (LoadStats, error) {
	rows, err := l.source.ListAccounts(ctx)
	if err != nil {
		return LoadStats{}, fmt.Errorf("accounts: extract bronze: %w", err)
	}
	transformed, stats := l.Transform(rows)
	if err := l.repo.Replace(ctx, transformed, fullRefresh); err != nil {
		return LoadStats{}, fmt.Errorf("accounts: load silver: %w", err)
	}
	l.logger.Info("loaded silver accounts",
		slog.Int("loaded", stats.Loaded), slog.Int("skipped", stats.Skipped))
	for accountType, count := range stats.ByType {
		l.logger.Info("account type distribution",
			slog.String("type", accountType), slog.Int("accounts", count))
	}
	return stats, nil
}

// Transform classifies bronze rows. Rows without a usable account number are
// skipped with a warning rather than failing the load.
func (l *Loader) Transform(rows []bronze.AccountRow) ([]Account, LoadStats) {
	now := l.now().UTC()
	batchID := uuid.NewString()
	stats := LoadStats{ByType: map[string]int{}}
	out := make([]Account, 0, len(rows))

	for _, row := range rows {
		if row.Num == nil {
			l.logger.Warn("account has no number, skipping", slog.String("account_id", row.SourceID))
			stats.Skipped++
			continue
		}
		number, err := pgc.Canonicalize(*row.Num)
		if err != nil {
			l.logger.Warn("invalid account number, skipping",
				slog.String("account_id", row.SourceID), slog.Int64("num", *row.Num))
			stats.Skipped++
			continue
		}
		if number != *row.Num {
			l.logger.Info("padded short account number",
				slog.Int64("num", *row.Num), slog.Int64("account_number", number))
		}
		cls, err := pgc.Classify(number)
		if err != nil {
			l.logger.Warn("unclassifiable account number, skipping",
				slog.String("account_id", row.SourceID), slog.Int64("num", *row.Num))
			stats.Skipped++
			continue
		}

		account := Account{
			SourceID:       row.SourceID,
			Number:         number,
			Name:           row.Name,
			Group:          row.Group,
			Type:           string(cls.Type),
			Subtype:        cls.Subtype,
			IsAnalytic:     true,
			ParentNumber:   cls.ParentNumber,
			Level:          analyticLevel,
			IsActive:       true,
			CurrentBalance: row.Balance,
			DebitBalance:   row.Debit,
			CreditBalance:  row.Credit,
			PGCGroup:       cls.Group,
			PGCSubgroup:    cls.Subgroup,
			TaxRelevant:    cls.TaxRelevant,
			CreatedAt:      now,
			UpdatedAt:      now,
			SourceTable:    sourceTable,
			BatchID:        batchID,
		}
		if account.Name == "" {
			account.Name = fmt.Sprintf("Account %d", number)
		}
		if account.Group == "" {
			account.Group = "No Group"
		}
		if row.Debit.IsPositive() || row.Credit.IsPositive() {
			movement := row.UpdatedAt
			account.LastMovementDate = &movement
		}

		out = append(out, account)
		stats.Loaded++
		stats.ByType[account.Type]++
	}
	return out, stats
}
