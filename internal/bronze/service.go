package bronze

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlake/ledgerlake/internal/holded"
)

// LedgerSource is the slice of the Holded client the sync needs.
type LedgerSource interface {
	ChartOfAccounts(ctx context.Context) ([]holded.Account, error)
	DailyLedger(ctx context.Context, from, to time.Time) ([]holded.LedgerEntry, error)
}

// Service pulls from the Holded API and lands rows in the bronze schema.
type Service struct {
	source LedgerSource
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// SyncSummary reports what one sync landed.
type SyncSummary struct {
	Accounts    int    `json:"accounts"`
	LedgerRows  int    `json:"ledger_rows"`
	FullRefresh bool   `json:"full_refresh"`
	BatchID     string `json:"batch_id"`
}

// NewService constructs the bronze sync service.
func NewService(source LedgerSource, repo Repository, logger *slog.Logger) *Service {
	return &Service{source: source, repo: repo, logger: logger, now: time.Now}
}

// WithClock overrides the clock for deterministic tests.
func (s *Service) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// SyncAccounts lands the chart of accounts snapshot. The chart is small and
// the API returns it whole, so the landing is always a wholesale replace on
// full refresh and an id-keyed upsert otherwise.
func (s *Service) SyncAccounts(ctx context.Context, fullRefresh bool) (SyncSummary, error) {
	accounts, err := s.source.ChartOfAccounts(ctx)
	if err != nil {
		return SyncSummary{}, err
	}
	now := s.now().UTC()
	batchID := uuid.NewString()
	rows := make([]AccountRow, 0, len(accounts))
	for _, acc := range accounts {
		row := AccountRow{
			SourceID:   acc.ID,
			Color:      acc.Color,
			Name:       acc.Name,
			Group:      acc.Group,
			Debit:      acc.Debit,
			Credit:     acc.Credit,
			Balance:    acc.Balance,
			InsertedAt: now,
			UpdatedAt:  now,
			BatchID:    batchID,
		}
		if num, err := acc.Num.Int64(); err == nil {
			row.Num = &num
		} else if strings.TrimSpace(acc.Num.String()) != "" {
			s.logger.Warn("account number not numeric, landing without num",
				slog.String("account_id", acc.ID), slog.String("num", acc.Num.String()))
		}
		rows = append(rows, row)
	}

	var count int
	if fullRefresh {
		count, err = s.repo.ReplaceAccounts(ctx, rows)
	} else {
		count, err = s.repo.UpsertAccounts(ctx, rows)
	}
	if err != nil {
		return SyncSummary{}, err
	}
	s.logger.Info("landed chart of accounts",
		slog.Int("rows", count), slog.Bool("full_refresh", fullRefresh), slog.String("batch_id", batchID))
	return SyncSummary{Accounts: count, FullRefresh: fullRefresh, BatchID: batchID}, nil
}

// SyncLedger lands daily ledger rows. Full refresh pulls from since (or the
// previous quarter start when zero) and truncates; incremental replaces just
// the window so re-edited entries converge.
func (s *Service) SyncLedger(ctx context.Context, since time.Time, fullRefresh bool) (SyncSummary, error) {
	now := s.now().UTC()
	from := since
	if from.IsZero() {
		from = holded.PreviousQuarterStart(now)
	}
	entries, err := s.source.DailyLedger(ctx, from, now)
	if err != nil {
		return SyncSummary{}, err
	}
	batchID := uuid.NewString()
	rows := Flatten(entries, now, batchID)

	var count int
	if fullRefresh {
		count, err = s.repo.ReplaceLedger(ctx, rows)
	} else {
		fromSec := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC).Unix()
		toSec := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC).Unix()
		count, err = s.repo.ReplaceLedgerWindow(ctx, fromSec, toSec, rows)
	}
	if err != nil {
		return SyncSummary{}, err
	}
	s.logger.Info("landed daily ledger",
		slog.Int("rows", count), slog.Time("from", from), slog.Bool("full_refresh", fullRefresh), slog.String("batch_id", batchID))
	return SyncSummary{LedgerRows: count, FullRefresh: fullRefresh, BatchID: batchID}, nil
}

// Flatten turns API entries into one landed row per line, repeating the
// entry-level fields. Lines without an explicit line number take their
// 1-based position.
func Flatten(entries []holded.LedgerEntry, now time.Time, batchID string) []LedgerRow {
	var rows []LedgerRow
	for _, entry := range entries {
		for i, line := range entry.Lines {
			row := LedgerRow{
				EntryNumber:    entry.EntryNumber,
				Line:           line.Line,
				Timestamp:      entry.Timestamp,
				Type:           entry.Type,
				Description:    entry.Description,
				DocDescription: entry.DocDescription,
				Debit:          line.Debit,
				Credit:         line.Credit,
				Tags:           string(line.Tags),
				Checked:        line.Checked,
				InsertedAt:     now,
				UpdatedAt:      now,
				BatchID:        batchID,
			}
			if row.Line == 0 {
				row.Line = i + 1
			}
			if num, err := line.Account.Int64(); err == nil {
				row.Account = &num
			}
			rows = append(rows, row)
		}
	}
	return rows
}
