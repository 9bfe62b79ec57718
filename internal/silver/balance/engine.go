package balance

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ErrPeriodNotFound reports an incremental recompute anchored on an unknown period.
var ErrPeriodNotFound = errors.New("balance: period not found")

const threadConcurrency = 8

// TxRepository is the balance storage surface inside one transaction. Both
// recompute paths run their reads and writes through a single transaction so
// a failure leaves the previous balance table untouched.
type TxRepository interface {
	Truncate(ctx context.Context) error
	ActiveAccounts(ctx context.Context) ([]AccountRef, error)
	Periods(ctx context.Context, asOf time.Time) ([]PeriodRef, error)
	Movements(ctx context.Context) ([]Movement, error)
	MovementsFrom(ctx context.Context, from time.Time) ([]Movement, error)
	Seeds(ctx context.Context, before time.Time) (map[string]decimal.Decimal, error)
	PeriodStart(ctx context.Context, periodID int64) (time.Time, error)
	Upsert(ctx context.Context, rows []Row) error
}

// Repository opens balance transactions.
type Repository interface {
	WithTx(ctx context.Context, fn func(TxRepository) error) error
}

// Engine drives balance recomputation.
type Engine struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine constructs the balance engine.
func NewEngine(repo Repository, logger *slog.Logger) *Engine {
	return &Engine{repo: repo, logger: logger, now: time.Now}
}

// WithClock overrides the clock for deterministic tests.
func (e *Engine) WithClock(clock func() time.Time) {
	if clock != nil {
		e.now = clock
	}
}

// RecomputeAll rebuilds the whole balance table from scratch: truncate,
// aggregate movements per account and period, then thread every account chain
// forward from a zero start.
func (e *Engine) RecomputeAll(ctx context.Context) (Stats, error) {
	now := e.now().UTC()
	batchID := uuid.NewString()
	var stats Stats

	err := e.repo.WithTx(ctx, func(tx TxRepository) error {
		if err := tx.Truncate(ctx); err != nil {
			return err
		}
		accounts, err := tx.ActiveAccounts(ctx)
		if err != nil {
			return err
		}
		calendar, err := tx.Periods(ctx, now)
		if err != nil {
			return err
		}
		movements, err := tx.Movements(ctx)
		if err != nil {
			return err
		}

		rows := BuildMovementRows(accounts, calendar, movements, now, batchID)
		threaded, err := threadAll(ctx, rows, calendar, nil)
		if err != nil {
			return err
		}
		if err := tx.Upsert(ctx, threaded); err != nil {
			return err
		}
		stats = Stats{Accounts: len(accounts), Periods: len(calendar), Rows: len(threaded), BatchID: batchID}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	e.logger.Info("recomputed account balances",
		slog.Int("accounts", stats.Accounts), slog.Int("periods", stats.Periods),
		slog.Int("rows", stats.Rows), slog.String("batch_id", batchID))
	return stats, nil
}

// RecomputeFrom rebuilds balances for the anchor period and everything after
// it. The start balance of the anchor period is seeded from each account's
// latest end balance strictly before the anchor, so the result matches what a
// full recompute would produce.
func (e *Engine) RecomputeFrom(ctx context.Context, periodID int64) (Stats, error) {
	now := e.now().UTC()
	batchID := uuid.NewString()
	var stats Stats

	err := e.repo.WithTx(ctx, func(tx TxRepository) error {
		anchor, err := tx.PeriodStart(ctx, periodID)
		if err != nil {
			return err
		}
		accounts, err := tx.ActiveAccounts(ctx)
		if err != nil {
			return err
		}
		calendar, err := tx.Periods(ctx, now)
		if err != nil {
			return err
		}
		tail := make([]PeriodRef, 0, len(calendar))
		for _, p := range calendar {
			if !p.StartDate.Before(anchor) {
				tail = append(tail, p)
			}
		}
		movements, err := tx.MovementsFrom(ctx, anchor)
		if err != nil {
			return err
		}
		seeds, err := tx.Seeds(ctx, anchor)
		if err != nil {
			return err
		}

		rows := BuildMovementRows(accounts, tail, movements, now, batchID)
		threaded, err := threadAll(ctx, rows, tail, seeds)
		if err != nil {
			return err
		}
		if err := tx.Upsert(ctx, threaded); err != nil {
			return err
		}
		stats = Stats{Accounts: len(accounts), Periods: len(tail), Rows: len(threaded), BatchID: batchID}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	e.logger.Info("recomputed account balances from period",
		slog.Int64("period_id", periodID), slog.Int("accounts", stats.Accounts),
		slog.Int("rows", stats.Rows), slog.String("batch_id", batchID))
	return stats, nil
}

// BuildMovementRows crosses every account with every period and left-joins
// the aggregated movements, so accounts without activity in a period still
// get a row to carry their balance through.
func BuildMovementRows(accounts []AccountRef, calendar []PeriodRef, movements []Movement, now time.Time, batchID string) []Row {
	type key struct {
		accountID string
		periodID  int64
	}
	byKey := make(map[key]Movement, len(movements))
	for _, m := range movements {
		byKey[key{m.AccountID, m.PeriodID}] = m
	}

	rows := make([]Row, 0, len(accounts)*len(calendar))
	for _, acc := range accounts {
		for _, p := range calendar {
			row := Row{
				AccountID:     acc.ID,
				AccountNumber: acc.Number,
				PeriodID:      p.ID,
				IsCalculated:  true,
				CreatedAt:     now,
				UpdatedAt:     now,
				BatchID:       batchID,
			}
			if m, ok := byKey[key{acc.ID, p.ID}]; ok {
				row.PeriodDebit = m.Debit
				row.PeriodCredit = m.Credit
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// ThreadChain folds one account's rows forward in period order: each period
// starts where the previous one ended, and ends at start plus debit minus
// credit. The seed is the balance carried in from before the first period.
func ThreadChain(rows []Row, calendar []PeriodRef, seed decimal.Decimal) []Row {
	order := make(map[int64]int, len(calendar))
	for i, p := range calendar {
		order[p.ID] = i
	}
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		return order[sorted[i].PeriodID] < order[sorted[j].PeriodID]
	})

	carry := seed
	for i := range sorted {
		sorted[i].StartBalance = carry
		sorted[i].EndBalance = carry.Add(sorted[i].PeriodDebit).Sub(sorted[i].PeriodCredit)
		carry = sorted[i].EndBalance
	}
	return sorted
}

// threadAll threads every account chain, fanned out across workers. Chains
// are independent once the rows are grouped, so the fold parallelizes per
// account.
func threadAll(ctx context.Context, rows []Row, calendar []PeriodRef, seeds map[string]decimal.Decimal) ([]Row, error) {
	grouped := make(map[string][]Row)
	var accountOrder []string
	for _, row := range rows {
		if _, ok := grouped[row.AccountID]; !ok {
			accountOrder = append(accountOrder, row.AccountID)
		}
		grouped[row.AccountID] = append(grouped[row.AccountID], row)
	}

	var mu sync.Mutex
	threaded := make(map[string][]Row, len(grouped))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(threadConcurrency)
	for _, accountID := range accountOrder {
		accountID := accountID
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chain := ThreadChain(grouped[accountID], calendar, seeds[accountID])
			mu.Lock()
			threaded[accountID] = chain
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Row, 0, len(rows))
	for _, accountID := range accountOrder {
		out = append(out, threaded[accountID]...)
	}
	return out, nil
}
