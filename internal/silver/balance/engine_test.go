package balance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memPeriod struct {
	ref PeriodRef
	end time.Time
}

type rowKey struct {
	accountID string
	periodID  int64
}

// memStore is an in-memory Repository with copy-on-commit transactions.
type memStore struct {
	periods   []memPeriod
	accounts  []AccountRef
	movements map[int64][]Movement
	rows      map[rowKey]Row
	failOnce  bool
}

func (s *memStore) WithTx(ctx context.Context, fn func(TxRepository) error) error {
	staged := make(map[rowKey]Row, len(s.rows))
	for k, v := range s.rows {
		staged[k] = v
	}
	tx := &memTx{store: s, rows: staged}
	if err := fn(tx); err != nil {
		return err
	}
	s.rows = staged
	return nil
}

type memTx struct {
	store *memStore
	rows  map[rowKey]Row
}

func (t *memTx) Truncate(ctx context.Context) error {
	clear(t.rows)
	return nil
}

func (t *memTx) ActiveAccounts(ctx context.Context) ([]AccountRef, error) {
	return t.store.accounts, nil
}

func (t *memTx) Periods(ctx context.Context, asOf time.Time) ([]PeriodRef, error) {
	var out []PeriodRef
	for _, p := range t.store.periods {
		if !p.end.After(asOf) {
			out = append(out, p.ref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (t *memTx) Movements(ctx context.Context) ([]Movement, error) {
	var out []Movement
	for _, ms := range t.store.movements {
		out = append(out, ms...)
	}
	return out, nil
}

func (t *memTx) MovementsFrom(ctx context.Context, from time.Time) ([]Movement, error) {
	var out []Movement
	for _, p := range t.store.periods {
		if p.ref.StartDate.Before(from) {
			continue
		}
		out = append(out, t.store.movements[p.ref.ID]...)
	}
	return out, nil
}

func (t *memTx) Seeds(ctx context.Context, before time.Time) (map[string]decimal.Decimal, error) {
	starts := make(map[int64]time.Time)
	for _, p := range t.store.periods {
		starts[p.ref.ID] = p.ref.StartDate
	}
	latest := make(map[string]time.Time)
	out := make(map[string]decimal.Decimal)
	for key, row := range t.rows {
		start := starts[key.periodID]
		if !start.Before(before) {
			continue
		}
		if prev, ok := latest[key.accountID]; !ok || start.After(prev) {
			latest[key.accountID] = start
			out[key.accountID] = row.EndBalance
		}
	}
	return out, nil
}

func (t *memTx) PeriodStart(ctx context.Context, periodID int64) (time.Time, error) {
	for _, p := range t.store.periods {
		if p.ref.ID == periodID {
			return p.ref.StartDate, nil
		}
	}
	return time.Time{}, ErrPeriodNotFound
}

func (t *memTx) Upsert(ctx context.Context, rows []Row) error {
	if t.store.failOnce {
		t.store.failOnce = false
		return errors.New("upsert failed")
	}
	for _, row := range rows {
		t.rows[rowKey{row.AccountID, row.PeriodID}] = row
	}
	return nil
}

func month(year int, m time.Month) memPeriod {
	start := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
	return memPeriod{
		ref: PeriodRef{ID: int64(year*100 + int(m)), StartDate: start},
		end: start.AddDate(0, 1, -1),
	}
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newStore() *memStore {
	jan, feb, mar := month(2024, time.January), month(2024, time.February), month(2024, time.March)
	return &memStore{
		periods: []memPeriod{jan, feb, mar},
		accounts: []AccountRef{
			{ID: "a1", Number: 43000000},
			{ID: "a2", Number: 70000000},
		},
		movements: map[int64][]Movement{
			jan.ref.ID: {{AccountID: "a1", AccountNumber: 43000000, PeriodID: jan.ref.ID, Debit: d(100)}},
			feb.ref.ID: {{AccountID: "a2", AccountNumber: 70000000, PeriodID: feb.ref.ID, Credit: d(100)}},
			mar.ref.ID: {{AccountID: "a1", AccountNumber: 43000000, PeriodID: mar.ref.ID, Credit: d(30)}},
		},
		rows: map[rowKey]Row{},
	}
}

func newEngine(store *memStore) *Engine {
	e := NewEngine(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.WithClock(func() time.Time { return time.Date(2024, time.April, 15, 0, 0, 0, 0, time.UTC) })
	return e
}

func chainOf(store *memStore, accountID string) []Row {
	var out []Row
	for key, row := range store.rows {
		if key.accountID == accountID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodID < out[j].PeriodID })
	return out
}

func TestRecomputeAllThreadsChains(t *testing.T) {
	store := newStore()
	engine := newEngine(store)

	stats, err := engine.RecomputeAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.Accounts)
	require.Equal(t, 3, stats.Periods)
	require.Equal(t, 6, stats.Rows)

	a1 := chainOf(store, "a1")
	require.Len(t, a1, 3)
	require.Equal(t, "0", a1[0].StartBalance.String())
	require.Equal(t, "100", a1[0].EndBalance.String())
	require.Equal(t, "100", a1[1].StartBalance.String())
	require.Equal(t, "100", a1[1].EndBalance.String())
	require.Equal(t, "100", a1[2].StartBalance.String())
	require.Equal(t, "70", a1[2].EndBalance.String())

	a2 := chainOf(store, "a2")
	require.Equal(t, "0", a2[0].EndBalance.String())
	require.Equal(t, "-100", a2[1].EndBalance.String())
	require.Equal(t, "-100", a2[2].StartBalance.String())
	require.Equal(t, "-100", a2[2].EndBalance.String())

	for _, chain := range [][]Row{a1, a2} {
		for i, row := range chain {
			require.True(t, row.IsCalculated)
			require.Equal(t, row.StartBalance.Add(row.PeriodDebit).Sub(row.PeriodCredit).String(), row.EndBalance.String())
			if i > 0 {
				require.Equal(t, chain[i-1].EndBalance.String(), row.StartBalance.String())
			}
		}
	}
}

func TestRecomputeAllExcludesOpenPeriods(t *testing.T) {
	store := newStore()
	store.periods = append(store.periods, month(2024, time.April), month(2024, time.May))
	engine := newEngine(store)

	stats, err := engine.RecomputeAll(context.Background())
	require.NoError(t, err)
	// April ends after the clock's April 15, so only Jan-Mar qualify.
	require.Equal(t, 3, stats.Periods)
}

func TestRecomputeAllIsIdempotent(t *testing.T) {
	store := newStore()
	engine := newEngine(store)

	_, err := engine.RecomputeAll(context.Background())
	require.NoError(t, err)
	first := chainOf(store, "a1")

	_, err = engine.RecomputeAll(context.Background())
	require.NoError(t, err)
	second := chainOf(store, "a1")

	require.Equal(t, len(first), len(second))
	for i := range first {
		require.Equal(t, first[i].StartBalance.String(), second[i].StartBalance.String())
		require.Equal(t, first[i].EndBalance.String(), second[i].EndBalance.String())
	}
}

func TestRecomputeFromMatchesFullRecompute(t *testing.T) {
	store := newStore()
	engine := newEngine(store)
	_, err := engine.RecomputeAll(context.Background())
	require.NoError(t, err)

	// New activity lands in February after the first recompute.
	feb := month(2024, time.February).ref
	store.movements[feb.ID] = append(store.movements[feb.ID],
		Movement{AccountID: "a1", AccountNumber: 43000000, PeriodID: feb.ID, Debit: d(50)})

	stats, err := engine.RecomputeFrom(context.Background(), feb.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Periods)

	incremental := chainOf(store, "a1")

	full := newStore()
	full.movements[feb.ID] = store.movements[feb.ID]
	_, err = newEngine(full).RecomputeAll(context.Background())
	require.NoError(t, err)
	expected := chainOf(full, "a1")

	require.Equal(t, len(expected), len(incremental))
	for i := range expected {
		require.Equal(t, expected[i].StartBalance.String(), incremental[i].StartBalance.String())
		require.Equal(t, expected[i].EndBalance.String(), incremental[i].EndBalance.String())
	}
	// The anchor period starts from January's untouched end balance.
	require.Equal(t, "100", incremental[1].StartBalance.String())
	require.Equal(t, "150", incremental[1].EndBalance.String())
	require.Equal(t, "120", incremental[2].EndBalance.String())
}

func TestRecomputeFromUnknownPeriod(t *testing.T) {
	store := newStore()
	engine := newEngine(store)

	_, err := engine.RecomputeFrom(context.Background(), 999999)
	require.ErrorIs(t, err, ErrPeriodNotFound)
}

func TestRecomputeAllRollsBackOnFailure(t *testing.T) {
	store := newStore()
	engine := newEngine(store)
	_, err := engine.RecomputeAll(context.Background())
	require.NoError(t, err)
	before := len(store.rows)

	store.failOnce = true
	_, err = engine.RecomputeAll(context.Background())
	require.Error(t, err)
	// The truncate inside the failed transaction must not be visible.
	require.Len(t, store.rows, before)
}
