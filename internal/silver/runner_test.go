package silver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerlake/ledgerlake/internal/silver/accounts"
	"github.com/ledgerlake/ledgerlake/internal/silver/balance"
	"github.com/ledgerlake/ledgerlake/internal/silver/journal"
)

type fakeStages struct {
	ran       []string
	failAt    string
	refreshes []bool
}

func (f *fakeStages) step(name string, fullRefresh bool) error {
	f.ran = append(f.ran, name)
	f.refreshes = append(f.refreshes, fullRefresh)
	if f.failAt == name {
		return errors.New(name + " failed")
	}
	return nil
}

func (f *fakeStages) Load(ctx context.Context, fullRefresh bool) (accounts.LoadStats, error) {
	return accounts.LoadStats{Loaded: 1}, f.step(StageAccounts, fullRefresh)
}

type fakePeriods struct{ f *fakeStages }

func (p *fakePeriods) Load(ctx context.Context, fullRefresh bool) (int, error) {
	return 12, p.f.step(StagePeriods, fullRefresh)
}

type fakeEntries struct{ f *fakeStages }

func (e *fakeEntries) Load(ctx context.Context, fullRefresh bool) (int, error) {
	return 40, e.f.step(StageEntries, fullRefresh)
}

type fakeLines struct{ f *fakeStages }

func (l *fakeLines) Load(ctx context.Context, fullRefresh bool) (journal.ResolveStats, error) {
	return journal.ResolveStats{Loaded: 80}, l.f.step(StageLines, fullRefresh)
}

type fakeBalances struct{ f *fakeStages }

func (b *fakeBalances) RecomputeAll(ctx context.Context) (balance.Stats, error) {
	return balance.Stats{Rows: 240}, b.f.step(StageBalances, false)
}

func newTestRunner(f *fakeStages) *Runner {
	return NewRunner(f, &fakePeriods{f}, &fakeEntries{f}, &fakeLines{f}, &fakeBalances{f}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRunExecutesStagesInOrder(t *testing.T) {
	f := &fakeStages{}
	report, err := newTestRunner(f).Run(context.Background(), Options{FullRefresh: true})
	require.NoError(t, err)
	require.Equal(t, StageOrder, f.ran)
	require.Equal(t, []bool{true, true, true, true, false}, f.refreshes)
	require.Equal(t, 1, report.Accounts.Loaded)
	require.Equal(t, 12, *report.Periods)
	require.Equal(t, 40, *report.Entries)
	require.Equal(t, 80, report.Lines.Loaded)
	require.Equal(t, 240, report.Balances.Rows)
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	f := &fakeStages{failAt: StageEntries}
	report, err := newTestRunner(f).Run(context.Background(), Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "entries")
	require.Equal(t, []string{StageAccounts, StagePeriods, StageEntries}, f.ran)
	require.NotNil(t, report.Periods)
	require.Nil(t, report.Lines)
}

func TestRunSelectsTablesKeepingOrder(t *testing.T) {
	f := &fakeStages{}
	_, err := newTestRunner(f).Run(context.Background(), Options{Tables: []string{StageBalances, StageEntries}})
	require.NoError(t, err)
	require.Equal(t, []string{StageEntries, StageBalances}, f.ran)
}

func TestRunRejectsUnknownTable(t *testing.T) {
	f := &fakeStages{}
	_, err := newTestRunner(f).Run(context.Background(), Options{Tables: []string{"gold"}})
	require.Error(t, err)
	require.Empty(t, f.ran)
}
