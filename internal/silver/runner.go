// Package silver sequences the loaders that build the silver layer out of
// landed bronze rows.
package silver

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ledgerlake/ledgerlake/internal/silver/accounts"
	"github.com/ledgerlake/ledgerlake/internal/silver/balance"
	"github.com/ledgerlake/ledgerlake/internal/silver/journal"
)

// Stage names accepted by Options.Tables, in execution order. Entries must
// load before lines, and balances always run last.
var StageOrder = []string{
	StageAccounts, StagePeriods, StageEntries, StageLines, StageBalances,
}

const (
	StageAccounts = "accounts"
	StagePeriods  = "periods"
	StageEntries  = "entries"
	StageLines    = "lines"
	StageBalances = "balances"
)

// AccountStage loads the silver chart of accounts.
type AccountStage interface {
	Load(ctx context.Context, fullRefresh bool) (accounts.LoadStats, error)
}

// PeriodStage regenerates the fiscal calendar.
type PeriodStage interface {
	Load(ctx context.Context, fullRefresh bool) (int, error)
}

// EntryStage normalizes journal entries.
type EntryStage interface {
	Load(ctx context.Context, fullRefresh bool) (int, error)
}

// LineStage resolves journal lines.
type LineStage interface {
	Load(ctx context.Context, fullRefresh bool) (journal.ResolveStats, error)
}

// BalanceStage recomputes account balances.
type BalanceStage interface {
	RecomputeAll(ctx context.Context) (balance.Stats, error)
}

// Runner executes the silver stages in dependency order.
type Runner struct {
	accounts AccountStage
	periods  PeriodStage
	entries  EntryStage
	lines    LineStage
	balances BalanceStage
	logger   *slog.Logger
}

// Options selects what one run does.
type Options struct {
	// FullRefresh truncates each selected table before loading.
	FullRefresh bool
	// Tables limits the run to the named stages; empty means all of them.
	Tables []string
}

// Report collects per-stage outcomes of one run.
type Report struct {
	Accounts *accounts.LoadStats   `json:"accounts,omitempty"`
	Periods  *int                  `json:"periods,omitempty"`
	Entries  *int                  `json:"entries,omitempty"`
	Lines    *journal.ResolveStats `json:"lines,omitempty"`
	Balances *balance.Stats        `json:"balances,omitempty"`
}

// NewRunner constructs the stage runner.
func NewRunner(accountStage AccountStage, periodStage PeriodStage, entryStage EntryStage, lineStage LineStage, balanceStage BalanceStage, logger *slog.Logger) *Runner {
	return &Runner{
		accounts: accountStage,
		periods:  periodStage,
		entries:  entryStage,
		lines:    lineStage,
		balances: balanceStage,
		logger:   logger,
	}
}

// Run executes the selected stages in order and stops at the first failure:
// later stages depend on earlier ones, so continuing past a failed stage
// would build on stale data.
func (r *Runner) Run(ctx context.Context, opts Options) (Report, error) {
	selected := opts.Tables
	if len(selected) == 0 {
		selected = StageOrder
	}
	for _, name := range selected {
		if !slices.Contains(StageOrder, name) {
			return Report{}, fmt.Errorf("silver: unknown stage %q", name)
		}
	}

	var report Report
	for _, name := range StageOrder {
		if !slices.Contains(selected, name) {
			continue
		}
		r.logger.Info("running silver stage", slog.String("stage", name), slog.Bool("full_refresh", opts.FullRefresh))
		switch name {
		case StageAccounts:
			stats, err := r.accounts.Load(ctx, opts.FullRefresh)
			if err != nil {
				return report, fmt.Errorf("silver: stage %s: %w", name, err)
			}
			report.Accounts = &stats
		case StagePeriods:
			count, err := r.periods.Load(ctx, opts.FullRefresh)
			if err != nil {
				return report, fmt.Errorf("silver: stage %s: %w", name, err)
			}
			report.Periods = &count
		case StageEntries:
			count, err := r.entries.Load(ctx, opts.FullRefresh)
			if err != nil {
				return report, fmt.Errorf("silver: stage %s: %w", name, err)
			}
			report.Entries = &count
		case StageLines:
			stats, err := r.lines.Load(ctx, opts.FullRefresh)
			if err != nil {
				return report, fmt.Errorf("silver: stage %s: %w", name, err)
			}
			report.Lines = &stats
		case StageBalances:
			stats, err := r.balances.RecomputeAll(ctx)
			if err != nil {
				return report, fmt.Errorf("silver: stage %s: %w", name, err)
			}
			report.Balances = &stats
		}
	}
	return report, nil
}
