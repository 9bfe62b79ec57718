package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPeriodNotFound indicates the requested period does not exist.
var ErrPeriodNotFound = errors.New("periods: period not found")

// Repository persists the fiscal period calendar.
type Repository interface {
	ObservedLedgerRange(ctx context.Context) (*time.Time, *time.Time, error)
	Replace(ctx context.Context, ps []Period) (int, error)
	Upsert(ctx context.Context, ps []Period) (int, error)
	List(ctx context.Context) ([]Period, error)
	Get(ctx context.Context, id int64) (Period, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// ObservedLedgerRange returns the min and max landed ledger timestamps, or
// nils when the bronze layer is empty.
func (r *repository) ObservedLedgerRange(ctx context.Context) (*time.Time, *time.Time, error) {
	var minSec, maxSec *int64
	err := r.pool.QueryRow(ctx, `SELECT MIN(entry_timestamp), MAX(entry_timestamp) FROM bronze.holded_dailyledger`).
		Scan(&minSec, &maxSec)
	if err != nil {
		return nil, nil, err
	}
	if minSec == nil || maxSec == nil {
		return nil, nil, nil
	}
	minTime := time.Unix(*minSec, 0).UTC()
	maxTime := time.Unix(*maxSec, 0).UTC()
	return &minTime, &maxTime, nil
}

// Replace truncates the calendar and reinserts it (full refresh).
func (r *repository) Replace(ctx context.Context, ps []Period) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `TRUNCATE TABLE silver.fiscal_periods CASCADE`); err != nil {
		return 0, err
	}
	count, err := insertPeriods(ctx, tx, ps, false)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return count, nil
}

// Upsert inserts or updates periods keyed by (year, month).
func (r *repository) Upsert(ctx context.Context, ps []Period) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	count, err := insertPeriods(ctx, tx, ps, true)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return count, nil
}

func insertPeriods(ctx context.Context, tx pgx.Tx, ps []Period, upsert bool) (int, error) {
	query := `INSERT INTO silver.fiscal_periods
(period_year, period_quarter, period_month, period_name, start_date, end_date, is_closed, closing_date)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	if upsert {
		query += `
ON CONFLICT (period_year, period_month) DO UPDATE SET
period_quarter = EXCLUDED.period_quarter,
period_name = EXCLUDED.period_name,
start_date = EXCLUDED.start_date,
end_date = EXCLUDED.end_date,
is_closed = EXCLUDED.is_closed,
closing_date = EXCLUDED.closing_date`
	}
	count := 0
	for _, p := range ps {
		if _, err := tx.Exec(ctx, query, p.Year, p.Quarter, p.Month, p.Name, p.StartDate, p.EndDate, p.IsClosed, p.ClosingDate); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

// List returns the calendar ordered ascending by start date.
func (r *repository) List(ctx context.Context) ([]Period, error) {
	rows, err := r.pool.Query(ctx, `SELECT period_id, period_year, period_quarter, period_month, period_name, start_date, end_date, is_closed, closing_date
FROM silver.fiscal_periods ORDER BY start_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		var p Period
		if err := rows.Scan(&p.ID, &p.Year, &p.Quarter, &p.Month, &p.Name, &p.StartDate, &p.EndDate, &p.IsClosed, &p.ClosingDate); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get fetches one period by id.
func (r *repository) Get(ctx context.Context, id int64) (Period, error) {
	var p Period
	err := r.pool.QueryRow(ctx, `SELECT period_id, period_year, period_quarter, period_month, period_name, start_date, end_date, is_closed, closing_date
FROM silver.fiscal_periods WHERE period_id=$1`, id).
		Scan(&p.ID, &p.Year, &p.Quarter, &p.Month, &p.Name, &p.StartDate, &p.EndDate, &p.IsClosed, &p.ClosingDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrPeriodNotFound
		}
		return Period{}, err
	}
	return p, nil
}
