package balance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerlake/ledgerlake/internal/platform/db"
)

// PgRepository is the Postgres-backed balance repository.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// WithTx runs fn inside one repeatable-read transaction.
func (r *PgRepository) WithTx(ctx context.Context, fn func(TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&txRepository{tx: tx})
	})
}

// Chain reads one account's balance rows in period order.
func (r *PgRepository) Chain(ctx context.Context, accountNumber int64) ([]Row, error) {
	rows, err := r.pool.Query(ctx, `SELECT ab.account_id, ab.account_number, ab.period_id,
ab.start_balance, ab.period_debit, ab.period_credit, ab.end_balance, ab.is_calculated,
ab.dwh_created_at, ab.dwh_updated_at, ab.dwh_batch_id
FROM silver.account_balances ab
JOIN silver.fiscal_periods fp ON ab.period_id = fp.period_id
WHERE ab.account_number = $1
ORDER BY fp.start_date`, accountNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

type txRepository struct {
	tx pgx.Tx
}

func (t *txRepository) Truncate(ctx context.Context) error {
	_, err := t.tx.Exec(ctx, `TRUNCATE TABLE silver.account_balances`)
	return err
}

func (t *txRepository) ActiveAccounts(ctx context.Context) ([]AccountRef, error) {
	rows, err := t.tx.Query(ctx, `SELECT DISTINCT account_id, account_number
FROM silver.journal_lines ORDER BY account_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountRef
	for rows.Next() {
		var ref AccountRef
		if err := rows.Scan(&ref.ID, &ref.Number); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (t *txRepository) Periods(ctx context.Context, asOf time.Time) ([]PeriodRef, error) {
	rows, err := t.tx.Query(ctx, `SELECT period_id, start_date
FROM silver.fiscal_periods WHERE end_date <= $1 ORDER BY start_date`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PeriodRef
	for rows.Next() {
		var ref PeriodRef
		if err := rows.Scan(&ref.ID, &ref.StartDate); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

const movementsQuery = `SELECT jl.account_id, jl.account_number, je.period_id,
SUM(jl.debit_amount), SUM(jl.credit_amount)
FROM silver.journal_lines jl
JOIN silver.journal_entries je ON jl.entry_number = je.entry_number
WHERE je.period_id IS NOT NULL`

func (t *txRepository) Movements(ctx context.Context) ([]Movement, error) {
	rows, err := t.tx.Query(ctx, movementsQuery+`
GROUP BY jl.account_id, jl.account_number, je.period_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

func (t *txRepository) MovementsFrom(ctx context.Context, from time.Time) ([]Movement, error) {
	rows, err := t.tx.Query(ctx, movementsQuery+`
AND je.period_id IN (SELECT period_id FROM silver.fiscal_periods WHERE start_date >= $1)
GROUP BY jl.account_id, jl.account_number, je.period_id`, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

// Seeds returns each account's latest end balance strictly before the anchor
// date, used as the carry-in for incremental threading.
func (t *txRepository) Seeds(ctx context.Context, before time.Time) (map[string]decimal.Decimal, error) {
	rows, err := t.tx.Query(ctx, `SELECT DISTINCT ON (ab.account_id) ab.account_id, ab.end_balance
FROM silver.account_balances ab
JOIN silver.fiscal_periods fp ON ab.period_id = fp.period_id
WHERE fp.start_date < $1
ORDER BY ab.account_id, fp.start_date DESC`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var accountID string
		var end decimal.Decimal
		if err := rows.Scan(&accountID, &end); err != nil {
			return nil, err
		}
		out[accountID] = end
	}
	return out, rows.Err()
}

func (t *txRepository) PeriodStart(ctx context.Context, periodID int64) (time.Time, error) {
	var start time.Time
	err := t.tx.QueryRow(ctx, `SELECT start_date FROM silver.fiscal_periods WHERE period_id = $1`, periodID).Scan(&start)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrPeriodNotFound
	}
	return start, err
}

func (t *txRepository) Upsert(ctx context.Context, rows []Row) error {
	for _, row := range rows {
		_, err := t.tx.Exec(ctx, `INSERT INTO silver.account_balances
(account_id, account_number, period_id, start_balance, period_debit, period_credit, end_balance,
 is_calculated, dwh_created_at, dwh_updated_at, dwh_batch_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (account_id, period_id) DO UPDATE SET
account_number = EXCLUDED.account_number,
start_balance = EXCLUDED.start_balance,
period_debit = EXCLUDED.period_debit,
period_credit = EXCLUDED.period_credit,
end_balance = EXCLUDED.end_balance,
is_calculated = EXCLUDED.is_calculated,
dwh_updated_at = EXCLUDED.dwh_updated_at,
dwh_batch_id = EXCLUDED.dwh_batch_id`,
			row.AccountID, row.AccountNumber, row.PeriodID, row.StartBalance, row.PeriodDebit, row.PeriodCredit, row.EndBalance,
			row.IsCalculated, row.CreatedAt, row.UpdatedAt, row.BatchID)
		if err != nil {
			return err
		}
	}
	return nil
}

func scanMovements(rows pgx.Rows) ([]Movement, error) {
	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.AccountID, &m.AccountNumber, &m.PeriodID, &m.Debit, &m.Credit); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanRows(rows pgx.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.AccountID, &row.AccountNumber, &row.PeriodID,
			&row.StartBalance, &row.PeriodDebit, &row.PeriodCredit, &row.EndBalance, &row.IsCalculated,
			&row.CreatedAt, &row.UpdatedAt, &row.BatchID); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
