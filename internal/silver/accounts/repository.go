package accounts

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists silver accounts.
type Repository interface {
	Replace(ctx context.Context, accounts []Account, truncate bool) error
	List(ctx context.Context) ([]Account, error)
	NumberIDs(ctx context.Context) (map[int64]string, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Replace(ctx context.Context, accounts []Account, truncate bool) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if truncate {
		if _, err := tx.Exec(ctx, `TRUNCATE TABLE silver.accounts CASCADE`); err != nil {
			return err
		}
	}
	for _, acc := range accounts {
		_, err := tx.Exec(ctx, `INSERT INTO silver.accounts
(account_id, account_number, account_name, account_group, account_type, account_subtype,
 is_analytic, parent_account_number, account_level, is_active, current_balance, debit_balance,
 credit_balance, last_movement_date, pgc_group, pgc_subgroup, tax_relevant,
 dwh_created_at, dwh_updated_at, dwh_source_table, dwh_batch_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
ON CONFLICT (account_number) DO UPDATE SET
account_id = EXCLUDED.account_id,
account_name = EXCLUDED.account_name,
account_group = EXCLUDED.account_group,
account_type = EXCLUDED.account_type,
account_subtype = EXCLUDED.account_subtype,
parent_account_number = EXCLUDED.parent_account_number,
is_active = EXCLUDED.is_active,
current_balance = EXCLUDED.current_balance,
debit_balance = EXCLUDED.debit_balance,
credit_balance = EXCLUDED.credit_balance,
last_movement_date = EXCLUDED.last_movement_date,
pgc_group = EXCLUDED.pgc_group,
pgc_subgroup = EXCLUDED.pgc_subgroup,
tax_relevant = EXCLUDED.tax_relevant,
dwh_updated_at = EXCLUDED.dwh_updated_at,
dwh_batch_id = EXCLUDED.dwh_batch_id`,
			acc.SourceID, acc.Number, acc.Name, acc.Group, acc.Type, acc.Subtype,
			acc.IsAnalytic, acc.ParentNumber, acc.Level, acc.IsActive, acc.CurrentBalance, acc.DebitBalance,
			acc.CreditBalance, acc.LastMovementDate, acc.PGCGroup, acc.PGCSubgroup, acc.TaxRelevant,
			acc.CreatedAt, acc.UpdatedAt, acc.SourceTable, acc.BatchID)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT account_id, account_number, account_name, account_group, account_type, account_subtype,
is_analytic, parent_account_number, account_level, is_active, current_balance, debit_balance,
credit_balance, last_movement_date, pgc_group, pgc_subgroup, tax_relevant,
dwh_created_at, dwh_updated_at, dwh_source_table, dwh_batch_id
FROM silver.accounts ORDER BY account_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var acc Account
		if err := rows.Scan(&acc.SourceID, &acc.Number, &acc.Name, &acc.Group, &acc.Type, &acc.Subtype,
			&acc.IsAnalytic, &acc.ParentNumber, &acc.Level, &acc.IsActive, &acc.CurrentBalance, &acc.DebitBalance,
			&acc.CreditBalance, &acc.LastMovementDate, &acc.PGCGroup, &acc.PGCSubgroup, &acc.TaxRelevant,
			&acc.CreatedAt, &acc.UpdatedAt, &acc.SourceTable, &acc.BatchID); err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, rows.Err()
}

// NumberIDs maps account numbers to source ids for journal line resolution.
func (r *repository) NumberIDs(ctx context.Context) (map[int64]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT account_number, account_id FROM silver.accounts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]string)
	for rows.Next() {
		var number int64
		var id string
		if err := rows.Scan(&number, &id); err != nil {
			return nil, err
		}
		out[number] = id
	}
	return out, rows.Err()
}
