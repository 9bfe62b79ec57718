package bronze

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists landed rows and serves them to the silver loaders.
type Repository interface {
	ReplaceAccounts(ctx context.Context, rows []AccountRow) (int, error)
	UpsertAccounts(ctx context.Context, rows []AccountRow) (int, error)
	ListAccounts(ctx context.Context) ([]AccountRow, error)
	ReplaceLedger(ctx context.Context, rows []LedgerRow) (int, error)
	ReplaceLedgerWindow(ctx context.Context, fromSec, toSec int64, rows []LedgerRow) (int, error)
	ListLedger(ctx context.Context) ([]LedgerRow, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ReplaceAccounts(ctx context.Context, rows []AccountRow) (int, error) {
	return r.loadAccounts(ctx, rows, true)
}

func (r *repository) UpsertAccounts(ctx context.Context, rows []AccountRow) (int, error) {
	return r.loadAccounts(ctx, rows, false)
}

func (r *repository) loadAccounts(ctx context.Context, rows []AccountRow, truncate bool) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if truncate {
		if _, err := tx.Exec(ctx, `TRUNCATE TABLE bronze.holded_accounts`); err != nil {
			return 0, err
		}
	}
	count := 0
	for _, row := range rows {
		_, err := tx.Exec(ctx, `INSERT INTO bronze.holded_accounts
(id, color, num, name, "group", debit, credit, balance, dwh_insert_timestamp, dwh_update_timestamp, dwh_batch_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
color = EXCLUDED.color,
num = EXCLUDED.num,
name = EXCLUDED.name,
"group" = EXCLUDED."group",
debit = EXCLUDED.debit,
credit = EXCLUDED.credit,
balance = EXCLUDED.balance,
dwh_update_timestamp = EXCLUDED.dwh_update_timestamp,
dwh_batch_id = EXCLUDED.dwh_batch_id`,
			row.SourceID, row.Color, row.Num, row.Name, row.Group, row.Debit, row.Credit, row.Balance,
			row.InsertedAt, row.UpdatedAt, row.BatchID)
		if err != nil {
			return 0, err
		}
		count++
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) ListAccounts(ctx context.Context) ([]AccountRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, color, num, name, "group", debit, credit, balance, dwh_insert_timestamp, dwh_update_timestamp, dwh_batch_id
FROM bronze.holded_accounts ORDER BY num`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountRow
	for rows.Next() {
		var row AccountRow
		if err := rows.Scan(&row.SourceID, &row.Color, &row.Num, &row.Name, &row.Group, &row.Debit, &row.Credit, &row.Balance, &row.InsertedAt, &row.UpdatedAt, &row.BatchID); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) ReplaceLedger(ctx context.Context, rows []LedgerRow) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `TRUNCATE TABLE bronze.holded_dailyledger`); err != nil {
		return 0, err
	}
	count, err := insertLedger(ctx, tx, rows)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return count, nil
}

// ReplaceLedgerWindow deletes the landed rows inside the sync window and
// reinserts the fresh extract. The API returns the complete window, so
// delete+insert keeps removals in the source visible downstream.
func (r *repository) ReplaceLedgerWindow(ctx context.Context, fromSec, toSec int64, rows []LedgerRow) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM bronze.holded_dailyledger WHERE entry_timestamp BETWEEN $1 AND $2`, fromSec, toSec); err != nil {
		return 0, err
	}
	count, err := insertLedger(ctx, tx, rows)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return count, nil
}

func insertLedger(ctx context.Context, tx pgx.Tx, rows []LedgerRow) (int, error) {
	count := 0
	for _, row := range rows {
		_, err := tx.Exec(ctx, `INSERT INTO bronze.holded_dailyledger
(entrynumber, line, entry_timestamp, type, description, docdescription, account, debit, credit, tags, checked, dwh_insert_timestamp, dwh_update_timestamp, dwh_batch_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			row.EntryNumber, row.Line, row.Timestamp, row.Type, row.Description, row.DocDescription,
			row.Account, row.Debit, row.Credit, row.Tags, row.Checked,
			row.InsertedAt, row.UpdatedAt, row.BatchID)
		if err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

func (r *repository) ListLedger(ctx context.Context) ([]LedgerRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT entrynumber, line, entry_timestamp, type, description, docdescription, account, debit, credit, tags, checked, dwh_insert_timestamp, dwh_update_timestamp, dwh_batch_id
FROM bronze.holded_dailyledger ORDER BY entrynumber, entry_timestamp, line`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerRow
	for rows.Next() {
		var row LedgerRow
		if err := rows.Scan(&row.EntryNumber, &row.Line, &row.Timestamp, &row.Type, &row.Description, &row.DocDescription, &row.Account, &row.Debit, &row.Credit, &row.Tags, &row.Checked, &row.InsertedAt, &row.UpdatedAt, &row.BatchID); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
