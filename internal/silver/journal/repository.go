package journal

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists silver journal entries and lines.
type Repository interface {
	ReplaceEntries(ctx context.Context, entries []Entry, truncate bool) error
	ReplaceLines(ctx context.Context, lines []Line, truncate bool) error
	ListEntries(ctx context.Context) ([]Entry, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ReplaceEntries(ctx context.Context, entries []Entry, truncate bool) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if truncate {
		if _, err := tx.Exec(ctx, `TRUNCATE TABLE silver.journal_entries CASCADE`); err != nil {
			return err
		}
	}
	for _, e := range entries {
		_, err := tx.Exec(ctx, `INSERT INTO silver.journal_entries
(entry_number, entry_date, original_timestamp, period_id, entry_type, description, document_description,
 is_closing_entry, is_opening_entry, is_adjustment, is_checked, entry_status, total_debit, total_credit,
 dwh_created_at, dwh_updated_at, dwh_source_table, dwh_batch_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
ON CONFLICT (entry_number) DO UPDATE SET
entry_date = EXCLUDED.entry_date,
original_timestamp = EXCLUDED.original_timestamp,
period_id = EXCLUDED.period_id,
entry_type = EXCLUDED.entry_type,
description = EXCLUDED.description,
document_description = EXCLUDED.document_description,
is_closing_entry = EXCLUDED.is_closing_entry,
is_opening_entry = EXCLUDED.is_opening_entry,
is_adjustment = EXCLUDED.is_adjustment,
total_debit = EXCLUDED.total_debit,
total_credit = EXCLUDED.total_credit,
dwh_updated_at = EXCLUDED.dwh_updated_at,
dwh_batch_id = EXCLUDED.dwh_batch_id`,
			e.EntryNumber, e.EntryDate, e.OriginalTimestamp, e.PeriodID, e.EntryType, e.Description, e.DocumentDescription,
			e.IsClosing, e.IsOpening, e.IsAdjustment, e.IsChecked, e.Status, e.TotalDebit, e.TotalCredit,
			e.CreatedAt, e.UpdatedAt, e.SourceTable, e.BatchID)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *repository) ReplaceLines(ctx context.Context, lines []Line, truncate bool) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if truncate {
		if _, err := tx.Exec(ctx, `TRUNCATE TABLE silver.journal_lines`); err != nil {
			return err
		}
	}
	for _, l := range lines {
		_, err := tx.Exec(ctx, `INSERT INTO silver.journal_lines
(entry_number, line_number, account_id, account_number, debit_amount, credit_amount, description, tags,
 tag1, tag2, tag3, tag4, is_checked, is_reconciled, is_tax_relevant, cost_center, business_line,
 dwh_created_at, dwh_updated_at, dwh_source_table, dwh_batch_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8::jsonb,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
ON CONFLICT (entry_number, line_number) DO UPDATE SET
account_id = EXCLUDED.account_id,
account_number = EXCLUDED.account_number,
debit_amount = EXCLUDED.debit_amount,
credit_amount = EXCLUDED.credit_amount,
description = EXCLUDED.description,
tags = EXCLUDED.tags,
tag1 = EXCLUDED.tag1,
tag2 = EXCLUDED.tag2,
tag3 = EXCLUDED.tag3,
tag4 = EXCLUDED.tag4,
is_checked = EXCLUDED.is_checked,
is_reconciled = EXCLUDED.is_reconciled,
is_tax_relevant = EXCLUDED.is_tax_relevant,
cost_center = EXCLUDED.cost_center,
business_line = EXCLUDED.business_line,
dwh_updated_at = EXCLUDED.dwh_updated_at,
dwh_batch_id = EXCLUDED.dwh_batch_id`,
			l.EntryNumber, l.LineNumber, l.AccountID, l.AccountNumber, l.Debit, l.Credit, l.Description, l.TagsJSON,
			l.Tag1, l.Tag2, l.Tag3, l.Tag4, l.IsChecked, l.IsReconciled, l.TaxRelevant, l.CostCenter, l.BusinessLine,
			l.CreatedAt, l.UpdatedAt, l.SourceTable, l.BatchID)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *repository) ListEntries(ctx context.Context) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT entry_number, entry_date, original_timestamp, period_id, entry_type, description, document_description,
is_closing_entry, is_opening_entry, is_adjustment, is_checked, entry_status, total_debit, total_credit,
dwh_created_at, dwh_updated_at, dwh_source_table, dwh_batch_id
FROM silver.journal_entries ORDER BY entry_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.EntryNumber, &e.EntryDate, &e.OriginalTimestamp, &e.PeriodID, &e.EntryType, &e.Description, &e.DocumentDescription,
			&e.IsClosing, &e.IsOpening, &e.IsAdjustment, &e.IsChecked, &e.Status, &e.TotalDebit, &e.TotalCredit,
			&e.CreatedAt, &e.UpdatedAt, &e.SourceTable, &e.BatchID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
