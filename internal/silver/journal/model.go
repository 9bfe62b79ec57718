// Package journal normalizes landed daily-ledger rows into silver journal
// entries and lines.
package journal

import (
	"time"

	"github.com/shopspring/decimal"
)

const sourceTable = "bronze.holded_dailyledger"

// Entry mirrors silver.journal_entries: one journal entry aggregated out of
// its landed lines.
type Entry struct {
	EntryNumber         int64
	EntryDate           time.Time
	OriginalTimestamp   int64
	PeriodID            *int64
	EntryType           string
	Description         string
	DocumentDescription string
	IsClosing           bool
	IsOpening           bool
	IsAdjustment        bool
	IsChecked           bool
	Status              string
	TotalDebit          decimal.Decimal
	TotalCredit         decimal.Decimal
	CreatedAt           time.Time
	UpdatedAt           time.Time
	SourceTable         string
	BatchID             string
}

// Line mirrors silver.journal_lines.
type Line struct {
	EntryNumber   int64
	LineNumber    int
	AccountID     string
	AccountNumber int64
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Description   string
	TagsJSON      string
	Tag1          *string
	Tag2          *string
	Tag3          *string
	Tag4          *string
	IsChecked     bool
	IsReconciled  bool
	TaxRelevant   bool
	CostCenter    *string
	BusinessLine  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	SourceTable   string
	BatchID       string
}
