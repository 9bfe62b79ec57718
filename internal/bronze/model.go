// Package bronze lands Holded API payloads into the bronze schema with
// minimal transformation. Rows keep their source shape plus lineage columns.
package bronze

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountRow mirrors bronze.holded_accounts.
type AccountRow struct {
	SourceID   string
	Color      string
	Num        *int64
	Name       string
	Group      string
	Debit      decimal.Decimal
	Credit     decimal.Decimal
	Balance    decimal.Decimal
	InsertedAt time.Time
	UpdatedAt  time.Time
	BatchID    string
}

// LedgerRow mirrors bronze.holded_dailyledger: one journal line flattened
// out of its entry, with the entry-level fields repeated.
type LedgerRow struct {
	EntryNumber    int64
	Line           int
	Timestamp      int64
	Type           string
	Description    string
	DocDescription string
	Account        *int64
	Debit          decimal.Decimal
	Credit         decimal.Decimal
	Tags           string
	Checked        string
	InsertedAt     time.Time
	UpdatedAt      time.Time
	BatchID        string
}
