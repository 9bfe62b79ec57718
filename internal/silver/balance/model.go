// Package balance computes per-account fiscal-period balances out of silver
// journal lines: movement aggregation first, then chronological threading of
// start and end balances across the period chain.
package balance

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountRef identifies one account participating in the balance table.
type AccountRef struct {
	ID     string
	Number int64
}

// PeriodRef is the slice of a fiscal period the engine orders by.
type PeriodRef struct {
	ID        int64
	StartDate time.Time
}

// Movement is the aggregated debit and credit of one account in one period.
type Movement struct {
	AccountID     string
	AccountNumber int64
	PeriodID      int64
	Debit         decimal.Decimal
	Credit        decimal.Decimal
}

// Row mirrors silver.account_balances.
type Row struct {
	AccountID     string
	AccountNumber int64
	PeriodID      int64
	StartBalance  decimal.Decimal
	PeriodDebit   decimal.Decimal
	PeriodCredit  decimal.Decimal
	EndBalance    decimal.Decimal
	IsCalculated  bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	BatchID       string
}

// Stats summarizes one recompute.
type Stats struct {
	Accounts int    `json:"accounts"`
	Periods  int    `json:"periods"`
	Rows     int    `json:"rows"`
	BatchID  string `json:"batch_id"`
}
