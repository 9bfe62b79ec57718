// Package accounts builds the silver chart of accounts from landed bronze
// rows, enriched with the PGC classification.
package accounts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account mirrors silver.accounts.
type Account struct {
	SourceID         string
	Number           int64
	Name             string
	Group            string
	Type             string
	Subtype          string
	IsAnalytic       bool
	ParentNumber     int64
	Level            int
	IsActive         bool
	CurrentBalance   decimal.Decimal
	DebitBalance     decimal.Decimal
	CreditBalance    decimal.Decimal
	LastMovementDate *time.Time
	PGCGroup         int
	PGCSubgroup      int
	TaxRelevant      bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	SourceTable      string
	BatchID          string
}

// LoadStats summarizes one accounts load.
type LoadStats struct {
	Loaded  int            `json:"loaded"`
	Skipped int            `json:"skipped"`
	ByType  map[string]int `json:"by_type"`
}
