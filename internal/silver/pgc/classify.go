// Package pgc classifies account numbers under the Spanish General Chart of
// Accounts (Plan General Contable). Classification is a pure function of the
// canonical 8-digit account number.
package pgc

import (
	"fmt"
)

// AccountType enumerates the five statement categories plus Unknown for
// numbers outside the mapped groups.
type AccountType string

const (
	TypeAsset     AccountType = "Asset"
	TypeLiability AccountType = "Liability"
	TypeEquity    AccountType = "Equity"
	TypeIncome    AccountType = "Income"
	TypeExpense   AccountType = "Expense"
	TypeUnknown   AccountType = "Unknown"
)

// Classification is the derived profile of one account number.
type Classification struct {
	Number       int64
	Type         AccountType
	Subtype      string
	Group        int
	Subgroup     int
	ParentNumber int64
	TaxRelevant  bool
}

const (
	minCanonical = 10000000
	maxCanonical = 99999999
)

// group 47 sub-ranges (digits 3-4) that hold public-administration creditor
// positions rather than receivables.
var liabilityGroup47 = map[int]bool{
	50: true, 51: true, 52: true, 58: true, 59: true,
	60: true, 61: true, 70: true, 79: true,
}

// four-digit prefixes of VAT and corporate-tax clearing accounts.
var taxClearingPrefixes = map[int64]bool{
	4720: true, 4770: true, 4740: true, 4745: true, 4752: true,
}

// ErrInvalidNumber reports an account number that cannot be canonicalised.
type ErrInvalidNumber struct {
	Number int64
}

func (e ErrInvalidNumber) Error() string {
	return fmt.Sprintf("pgc: account number %d out of range", e.Number)
}

// Canonicalize scales a short account number up to the 8-digit canonical
// form by right-padding with zeros: 430 becomes 43000000. The padding is
// lossy; every downstream consumer must use the padded number.
func Canonicalize(number int64) (int64, error) {
	if number <= 0 || number > maxCanonical {
		return 0, ErrInvalidNumber{Number: number}
	}
	for number < minCanonical {
		number *= 10
	}
	return number, nil
}

// Classify derives the full PGC profile for a canonical 8-digit number.
// Numbers outside 10000000-99999999 are rejected; callers are expected to
// run Canonicalize first.
func Classify(number int64) (Classification, error) {
	if number < minCanonical || number > maxCanonical {
		return Classification{}, ErrInvalidNumber{Number: number}
	}
	group := int(number / 10000000)
	subgroup := int(number / 1000000)
	return Classification{
		Number:       number,
		Type:         accountType(number),
		Subtype:      Subtype(subgroup),
		Group:        group,
		Subgroup:     subgroup,
		ParentNumber: Parent(number),
		TaxRelevant:  TaxRelevant(number),
	}, nil
}

// Parent zeroes the last digit of the number, yielding the immediate rollup
// node. Applying Parent repeatedly walks up to the single-digit group root.
func Parent(number int64) int64 {
	return number / 10 * 10
}

// TaxRelevant reports whether the account participates in VAT or corporate
// tax returns: every income or expense account, plus the fixed set of tax
// clearing-account ranges in group 47.
func TaxRelevant(number int64) bool {
	if taxClearingPrefixes[number/10000] {
		return true
	}
	group := number / 10000000
	return group == 6 || group == 7
}

func accountType(number int64) AccountType {
	first := int(number / 10000000)
	second := int(number / 1000000 % 10)

	switch first {
	case 2, 3:
		return TypeAsset
	case 6, 8:
		return TypeExpense
	case 7, 9:
		return TypeIncome
	case 1:
		// Subgroups 10-13 are equity; 14-19 provisions and long-term debt.
		if second <= 3 {
			return TypeEquity
		}
		return TypeLiability
	case 4:
		if second == 0 || second == 1 || second == 6 {
			return TypeLiability
		}
		if second == 7 && liabilityGroup47[int(number/10000%100)] {
			return TypeLiability
		}
		return TypeAsset
	case 5:
		switch second {
		case 0, 1, 2, 5, 6:
			return TypeLiability
		}
		return TypeAsset
	}
	return TypeUnknown
}
