package pgc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalizePadsShortNumbers(t *testing.T) {
	cases := map[int64]int64{
		430:      43000000,
		1:        10000000,
		5720001:  57200010,
		43000000: 43000000,
		99999999: 99999999,
	}
	for in, want := range cases {
		got, err := Canonicalize(in)
		require.NoError(t, err)
		require.Equal(t, want, got, "canonicalize %d", in)
	}
}

func TestCanonicalizeRejectsOutOfRange(t *testing.T) {
	for _, in := range []int64{0, -430, 100000000} {
		_, err := Canonicalize(in)
		require.Error(t, err)
	}
}

func TestClassifySimpleGroups(t *testing.T) {
	cases := map[int64]AccountType{
		20000000: TypeAsset,
		30000000: TypeAsset,
		60000000: TypeExpense,
		80000000: TypeExpense,
		70000000: TypeIncome,
		90000000: TypeIncome,
	}
	for number, want := range cases {
		c, err := Classify(number)
		require.NoError(t, err)
		require.Equal(t, want, c.Type, "number %d", number)
	}
}

func TestClassifyGroupOneSplitsEquityAndLiability(t *testing.T) {
	for _, number := range []int64{10000000, 11200000, 12000000, 13999999} {
		c, err := Classify(number)
		require.NoError(t, err)
		require.Equal(t, TypeEquity, c.Type, "number %d", number)
	}
	for _, number := range []int64{14000000, 17500000, 19999999} {
		c, err := Classify(number)
		require.NoError(t, err)
		require.Equal(t, TypeLiability, c.Type, "number %d", number)
	}
}

func TestClassifyGroupFour(t *testing.T) {
	liabilities := []int64{
		40000000, // proveedores
		41000000, // acreedores varios
		46000000, // personal
		47500000, // HP acreedora
		47510000,
		47520000,
		47580000,
		47600000, // organismos de la SS acreedores
		47700000, // IVA repercutido
		47900000,
	}
	for _, number := range liabilities {
		c, err := Classify(number)
		require.NoError(t, err)
		require.Equal(t, TypeLiability, c.Type, "number %d", number)
	}

	assets := []int64{
		43000000, // clientes
		44000000, // deudores
		47200000, // IVA soportado
		47300000,
		48000000,
		49000000,
	}
	for _, number := range assets {
		c, err := Classify(number)
		require.NoError(t, err)
		require.Equal(t, TypeAsset, c.Type, "number %d", number)
	}
}

func TestClassifyGroupFive(t *testing.T) {
	for _, number := range []int64{50000000, 51000000, 52300000, 55100000, 56000000} {
		c, err := Classify(number)
		require.NoError(t, err)
		require.Equal(t, TypeLiability, c.Type, "number %d", number)
	}
	for _, number := range []int64{53000000, 54000000, 57200000, 58000000, 59000000} {
		c, err := Classify(number)
		require.NoError(t, err)
		require.Equal(t, TypeAsset, c.Type, "number %d", number)
	}
}

func TestClassifyTotalAndDeterministic(t *testing.T) {
	// Sweep the leading two digits of the canonical range; every mapped
	// group must classify to a non-unknown type, twice identically.
	for subgroup := 10; subgroup <= 99; subgroup++ {
		number := int64(subgroup) * 1000000
		first, err := Classify(number)
		require.NoError(t, err)
		require.NotEqual(t, TypeUnknown, first.Type, "number %d", number)
		second, err := Classify(number)
		require.NoError(t, err)
		require.Equal(t, first, second)
	}
}

func TestParentChainReachesGroupRoot(t *testing.T) {
	number := int64(43021657)
	require.LessOrEqual(t, Parent(number), number)
	require.Equal(t, int64(43021650), Parent(number))

	// Walking the hierarchy seven levels up from any 8-digit code ends at
	// the single-digit group root scaled to 8 digits.
	current := number
	for level := 1; level <= 7; level++ {
		scale := int64(1)
		for i := 0; i < level; i++ {
			scale *= 10
		}
		current = number / scale * scale
	}
	require.Equal(t, int64(40000000), current)

	// A code already ending in zero is its own parent at this level.
	require.Equal(t, int64(43000000), Parent(43000000))
}

func TestSubtypeLookup(t *testing.T) {
	require.Equal(t, "Clientes", Subtype(43))
	require.Equal(t, "Tesorería", Subtype(57))
	require.Equal(t, "Subgroup 42", Subtype(42))
	require.Equal(t, "Subgroup 72", Subtype(72))
}

func TestTaxRelevant(t *testing.T) {
	require.True(t, TaxRelevant(47200001))  // IVA soportado
	require.True(t, TaxRelevant(47700000))  // IVA repercutido
	require.True(t, TaxRelevant(47400000))  // activos por impuesto
	require.True(t, TaxRelevant(62500000))  // expenses
	require.True(t, TaxRelevant(70500000))  // income
	require.False(t, TaxRelevant(43000000)) // clientes
	require.False(t, TaxRelevant(57200000)) // bancos
}

func TestClassifyScenario430(t *testing.T) {
	padded, err := Canonicalize(430)
	require.NoError(t, err)
	require.Equal(t, int64(43000000), padded)

	c, err := Classify(padded)
	require.NoError(t, err)
	require.Equal(t, TypeAsset, c.Type)
	require.Equal(t, "Clientes", c.Subtype)
	require.Equal(t, int64(43000000), c.ParentNumber)
	require.False(t, c.TaxRelevant)
	require.Equal(t, 4, c.Group)
	require.Equal(t, 43, c.Subgroup)
}
