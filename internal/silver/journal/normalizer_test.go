package journal

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlake/ledgerlake/internal/bronze"
	"github.com/ledgerlake/ledgerlake/internal/silver/periods"
)

func testCalendar() []periods.Period {
	return []periods.Period{
		{
			ID: 1, Year: 2024, Month: 3, Name: "2024-03",
			StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestNormalizeGroupsByEntryNumber(t *testing.T) {
	march10 := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC).Unix()
	march10Later := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC).Unix()

	rows := []bronze.LedgerRow{
		{EntryNumber: 7, Line: 1, Timestamp: march10Later, Description: "Factura 23", Type: "invoice",
			Debit: decimal.NewFromInt(121)},
		{EntryNumber: 7, Line: 2, Timestamp: march10, Description: "Factura 23 rev",
			Credit: decimal.NewFromInt(121)},
		{EntryNumber: 9, Line: 1, Timestamp: march10, Description: "ASIENTO DE CIERRE",
			Debit: decimal.NewFromInt(50), Credit: decimal.NewFromInt(50)},
	}

	n := NewNormalizer(nil, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	entries := n.Normalize(rows, testCalendar())
	require.Len(t, entries, 2)

	first := entries[0]
	require.Equal(t, int64(7), first.EntryNumber)
	require.Equal(t, march10, first.OriginalTimestamp)
	require.Equal(t, "Factura 23 rev", first.Description)
	require.Equal(t, "invoice", first.EntryType)
	require.Equal(t, "121", first.TotalDebit.String())
	require.Equal(t, "121", first.TotalCredit.String())
	require.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), first.EntryDate)
	require.NotNil(t, first.PeriodID)
	require.Equal(t, int64(1), *first.PeriodID)
	require.Equal(t, "Posted", first.Status)
	require.False(t, first.IsClosing)

	second := entries[1]
	require.True(t, second.IsClosing)
	require.False(t, second.IsOpening)
	require.False(t, second.IsAdjustment)
}

func TestNormalizeEntryOutsideCalendarKeepsNullPeriod(t *testing.T) {
	rows := []bronze.LedgerRow{
		{EntryNumber: 3, Line: 1, Timestamp: time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC).Unix(),
			Description: "Asiento de apertura"},
	}
	n := NewNormalizer(nil, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	entries := n.Normalize(rows, testCalendar())
	require.Len(t, entries, 1)
	require.Nil(t, entries[0].PeriodID)
	require.True(t, entries[0].IsOpening)
}

func TestNormalizeFlagMatchingIsCaseInsensitive(t *testing.T) {
	rows := []bronze.LedgerRow{
		{EntryNumber: 1, Line: 1, Timestamp: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Unix(),
			Description: "ajuste de existencias"},
	}
	n := NewNormalizer(nil, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	entries := n.Normalize(rows, testCalendar())
	require.True(t, entries[0].IsAdjustment)
}
