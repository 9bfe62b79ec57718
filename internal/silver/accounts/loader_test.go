package accounts

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlake/ledgerlake/internal/bronze"
)

type stubBronze struct {
	rows []bronze.AccountRow
}

func (s *stubBronze) ListAccounts(ctx context.Context) ([]bronze.AccountRow, error) {
	return s.rows, nil
}

type memRepo struct {
	accounts  []Account
	truncated bool
}

func (m *memRepo) Replace(ctx context.Context, accounts []Account, truncate bool) error {
	m.truncated = truncate
	m.accounts = accounts
	return nil
}

func (m *memRepo) List(ctx context.Context) ([]Account, error) { return m.accounts, nil }

func (m *memRepo) NumberIDs(ctx context.Context) (map[int64]string, error) {
	out := make(map[int64]string, len(m.accounts))
	for _, acc := range m.accounts {
		out[acc.Number] = acc.SourceID
	}
	return out, nil
}

func num(v int64) *int64 { return &v }

func TestLoadClassifiesAndSkips(t *testing.T) {
	updated := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	source := &stubBronze{rows: []bronze.AccountRow{
		{SourceID: "a1", Num: num(43000000), Name: "Clientes nacionales", Group: "Deudores",
			Debit: decimal.NewFromInt(500), Balance: decimal.NewFromInt(500), UpdatedAt: updated},
		{SourceID: "a2", Num: num(570), Name: "Caja"},
		{SourceID: "a3", Num: nil, Name: "Sin número"},
		{SourceID: "a4", Num: num(0), Name: "Cero"},
	}}
	repo := &memRepo{}
	loader := NewLoader(source, repo, slog.New(slog.NewTextHandler(io.Discard, nil)))

	stats, err := loader.Load(context.Background(), true)
	require.NoError(t, err)
	require.True(t, repo.truncated)
	require.Equal(t, 2, stats.Loaded)
	require.Equal(t, 2, stats.Skipped)
	require.Equal(t, map[string]int{"Asset": 2}, stats.ByType)

	clientes := repo.accounts[0]
	require.Equal(t, int64(43000000), clientes.Number)
	require.Equal(t, "Asset", clientes.Type)
	require.Equal(t, "Clientes", clientes.Subtype)
	require.Equal(t, 4, clientes.PGCGroup)
	require.Equal(t, 43, clientes.PGCSubgroup)
	require.Equal(t, int64(43000000), clientes.ParentNumber)
	require.NotNil(t, clientes.LastMovementDate)
	require.Equal(t, updated, *clientes.LastMovementDate)

	caja := repo.accounts[1]
	require.Equal(t, int64(57000000), caja.Number)
	require.Equal(t, "Tesorería", caja.Subtype)
	require.Nil(t, caja.LastMovementDate)
}

func TestTransformDefaultsNameAndGroup(t *testing.T) {
	loader := NewLoader(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	out, stats := loader.Transform([]bronze.AccountRow{
		{SourceID: "a1", Num: num(70000000)},
	})
	require.Equal(t, 1, stats.Loaded)
	require.Equal(t, "Account 70000000", out[0].Name)
	require.Equal(t, "No Group", out[0].Group)
	require.True(t, out[0].TaxRelevant)
	require.True(t, out[0].IsAnalytic)
	require.Equal(t, 5, out[0].Level)
}
