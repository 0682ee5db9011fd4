package portfolio

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-management-app/money-master/internal/domain"
	"github.com/portfolio-management-app/money-master/internal/modules/assets"
	"github.com/portfolio-management-app/money-master/internal/modules/fund"
)

func setupService(t *testing.T) (*Service, *assets.Repository, *fund.Repository, *sql.DB) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE portfolios (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			initial_cash TEXT NOT NULL DEFAULT '0',
			initial_currency TEXT NOT NULL DEFAULT 'USD',
			created_at INTEGER NOT NULL
		);
		CREATE TABLE assets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			portfolio_id TEXT NOT NULL,
			asset_type TEXT NOT NULL,
			name TEXT NOT NULL,
			input_day TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			currency_code TEXT NOT NULL,
			amount TEXT NOT NULL DEFAULT '0',
			data TEXT NOT NULL DEFAULT '{}',
			is_deleted INTEGER NOT NULL DEFAULT 0,
			last_changed INTEGER NOT NULL
		);
		CREATE TABLE invest_funds (
			portfolio_id TEXT PRIMARY KEY,
			amount TEXT NOT NULL DEFAULT '0',
			currency_code TEXT NOT NULL,
			last_changed INTEGER NOT NULL
		);
	`)
	require.NoError(t, err)

	repo := NewRepository(db, zerolog.Nop())
	assetRepo := assets.NewRepository(db, zerolog.Nop())
	fundRepo := fund.NewRepository(db, zerolog.Nop())
	return NewService(repo, assetRepo, fundRepo, zerolog.Nop()), assetRepo, fundRepo, db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCreate_SeedsFundAndInitialCash(t *testing.T) {
	svc, assetRepo, fundRepo, _ := setupService(t)

	p, err := svc.Create(CreateRequest{
		Name:            "Retirement",
		InitialCash:     dec("1000"),
		InitialCurrency: "usd",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "USD", p.InitialCurrency)
	assert.True(t, p.Sum.Equal(dec("1000")))

	f, err := fundRepo.Get(p.ID)
	require.NoError(t, err)
	assert.True(t, f.Amount.IsZero())
	assert.Equal(t, "USD", f.CurrencyCode)

	cash, err := assetRepo.ListByType(p.ID, domain.AssetTypeCash)
	require.NoError(t, err)
	require.Len(t, cash, 1)
	assert.True(t, cash[0].Amount.Equal(dec("1000")))
}

func TestCreate_ZeroInitialCashSkipsCashAsset(t *testing.T) {
	svc, assetRepo, _, _ := setupService(t)

	p, err := svc.Create(CreateRequest{Name: "Empty", InitialCurrency: "EUR"})
	require.NoError(t, err)

	cash, err := assetRepo.ListByType(p.ID, domain.AssetTypeCash)
	require.NoError(t, err)
	assert.Empty(t, cash)
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _, _ := setupService(t)

	_, err := svc.Create(CreateRequest{InitialCurrency: "USD"})
	assert.Error(t, err, "empty name")

	_, err = svc.Create(CreateRequest{Name: "x", InitialCurrency: "NOPE"})
	assert.Error(t, err, "unknown currency")

	_, err = svc.Create(CreateRequest{Name: "x", InitialCurrency: "USD", InitialCash: dec("-1")})
	assert.Error(t, err, "negative initial cash")
}

func TestGet_SumAggregatesAssetsAndFund(t *testing.T) {
	svc, assetRepo, fundRepo, db := setupService(t)

	p, err := svc.Create(CreateRequest{Name: "Main", InitialCash: dec("100"), InitialCurrency: "USD"})
	require.NoError(t, err)

	_, err = assetRepo.Insert(domain.Asset{
		PortfolioID: p.ID, Type: domain.AssetTypeStock, Name: "AAPL",
		CurrencyCode: "USD", Amount: dec("250"),
		Stock: &domain.StockDetails{StockCode: "AAPL", CurrentAmountHolding: dec("2")},
	})
	require.NoError(t, err)

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, fundRepo.SetBalanceTx(tx, p.ID, dec("50")))
	require.NoError(t, tx.Commit())

	got, err := svc.Get(p.ID)
	require.NoError(t, err)
	assert.True(t, got.Sum.Equal(dec("400")), "100 cash + 250 stock + 50 fund, got %s", got.Sum)
}

func TestRenameAndDelete(t *testing.T) {
	svc, _, _, _ := setupService(t)

	p, err := svc.Create(CreateRequest{Name: "Old", InitialCurrency: "USD"})
	require.NoError(t, err)

	require.NoError(t, svc.Rename(p.ID, "New"))
	got, err := svc.Get(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)

	assert.Error(t, svc.Rename(p.ID, ""), "empty name rejected")

	require.NoError(t, svc.Delete(p.ID))
	_, err = svc.Get(p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_BrokenAggregateStillReturnsPortfolio(t *testing.T) {
	svc, _, _, _ := setupService(t)

	_, err := svc.Create(CreateRequest{Name: "A", InitialCurrency: "USD"})
	require.NoError(t, err)
	_, err = svc.Create(CreateRequest{Name: "B", InitialCurrency: "USD"})
	require.NoError(t, err)

	portfolios, err := svc.List()
	require.NoError(t, err)
	assert.Len(t, portfolios, 2)
}
