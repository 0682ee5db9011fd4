package charts

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-management-app/money-master/internal/domain"
	"github.com/portfolio-management-app/money-master/internal/modules/assets"
	"github.com/portfolio-management-app/money-master/internal/modules/fund"
	"github.com/portfolio-management-app/money-master/internal/modules/transactions"
)

func setupService(t *testing.T) (*Service, *assets.Repository, *transactions.Repository, *fund.Repository, *sql.DB) {
	portfolioDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	_, err = portfolioDB.Exec(`
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

	ledgerDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	_, err = ledgerDB.Exec(`
		CREATE TABLE transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			portfolio_id TEXT NOT NULL,
			transaction_type TEXT NOT NULL,
			amount TEXT NOT NULL,
			destination_amount TEXT NOT NULL DEFAULT '0',
			currency_code TEXT NOT NULL,
			referential_asset_type TEXT,
			referential_asset_id INTEGER,
			referential_asset_name TEXT NOT NULL DEFAULT '',
			destination_asset_type TEXT,
			destination_asset_id INTEGER,
			destination_asset_name TEXT NOT NULL DEFAULT '',
			fee TEXT NOT NULL DEFAULT '0',
			tax TEXT NOT NULL DEFAULT '0',
			is_transferring_all INTEGER NOT NULL DEFAULT 0,
			is_using_fund_as_source INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);
	`)
	require.NoError(t, err)

	t.Cleanup(func() {
		portfolioDB.Close()
		ledgerDB.Close()
	})

	assetRepo := assets.NewRepository(portfolioDB, zerolog.Nop())
	txRepo := transactions.NewRepository(ledgerDB, zerolog.Nop())
	fundRepo := fund.NewRepository(portfolioDB, zerolog.Nop())
	svc := NewService(assetRepo, txRepo, fundRepo, zerolog.Nop())
	return svc, assetRepo, txRepo, fundRepo, portfolioDB
}

// setFundBalance writes the fund balance directly; chart tests do not need
// the full transaction engine.
func setFundBalance(t *testing.T, db *sql.DB, fundRepo *fund.Repository, portfolioID string, amount decimal.Decimal) {
	t.Helper()
	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, fundRepo.SetBalanceTx(tx, portfolioID, amount))
	require.NoError(t, tx.Commit())
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPieChart_GroupsByTypeWithFundSlice(t *testing.T) {
	svc, assetRepo, _, fundRepo, portfolioDB := setupService(t)
	require.NoError(t, fundRepo.Init("p1", "USD"))

	_, err := assetRepo.Insert(domain.Asset{
		PortfolioID: "p1", Type: domain.AssetTypeCash, Name: "Wallet",
		CurrencyCode: "USD", Amount: dec("100"),
	})
	require.NoError(t, err)
	_, err = assetRepo.Insert(domain.Asset{
		PortfolioID: "p1", Type: domain.AssetTypeCash, Name: "Savings",
		CurrencyCode: "USD", Amount: dec("200"),
	})
	require.NoError(t, err)
	_, err = assetRepo.Insert(domain.Asset{
		PortfolioID: "p1", Type: domain.AssetTypeStock, Name: "AAPL",
		CurrencyCode: "USD", Amount: dec("600"),
		Stock: &domain.StockDetails{StockCode: "AAPL"},
	})
	require.NoError(t, err)

	// 100 into the fund for a 1000 total
	setFundBalance(t, portfolioDB, fundRepo, "p1", dec("100"))

	items, err := svc.PieChart("p1")
	require.NoError(t, err)
	require.Len(t, items, 3)

	byType := make(map[domain.AssetType]domain.PieChartItem)
	for _, it := range items {
		byType[it.AssetType] = it
	}
	assert.True(t, byType[domain.AssetTypeCash].SumValue.Equal(dec("300")))
	assert.True(t, byType[domain.AssetTypeCash].Percentage.Equal(dec("30")))
	assert.True(t, byType[domain.AssetTypeStock].Percentage.Equal(dec("60")))
	assert.True(t, byType[domain.AssetTypeFund].Percentage.Equal(dec("10")))
}

func TestPieChart_ZeroTotalPortfolio_EmptySeries(t *testing.T) {
	svc, assetRepo, _, fundRepo, _ := setupService(t)
	require.NoError(t, fundRepo.Init("p1", "USD"))

	_, err := assetRepo.Insert(domain.Asset{
		PortfolioID: "p1", Type: domain.AssetTypeCash, Name: "Empty wallet",
		CurrencyCode: "USD", Amount: dec("0"),
	})
	require.NoError(t, err)

	items, err := svc.PieChart("p1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func appendTx(t *testing.T, txRepo *transactions.Repository, tx domain.Transaction) {
	t.Helper()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	_, err := txRepo.Append(tx)
	require.NoError(t, err)
}

func refOf(at domain.AssetType) *domain.AssetType { return &at }

func TestSankey_DropsEdgesWithMissingEndpoints(t *testing.T) {
	svc, _, txRepo, _, _ := setupService(t)

	// Complete edge
	appendTx(t, txRepo, domain.Transaction{
		PortfolioID:          "p1",
		TransactionType:      domain.TransactionTypeMoveToFund,
		Amount:               dec("100"),
		CurrencyCode:         "USD",
		ReferentialAssetType: refOf(domain.AssetTypeCash),
		ReferentialAssetName: "Wallet",
		DestinationAssetType: refOf(domain.AssetTypeFund),
		DestinationAssetName: "Invest Fund",
	})
	// Source missing: money arrived from outside
	appendTx(t, txRepo, domain.Transaction{
		PortfolioID:          "p1",
		TransactionType:      domain.TransactionTypeBuyFromOutside,
		Amount:               dec("50"),
		CurrencyCode:         "USD",
		DestinationAssetType: refOf(domain.AssetTypeStock),
		DestinationAssetName: "AAPL",
	})
	// Target missing: withdrawn to outside
	appendTx(t, txRepo, domain.Transaction{
		PortfolioID:          "p1",
		TransactionType:      domain.TransactionTypeWithdrawToOutside,
		Amount:               dec("25"),
		CurrencyCode:         "USD",
		ReferentialAssetType: refOf(domain.AssetTypeCash),
		ReferentialAssetName: "Wallet",
	})

	graph, err := svc.Sankey("p1")
	require.NoError(t, err)

	require.Len(t, graph.Links, 1)
	assert.Equal(t, "cash@@Wallet", graph.Links[0].Source)
	assert.Equal(t, "fund@@Invest Fund", graph.Links[0].Target)
	assert.True(t, graph.Links[0].Value.Equal(dec("100")))
	assert.Len(t, graph.Nodes, 2)
}

func TestSankey_AggregatesRepeatedFlowsAndIsIdempotent(t *testing.T) {
	svc, _, txRepo, _, _ := setupService(t)

	for i := 0; i < 3; i++ {
		appendTx(t, txRepo, domain.Transaction{
			PortfolioID:          "p1",
			TransactionType:      domain.TransactionTypeMoveToFund,
			Amount:               dec("10"),
			CurrencyCode:         "USD",
			ReferentialAssetType: refOf(domain.AssetTypeCash),
			ReferentialAssetName: "Wallet",
			DestinationAssetType: refOf(domain.AssetTypeFund),
			DestinationAssetName: "Invest Fund",
		})
	}

	first, err := svc.Sankey("p1")
	require.NoError(t, err)
	second, err := svc.Sankey("p1")
	require.NoError(t, err)

	require.Len(t, first.Links, 1)
	assert.True(t, first.Links[0].Value.Equal(dec("30")))
	assert.Equal(t, first, second)
}

func TestSankey_EmptyTrail(t *testing.T) {
	svc, _, _, _, _ := setupService(t)

	graph, err := svc.Sankey("p1")
	require.NoError(t, err)
	assert.Empty(t, graph.Nodes)
	assert.Empty(t, graph.Links)
}

func TestProfitLoss_GroupsByMonthSkippingEmptyPeriods(t *testing.T) {
	svc, _, txRepo, _, _ := setupService(t)

	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	appendTx(t, txRepo, domain.Transaction{
		PortfolioID:     "p1",
		TransactionType: domain.TransactionTypeBuyFromOutside,
		Amount:          dec("100"),
		CurrencyCode:    "USD",
		CreatedAt:       jan,
	})
	appendTx(t, txRepo, domain.Transaction{
		PortfolioID:     "p1",
		TransactionType: domain.TransactionTypeWithdrawToOutside,
		Amount:          dec("30"),
		CurrencyCode:    "USD",
		CreatedAt:       jan.Add(24 * time.Hour),
	})
	appendTx(t, txRepo, domain.Transaction{
		PortfolioID:     "p1",
		TransactionType: domain.TransactionTypeAddValue,
		Amount:          dec("40"),
		CurrencyCode:    "USD",
		CreatedAt:       mar,
	})

	points, err := svc.ProfitLoss("p1", IntervalMonth)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2024-01", points[0].Period)
	assert.True(t, points[0].Value.Equal(dec("70")))
	assert.Equal(t, "2024-03", points[1].Period)
	assert.True(t, points[1].Value.Equal(dec("40")))
}

func TestParseInterval(t *testing.T) {
	for _, valid := range []string{"day", "month", "year"} {
		got, err := ParseInterval(valid)
		require.NoError(t, err)
		assert.Equal(t, Interval(valid), got)
	}

	got, err := ParseInterval("")
	require.NoError(t, err)
	assert.Equal(t, IntervalMonth, got)

	_, err = ParseInterval("week")
	assert.Error(t, err)
}
