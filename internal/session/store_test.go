package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-management-app/money-master/internal/domain"
)

type recordingNotifier struct {
	mu      sync.Mutex
	errors  []string
	notices []string
}

func (n *recordingNotifier) RaiseNotification(message string, _ domain.NotificationKind) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, message)
}

func (n *recordingNotifier) RaiseError(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, message)
}

func (n *recordingNotifier) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errors)
}

type countingLoader struct {
	mu     sync.Mutex
	starts int
	stops  int
}

func (l *countingLoader) StartLoading() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.starts++
}

func (l *countingLoader) StopLoading() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stops++
}

func writeData(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"isError": false, "data": data})
}

func writeError(w http.ResponseWriter, status int, message string, fields map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"isError": true,
		"data":    domain.ErrorPayload{Message: message, Fields: fields},
	})
}

// stubAPI routes "METHOD /path" to a handler, with empty-collection
// defaults for every portfolio endpoint the store loads.
type stubAPI struct {
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
}

func newStubAPI(portfolioID string) *stubAPI {
	api := &stubAPI{handlers: make(map[string]http.HandlerFunc)}
	for _, assetType := range domain.StorableAssetTypes {
		api.set("GET", fmt.Sprintf("/api/portfolio/%s/%s", portfolioID, assetType),
			func(w http.ResponseWriter, _ *http.Request) { writeData(w, []domain.Asset{}) })
	}
	api.set("GET", fmt.Sprintf("/api/portfolio/%s/fund", portfolioID),
		func(w http.ResponseWriter, _ *http.Request) {
			writeData(w, domain.InvestFund{PortfolioID: portfolioID, CurrencyCode: "USD"})
		})
	api.set("GET", fmt.Sprintf("/api/portfolio/%s/pieChart", portfolioID),
		func(w http.ResponseWriter, _ *http.Request) { writeData(w, []domain.PieChartItem{}) })
	api.set("GET", fmt.Sprintf("/api/portfolio/%s/sankey", portfolioID),
		func(w http.ResponseWriter, _ *http.Request) { writeData(w, SankeyGraph{}) })
	return api
}

func (a *stubAPI) set(method, path string, h http.HandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[method+" "+path] = h
}

func (a *stubAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	h, ok := a.handlers[r.Method+" "+r.URL.Path]
	a.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "not found", nil)
		return
	}
	h(w, r)
}

func setupStoreTest(t *testing.T, portfolioID string) (*PortfolioStore, *stubAPI, *recordingNotifier, *countingLoader) {
	api := newStubAPI(portfolioID)
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	notifier := &recordingNotifier{}
	loader := &countingLoader{}
	client := NewClient(srv.URL, "", nil, zerolog.Nop())
	store := NewPortfolioStore(client, notifier, loader, zerolog.Nop())
	return store, api, notifier, loader
}

func cashAsset(id int64, name string, amount string) domain.Asset {
	return domain.Asset{
		ID: id, Type: domain.AssetTypeCash, Name: name,
		CurrencyCode: "USD", Amount: decimal.RequireFromString(amount),
	}
}

func TestLoad_PopulatesAllCollections(t *testing.T) {
	store, api, notifier, loader := setupStoreTest(t, "p1")

	api.set("GET", "/api/portfolio/p1/cash", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, []domain.Asset{cashAsset(1, "Wallet", "100")})
	})
	api.set("GET", "/api/portfolio/p1/fund", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, domain.InvestFund{PortfolioID: "p1", Amount: decimal.RequireFromString("500"), CurrencyCode: "USD"})
	})

	store.Load(context.Background(), "p1")

	items, available := store.Collection(domain.AssetTypeCash)
	require.True(t, available)
	require.Len(t, items, 1)
	assert.Equal(t, "Wallet", items[0].Name)

	fund := store.Fund()
	require.NotNil(t, fund)
	assert.True(t, fund.Amount.Equal(decimal.RequireFromString("500")))

	assert.Equal(t, 0, notifier.errorCount())
	assert.Equal(t, 1, loader.starts)
	assert.Equal(t, 1, loader.stops)
}

func TestLoad_PartialFailureFlipsOnlyThatCollection(t *testing.T) {
	store, api, notifier, _ := setupStoreTest(t, "p1")

	api.set("GET", "/api/portfolio/p1/cash", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, []domain.Asset{cashAsset(1, "Wallet", "100")})
	})
	api.set("GET", "/api/portfolio/p1/stock", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusInternalServerError, "upstream unavailable", nil)
	})

	store.Load(context.Background(), "p1")

	_, stockAvailable := store.Collection(domain.AssetTypeStock)
	assert.False(t, stockAvailable)

	cash, cashAvailable := store.Collection(domain.AssetTypeCash)
	assert.True(t, cashAvailable)
	assert.Len(t, cash, 1)

	require.Equal(t, 1, notifier.errorCount())
	assert.Contains(t, notifier.errors[0], "stock")
}

func TestApplyTransaction_PatchesSourceAndDestination(t *testing.T) {
	store, api, notifier, _ := setupStoreTest(t, "p1")

	api.set("GET", "/api/portfolio/p1/stock", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, []domain.Asset{{
			ID: 7, Type: domain.AssetTypeStock, Name: "AAPL",
			CurrencyCode: "USD", Amount: decimal.Zero,
		}})
	})
	api.set("GET", "/api/portfolio/p1/fund", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, domain.InvestFund{PortfolioID: "p1", Amount: decimal.RequireFromString("500"), CurrencyCode: "USD"})
	})
	store.Load(context.Background(), "p1")

	fundType := domain.AssetTypeFund
	stockType := domain.AssetTypeStock
	stockID := int64(7)
	api.set("POST", "/api/portfolio/p1/transactions", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, domain.Transaction{
			ID: 1, PortfolioID: "p1",
			TransactionType:      domain.TransactionTypeBuyFromFund,
			Amount:               decimal.RequireFromString("300"),
			CurrencyCode:         "USD",
			ReferentialAssetType: &fundType,
			DestinationAssetType: &stockType,
			DestinationAssetID:   &stockID,
			IsUsingFundAsSource:  true,
		})
	})

	_, err := store.ApplyTransaction(context.Background(), domain.TransactionRequest{
		Amount:              decimal.RequireFromString("300"),
		CurrencyCode:        "USD",
		TransactionType:     domain.TransactionTypeBuyFromFund,
		IsUsingFundAsSource: true,
		DestinationAssetType: &stockType,
		DestinationAssetID:   &stockID,
	})
	require.NoError(t, err)

	fund := store.Fund()
	require.NotNil(t, fund)
	assert.True(t, fund.Amount.Equal(decimal.RequireFromString("200")), "fund should be 200, got %s", fund.Amount)

	stocks, _ := store.Collection(domain.AssetTypeStock)
	require.Len(t, stocks, 1)
	assert.True(t, stocks[0].Amount.Equal(decimal.RequireFromString("300")))

	pie := store.PieChart()
	require.Len(t, pie, 2)
	assert.Equal(t, 0, notifier.errorCount())
}

func TestApplyTransaction_FailureLeavesStateUntouched(t *testing.T) {
	store, api, _, _ := setupStoreTest(t, "p1")

	api.set("GET", "/api/portfolio/p1/fund", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, domain.InvestFund{PortfolioID: "p1", Amount: decimal.RequireFromString("500"), CurrencyCode: "USD"})
	})
	store.Load(context.Background(), "p1")

	api.set("POST", "/api/portfolio/p1/transactions", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusBadRequest, "validation failed", map[string]string{"amount": "amount must be greater than zero"})
	})

	_, err := store.ApplyTransaction(context.Background(), domain.TransactionRequest{
		TransactionType: domain.TransactionTypeBuyFromFund,
		CurrencyCode:    "USD",
	})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "amount must be greater than zero", apiErr.Fields["amount"])

	fund := store.Fund()
	require.NotNil(t, fund)
	assert.True(t, fund.Amount.Equal(decimal.RequireFromString("500")))
}

func TestDeleteAsset_RemovesExactlyOne(t *testing.T) {
	store, api, _, _ := setupStoreTest(t, "p1")

	api.set("GET", "/api/portfolio/p1/cryptoCurrency", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, []domain.Asset{
			{ID: 1, Type: domain.AssetTypeCrypto, Name: "BTC", Amount: decimal.RequireFromString("10")},
			{ID: 2, Type: domain.AssetTypeCrypto, Name: "ETH", Amount: decimal.RequireFromString("20")},
			{ID: 3, Type: domain.AssetTypeCrypto, Name: "SOL", Amount: decimal.RequireFromString("30")},
		})
	})
	store.Load(context.Background(), "p1")

	api.set("DELETE", "/api/portfolio/p1/cryptoCurrency/2", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, nil)
	})

	require.NoError(t, store.DeleteAsset(context.Background(), domain.AssetTypeCrypto, 2))

	items, _ := store.Collection(domain.AssetTypeCrypto)
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, int64(3), items[1].ID)
}

func TestDeleteAsset_FailureRaisesGenericNotification(t *testing.T) {
	store, api, notifier, _ := setupStoreTest(t, "p1")

	api.set("GET", "/api/portfolio/p1/cryptoCurrency", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, []domain.Asset{
			{ID: 1, Type: domain.AssetTypeCrypto, Name: "BTC", Amount: decimal.RequireFromString("10")},
		})
	})
	store.Load(context.Background(), "p1")

	api.set("DELETE", "/api/portfolio/p1/cryptoCurrency/1", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusInternalServerError, "database error", nil)
	})

	require.Error(t, store.DeleteAsset(context.Background(), domain.AssetTypeCrypto, 1))

	items, _ := store.Collection(domain.AssetTypeCrypto)
	assert.Len(t, items, 1)
	require.Equal(t, 1, notifier.errorCount())
	assert.Equal(t, "failed to delete asset", notifier.errors[0])
}

func TestUpdateAsset_ReplacesCachedItemWithServerVersion(t *testing.T) {
	store, api, notifier, _ := setupStoreTest(t, "p1")

	api.set("GET", "/api/portfolio/p1/cash", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, []domain.Asset{
			cashAsset(1, "Wallet", "100"),
			cashAsset(2, "Savings", "900"),
		})
	})
	store.Load(context.Background(), "p1")

	api.set("PUT", "/api/portfolio/p1/cash/2", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, cashAsset(2, "Emergency fund", "900"))
	})

	updated, err := store.UpdateAsset(context.Background(), domain.AssetTypeCash, 2, map[string]string{"name": "Emergency fund"})
	require.NoError(t, err)
	assert.Equal(t, "Emergency fund", updated.Name)

	items, _ := store.Collection(domain.AssetTypeCash)
	require.Len(t, items, 2)
	assert.Equal(t, "Wallet", items[0].Name)
	assert.Equal(t, "Emergency fund", items[1].Name)

	pie := store.PieChart()
	require.Len(t, pie, 1)
	assert.Equal(t, 0, notifier.errorCount())
}

func TestUpdateAsset_FailureLeavesStateUntouched(t *testing.T) {
	store, api, notifier, _ := setupStoreTest(t, "p1")

	api.set("GET", "/api/portfolio/p1/cash", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, []domain.Asset{cashAsset(1, "Wallet", "100")})
	})
	store.Load(context.Background(), "p1")

	api.set("PUT", "/api/portfolio/p1/cash/1", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusBadRequest, "validation failed", map[string]string{"name": "name cannot be empty"})
	})

	_, err := store.UpdateAsset(context.Background(), domain.AssetTypeCash, 1, map[string]string{"name": ""})
	require.Error(t, err)

	items, _ := store.Collection(domain.AssetTypeCash)
	require.Len(t, items, 1)
	assert.Equal(t, "Wallet", items[0].Name)
	require.Equal(t, 1, notifier.errorCount())
	assert.Equal(t, "failed to update asset", notifier.errors[0])
}

func TestTransferToFund_RefetchesSourceAndFund(t *testing.T) {
	store, api, _, _ := setupStoreTest(t, "p1")

	api.set("GET", "/api/portfolio/p1/cash", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, []domain.Asset{cashAsset(1, "Wallet", "100")})
	})
	store.Load(context.Background(), "p1")

	// After the transfer the server is the source of truth.
	api.set("POST", "/api/portfolio/p1/fund", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, nil)
	})
	api.set("GET", "/api/portfolio/p1/cash", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, []domain.Asset{cashAsset(1, "Wallet", "60")})
	})
	api.set("GET", "/api/portfolio/p1/fund", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, domain.InvestFund{PortfolioID: "p1", Amount: decimal.RequireFromString("39"), CurrencyCode: "USD"})
	})

	err := store.TransferToFund(context.Background(), TransferRequest{
		ReferentialAssetID:   1,
		ReferentialAssetType: domain.AssetTypeCash,
		Amount:               decimal.RequireFromString("40"),
		CurrencyCode:         "USD",
	})
	require.NoError(t, err)

	items, _ := store.Collection(domain.AssetTypeCash)
	require.Len(t, items, 1)
	assert.True(t, items[0].Amount.Equal(decimal.RequireFromString("60")))

	fund := store.Fund()
	require.NotNil(t, fund)
	assert.True(t, fund.Amount.Equal(decimal.RequireFromString("39")))
}

func TestClient_UnauthorizedInvokesLogoutHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	loggedOut := false
	client := NewClient(srv.URL, "expired-token", func() { loggedOut = true }, zerolog.Nop())

	err := client.Get(context.Background(), "/api/portfolio", nil)
	require.Error(t, err)
	assert.True(t, loggedOut)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestClient_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeData(w, nil)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "secret", nil, zerolog.Nop())
	require.NoError(t, client.Get(context.Background(), "/api/portfolio", nil))
	assert.Equal(t, "Bearer secret", gotAuth)
}
