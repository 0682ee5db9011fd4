package session

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-management-app/money-master/internal/domain"
)

type stubBalances struct {
	cash     map[int64]domain.Asset
	balances map[string]decimal.Decimal
}

func (s *stubBalances) CashAsset(id int64) (domain.Asset, bool) {
	a, ok := s.cash[id]
	return a, ok
}

func (s *stubBalances) AssetBalance(assetType domain.AssetType, id int64) (decimal.Decimal, bool) {
	b, ok := s.balances[string(assetType)]
	return b, ok
}

func newBuilder() (*IntentBuilder, *stubBalances) {
	balances := &stubBalances{
		cash:     make(map[int64]domain.Asset),
		balances: make(map[string]decimal.Decimal),
	}
	return NewIntentBuilder(balances), balances
}

func TestBuild_ValidFundSourceRequest(t *testing.T) {
	builder, balances := newBuilder()
	balances.balances["fund"] = dec("500")

	stockID := int64(7)
	req, warnings, err := builder.Build(TransactionForm{
		TransactionType:      string(domain.TransactionTypeBuyFromFund),
		Amount:               dec("300"),
		CurrencyCode:         "usd",
		IsUsingFundAsSource:  true,
		DestinationAssetType: string(domain.AssetTypeStock),
		DestinationAssetID:   stockID,
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "USD", req.CurrencyCode)
	require.NotNil(t, req.ReferentialAssetType)
	assert.Equal(t, domain.AssetTypeFund, *req.ReferentialAssetType)
	assert.Nil(t, req.ReferentialAssetID)
	require.NotNil(t, req.DestinationAssetID)
	assert.Equal(t, stockID, *req.DestinationAssetID)
}

func TestBuild_FieldErrorsAreScoped(t *testing.T) {
	builder, _ := newBuilder()

	_, _, err := builder.Build(TransactionForm{
		TransactionType: "teleport",
		Amount:          dec("-5"),
		CurrencyCode:    "XXINVALID",
		Fee:             dec("-1"),
	})
	require.Error(t, err)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "transactionType")
	assert.Contains(t, verr.Fields, "amount")
	assert.Contains(t, verr.Fields, "currencyCode")
	assert.Contains(t, verr.Fields, "fee")
}

func TestBuild_FundSourceTypeMismatchRejected(t *testing.T) {
	builder, _ := newBuilder()

	_, _, err := builder.Build(TransactionForm{
		TransactionType:      string(domain.TransactionTypeBuyFromFund),
		Amount:               dec("10"),
		CurrencyCode:         "USD",
		IsUsingFundAsSource:  true,
		ReferentialAssetType: string(domain.AssetTypeCash),
	})
	require.Error(t, err)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "referentialAssetType")
}

func TestBuild_UsingCashIDResolvesLiveAsset(t *testing.T) {
	builder, balances := newBuilder()
	balances.cash[3] = domain.Asset{ID: 3, Type: domain.AssetTypeCash, Amount: dec("200"), CurrencyCode: "USD"}

	req, _, err := builder.Build(TransactionForm{
		TransactionType: string(domain.TransactionTypeBuyFromCash),
		Amount:          dec("50"),
		CurrencyCode:    "USD",
		UsingCashID:     3,
	})
	require.NoError(t, err)
	require.NotNil(t, req.ReferentialAssetType)
	assert.Equal(t, domain.AssetTypeCash, *req.ReferentialAssetType)
	require.NotNil(t, req.ReferentialAssetID)
	assert.Equal(t, int64(3), *req.ReferentialAssetID)
}

func TestBuild_UnknownCashIDRejected(t *testing.T) {
	builder, _ := newBuilder()

	_, _, err := builder.Build(TransactionForm{
		TransactionType: string(domain.TransactionTypeBuyFromCash),
		Amount:          dec("50"),
		CurrencyCode:    "USD",
		UsingCashID:     99,
	})
	require.Error(t, err)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "usingCashId")
}

func TestBuild_InsufficientFundsIsAdvisoryNotBlocking(t *testing.T) {
	builder, balances := newBuilder()
	balances.balances["fund"] = dec("100")

	_, warnings, err := builder.Build(TransactionForm{
		TransactionType:     string(domain.TransactionTypeBuyFromFund),
		Amount:              dec("300"),
		CurrencyCode:        "USD",
		IsUsingFundAsSource: true,
	})
	require.NoError(t, err, "a stale cache must never block submission")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "insufficient")
}

func TestBuild_TransferAllSkipsAmountAndAdvisory(t *testing.T) {
	builder, balances := newBuilder()
	balances.balances["fund"] = dec("1")

	_, warnings, err := builder.Build(TransactionForm{
		TransactionType:     string(domain.TransactionTypeMoveToFund),
		Amount:              decimal.Zero,
		CurrencyCode:        "USD",
		IsTransferringAll:   true,
		IsUsingFundAsSource: false,
		ReferentialAssetType: string(domain.AssetTypeCash),
		ReferentialAssetID:  4,
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)
}
