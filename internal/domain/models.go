package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio is the top-level container users create.
// Sum is a derived aggregate computed at read time, never stored.
type Portfolio struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	InitialCash     decimal.Decimal `json:"initialCash"`
	InitialCurrency string          `json:"initialCurrency"`
	Sum             decimal.Decimal `json:"sum"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Asset is the common envelope for every asset variant. Exactly one of the
// variant pointers is set, matching Type.
type Asset struct {
	ID           int64           `json:"id"`
	PortfolioID  string          `json:"portfolioId"`
	Type         AssetType       `json:"assetType"`
	Name         string          `json:"name"`
	InputDay     string          `json:"inputDay"` // acquisition date, YYYY-MM-DD
	Description  string          `json:"description"`
	CurrencyCode string          `json:"currencyCode"`
	Amount       decimal.Decimal `json:"amount"` // current value in CurrencyCode
	IsDeleted    bool            `json:"isDeleted"`
	LastChanged  time.Time       `json:"lastChanged"`

	Stock      *StockDetails      `json:"stock,omitempty"`
	Crypto     *CryptoDetails     `json:"crypto,omitempty"`
	BankSaving *BankSavingDetails `json:"bankSaving,omitempty"`
	RealEstate *RealEstateDetails `json:"realEstate,omitempty"`
	Custom     *CustomDetails     `json:"custom,omitempty"`
}

// StockDetails carries the stock-specific fields.
type StockDetails struct {
	StockCode            string          `json:"stockCode"`
	MarketCode           string          `json:"marketCode"`
	CurrentAmountHolding decimal.Decimal `json:"currentAmountHolding"`
	PurchasePrice        decimal.Decimal `json:"purchasePrice"`
}

// CryptoDetails carries the crypto-specific fields.
type CryptoDetails struct {
	CryptoCoinCode       string          `json:"cryptoCoinCode"`
	CurrentAmountHolding decimal.Decimal `json:"currentAmountHolding"`
	PurchasePrice        decimal.Decimal `json:"purchasePrice"`
}

// BankSavingDetails carries the bank-saving-specific fields.
type BankSavingDetails struct {
	BankCode           string          `json:"bankCode"`
	InterestRate       decimal.Decimal `json:"interestRate"`
	TermRange          int             `json:"termRange"` // months
	IsGoingToReinState bool            `json:"isGoingToReinState"`
}

// RealEstateDetails carries the real-estate-specific fields.
type RealEstateDetails struct {
	BuyPrice     decimal.Decimal `json:"buyPrice"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
}

// CustomDetails carries the custom-asset fields.
type CustomDetails struct {
	InterestRate decimal.Decimal `json:"interestRate"`
	TermRange    int             `json:"termRange"`
}

// InvestFund is the pooled, portfolio-level balance transactions can draw
// from or deposit into. It is not tied to a single asset.
type InvestFund struct {
	PortfolioID  string          `json:"portfolioId"`
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
	LastChanged  time.Time       `json:"lastChanged"`
}

// AssetRef points at a transaction source or destination. A nil *AssetRef
// in a request means "outside" and travels as explicit JSON null.
type AssetRef struct {
	Type AssetType `json:"type"`
	ID   int64     `json:"id"`
	Name string    `json:"name,omitempty"`
}

// TransactionRequest is the canonical request a form submission produces.
// Nullable reference fields are pointers so their absence serializes as
// null rather than being dropped.
type TransactionRequest struct {
	Amount                       decimal.Decimal `json:"amount"`
	AmountInDestinationAssetUnit decimal.Decimal `json:"amountInDestinationAssetUnit"`
	CurrencyCode                 string          `json:"currencyCode"`
	TransactionType              TransactionType `json:"transactionType"`
	ReferentialAssetType         *AssetType      `json:"referentialAssetType"`
	ReferentialAssetID           *int64          `json:"referentialAssetId"`
	DestinationAssetType         *AssetType      `json:"destinationAssetType"`
	DestinationAssetID           *int64          `json:"destinationAssetId"`
	IsTransferringAll            bool            `json:"isTransferringAll"`
	IsUsingFundAsSource          bool            `json:"isUsingFundAsSource"`
	Fee                          decimal.Decimal `json:"fee"`
	Tax                          decimal.Decimal `json:"tax"`
}

// Transaction is a recorded money movement.
type Transaction struct {
	ID                           int64           `json:"id"`
	PortfolioID                  string          `json:"portfolioId"`
	TransactionType              TransactionType `json:"transactionType"`
	Amount                       decimal.Decimal `json:"amount"`
	AmountInDestinationAssetUnit decimal.Decimal `json:"amountInDestinationAssetUnit"`
	CurrencyCode                 string          `json:"currencyCode"`
	ReferentialAssetType         *AssetType      `json:"referentialAssetType"`
	ReferentialAssetID           *int64          `json:"referentialAssetId"`
	ReferentialAssetName         string          `json:"referentialAssetName"`
	DestinationAssetType         *AssetType      `json:"destinationAssetType"`
	DestinationAssetID           *int64          `json:"destinationAssetId"`
	DestinationAssetName         string          `json:"destinationAssetName"`
	Fee                          decimal.Decimal `json:"fee"`
	Tax                          decimal.Decimal `json:"tax"`
	IsTransferringAll            bool            `json:"isTransferringAll"`
	IsUsingFundAsSource          bool            `json:"isUsingFundAsSource"`
	CreatedAt                    time.Time       `json:"createdAt"`
}

// PieChartItem is one slice of the allocation projection.
type PieChartItem struct {
	AssetType  AssetType       `json:"assetType"`
	SumValue   decimal.Decimal `json:"sumValue"`
	Percentage decimal.Decimal `json:"percentage"`
}

// SankeyEdge is the server-side flow shape derived from transactions.
// Source or target may be nil for flows from/to outside.
type SankeyEdge struct {
	SourceType *AssetType      `json:"sourceType"`
	SourceName *string         `json:"sourceName"`
	TargetType *AssetType      `json:"targetType"`
	TargetName *string         `json:"targetName"`
	Amount     decimal.Decimal `json:"amount"`
}

// SankeyNode is a deduplicated graph node keyed by "type@@name".
type SankeyNode struct {
	Name string `json:"name"`
}

// SankeyLink connects two node keys with a flow value.
type SankeyLink struct {
	Source string          `json:"source"`
	Target string          `json:"target"`
	Value  decimal.Decimal `json:"value"`
}

// ProfitLossPoint is one (period, value) pair of the profit/loss series.
type ProfitLossPoint struct {
	Period string          `json:"period"` // day: 2006-01-02, month: 2006-01, year: 2006
	Value  decimal.Decimal `json:"value"`
}

// Quote is the normalized market-data shape consumed from stock and crypto
// quote collaborators.
type Quote struct {
	Price         decimal.Decimal `json:"price"`
	PriceChange   decimal.Decimal `json:"priceChange"`
	PercentChange decimal.Decimal `json:"percentChange"`
}

// SearchResult is one hit from asset symbol search.
type SearchResult struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}
