package assets

import (
	"github.com/shopspring/decimal"

	"github.com/portfolio-management-app/money-master/internal/domain"
)

// MoneySource names where the money paying for a new asset comes from.
// Empty means "outside": nothing inside the portfolio is debited.
type MoneySource struct {
	IsUsingInvestFund bool  `json:"isUsingInvestFund"`
	IsUsingCash       bool  `json:"isUsingCash"`
	UsingCashID       int64 `json:"usingCashId"`
}

// CreateRequest is the union of the per-variant creation payloads. The
// handler validates the variant-specific fields against the asset type
// before the service persists anything.
type CreateRequest struct {
	Name        string `json:"name"`
	InputDay    string `json:"inputDay"`
	Description string `json:"description"`

	// Common money fields. InputMoneyAmount is the initial value for
	// cash/bankSaving/realEstate/custom; stock and crypto derive it from
	// purchase price times holding.
	InputMoneyAmount decimal.Decimal `json:"inputMoneyAmount"`
	InputCurrency    string          `json:"inputCurrency"`

	// Stock fields
	StockCode            string          `json:"stockCode,omitempty"`
	MarketCode           string          `json:"marketCode,omitempty"`
	CurrentAmountHolding decimal.Decimal `json:"currentAmountHolding,omitempty"`
	PurchasePrice        decimal.Decimal `json:"purchasePrice,omitempty"`

	// Crypto fields
	CryptoCoinCode string `json:"cryptoCoinCode,omitempty"`

	// Bank saving / custom fields
	BankCode           string          `json:"bankCode,omitempty"`
	InterestRate       decimal.Decimal `json:"interestRate,omitempty"`
	TermRange          int             `json:"termRange,omitempty"`
	IsGoingToReinState bool            `json:"isGoingToReinState,omitempty"`

	// Real estate fields
	BuyPrice     decimal.Decimal `json:"buyPrice,omitempty"`
	CurrentPrice decimal.Decimal `json:"currentPrice,omitempty"`

	MoneySource
	Fee decimal.Decimal `json:"fee"`
	Tax decimal.Decimal `json:"tax"`
}

// UpdateRequest carries the editable fields of an existing asset.
// Balance-affecting fields are only mutated through transactions.
type UpdateRequest struct {
	Name        string `json:"name"`
	InputDay    string `json:"inputDay"`
	Description string `json:"description"`

	BankCode           string          `json:"bankCode,omitempty"`
	InterestRate       decimal.Decimal `json:"interestRate,omitempty"`
	TermRange          int             `json:"termRange,omitempty"`
	IsGoingToReinState bool            `json:"isGoingToReinState,omitempty"`
	BuyPrice           decimal.Decimal `json:"buyPrice,omitempty"`
	CurrentPrice       decimal.Decimal `json:"currentPrice,omitempty"`
}

// toAsset builds the domain asset for the requested variant.
func (r CreateRequest) toAsset(portfolioID string, assetType domain.AssetType) domain.Asset {
	a := domain.Asset{
		PortfolioID:  portfolioID,
		Type:         assetType,
		Name:         r.Name,
		InputDay:     r.InputDay,
		Description:  r.Description,
		CurrencyCode: r.InputCurrency,
		Amount:       r.InputMoneyAmount,
	}

	switch assetType {
	case domain.AssetTypeStock:
		a.Stock = &domain.StockDetails{
			StockCode:            r.StockCode,
			MarketCode:           r.MarketCode,
			CurrentAmountHolding: r.CurrentAmountHolding,
			PurchasePrice:        r.PurchasePrice,
		}
		a.Amount = r.PurchasePrice.Mul(r.CurrentAmountHolding)
	case domain.AssetTypeCrypto:
		a.Crypto = &domain.CryptoDetails{
			CryptoCoinCode:       r.CryptoCoinCode,
			CurrentAmountHolding: r.CurrentAmountHolding,
			PurchasePrice:        r.PurchasePrice,
		}
		a.Amount = r.PurchasePrice.Mul(r.CurrentAmountHolding)
	case domain.AssetTypeBankSaving:
		a.BankSaving = &domain.BankSavingDetails{
			BankCode:           r.BankCode,
			InterestRate:       r.InterestRate,
			TermRange:          r.TermRange,
			IsGoingToReinState: r.IsGoingToReinState,
		}
	case domain.AssetTypeRealEstate:
		a.RealEstate = &domain.RealEstateDetails{
			BuyPrice:     r.BuyPrice,
			CurrentPrice: r.CurrentPrice,
		}
		if !r.CurrentPrice.IsZero() {
			a.Amount = r.CurrentPrice
		}
	case domain.AssetTypeCustom:
		a.Custom = &domain.CustomDetails{
			InterestRate: r.InterestRate,
			TermRange:    r.TermRange,
		}
	}

	return a
}
