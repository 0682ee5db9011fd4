package session

import (
	"github.com/shopspring/decimal"

	"github.com/portfolio-management-app/money-master/internal/domain"
)

// TransactionForm is the raw shape a submission form produces before
// validation. Zero asset IDs mean "not set".
type TransactionForm struct {
	TransactionType      string
	Amount               decimal.Decimal
	CurrencyCode         string
	ReferentialAssetType string
	ReferentialAssetID   int64
	DestinationAssetType string
	DestinationAssetID   int64
	UsingCashID          int64
	IsUsingFundAsSource  bool
	IsTransferringAll    bool
	Fee                  decimal.Decimal
	Tax                  decimal.Decimal
}

// BalanceSource exposes the cached balances the builder checks against.
// PortfolioStore satisfies it.
type BalanceSource interface {
	CashAsset(id int64) (domain.Asset, bool)
	AssetBalance(assetType domain.AssetType, id int64) (decimal.Decimal, bool)
}

// IntentBuilder turns form input into a canonical TransactionRequest.
// Validation errors come back field-scoped for the form; the
// insufficient-funds check against cached balances is advisory only (the
// server re-checks against live balances), so it surfaces as a warning
// rather than blocking submission.
type IntentBuilder struct {
	balances BalanceSource
}

// NewIntentBuilder builds an intent builder over the given balance cache.
func NewIntentBuilder(balances BalanceSource) *IntentBuilder {
	return &IntentBuilder{balances: balances}
}

// Build validates the form and produces the request to submit. The
// returned warnings are advisory; err is a *domain.ValidationError when
// any field fails.
func (b *IntentBuilder) Build(form TransactionForm) (domain.TransactionRequest, []string, error) {
	fields := make(map[string]string)

	txType, err := domain.ParseTransactionType(form.TransactionType)
	if err != nil {
		fields["transactionType"] = err.Error()
	}
	if !form.Amount.IsPositive() && !form.IsTransferringAll {
		fields["amount"] = "amount must be greater than zero"
	}
	currency, err := domain.NormalizeCurrencyCode(form.CurrencyCode)
	if err != nil {
		fields["currencyCode"] = err.Error()
	}
	if form.Fee.IsNegative() {
		fields["fee"] = "fee cannot be negative"
	}
	if form.Tax.IsNegative() {
		fields["tax"] = "tax cannot be negative"
	}

	req := domain.TransactionRequest{
		Amount:              form.Amount,
		CurrencyCode:        currency,
		TransactionType:     txType,
		IsTransferringAll:   form.IsTransferringAll,
		IsUsingFundAsSource: form.IsUsingFundAsSource,
		Fee:                 form.Fee,
		Tax:                 form.Tax,
	}

	// Source resolution. The fund pseudo-type, a cash asset picked by
	// usingCashId, and an explicit referential asset are mutually
	// exclusive ways to name where the money comes from.
	switch {
	case form.IsUsingFundAsSource:
		if form.ReferentialAssetType != "" && form.ReferentialAssetType != string(domain.AssetTypeFund) {
			fields["referentialAssetType"] = "source type must be fund when using the fund as source"
		} else {
			fundType := domain.AssetTypeFund
			req.ReferentialAssetType = &fundType
		}
	case form.UsingCashID != 0:
		cash, ok := b.balances.CashAsset(form.UsingCashID)
		if !ok {
			fields["usingCashId"] = "cash asset not found in this portfolio"
		} else {
			cashType := domain.AssetTypeCash
			id := cash.ID
			req.ReferentialAssetType = &cashType
			req.ReferentialAssetID = &id
		}
	case form.ReferentialAssetType != "":
		refType, err := domain.ParseAssetType(form.ReferentialAssetType, true)
		if err != nil {
			fields["referentialAssetType"] = err.Error()
		} else {
			req.ReferentialAssetType = &refType
			if refType != domain.AssetTypeFund {
				if form.ReferentialAssetID == 0 {
					fields["referentialAssetId"] = "source asset id is required"
				} else {
					id := form.ReferentialAssetID
					req.ReferentialAssetID = &id
				}
			}
		}
	}

	if form.DestinationAssetType != "" {
		dstType, err := domain.ParseAssetType(form.DestinationAssetType, true)
		if err != nil {
			fields["destinationAssetType"] = err.Error()
		} else {
			req.DestinationAssetType = &dstType
			if dstType != domain.AssetTypeFund {
				if form.DestinationAssetID == 0 {
					fields["destinationAssetId"] = "destination asset id is required"
				} else {
					id := form.DestinationAssetID
					req.DestinationAssetID = &id
				}
			}
		}
	}

	if len(fields) > 0 {
		return domain.TransactionRequest{}, nil, &domain.ValidationError{Fields: fields}
	}

	return req, b.advisories(req), nil
}

// advisories checks the request against cached balances. A stale cache can
// make these wrong in either direction, so they never block a submission.
func (b *IntentBuilder) advisories(req domain.TransactionRequest) []string {
	if req.IsTransferringAll || req.ReferentialAssetType == nil {
		return nil
	}

	var balance decimal.Decimal
	var ok bool
	if *req.ReferentialAssetType == domain.AssetTypeFund {
		balance, ok = b.balances.AssetBalance(domain.AssetTypeFund, 0)
	} else if req.ReferentialAssetID != nil {
		balance, ok = b.balances.AssetBalance(*req.ReferentialAssetType, *req.ReferentialAssetID)
	}
	if !ok {
		return nil
	}

	needed := req.Amount.Add(req.Fee).Add(req.Tax)
	if balance.LessThan(needed) {
		return []string{"source balance may be insufficient for this transaction"}
	}
	return nil
}
