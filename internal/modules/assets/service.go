package assets

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/portfolio-management-app/money-master/internal/domain"
)

// Service provides asset collection operations
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a new asset service
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "assets").Logger(),
	}
}

// List returns the non-deleted assets of one type.
func (s *Service) List(portfolioID string, assetType domain.AssetType) ([]domain.Asset, error) {
	return s.repo.ListByType(portfolioID, assetType)
}

// Get returns one asset.
func (s *Service) Get(portfolioID string, assetType domain.AssetType, id int64) (domain.Asset, error) {
	return s.repo.GetByID(portfolioID, assetType, id)
}

// Validate checks a creation request for the given variant, returning
// field-scoped messages on failure.
func (s *Service) Validate(assetType domain.AssetType, req CreateRequest) error {
	fields := map[string]string{}

	if req.Name == "" {
		fields["name"] = "name is required"
	}
	if req.InputDay != "" {
		if _, err := time.Parse("2006-01-02", req.InputDay); err != nil {
			fields["inputDay"] = "input day must be YYYY-MM-DD"
		}
	}
	if !domain.IsSupportedCurrency(req.InputCurrency) {
		fields["inputCurrency"] = "unsupported currency code"
	}
	if req.Fee.IsNegative() {
		fields["fee"] = "fee must not be negative"
	}
	if req.Tax.IsNegative() {
		fields["tax"] = "tax must not be negative"
	}
	if req.IsUsingInvestFund && req.IsUsingCash {
		fields["moneySource"] = "choose either the invest fund or a cash asset, not both"
	}
	if req.IsUsingCash && req.UsingCashID <= 0 {
		fields["usingCashId"] = "a cash asset must be selected"
	}

	switch assetType {
	case domain.AssetTypeCash:
		if req.InputMoneyAmount.IsNegative() || req.InputMoneyAmount.IsZero() {
			fields["amount"] = "amount must be greater than zero"
		}
	case domain.AssetTypeStock:
		if req.StockCode == "" {
			fields["stockCode"] = "stock code is required"
		}
		if !req.CurrentAmountHolding.IsPositive() {
			fields["currentAmountHolding"] = "holding must be greater than zero"
		}
		if req.PurchasePrice.IsNegative() {
			fields["purchasePrice"] = "purchase price must not be negative"
		}
	case domain.AssetTypeCrypto:
		if req.CryptoCoinCode == "" {
			fields["cryptoCoinCode"] = "coin code is required"
		}
		if !req.CurrentAmountHolding.IsPositive() {
			fields["currentAmountHolding"] = "holding must be greater than zero"
		}
	case domain.AssetTypeBankSaving:
		if !req.InputMoneyAmount.IsPositive() {
			fields["inputMoneyAmount"] = "amount must be greater than zero"
		}
		if req.InterestRate.IsNegative() {
			fields["interestRate"] = "interest rate must not be negative"
		}
		if req.TermRange < 0 {
			fields["termRange"] = "term range must not be negative"
		}
	case domain.AssetTypeRealEstate:
		if !req.InputMoneyAmount.IsPositive() && !req.BuyPrice.IsPositive() {
			fields["inputMoneyAmount"] = "amount must be greater than zero"
		}
	case domain.AssetTypeCustom:
		if !req.InputMoneyAmount.IsPositive() {
			fields["inputMoneyAmount"] = "amount must be greater than zero"
		}
	}

	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

// Build constructs the domain asset for persistence. The caller decides
// whether persistence goes through the transaction service (when a money
// source is named) or straight to the repository.
func (s *Service) Build(portfolioID string, assetType domain.AssetType, req CreateRequest) (domain.Asset, error) {
	code, err := domain.NormalizeCurrencyCode(req.InputCurrency)
	if err != nil {
		return domain.Asset{}, err
	}
	a := req.toAsset(portfolioID, assetType)
	a.CurrencyCode = code
	if a.InputDay == "" {
		a.InputDay = time.Now().UTC().Format("2006-01-02")
	}
	return a, nil
}

// Create persists a new asset without any internal money source.
func (s *Service) Create(a domain.Asset) (domain.Asset, error) {
	created, err := s.repo.Insert(a)
	if err != nil {
		return domain.Asset{}, err
	}
	s.log.Info().
		Str("portfolio", created.PortfolioID).
		Str("type", string(created.Type)).
		Int64("id", created.ID).
		Msg("Asset created")
	return created, nil
}

// Update applies the editable fields to an existing asset.
func (s *Service) Update(portfolioID string, assetType domain.AssetType, id int64, req UpdateRequest) (domain.Asset, error) {
	a, err := s.repo.GetByID(portfolioID, assetType, id)
	if err != nil {
		return domain.Asset{}, err
	}

	if req.Name != "" {
		a.Name = req.Name
	}
	if req.InputDay != "" {
		if _, err := time.Parse("2006-01-02", req.InputDay); err != nil {
			return domain.Asset{}, &domain.ValidationError{Fields: map[string]string{
				"inputDay": "input day must be YYYY-MM-DD",
			}}
		}
		a.InputDay = req.InputDay
	}
	a.Description = req.Description

	switch assetType {
	case domain.AssetTypeBankSaving:
		if a.BankSaving != nil {
			if req.BankCode != "" {
				a.BankSaving.BankCode = req.BankCode
			}
			a.BankSaving.InterestRate = req.InterestRate
			if req.TermRange > 0 {
				a.BankSaving.TermRange = req.TermRange
			}
			a.BankSaving.IsGoingToReinState = req.IsGoingToReinState
		}
	case domain.AssetTypeRealEstate:
		if a.RealEstate != nil {
			if !req.BuyPrice.IsZero() {
				a.RealEstate.BuyPrice = req.BuyPrice
			}
			if !req.CurrentPrice.IsZero() {
				a.RealEstate.CurrentPrice = req.CurrentPrice
				a.Amount = req.CurrentPrice
			}
		}
	case domain.AssetTypeCustom:
		if a.Custom != nil {
			a.Custom.InterestRate = req.InterestRate
			if req.TermRange > 0 {
				a.Custom.TermRange = req.TermRange
			}
		}
	}

	if err := s.repo.Update(a); err != nil {
		return domain.Asset{}, err
	}
	return a, nil
}

// Delete soft-deletes an asset.
func (s *Service) Delete(portfolioID string, assetType domain.AssetType, id int64) error {
	if err := s.repo.SoftDelete(portfolioID, assetType, id); err != nil {
		return err
	}
	s.log.Info().
		Str("portfolio", portfolioID).
		Str("type", string(assetType)).
		Int64("id", id).
		Msg("Asset soft-deleted")
	return nil
}
