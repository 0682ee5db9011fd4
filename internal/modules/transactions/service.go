package transactions

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/portfolio-management-app/money-master/internal/database"
	"github.com/portfolio-management-app/money-master/internal/domain"
	"github.com/portfolio-management-app/money-master/internal/modules/assets"
	"github.com/portfolio-management-app/money-master/internal/modules/fund"
)

// ErrInsufficientFunds mirrors the domain error for callers of this
// package.
var ErrInsufficientFunds = domain.ErrInsufficientFunds

// fundName labels the invest fund in ledger rows and sankey flows.
const fundName = "Invest Fund"

// Service applies transaction requests against asset and fund balances.
// Every balance mutation of a request happens inside one portfolio-db
// transaction; the ledger row is appended after commit.
type Service struct {
	repo        *Repository
	assetRepo   *assets.Repository
	fundRepo    *fund.Repository
	portfolioDB *sql.DB
	log         zerolog.Logger
}

// NewService creates a new transaction service
func NewService(repo *Repository, assetRepo *assets.Repository, fundRepo *fund.Repository,
	portfolioDB *sql.DB, log zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		assetRepo:   assetRepo,
		fundRepo:    fundRepo,
		portfolioDB: portfolioDB,
		log:         log.With().Str("service", "transactions").Logger(),
	}
}

// sourceKind discriminates where the money is drawn from.
type sourceKind int

const (
	sourceNone sourceKind = iota // outside: nothing internal is debited
	sourceFund
	sourceAsset
)

// Apply validates and executes a transaction request, returning the
// recorded transaction. On any error, no balance is changed.
func (s *Service) Apply(portfolioID string, req domain.TransactionRequest) (domain.Transaction, error) {
	txType, err := domain.ParseTransactionType(string(req.TransactionType))
	if err != nil {
		return domain.Transaction{}, domain.NewValidationError("transactionType", err.Error())
	}
	currency, err := domain.NormalizeCurrencyCode(req.CurrencyCode)
	if err != nil {
		return domain.Transaction{}, domain.NewValidationError("currencyCode", err.Error())
	}
	if req.Fee.IsNegative() {
		return domain.Transaction{}, domain.NewValidationError("fee", "fee must not be negative")
	}
	if req.Tax.IsNegative() {
		return domain.Transaction{}, domain.NewValidationError("tax", "tax must not be negative")
	}
	if !req.IsTransferringAll && !req.Amount.IsPositive() {
		return domain.Transaction{}, domain.NewValidationError("amount", "amount must be greater than zero")
	}

	srcKind := sourceNone
	if req.IsUsingFundAsSource ||
		(req.ReferentialAssetType != nil && *req.ReferentialAssetType == domain.AssetTypeFund) {
		srcKind = sourceFund
	} else if req.ReferentialAssetType != nil && req.ReferentialAssetID != nil {
		srcKind = sourceAsset
	}
	if req.IsUsingFundAsSource && req.ReferentialAssetType != nil &&
		*req.ReferentialAssetType != domain.AssetTypeFund {
		return domain.Transaction{}, domain.NewValidationError("referentialAssetType",
			"referential asset type must be fund when using the fund as source")
	}

	switch txType {
	case domain.TransactionTypeWithdrawToCash, domain.TransactionTypeSellAsset:
		if req.DestinationAssetType == nil || req.DestinationAssetID == nil {
			return domain.Transaction{}, domain.NewValidationError("destinationAssetId",
				"destination asset is required")
		}
	case domain.TransactionTypeWithdrawValue, domain.TransactionTypeWithdrawToOutside,
		domain.TransactionTypeMoveToFund:
		if srcKind == sourceNone {
			return domain.Transaction{}, domain.NewValidationError("referentialAssetId",
				"source asset is required")
		}
	}

	rec := domain.Transaction{
		PortfolioID:                  portfolioID,
		TransactionType:              txType,
		Amount:                       req.Amount,
		AmountInDestinationAssetUnit: req.AmountInDestinationAssetUnit,
		CurrencyCode:                 currency,
		Fee:                          req.Fee,
		Tax:                          req.Tax,
		IsTransferringAll:            req.IsTransferringAll,
		IsUsingFundAsSource:          req.IsUsingFundAsSource,
		CreatedAt:                    time.Now().UTC(),
	}

	err = database.WithTransaction(s.portfolioDB, func(tx *sql.Tx) error {
		return s.applyInTx(tx, portfolioID, txType, srcKind, req, &rec)
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	recorded, err := s.repo.Append(rec)
	if err != nil {
		// Balances are already committed; a lost ledger row is a reporting
		// gap, not a balance error. Surface it loudly.
		s.log.Error().Err(err).Str("portfolio", portfolioID).Msg("Failed to append ledger row")
		return rec, nil
	}

	s.log.Info().
		Str("portfolio", portfolioID).
		Str("type", string(txType)).
		Str("amount", recorded.Amount.String()).
		Msg("Transaction applied")
	return recorded, nil
}

func (s *Service) applyInTx(tx *sql.Tx, portfolioID string, txType domain.TransactionType,
	srcKind sourceKind, req domain.TransactionRequest, rec *domain.Transaction) error {

	amount := req.Amount
	fees := req.Fee.Add(req.Tax)

	// Resolve source and pin the effective amount. isTransferringAll means
	// "the exact remaining balance", whatever the form said.
	var srcAsset domain.Asset
	var srcFund domain.InvestFund
	switch srcKind {
	case sourceFund:
		f, err := s.fundRepo.GetTx(tx, portfolioID)
		if err != nil {
			return err
		}
		if f.CurrencyCode != rec.CurrencyCode {
			return domain.NewValidationError("currencyCode",
				fmt.Sprintf("fund currency is %s; convert explicitly before transacting", f.CurrencyCode))
		}
		srcFund = f
		if req.IsTransferringAll {
			amount = f.Amount
		}
	case sourceAsset:
		a, err := s.assetRepo.GetByIDTx(tx, portfolioID, *req.ReferentialAssetType, *req.ReferentialAssetID)
		if err != nil {
			if err == assets.ErrNotFound {
				return domain.NewValidationError("referentialAssetId", "source asset not found")
			}
			return err
		}
		srcAsset = a
		if req.IsTransferringAll {
			amount = a.Amount
		}
	}

	if !amount.IsPositive() {
		return domain.NewValidationError("amount", "amount must be greater than zero")
	}
	// Where fees come out of the credit side, fees above the amount would
	// write a negative destination balance.
	switch txType {
	case domain.TransactionTypeSellAsset, domain.TransactionTypeMoveToFund:
		if fees.GreaterThan(amount) {
			return domain.NewValidationError("fee", "fee and tax cannot exceed the amount")
		}
	}
	rec.Amount = amount

	srcDebit, dstCredit, fundCredit := movementFor(txType, srcKind, amount, fees)

	// Debit the source
	switch srcKind {
	case sourceFund:
		if srcFund.Amount.LessThan(srcDebit) {
			return ErrInsufficientFunds
		}
		if err := s.fundRepo.SetBalanceTx(tx, portfolioID, srcFund.Amount.Sub(srcDebit)); err != nil {
			return err
		}
		ft := domain.AssetTypeFund
		rec.ReferentialAssetType = &ft
		rec.ReferentialAssetName = fundName
	case sourceAsset:
		if srcAsset.Amount.LessThan(srcDebit) {
			return ErrInsufficientFunds
		}
		srcAsset.Amount = srcAsset.Amount.Sub(srcDebit)
		adjustHolding(&srcAsset, req.AmountInDestinationAssetUnit.Neg())
		if err := s.assetRepo.SetBalanceTx(tx, srcAsset); err != nil {
			return err
		}
		rec.ReferentialAssetType = req.ReferentialAssetType
		rec.ReferentialAssetID = req.ReferentialAssetID
		rec.ReferentialAssetName = srcAsset.Name
	}

	// Credit the destination
	if fundCredit.IsPositive() || txType == domain.TransactionTypeMoveToFund {
		f, err := s.fundRepo.GetTx(tx, portfolioID)
		if err != nil {
			return err
		}
		if err := s.fundRepo.SetBalanceTx(tx, portfolioID, f.Amount.Add(fundCredit)); err != nil {
			return err
		}
		ft := domain.AssetTypeFund
		rec.DestinationAssetType = &ft
		rec.DestinationAssetName = fundName
	} else if req.DestinationAssetType != nil && req.DestinationAssetID != nil {
		if *req.DestinationAssetType == domain.AssetTypeFund {
			f, err := s.fundRepo.GetTx(tx, portfolioID)
			if err != nil {
				return err
			}
			if err := s.fundRepo.SetBalanceTx(tx, portfolioID, f.Amount.Add(dstCredit)); err != nil {
				return err
			}
			ft := domain.AssetTypeFund
			rec.DestinationAssetType = &ft
			rec.DestinationAssetName = fundName
		} else {
			a, err := s.assetRepo.GetByIDTx(tx, portfolioID, *req.DestinationAssetType, *req.DestinationAssetID)
			if err != nil {
				if err == assets.ErrNotFound {
					return domain.NewValidationError("destinationAssetId", "destination asset not found")
				}
				return err
			}
			a.Amount = a.Amount.Add(dstCredit)
			adjustHolding(&a, req.AmountInDestinationAssetUnit)
			if err := s.assetRepo.SetBalanceTx(tx, a); err != nil {
				return err
			}
			rec.DestinationAssetType = req.DestinationAssetType
			rec.DestinationAssetID = req.DestinationAssetID
			rec.DestinationAssetName = a.Name
		}
	}

	return nil
}

// movementFor computes the per-side deltas of a transaction. Fee and tax
// are charged exactly once: on top of the debit for withdrawals and buys,
// out of the credit for sells and fund transfers.
func movementFor(txType domain.TransactionType, srcKind sourceKind,
	amount, fees decimal.Decimal,
) (srcDebit, dstCredit, fundCredit decimal.Decimal) {
	srcDebit, dstCredit, fundCredit = decimal.Zero, decimal.Zero, decimal.Zero

	switch txType {
	case domain.TransactionTypeWithdrawValue, domain.TransactionTypeWithdrawToOutside:
		srcDebit = amount.Add(fees)

	case domain.TransactionTypeWithdrawToCash:
		srcDebit = amount.Add(fees)
		dstCredit = amount

	case domain.TransactionTypeSellAsset:
		srcDebit = amount
		dstCredit = amount.Sub(fees)

	case domain.TransactionTypeMoveToFund:
		srcDebit = amount
		fundCredit = amount.Sub(fees)

	case domain.TransactionTypeBuyFromFund, domain.TransactionTypeBuyFromCash:
		srcDebit = amount.Add(fees)
		dstCredit = amount

	case domain.TransactionTypeNewAsset, domain.TransactionTypeAddValue,
		domain.TransactionTypeBuyFromOutside:
		// Outside money unless an internal source is named
		if srcKind != sourceNone {
			srcDebit = amount.Add(fees)
		}
		dstCredit = amount
	}

	return srcDebit, dstCredit, fundCredit
}

// adjustHolding shifts the held-unit quantity of stock and crypto assets.
// Other variants track value only.
func adjustHolding(a *domain.Asset, units decimal.Decimal) {
	if units.IsZero() {
		return
	}
	switch {
	case a.Stock != nil:
		a.Stock.CurrentAmountHolding = a.Stock.CurrentAmountHolding.Add(units)
	case a.Crypto != nil:
		a.Crypto.CurrentAmountHolding = a.Crypto.CurrentAmountHolding.Add(units)
	}
}

// CreateAssetWithSource persists a new asset and, when a money source is
// named, debits that source in the same portfolio-db transaction. The
// recorded transaction has type newAsset.
func (s *Service) CreateAssetWithSource(portfolioID string, asset domain.Asset,
	source assets.MoneySource, fee, tax decimal.Decimal) (domain.Asset, domain.Transaction, error) {

	rec := domain.Transaction{
		PortfolioID:     portfolioID,
		TransactionType: domain.TransactionTypeNewAsset,
		Amount:          asset.Amount,
		CurrencyCode:    asset.CurrencyCode,
		Fee:             fee,
		Tax:             tax,
		CreatedAt:       time.Now().UTC(),
	}

	var created domain.Asset
	err := database.WithTransaction(s.portfolioDB, func(tx *sql.Tx) error {
		debit := asset.Amount.Add(fee).Add(tax)

		switch {
		case source.IsUsingInvestFund:
			f, err := s.fundRepo.GetTx(tx, portfolioID)
			if err != nil {
				return err
			}
			if f.CurrencyCode != asset.CurrencyCode {
				return domain.NewValidationError("inputCurrency",
					fmt.Sprintf("fund currency is %s; convert explicitly before transacting", f.CurrencyCode))
			}
			if f.Amount.LessThan(debit) {
				return ErrInsufficientFunds
			}
			if err := s.fundRepo.SetBalanceTx(tx, portfolioID, f.Amount.Sub(debit)); err != nil {
				return err
			}
			ft := domain.AssetTypeFund
			rec.ReferentialAssetType = &ft
			rec.ReferentialAssetName = fundName
			rec.IsUsingFundAsSource = true

		case source.IsUsingCash:
			cash, err := s.assetRepo.GetByIDTx(tx, portfolioID, domain.AssetTypeCash, source.UsingCashID)
			if err != nil {
				if err == assets.ErrNotFound {
					return domain.NewValidationError("usingCashId", "cash asset not found")
				}
				return err
			}
			if cash.Amount.LessThan(debit) {
				return ErrInsufficientFunds
			}
			cash.Amount = cash.Amount.Sub(debit)
			if err := s.assetRepo.SetBalanceTx(tx, cash); err != nil {
				return err
			}
			ct := domain.AssetTypeCash
			rec.ReferentialAssetType = &ct
			rec.ReferentialAssetID = &cash.ID
			rec.ReferentialAssetName = cash.Name
		}

		var err error
		created, err = s.assetRepo.InsertTx(tx, asset)
		if err != nil {
			return err
		}

		dt := created.Type
		rec.DestinationAssetType = &dt
		rec.DestinationAssetID = &created.ID
		rec.DestinationAssetName = created.Name
		return nil
	})
	if err != nil {
		return domain.Asset{}, domain.Transaction{}, err
	}

	recorded, err := s.repo.Append(rec)
	if err != nil {
		s.log.Error().Err(err).Str("portfolio", portfolioID).Msg("Failed to append ledger row")
		return created, rec, nil
	}
	return created, recorded, nil
}

// MoveToFundRequest is the payload of the fund-transfer endpoint.
type MoveToFundRequest struct {
	ReferentialAssetID   int64           `json:"referentialAssetId"`
	ReferentialAssetType string          `json:"referentialAssetType"`
	Amount               decimal.Decimal `json:"amount"`
	CurrencyCode         string          `json:"currencyCode"`
	IsTransferringAll    bool            `json:"isTransferringAll"`
}

// MoveToFund drains value from a concrete asset into the invest fund.
func (s *Service) MoveToFund(portfolioID string, req MoveToFundRequest) (domain.Transaction, error) {
	assetType, err := domain.ParseAssetType(req.ReferentialAssetType, false)
	if err != nil {
		return domain.Transaction{}, domain.NewValidationError("referentialAssetType", err.Error())
	}

	id := req.ReferentialAssetID
	return s.Apply(portfolioID, domain.TransactionRequest{
		Amount:               req.Amount,
		CurrencyCode:         req.CurrencyCode,
		TransactionType:      domain.TransactionTypeMoveToFund,
		ReferentialAssetType: &assetType,
		ReferentialAssetID:   &id,
		IsTransferringAll:    req.IsTransferringAll,
		Fee:                  decimal.Zero,
		Tax:                  decimal.Zero,
	})
}

// History returns one page of an asset's transactions.
func (s *Service) History(req ListRequest) ([]domain.Transaction, error) {
	return s.repo.ListByAsset(req)
}

// PortfolioHistory returns a portfolio's full trail, oldest first.
func (s *Service) PortfolioHistory(portfolioID string) ([]domain.Transaction, error) {
	return s.repo.ListByPortfolio(portfolioID)
}
