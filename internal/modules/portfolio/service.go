package portfolio

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/portfolio-management-app/money-master/internal/domain"
	"github.com/portfolio-management-app/money-master/internal/modules/assets"
	"github.com/portfolio-management-app/money-master/internal/modules/fund"
)

// CreateRequest is the payload for creating a portfolio.
type CreateRequest struct {
	Name            string          `json:"name"`
	InitialCash     decimal.Decimal `json:"initialCash"`
	InitialCurrency string          `json:"initialCurrency"`
}

// Service provides portfolio operations
type Service struct {
	repo      *Repository
	assetRepo *assets.Repository
	fundRepo  *fund.Repository
	log       zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(repo *Repository, assetRepo *assets.Repository, fundRepo *fund.Repository, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		assetRepo: assetRepo,
		fundRepo:  fundRepo,
		log:       log.With().Str("service", "portfolio").Logger(),
	}
}

// Create builds a portfolio, seeds its invest fund at zero, and when
// initial cash is positive creates the opening cash asset.
func (s *Service) Create(req CreateRequest) (domain.Portfolio, error) {
	if req.Name == "" {
		return domain.Portfolio{}, fmt.Errorf("portfolio name is required")
	}
	currency, err := domain.NormalizeCurrencyCode(req.InitialCurrency)
	if err != nil {
		return domain.Portfolio{}, err
	}
	if req.InitialCash.IsNegative() {
		return domain.Portfolio{}, fmt.Errorf("initial cash must not be negative")
	}

	p := domain.Portfolio{
		ID:              uuid.NewString(),
		Name:            req.Name,
		InitialCash:     req.InitialCash,
		InitialCurrency: currency,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.repo.Insert(p); err != nil {
		return domain.Portfolio{}, err
	}
	if err := s.fundRepo.Init(p.ID, currency); err != nil {
		return domain.Portfolio{}, err
	}

	if req.InitialCash.IsPositive() {
		_, err := s.assetRepo.Insert(domain.Asset{
			PortfolioID:  p.ID,
			Type:         domain.AssetTypeCash,
			Name:         "Initial cash",
			InputDay:     p.CreatedAt.Format("2006-01-02"),
			CurrencyCode: currency,
			Amount:       req.InitialCash,
		})
		if err != nil {
			return domain.Portfolio{}, fmt.Errorf("failed to seed initial cash: %w", err)
		}
	}

	s.log.Info().Str("portfolio", p.ID).Str("name", p.Name).Msg("Portfolio created")
	p.Sum = req.InitialCash
	return p, nil
}

// Get returns one portfolio with its aggregate sum.
func (s *Service) Get(id string) (domain.Portfolio, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		return domain.Portfolio{}, err
	}
	sum, err := s.aggregateSum(id)
	if err != nil {
		return domain.Portfolio{}, err
	}
	p.Sum = sum
	return p, nil
}

// List returns all portfolios with aggregate sums.
func (s *Service) List() ([]domain.Portfolio, error) {
	portfolios, err := s.repo.GetAll()
	if err != nil {
		return nil, err
	}
	for i := range portfolios {
		sum, err := s.aggregateSum(portfolios[i].ID)
		if err != nil {
			// A broken aggregate must not hide the portfolio itself
			s.log.Error().Err(err).Str("portfolio", portfolios[i].ID).Msg("Failed to compute aggregate sum")
			continue
		}
		portfolios[i].Sum = sum
	}
	return portfolios, nil
}

// Rename updates the display name.
func (s *Service) Rename(id, name string) error {
	if name == "" {
		return fmt.Errorf("portfolio name is required")
	}
	return s.repo.Update(id, name)
}

// Delete removes a portfolio.
func (s *Service) Delete(id string) error {
	return s.repo.Delete(id)
}

// aggregateSum adds every live asset value and the fund balance. Amounts
// in other currencies are summed at face value; cross-currency conversion
// is an explicit presentation step, not part of the stored aggregate.
func (s *Service) aggregateSum(portfolioID string) (decimal.Decimal, error) {
	sum := decimal.Zero

	all, err := s.assetRepo.ListAll(portfolioID)
	if err != nil {
		return decimal.Zero, err
	}
	for _, a := range all {
		sum = sum.Add(a.Amount)
	}

	f, err := s.fundRepo.Get(portfolioID)
	if err != nil && err != fund.ErrNotFound {
		return decimal.Zero, err
	}
	if err == nil {
		sum = sum.Add(f.Amount)
	}

	return sum, nil
}
