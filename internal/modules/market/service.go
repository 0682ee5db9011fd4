// Package market exposes stock and crypto market data to the API: spot
// quotes, symbol search, and a websocket stream of live quote updates.
package market

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/portfolio-management-app/money-master/internal/domain"
)

// Service fans quote and search requests out to the upstream providers.
type Service struct {
	stocks domain.StockQuoteProvider
	crypto domain.CryptoQuoteProvider
	log    zerolog.Logger
}

// NewService creates a new market data service
func NewService(stocks domain.StockQuoteProvider, crypto domain.CryptoQuoteProvider, log zerolog.Logger) *Service {
	return &Service{
		stocks: stocks,
		crypto: crypto,
		log:    log.With().Str("service", "market").Logger(),
	}
}

// StockQuote returns the current quote for a stock symbol.
func (s *Service) StockQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	return s.stocks.GetQuote(ctx, symbol)
}

// CryptoQuote returns the current quote for a coin code.
func (s *Service) CryptoQuote(ctx context.Context, coinCode string) (*domain.Quote, error) {
	if coinCode == "" {
		return nil, fmt.Errorf("coin code is required")
	}
	return s.crypto.GetQuote(ctx, coinCode)
}

// Search queries one provider depending on the requested asset type.
func (s *Service) Search(ctx context.Context, assetType domain.AssetType, text string) ([]domain.SearchResult, error) {
	if text == "" {
		return []domain.SearchResult{}, nil
	}
	switch assetType {
	case domain.AssetTypeStock:
		return s.stocks.Search(ctx, text)
	case domain.AssetTypeCrypto:
		return s.crypto.Search(ctx, text)
	}
	return nil, fmt.Errorf("search is not supported for asset type %s", assetType)
}
