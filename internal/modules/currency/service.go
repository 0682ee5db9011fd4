// Package currency exposes the supported-currency list and conversion
// between currencies through an external rate source.
package currency

import (
	"context"
	"fmt"
	"sort"

	gomoney "github.com/Rhymond/go-money"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/portfolio-management-app/money-master/internal/domain"
)

// Info describes one supported currency for selection lists.
type Info struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Fraction int    `json:"fraction"`
}

// supportedCodes is the curated subset offered in portfolio and asset
// forms. The ISO registry knows many more; these cover the actual user
// base.
var supportedCodes = []string{
	"USD", "EUR", "GBP", "JPY", "CNY", "KRW", "VND", "SGD",
	"AUD", "CAD", "CHF", "HKD", "INR", "THB", "MYR", "IDR",
	"PHP", "NZD", "SEK", "NOK", "DKK", "PLN", "CZK", "BRL",
}

// Service answers currency questions and converts amounts.
type Service struct {
	rates domain.RateProvider
	log   zerolog.Logger
}

// NewService creates a new currency service
func NewService(rates domain.RateProvider, log zerolog.Logger) *Service {
	return &Service{
		rates: rates,
		log:   log.With().Str("service", "currency").Logger(),
	}
}

// List returns the supported currencies sorted by code.
func (s *Service) List() []Info {
	out := make([]Info, 0, len(supportedCodes))
	for _, code := range supportedCodes {
		c := gomoney.GetCurrency(code)
		if c == nil {
			continue
		}
		out = append(out, Info{
			Code:     c.Code,
			Name:     c.Code,
			Symbol:   c.Grapheme,
			Fraction: c.Fraction,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Convert turns an amount in one currency into another using the current
// exchange rate. Same-currency conversion is the identity and never hits
// the rate source.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from, err := domain.NormalizeCurrencyCode(from)
	if err != nil {
		return decimal.Zero, err
	}
	to, err = domain.NormalizeCurrencyCode(to)
	if err != nil {
		return decimal.Zero, err
	}
	if from == to {
		return amount, nil
	}

	rate, err := s.rates.GetRate(ctx, from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get %s/%s rate: %w", from, to, err)
	}
	return amount.Mul(decimal.NewFromFloat(rate)), nil
}
