package domain

import (
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money carries a decimal amount together with its ISO 4217 currency code.
// There is no implicit cross-currency arithmetic: combining two Money values
// with different codes is an error, and conversion is an explicit step that
// goes through an exchange-rate provider at presentation time.
type Money struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
}

// NewMoney builds a Money value, validating the currency code against the
// ISO registry.
func NewMoney(amount decimal.Decimal, currencyCode string) (Money, error) {
	code, err := NormalizeCurrencyCode(currencyCode)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: amount, CurrencyCode: code}, nil
}

// NormalizeCurrencyCode upper-cases and validates a currency code.
func NormalizeCurrencyCode(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return "", fmt.Errorf("currency code is required")
	}
	if gomoney.GetCurrency(c) == nil {
		return "", fmt.Errorf("unsupported currency code: %q", code)
	}
	return c, nil
}

// IsSupportedCurrency reports whether code is a known ISO currency.
func IsSupportedCurrency(code string) bool {
	_, err := NormalizeCurrencyCode(code)
	return err == nil
}

// Add returns m + other. Both values must share a currency code.
func (m Money) Add(other Money) (Money, error) {
	if m.CurrencyCode != other.CurrencyCode {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.CurrencyCode, other.CurrencyCode)
	}
	return Money{Amount: m.Amount.Add(other.Amount), CurrencyCode: m.CurrencyCode}, nil
}

// Sub returns m - other. Both values must share a currency code.
func (m Money) Sub(other Money) (Money, error) {
	if m.CurrencyCode != other.CurrencyCode {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.CurrencyCode, other.CurrencyCode)
	}
	return Money{Amount: m.Amount.Sub(other.Amount), CurrencyCode: m.CurrencyCode}, nil
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

// Display formats the amount with its currency symbol for notifications.
// Sub-unit precision comes from the ISO registry (JPY has none, USD two).
func (m Money) Display() string {
	cur := gomoney.GetCurrency(m.CurrencyCode)
	if cur == nil {
		return m.Amount.String() + " " + m.CurrencyCode
	}
	fraction := int32(cur.Fraction)
	units := m.Amount.Shift(fraction).Round(0).IntPart()
	return gomoney.New(units, m.CurrencyCode).Display()
}
