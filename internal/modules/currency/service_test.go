package currency

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRates struct {
	rate   float64
	calls  int
	failed bool
}

func (s *stubRates) GetRate(ctx context.Context, from, to string) (float64, error) {
	s.calls++
	if s.failed {
		return 0, fmt.Errorf("rate source down")
	}
	return s.rate, nil
}

func TestList_ContainsCuratedCurrencies(t *testing.T) {
	svc := NewService(&stubRates{}, zerolog.Nop())

	list := svc.List()
	require.NotEmpty(t, list)

	codes := make(map[string]Info)
	for _, c := range list {
		codes[c.Code] = c
	}
	assert.Contains(t, codes, "USD")
	assert.Contains(t, codes, "VND")
	assert.Equal(t, "$", codes["USD"].Symbol)
	assert.Equal(t, 2, codes["USD"].Fraction)
	assert.Equal(t, 0, codes["JPY"].Fraction)
}

func TestConvert_SameCurrencySkipsRateSource(t *testing.T) {
	rates := &stubRates{rate: 0.9}
	svc := NewService(rates, zerolog.Nop())

	got, err := svc.Convert(context.Background(), decimal.NewFromInt(100), "USD", "USD")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(100)))
	assert.Zero(t, rates.calls)
}

func TestConvert_AppliesRate(t *testing.T) {
	svc := NewService(&stubRates{rate: 0.5}, zerolog.Nop())

	got, err := svc.Convert(context.Background(), decimal.NewFromInt(200), "USD", "EUR")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(100)))
}

func TestConvert_RejectsUnknownCurrency(t *testing.T) {
	svc := NewService(&stubRates{rate: 1}, zerolog.Nop())

	_, err := svc.Convert(context.Background(), decimal.NewFromInt(1), "USD", "NOPE")
	assert.Error(t, err)
}

func TestConvert_PropagatesRateSourceFailure(t *testing.T) {
	svc := NewService(&stubRates{failed: true}, zerolog.Nop())

	_, err := svc.Convert(context.Background(), decimal.NewFromInt(1), "USD", "EUR")
	assert.Error(t, err)
}
