// Package exchangerate fetches currency exchange rates with persistent
// caching and stale-data fallback.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/portfolio-management-app/money-master/internal/clientdata"
)

const cacheTTL = 6 * time.Hour

// Client for exchangerate-api.com style endpoints.
type Client struct {
	baseURL string
	client  *http.Client
	cache   *clientdata.Store
	log     zerolog.Logger
}

// NewClient creates a new exchange rate client.
// cache is optional; if nil, every call hits the API.
func NewClient(baseURL string, cache *clientdata.Store, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.exchangerate-api.com/v4/latest"
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
		log:     log.With().Str("client", "exchangerate").Logger(),
	}
}

type cachedRate struct {
	Rate float64 `msgpack:"rate"`
}

// GetRate returns the fromCurrency→toCurrency rate. Fresh cache wins;
// when the API is unreachable a stale cached rate beats no rate.
func (c *Client) GetRate(ctx context.Context, fromCurrency, toCurrency string) (float64, error) {
	if fromCurrency == toCurrency {
		return 1.0, nil
	}

	cacheKey := fromCurrency + ":" + toCurrency
	if c.cache != nil {
		var cached cachedRate
		if err := c.cache.GetFresh(clientdata.TableExchangeRate, cacheKey, &cached); err == nil {
			return cached.Rate, nil
		}
	}

	rate, err := c.fetchRate(ctx, fromCurrency, toCurrency)
	if err != nil {
		if stale, ok := c.staleRate(cacheKey); ok {
			c.log.Warn().Err(err).
				Str("from", fromCurrency).
				Str("to", toCurrency).
				Float64("rate", stale).
				Msg("Rate API failed, using stale cached rate")
			return stale, nil
		}
		return 0, err
	}

	if c.cache != nil {
		if err := c.cache.Put(clientdata.TableExchangeRate, cacheKey, cachedRate{Rate: rate}, cacheTTL); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache exchange rate")
		}
	}
	return rate, nil
}

func (c *Client) fetchRate(ctx context.Context, fromCurrency, toCurrency string) (float64, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, fromCurrency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rate API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate API returned status %d", resp.StatusCode)
	}

	var result struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to parse rate response: %w", err)
	}

	rate, ok := result.Rates[toCurrency]
	if !ok {
		return 0, fmt.Errorf("no %s rate in response", toCurrency)
	}
	return rate, nil
}

func (c *Client) staleRate(cacheKey string) (float64, bool) {
	if c.cache == nil {
		return 0, false
	}
	var cached cachedRate
	if err := c.cache.GetStale(clientdata.TableExchangeRate, cacheKey, &cached); err != nil {
		return 0, false
	}
	return cached.Rate, true
}
