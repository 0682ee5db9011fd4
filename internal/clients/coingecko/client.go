// Package coingecko wraps the CoinGecko crypto price and search API.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/portfolio-management-app/money-master/internal/clientdata"
	"github.com/portfolio-management-app/money-master/internal/domain"
)

const (
	quoteTTL  = 5 * time.Minute
	searchTTL = 24 * time.Hour
)

// Client for the CoinGecko public API. The anonymous tier allows roughly
// 10-30 calls per minute; one call every 6 seconds stays safely inside.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	cache   *clientdata.Store
	log     zerolog.Logger
}

// NewClient creates a new CoinGecko client.
// cache is optional; if nil, every call hits the API.
func NewClient(baseURL string, cache *clientdata.Store, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Every(6*time.Second), 1),
		cache:   cache,
		log:     log.With().Str("client", "coingecko").Logger(),
	}
}

type cachedQuote struct {
	Price         float64 `msgpack:"price"`
	PercentChange float64 `msgpack:"percentChange"`
}

// GetQuote returns the USD quote for a coin id (e.g. "bitcoin").
func (c *Client) GetQuote(ctx context.Context, coinCode string) (*domain.Quote, error) {
	coinCode = strings.ToLower(coinCode)
	if c.cache != nil {
		var cached cachedQuote
		if err := c.cache.GetFresh(clientdata.TableCryptoQuotes, coinCode, &cached); err == nil {
			return quoteFromCache(cached), nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"ids":                 {coinCode},
		"vs_currencies":       {"usd"},
		"include_24hr_change": {"true"},
	}
	var result map[string]struct {
		USD       float64 `json:"usd"`
		USDChange float64 `json:"usd_24h_change"`
	}
	if err := c.getJSON(ctx, "/simple/price", params, &result); err != nil {
		if c.cache != nil {
			var stale cachedQuote
			if cerr := c.cache.GetStale(clientdata.TableCryptoQuotes, coinCode, &stale); cerr == nil {
				c.log.Warn().Err(err).Str("coin", coinCode).Msg("Price API failed, using stale cached quote")
				return quoteFromCache(stale), nil
			}
		}
		return nil, err
	}

	coin, ok := result[coinCode]
	if !ok {
		return nil, fmt.Errorf("unknown coin: %s", coinCode)
	}

	if c.cache != nil {
		cached := cachedQuote{Price: coin.USD, PercentChange: coin.USDChange}
		if err := c.cache.Put(clientdata.TableCryptoQuotes, coinCode, cached, quoteTTL); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache crypto quote")
		}
	}

	return quoteFromCache(cachedQuote{Price: coin.USD, PercentChange: coin.USDChange}), nil
}

type cachedSearch struct {
	Results []domain.SearchResult `msgpack:"results"`
}

// Search looks up coins matching free text.
func (c *Client) Search(ctx context.Context, text string) ([]domain.SearchResult, error) {
	cacheKey := "crypto:" + strings.ToLower(text)
	if c.cache != nil {
		var cached cachedSearch
		if err := c.cache.GetFresh(clientdata.TableAssetSearch, cacheKey, &cached); err == nil {
			return cached.Results, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result struct {
		Coins []struct {
			ID     string `json:"id"`
			Symbol string `json:"symbol"`
			Name   string `json:"name"`
		} `json:"coins"`
	}
	if err := c.getJSON(ctx, "/search", url.Values{"query": {text}}, &result); err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(result.Coins))
	for _, coin := range result.Coins {
		results = append(results, domain.SearchResult{
			ID:     coin.ID,
			Symbol: strings.ToUpper(coin.Symbol),
			Name:   coin.Name,
		})
	}

	if c.cache != nil {
		if err := c.cache.Put(clientdata.TableAssetSearch, cacheKey, cachedSearch{Results: results}, searchTTL); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache search results")
		}
	}
	return results, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	fullURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("coingecko request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("coingecko rate limit exceeded")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to parse coingecko response: %w", err)
	}
	return nil
}

func quoteFromCache(c cachedQuote) *domain.Quote {
	price := decimal.NewFromFloat(c.Price)
	pct := decimal.NewFromFloat(c.PercentChange)
	return &domain.Quote{
		Price:         price,
		PriceChange:   price.Mul(pct).Div(decimal.NewFromInt(100)).Round(8),
		PercentChange: pct,
	}
}
