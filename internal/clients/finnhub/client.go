// Package finnhub wraps the finnhub.io stock quote and symbol search API.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
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

// Client for the finnhub REST API. Free-tier keys are limited to 60
// calls per minute; the limiter keeps us under that.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	cache   *clientdata.Store
	log     zerolog.Logger
}

// NewClient creates a new finnhub client.
// cache is optional; if nil, every call hits the API.
func NewClient(baseURL, apiKey string, cache *clientdata.Store, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://finnhub.io/api/v1"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		cache:   cache,
		log:     log.With().Str("client", "finnhub").Logger(),
	}
}

type cachedQuote struct {
	Price         float64 `msgpack:"price"`
	PriceChange   float64 `msgpack:"priceChange"`
	PercentChange float64 `msgpack:"percentChange"`
}

// GetQuote returns the current quote for a stock symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if c.cache != nil {
		var cached cachedQuote
		if err := c.cache.GetFresh(clientdata.TableStockQuotes, symbol, &cached); err == nil {
			return quoteFromCache(cached), nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var result struct {
		Current       float64 `json:"c"`
		Change        float64 `json:"d"`
		PercentChange float64 `json:"dp"`
	}
	params := url.Values{"symbol": {symbol}}
	if err := c.getJSON(ctx, "/quote", params, &result); err != nil {
		if c.cache != nil {
			var stale cachedQuote
			if cerr := c.cache.GetStale(clientdata.TableStockQuotes, symbol, &stale); cerr == nil {
				c.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote API failed, using stale cached quote")
				return quoteFromCache(stale), nil
			}
		}
		return nil, err
	}
	if result.Current == 0 {
		return nil, fmt.Errorf("no quote data for symbol %s", symbol)
	}

	if c.cache != nil {
		cached := cachedQuote{
			Price:         result.Current,
			PriceChange:   result.Change,
			PercentChange: result.PercentChange,
		}
		if err := c.cache.Put(clientdata.TableStockQuotes, symbol, cached, quoteTTL); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache stock quote")
		}
	}

	return &domain.Quote{
		Price:         decimal.NewFromFloat(result.Current),
		PriceChange:   decimal.NewFromFloat(result.Change),
		PercentChange: decimal.NewFromFloat(result.PercentChange),
	}, nil
}

type cachedSearch struct {
	Results []domain.SearchResult `msgpack:"results"`
}

// Search looks up symbols matching free text.
func (c *Client) Search(ctx context.Context, text string) ([]domain.SearchResult, error) {
	cacheKey := "stock:" + text
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
		Result []struct {
			Symbol      string `json:"symbol"`
			Description string `json:"description"`
		} `json:"result"`
	}
	params := url.Values{"q": {text}}
	if err := c.getJSON(ctx, "/search", params, &result); err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(result.Result))
	for _, r := range result.Result {
		results = append(results, domain.SearchResult{
			ID:     r.Symbol,
			Symbol: r.Symbol,
			Name:   r.Description,
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
	params.Set("token", c.apiKey)
	fullURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("finnhub request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("finnhub rate limit exceeded")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("finnhub returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to parse finnhub response: %w", err)
	}
	return nil
}

func quoteFromCache(c cachedQuote) *domain.Quote {
	return &domain.Quote{
		Price:         decimal.NewFromFloat(c.Price),
		PriceChange:   decimal.NewFromFloat(c.PriceChange),
		PercentChange: decimal.NewFromFloat(c.PercentChange),
	}
}
