// Package quote implements the HTTP client for the external quote provider.
package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/paperfolio/paperfolio-backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Client talks to the quote provider's JSON API. Successful lookups are
// cached briefly so a summary across many holdings does not hammer the
// provider with duplicate requests.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger

	cacheMu  sync.Mutex
	cache    map[string]cachedQuote
	ttl      time.Duration
}

type cachedQuote struct {
	quote   domain.PriceQuote
	expires time.Time
}

// quoteResponse mirrors the provider's JSON payload.
type quoteResponse struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	Currency      string          `json:"currency"`
	PreviousClose decimal.Decimal `json:"previous_close"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewClient creates a new quote provider client.
// cacheTTL <= 0 disables response caching.
func NewClient(baseURL string, cacheTTL time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		log:        log.With().Str("component", "quote_client").Logger(),
		cache:      make(map[string]cachedQuote),
		ttl:        cacheTTL,
	}
}

// Lookup fetches a fresh quote for symbol from GET {base}/api/quote/{symbol}.
func (c *Client) Lookup(ctx context.Context, symbol string) (*domain.PriceQuote, error) {
	if cached, ok := c.fromCache(symbol); ok {
		return cached, nil
	}

	endpoint := fmt.Sprintf("%s/api/quote/%s", c.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("provider rejected %s: %s", symbol, apiErr.Error)
		}
		return nil, fmt.Errorf("provider returned status %d for %s", resp.StatusCode, symbol)
	}

	var payload quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}

	quote := &domain.PriceQuote{
		Symbol:        payload.Symbol,
		Name:          payload.Name,
		CurrentPrice:  payload.CurrentPrice,
		Currency:      payload.Currency,
		PreviousClose: payload.PreviousClose,
		AsOf:          time.Now(),
	}
	c.store(symbol, quote)
	return quote, nil
}

func (c *Client) fromCache(symbol string) (*domain.PriceQuote, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	entry, ok := c.cache[symbol]
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	quote := entry.quote
	return &quote, true
}

func (c *Client) store(symbol string, quote *domain.PriceQuote) {
	if c.ttl <= 0 {
		return
	}
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache[symbol] = cachedQuote{quote: *quote, expires: time.Now().Add(c.ttl)}
}
