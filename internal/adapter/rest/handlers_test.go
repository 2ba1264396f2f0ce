package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/paperfolio/paperfolio-backend/internal/adapter/repository/memory"
	"github.com/paperfolio/paperfolio-backend/internal/domain"
	"github.com/paperfolio/paperfolio-backend/internal/usecase/ledger"
	"github.com/paperfolio/paperfolio-backend/internal/usecase/pricing"
	"github.com/paperfolio/paperfolio-backend/internal/usecase/valuation"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubQuoteClient serves quotes from a fixed table.
type stubQuoteClient struct {
	prices map[string]float64
}

func (c *stubQuoteClient) Lookup(ctx context.Context, symbol string) (*domain.PriceQuote, error) {
	price, ok := c.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %s", symbol)
	}
	return &domain.PriceQuote{
		Symbol:       symbol,
		Name:         symbol + " Inc.",
		CurrentPrice: decimal.NewFromFloat(price),
		Currency:     "USD",
		AsOf:         time.Now(),
	}, nil
}

type testEnv struct {
	router *chi.Mux
	ledger *ledger.Service
}

func newTestEnv(prices map[string]float64) *testEnv {
	repo := memory.NewLedgerRepository(decimal.NewFromInt(100000))
	ledgerService := ledger.NewService(repo)
	resolver := pricing.NewResolver(&stubQuoteClient{prices: prices}, time.Second, zerolog.Nop())
	summaryService := valuation.NewSummaryService(ledgerService, resolver.Resolve)
	snapshotBuilder := valuation.NewSnapshotBuilder(ledgerService, memory.NewClosingPriceRepository())

	handler := NewHandler(ledgerService, resolver, summaryService, snapshotBuilder, zerolog.Nop())
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return &testEnv{router: router, ledger: ledgerService}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	e.router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	return payload
}

func TestHandleBuy_ExecutesAtLiveQuote(t *testing.T) {
	env := newTestEnv(map[string]float64{"AAPL": 150})

	recorder := env.do(t, http.MethodPost, "/api/stocks", orderRequest{Symbol: "AAPL", Quantity: 10})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	payload := decodeBody(t, recorder)
	assert.Equal(t, "Stock added successfully", payload["message"])

	holding, err := env.ledger.GetHolding(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(10), holding.Quantity)
	assert.True(t, decimal.NewFromInt(150).Equal(holding.AverageCost))
	assert.Equal(t, "AAPL Inc.", holding.Name)

	account, err := env.ledger.GetAccount(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(98500).Equal(account.Balance))
}

func TestHandleBuy_UnknownSymbol(t *testing.T) {
	env := newTestEnv(map[string]float64{})

	recorder := env.do(t, http.MethodPost, "/api/stocks", orderRequest{Symbol: "NOPE", Quantity: 1})
	assert.Equal(t, http.StatusBadGateway, recorder.Code)
	assert.Contains(t, decodeBody(t, recorder)["error"], "Could not price")
}

func TestHandleBuy_InvalidQuantity(t *testing.T) {
	env := newTestEnv(map[string]float64{"AAPL": 150})

	recorder := env.do(t, http.MethodPost, "/api/stocks", orderRequest{Symbol: "AAPL", Quantity: 0})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHandleSell_InsufficientHoldings(t *testing.T) {
	env := newTestEnv(map[string]float64{"AAPL": 150})

	recorder := env.do(t, http.MethodPost, "/api/stocks", orderRequest{Symbol: "AAPL", Quantity: 5})
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = env.do(t, http.MethodDelete, "/api/stocks/delete_by_symbol", orderRequest{Symbol: "AAPL", Quantity: 999})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, decodeBody(t, recorder)["error"], "only 5 held")

	// Rejected sell did not move the balance
	account, err := env.ledger.GetAccount(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(99250).Equal(account.Balance))
}

func TestHandleSell_ReportsRealizedDelta(t *testing.T) {
	env := newTestEnv(map[string]float64{"AAPL": 150})

	recorder := env.do(t, http.MethodPost, "/api/stocks", orderRequest{Symbol: "AAPL", Quantity: 10})
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = env.do(t, http.MethodDelete, "/api/stocks/delete_by_symbol", orderRequest{Symbol: "AAPL", Quantity: 10})
	require.Equal(t, http.StatusOK, recorder.Code)
	payload := decodeBody(t, recorder)
	assert.Equal(t, "Stock sold successfully", payload["message"])

	// Bought and sold at the same quote: zero realized delta
	delta, err := decimal.NewFromString(fmt.Sprint(payload["realized_delta"]))
	require.NoError(t, err)
	assert.True(t, delta.IsZero())
}

func TestHandleSearch(t *testing.T) {
	env := newTestEnv(map[string]float64{"AAPL": 187.35})

	recorder := env.do(t, http.MethodGet, "/api/search/aapl", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	payload := decodeBody(t, recorder)
	assert.Equal(t, "AAPL", payload["symbol"])
	assert.Equal(t, "AAPL Inc.", payload["name"])

	recorder = env.do(t, http.MethodGet, "/api/search/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "Stock not found", decodeBody(t, recorder)["error"])
}

func TestHandleGetAccount(t *testing.T) {
	env := newTestEnv(nil)

	recorder := env.do(t, http.MethodGet, "/api/account", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "100000", fmt.Sprint(decodeBody(t, recorder)["balance"]))
}

func TestHandleGetTransactions_NewestFirst(t *testing.T) {
	env := newTestEnv(map[string]float64{"AAPL": 150, "MSFT": 300})

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/stocks", orderRequest{Symbol: "AAPL", Quantity: 1}).Code)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/stocks", orderRequest{Symbol: "MSFT", Quantity: 1}).Code)

	recorder := env.do(t, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var payload []map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	require.Len(t, payload, 2)
	assert.Equal(t, "MSFT", payload[0]["symbol"])
	assert.Equal(t, "AAPL", payload[1]["symbol"])
}

func TestHandleGetSummary(t *testing.T) {
	env := newTestEnv(map[string]float64{"AAPL": 150, "MSFT": 300})

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/stocks", orderRequest{Symbol: "AAPL", Quantity: 10}).Code)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/stocks", orderRequest{Symbol: "MSFT", Quantity: 2}).Code)

	recorder := env.do(t, http.MethodGet, "/api/portfolio/summary", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	payload := decodeBody(t, recorder)

	holdings, ok := payload["holdings"].([]interface{})
	require.True(t, ok)
	assert.Len(t, holdings, 2)
	assert.NotNil(t, payload["total_portfolio_value"])
	assert.NotNil(t, payload["realized_pnl"])
}

func TestHandleGetStock_OwnershipFigures(t *testing.T) {
	env := newTestEnv(map[string]float64{"AAPL": 150})

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/stocks", orderRequest{Symbol: "AAPL", Quantity: 10}).Code)

	recorder := env.do(t, http.MethodGet, "/api/stocks/AAPL", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	payload := decodeBody(t, recorder)
	assert.Equal(t, "AAPL", payload["symbol"])
	assert.Equal(t, "1500", fmt.Sprint(payload["current_value"]))
	assert.Equal(t, false, payload["stale"])

	recorder = env.do(t, http.MethodGet, "/api/stocks/TSLA", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestHandleGetValueSeries(t *testing.T) {
	env := newTestEnv(map[string]float64{"AAPL": 150})

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/stocks", orderRequest{Symbol: "AAPL", Quantity: 10}).Code)

	recorder := env.do(t, http.MethodGet, "/api/portfolio/value", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var payload []map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	require.NotEmpty(t, payload)
	for _, point := range payload {
		assert.NotEmpty(t, point["date"])
		assert.NotNil(t, point["total_value"])
	}
}
