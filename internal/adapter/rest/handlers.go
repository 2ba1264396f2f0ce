// Package rest exposes the portfolio backend to the browser UI as a JSON API.
// The UI depends only on this surface, never on ledger or resolver internals.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/paperfolio/paperfolio-backend/internal/domain"
	"github.com/paperfolio/paperfolio-backend/internal/usecase/ledger"
	"github.com/paperfolio/paperfolio-backend/internal/usecase/pricing"
	"github.com/paperfolio/paperfolio-backend/internal/usecase/valuation"
	"github.com/rs/zerolog"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	ledger   *ledger.Service
	resolver *pricing.Resolver
	summary  *valuation.SummaryService
	snapshot *valuation.SnapshotBuilder
	log      zerolog.Logger
}

// NewHandler creates a new REST handler
func NewHandler(
	ledgerService *ledger.Service,
	resolver *pricing.Resolver,
	summaryService *valuation.SummaryService,
	snapshotBuilder *valuation.SnapshotBuilder,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		ledger:   ledgerService,
		resolver: resolver,
		summary:  summaryService,
		snapshot: snapshotBuilder,
		log:      log.With().Str("handler", "rest").Logger(),
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/search/{symbol}", h.HandleSearch)
		r.Get("/account", h.HandleGetAccount)
		r.Get("/transactions", h.HandleGetTransactions)
		r.Route("/stocks", func(r chi.Router) {
			r.Get("/", h.HandleListStocks)
			r.Post("/", h.HandleBuy)
			r.Get("/{symbol}", h.HandleGetStock)
			r.Delete("/delete_by_symbol", h.HandleSell)
		})
		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/summary", h.HandleGetSummary)
			r.Get("/value", h.HandleGetValueSeries)
		})
	})
}

type orderRequest struct {
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
}

// HandleSearch proxies a live quote lookup for the symbol search box.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	symbol := domain.NormalizeSymbol(chi.URLParam(r, "symbol"))
	if err := domain.ValidateSymbol(symbol); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quote, err := h.resolver.Lookup(r.Context(), symbol)
	if err != nil {
		h.writeError(w, http.StatusNotFound, "Stock not found")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":         quote.Symbol,
		"name":           quote.Name,
		"current_price":  quote.CurrentPrice,
		"currency":       quote.Currency,
		"previous_close": quote.PreviousClose,
	})
}

// HandleGetAccount returns the cash balance.
func (h *Handler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.ledger.GetAccount(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to load account")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"balance": account.Balance})
}

// HandleListStocks returns all live holdings.
func (h *Handler) HandleListStocks(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.ledger.ListHoldings(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list holdings")
		return
	}

	result := make([]map[string]interface{}, 0, len(holdings))
	for _, holding := range holdings {
		result = append(result, map[string]interface{}{
			"symbol":         holding.Symbol,
			"name":           holding.Name,
			"quantity":       holding.Quantity,
			"purchase_price": holding.AverageCost,
		})
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleGetStock returns one holding with its live valuation, the figures the
// ownership panel shows. A failed quote degrades to cost basis, marked stale.
func (h *Handler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	symbol := domain.NormalizeSymbol(chi.URLParam(r, "symbol"))

	if err := domain.ValidateSymbol(symbol); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshot, err := h.ledger.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to load holding")
		return
	}
	var holding *domain.Holding
	for _, candidate := range snapshot.Holdings {
		if candidate.Symbol == symbol {
			holding = candidate
			break
		}
	}
	if holding == nil {
		h.writeError(w, http.StatusNotFound, "No holding for "+symbol)
		return
	}

	totals := valuation.ComputeTotals(r.Context(), []*domain.Holding{holding}, snapshot.Account.Balance, h.resolver.Resolve)
	row := totals.PerHolding[0]
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":              row.Symbol,
		"name":                row.Name,
		"quantity":            row.Quantity,
		"purchase_price":      row.AverageCost,
		"current_price":       row.CurrentPrice,
		"current_value":       row.CurrentValue,
		"purchase_value":      row.PurchaseValue,
		"profit_loss":         row.ProfitLoss,
		"profit_loss_percent": row.ProfitLossPercent,
		"portfolio_percent":   row.PortfolioPercent,
		"stale":               row.Stale,
	})
}

// HandleGetTransactions returns the transaction log, newest first.
func (h *Handler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.ledger.ListTransactions(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to load transactions")
		return
	}

	result := make([]map[string]interface{}, 0, len(transactions))
	for i := len(transactions) - 1; i >= 0; i-- {
		tx := transactions[i]
		result = append(result, map[string]interface{}{
			"id":             tx.ID,
			"symbol":         tx.Symbol,
			"type":           tx.Kind,
			"quantity":       tx.Quantity,
			"purchase_price": tx.Price,
			"total_amount":   tx.TotalAmount,
			"realized_delta": tx.RealizedDelta,
			"date":           tx.Timestamp,
		})
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleBuy executes a buy. The execution price is always the live quote at
// this moment; the client never supplies one.
func (h *Handler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	symbol := domain.NormalizeSymbol(req.Symbol)
	if err := domain.ValidateSymbol(symbol); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quote, err := h.resolver.Lookup(r.Context(), symbol)
	if err != nil {
		// A buy cannot execute against a stale or missing price
		h.writeError(w, http.StatusBadGateway, "Could not price "+symbol+" right now")
		return
	}

	tx, err := h.ledger.RecordBuy(r.Context(), symbol, quote.Name, req.Quantity, quote.CurrentPrice)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.log.Info().Str("symbol", symbol).Int64("quantity", req.Quantity).Str("price", quote.CurrentPrice.String()).Msg("buy executed")
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":        "Stock added successfully",
		"transaction_id": tx.ID,
		"price":          tx.Price,
	})
}

// HandleSell executes a sell at the live quote, falling back to the holding's
// cost basis only for pricing display; the sell itself requires a live price.
func (h *Handler) HandleSell(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	symbol := domain.NormalizeSymbol(req.Symbol)
	if err := domain.ValidateSymbol(symbol); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quote, err := h.resolver.Lookup(r.Context(), symbol)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "Could not price "+symbol+" right now")
		return
	}

	tx, err := h.ledger.RecordSell(r.Context(), symbol, req.Quantity, quote.CurrentPrice)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.log.Info().Str("symbol", symbol).Int64("quantity", req.Quantity).Str("realized", tx.RealizedDelta.String()).Msg("sell executed")
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "Stock sold successfully",
		"transaction_id": tx.ID,
		"realized_delta": tx.RealizedDelta,
	})
}

// HandleGetSummary returns the complete portfolio summary.
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.summary.Summarize(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to build summary")
		return
	}

	holdings := make([]map[string]interface{}, 0, len(summary.Holdings))
	for _, row := range summary.Holdings {
		holdings = append(holdings, map[string]interface{}{
			"symbol":              row.Symbol,
			"name":                row.Name,
			"quantity":            row.Quantity,
			"purchase_price":      row.AverageCost,
			"current_price":       row.CurrentPrice,
			"current_value":       row.CurrentValue,
			"profit_loss":         row.ProfitLoss,
			"profit_loss_percent": row.ProfitLossPercent,
			"portfolio_percent":   row.PortfolioPercent,
			"stale":               row.Stale,
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"cash_balance":          summary.CashBalance,
		"total_invested":        summary.TotalInvested,
		"total_current_value":   summary.TotalCurrentValue,
		"unrealized_pnl":        summary.UnrealizedPnL,
		"realized_pnl":          summary.RealizedPnL,
		"total_pnl":             summary.TotalPnL,
		"total_portfolio_value": summary.TotalPortfolioValue,
		"holdings":              holdings,
	})
}

// HandleGetValueSeries returns the valuation time series for the chart.
func (h *Handler) HandleGetValueSeries(w http.ResponseWriter, r *http.Request) {
	points, err := h.snapshot.Series(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to build value series")
		return
	}

	result := make([]map[string]interface{}, 0, len(points))
	for _, point := range points {
		result = append(result, map[string]interface{}{
			"date":        point.Date.Format("2006-01-02"),
			"total_value": point.TotalValue,
		})
	}
	h.writeJSON(w, http.StatusOK, result)
}

// writeDomainError maps ledger errors onto HTTP statuses with user-facing messages.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInsufficientHoldings):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrPersistenceFailure):
		h.log.Error().Err(err).Msg("ledger mutation failed to persist")
		h.writeError(w, http.StatusInternalServerError, "Could not save the transaction")
	default:
		h.log.Error().Err(err).Msg("unexpected ledger error")
		h.writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
