// Package valuation combines ledger state with resolved prices: per-holding
// and portfolio-level totals, realized P&L, the valuation time series and the
// summary facade the UI depends on.
package valuation

import (
	"context"
	"sync"

	"github.com/paperfolio/paperfolio-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// ResolveFunc resolves the current price of one symbol, falling back to the
// supplied reference price (marked stale) when the provider cannot answer.
type ResolveFunc func(ctx context.Context, symbol string, reference decimal.Decimal) domain.ResolvedPrice

// HoldingValuation is one holding priced at the resolved current price.
type HoldingValuation struct {
	Symbol            string
	Name              string
	Quantity          int64
	AverageCost       decimal.Decimal
	CurrentPrice      decimal.Decimal
	CurrentValue      decimal.Decimal
	PurchaseValue     decimal.Decimal
	ProfitLoss        decimal.Decimal
	ProfitLossPercent decimal.Decimal
	PortfolioPercent  decimal.Decimal
	Stale             bool
}

// Totals aggregates all holdings at current prices.
type Totals struct {
	PerHolding           []HoldingValuation
	CashBalance          decimal.Decimal
	CashPercent          decimal.Decimal
	TotalInvested        decimal.Decimal
	TotalCurrentValue    decimal.Decimal
	UnrealizedPnL        decimal.Decimal
	UnrealizedPnLPercent decimal.Decimal
}

var oneHundred = decimal.NewFromInt(100)

// ComputeTotals prices every holding and aggregates portfolio-level figures.
// The N price lookups run concurrently, one per symbol, and are joined before
// any total is computed; a failed lookup degrades that one holding to its
// average cost (stale) without affecting the others.
func ComputeTotals(ctx context.Context, holdings []*domain.Holding, cashBalance decimal.Decimal, resolve ResolveFunc) Totals {
	perHolding := make([]HoldingValuation, len(holdings))

	var wg sync.WaitGroup
	for i, holding := range holdings {
		wg.Add(1)
		go func(i int, holding *domain.Holding) {
			defer wg.Done()
			resolved := resolve(ctx, holding.Symbol, holding.AverageCost)

			quantity := decimal.NewFromInt(holding.Quantity)
			currentValue := quantity.Mul(resolved.Price)
			purchaseValue := holding.PurchaseValue()
			profitLoss := currentValue.Sub(purchaseValue)

			row := HoldingValuation{
				Symbol:        holding.Symbol,
				Name:          holding.Name,
				Quantity:      holding.Quantity,
				AverageCost:   holding.AverageCost,
				CurrentPrice:  resolved.Price,
				CurrentValue:  currentValue,
				PurchaseValue: purchaseValue,
				ProfitLoss:    profitLoss,
				Stale:         resolved.Stale,
			}
			if purchaseValue.IsPositive() {
				row.ProfitLossPercent = profitLoss.Div(purchaseValue).Mul(oneHundred)
			}
			perHolding[i] = row
		}(i, holding)
	}
	wg.Wait()

	totals := Totals{
		PerHolding:  perHolding,
		CashBalance: cashBalance,
	}
	for _, row := range perHolding {
		totals.TotalInvested = totals.TotalInvested.Add(row.PurchaseValue)
		totals.TotalCurrentValue = totals.TotalCurrentValue.Add(row.CurrentValue)
	}
	totals.UnrealizedPnL = totals.TotalCurrentValue.Sub(totals.TotalInvested)
	if totals.TotalInvested.IsPositive() {
		totals.UnrealizedPnLPercent = totals.UnrealizedPnL.Div(totals.TotalInvested).Mul(oneHundred)
	}

	// Portfolio share per holding, against cash + holdings. Shares plus the
	// cash share sum to 100% for any non-empty portfolio.
	portfolioValue := cashBalance.Add(totals.TotalCurrentValue)
	if portfolioValue.IsPositive() {
		for i := range totals.PerHolding {
			totals.PerHolding[i].PortfolioPercent = totals.PerHolding[i].CurrentValue.Div(portfolioValue).Mul(oneHundred)
		}
		totals.CashPercent = cashBalance.Div(portfolioValue).Mul(oneHundred)
	}
	return totals
}
