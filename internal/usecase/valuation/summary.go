package valuation

import (
	"context"
	"fmt"

	"github.com/paperfolio/paperfolio-backend/internal/usecase/ledger"
	"github.com/shopspring/decimal"
)

// Summary is the complete set of figures the UI displays. Always internally
// consistent, even when some quotes are stale.
type Summary struct {
	CashBalance         decimal.Decimal
	TotalInvested       decimal.Decimal
	TotalCurrentValue   decimal.Decimal
	UnrealizedPnL       decimal.Decimal
	RealizedPnL         decimal.Decimal
	TotalPnL            decimal.Decimal
	TotalPortfolioValue decimal.Decimal
	Holdings            []HoldingValuation
}

// SummaryService is the single entry point the UI boundary depends on. Pure
// composition: holdings totals plus the realized P&L reduction.
type SummaryService struct {
	Ledger  *ledger.Service
	Resolve ResolveFunc
}

// NewSummaryService creates a new SummaryService instance
func NewSummaryService(ledgerService *ledger.Service, resolve ResolveFunc) *SummaryService {
	return &SummaryService{
		Ledger:  ledgerService,
		Resolve: resolve,
	}
}

// Summarize builds the portfolio summary. Quote failures degrade individual
// holdings to stale cost-basis pricing; they never fail the summary.
func (s *SummaryService) Summarize(ctx context.Context) (*Summary, error) {
	snapshot, err := s.Ledger.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot the ledger: %w", err)
	}
	account := snapshot.Account

	totals := ComputeTotals(ctx, snapshot.Holdings, account.Balance, s.Resolve)
	realized := TotalRealizedPnL(snapshot.Transactions)

	return &Summary{
		CashBalance:         account.Balance,
		TotalInvested:       totals.TotalInvested,
		TotalCurrentValue:   totals.TotalCurrentValue,
		UnrealizedPnL:       totals.UnrealizedPnL,
		RealizedPnL:         realized,
		TotalPnL:            totals.UnrealizedPnL.Add(realized),
		TotalPortfolioValue: account.Balance.Add(totals.TotalCurrentValue),
		Holdings:            totals.PerHolding,
	}, nil
}
