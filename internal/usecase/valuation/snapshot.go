package valuation

import (
	"context"
	"fmt"
	"time"

	"github.com/paperfolio/paperfolio-backend/internal/domain"
	"github.com/paperfolio/paperfolio-backend/internal/usecase/ledger"
	"github.com/shopspring/decimal"
)

// SnapshotBuilder produces the portfolio value time series for charting by
// replaying the transaction log in timestamp order and sampling total value
// once per calendar date present in the log, plus the current date.
// For a fixed log and price history the output is reproducible exactly: the
// only clock involved is the injected one.
type SnapshotBuilder struct {
	Ledger *ledger.Service
	Prices domain.ClosingPriceRepository

	// Now supplies the current date for the final sample; overridable in tests.
	Now func() time.Time
}

// NewSnapshotBuilder creates a new SnapshotBuilder instance
func NewSnapshotBuilder(ledgerService *ledger.Service, prices domain.ClosingPriceRepository) *SnapshotBuilder {
	return &SnapshotBuilder{
		Ledger: ledgerService,
		Prices: prices,
		Now:    time.Now,
	}
}

// replayState is the portfolio as of some point in the replay.
type replayState struct {
	cash      decimal.Decimal
	quantity  map[string]int64
	lastPrice map[string]decimal.Decimal // last transaction price per symbol
}

// Series returns the valuation points ordered by date, strictly increasing,
// at most one point per calendar date. Later transactions on a date supersede
// earlier ones: only the state after the last one is sampled.
func (b *SnapshotBuilder) Series(ctx context.Context) ([]domain.ValuationPoint, error) {
	snapshot, err := b.Ledger.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot the ledger: %w", err)
	}
	transactions := snapshot.Transactions
	account := snapshot.Account

	// Walk the log backwards from the current balance to the opening balance,
	// then replay forwards from there.
	opening := account.Balance
	for _, tx := range transactions {
		switch tx.Kind {
		case domain.TransactionKindBuy:
			opening = opening.Add(tx.TotalAmount)
		case domain.TransactionKindSell:
			opening = opening.Sub(tx.TotalAmount)
		}
	}

	state := replayState{
		cash:      opening,
		quantity:  make(map[string]int64),
		lastPrice: make(map[string]decimal.Decimal),
	}

	var points []domain.ValuationPoint
	for i, tx := range transactions {
		state.apply(tx)

		date := dateOf(tx.Timestamp)
		if i+1 < len(transactions) && dateOf(transactions[i+1].Timestamp).Equal(date) {
			continue // sample only after the last transaction of the date
		}
		points = append(points, domain.ValuationPoint{
			Date:       date,
			TotalValue: b.valueAt(ctx, date, state),
		})
	}

	// Current date, valued with today's known prices. Skipped when the log
	// already ends today so dates stay strictly increasing.
	today := dateOf(b.Now())
	if len(points) == 0 || points[len(points)-1].Date.Before(today) {
		points = append(points, domain.ValuationPoint{
			Date:       today,
			TotalValue: b.valueAt(ctx, today, state),
		})
	}
	return points, nil
}

func (s *replayState) apply(tx *domain.Transaction) {
	switch tx.Kind {
	case domain.TransactionKindBuy:
		s.cash = s.cash.Sub(tx.TotalAmount)
		s.quantity[tx.Symbol] += tx.Quantity
	case domain.TransactionKindSell:
		s.cash = s.cash.Add(tx.TotalAmount)
		s.quantity[tx.Symbol] -= tx.Quantity
	}
	s.lastPrice[tx.Symbol] = tx.Price
}

// valueAt prices the replayed state as of date: historical closing price when
// one exists, otherwise the symbol's last transaction price.
func (b *SnapshotBuilder) valueAt(ctx context.Context, date time.Time, state replayState) decimal.Decimal {
	total := state.cash
	for symbol, quantity := range state.quantity {
		if quantity <= 0 {
			continue
		}
		price := state.lastPrice[symbol]
		if entry, err := b.Prices.GetAsOf(ctx, symbol, date); err == nil {
			price = entry.Price
		}
		total = total.Add(decimal.NewFromInt(quantity).Mul(price))
	}
	return total
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
