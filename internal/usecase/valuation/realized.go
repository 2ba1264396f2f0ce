package valuation

import (
	"github.com/paperfolio/paperfolio-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// TotalRealizedPnL reduces the transaction log to the cumulative realized
// profit and loss: the sum of every SELL's realized delta. Pure reduction;
// each delta was fixed at sell time against the cost basis of that moment, so
// the result is exact and never re-estimated.
func TotalRealizedPnL(transactions []*domain.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range transactions {
		if tx.Kind == domain.TransactionKindSell {
			total = total.Add(tx.RealizedDelta)
		}
	}
	return total
}
