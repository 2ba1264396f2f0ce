package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is a point-in-time price observation for a symbol, obtained on
// demand from the external quote provider. Ephemeral; never persisted as-is.
type PriceQuote struct {
	Symbol        string
	Name          string
	CurrentPrice  decimal.Decimal
	Currency      string
	PreviousClose decimal.Decimal
	AsOf          time.Time
}

// ResolvedPrice is the Price Resolver's output: either a fresh quote, or a
// caller-supplied reference price marked Stale when the provider could not be
// reached. Consumers must propagate Stale into any displayed figure.
type ResolvedPrice struct {
	Symbol string
	Price  decimal.Decimal
	Stale  bool
	AsOf   time.Time
}

// ClosingPrice is one historical daily price observation, used by the
// valuation snapshot builder to price holdings as of past dates.
type ClosingPrice struct {
	Symbol string
	Date   time.Time // calendar date; time-of-day is not significant
	Price  decimal.Decimal
}

// ValuationPoint is one sample of total portfolio value (cash + holdings at
// the prices known for that date). A series of points is strictly increasing
// by date: at most one point per calendar date.
type ValuationPoint struct {
	Date       time.Time
	TotalValue decimal.Decimal
}
