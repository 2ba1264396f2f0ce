package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind represents the side of a recorded trade
type TransactionKind string

const (
	TransactionKindBuy  TransactionKind = "BUY"
	TransactionKindSell TransactionKind = "SELL"
)

// Transaction represents one executed buy or sell. Immutable once recorded;
// the transaction log is append-only and ordered by timestamp.
type Transaction struct {
	ID          uuid.UUID
	Symbol      string
	Kind        TransactionKind
	Quantity    int64
	Price       decimal.Decimal // execution price per share
	TotalAmount decimal.Decimal // Quantity * Price
	// RealizedDelta is the profit or loss locked in by a SELL, computed against
	// the average cost at the moment of that sell. Written at record time so it
	// never needs recomputing from historical cost state. Zero for BUYs.
	RealizedDelta decimal.Decimal
	Timestamp     time.Time
}

// Validate ensures the transaction adheres to domain rules
// Returns an error if validation fails
func (t *Transaction) Validate() error {
	if err := ValidateSymbol(t.Symbol); err != nil {
		return err
	}
	if t.Kind != TransactionKindBuy && t.Kind != TransactionKindSell {
		return fmt.Errorf("%w: transaction kind must be BUY or SELL", ErrInvalidInput)
	}
	if t.Quantity <= 0 {
		return fmt.Errorf("%w: transaction quantity must be positive", ErrInvalidInput)
	}
	if t.Price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: transaction price must be positive", ErrInvalidInput)
	}
	expected := decimal.NewFromInt(t.Quantity).Mul(t.Price)
	if !t.TotalAmount.Equal(expected) {
		return fmt.Errorf("%w: total amount must equal quantity * price", ErrInvalidInput)
	}
	if t.Kind == TransactionKindBuy && !t.RealizedDelta.IsZero() {
		return fmt.Errorf("%w: BUY transactions carry no realized delta", ErrInvalidInput)
	}
	return nil
}
