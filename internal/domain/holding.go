package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Holding represents the current position in one symbol: owned quantity and
// the quantity-weighted average cost of acquiring it.
// A Holding exists only while Quantity > 0; one Holding per symbol.
type Holding struct {
	Symbol      string
	Name        string // company name, captured from the quote provider on first buy
	Quantity    int64
	AverageCost decimal.Decimal
}

// Validate ensures the holding adheres to domain rules
// Returns an error if validation fails
func (h *Holding) Validate() error {
	if err := ValidateSymbol(h.Symbol); err != nil {
		return err
	}
	if h.Quantity < 0 {
		return fmt.Errorf("%w: holding quantity cannot be negative", ErrInvalidInput)
	}
	if h.Quantity > 0 && h.AverageCost.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: average cost must be positive", ErrInvalidInput)
	}
	return nil
}

// CostAfterBuy returns the weighted average cost after buying quantity shares
// at price: (old_qty*old_avg + quantity*price) / (old_qty + quantity).
// CRITICAL: this is the ONLY operation that moves AverageCost; sells leave it unchanged.
func (h *Holding) CostAfterBuy(quantity int64, price decimal.Decimal) decimal.Decimal {
	oldQty := decimal.NewFromInt(h.Quantity)
	newQty := decimal.NewFromInt(quantity)
	totalCost := oldQty.Mul(h.AverageCost).Add(newQty.Mul(price))
	return totalCost.Div(oldQty.Add(newQty))
}

// PurchaseValue returns Quantity * AverageCost (the cost basis of the position).
func (h *Holding) PurchaseValue() decimal.Decimal {
	return decimal.NewFromInt(h.Quantity).Mul(h.AverageCost)
}

// ValidateSymbol checks that a ticker symbol is non-empty, upper-case
// alphanumeric (dots allowed for share classes) and at most 10 characters,
// matching the provider's symbol format.
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("%w: symbol cannot be empty", ErrInvalidInput)
	}
	if len(symbol) > 10 {
		return fmt.Errorf("%w: symbol %q exceeds 10 characters", ErrInvalidInput, symbol)
	}
	for _, r := range symbol {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '.' {
			return fmt.Errorf("%w: symbol %q contains invalid character %q", ErrInvalidInput, symbol, r)
		}
	}
	return nil
}

// NormalizeSymbol upper-cases and trims a user-supplied symbol before validation.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
