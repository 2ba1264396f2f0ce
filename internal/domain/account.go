package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Account represents the single cash account backing the portfolio.
// Debited by TotalAmount on every BUY, credited on every SELL.
// There is exactly one Account in the system.
type Account struct {
	Balance decimal.Decimal
}

// CanCover reports whether the balance covers a purchase of the given amount.
func (a *Account) CanCover(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// Validate ensures the account adheres to domain rules
func (a *Account) Validate() error {
	if a.Balance.IsNegative() {
		return fmt.Errorf("%w: account balance cannot be negative", ErrInvalidInput)
	}
	return nil
}
