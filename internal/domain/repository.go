package domain

import (
	"context"
	"time"
)

// LedgerChange describes one atomic ledger mutation: the transaction being
// appended, the holding state after it, and the account balance after it.
// The store must apply all three together or none at all.
type LedgerChange struct {
	Transaction *Transaction
	// Holding is the post-mutation state for Transaction.Symbol.
	// Quantity == 0 means the holding is removed.
	Holding *Holding
	// NewBalance is the account balance after the mutation.
	NewBalance Account
}

// LedgerRepository defines the interface for ledger persistence operations.
// The ledger is the system of record: holdings, the append-only transaction
// log, and the single cash account.
type LedgerRepository interface {
	// GetHolding retrieves the live holding for a symbol.
	// Returns ErrHoldingNotFound if no holding exists.
	GetHolding(ctx context.Context, symbol string) (*Holding, error)

	// ListHoldings retrieves all live holdings, ordered by symbol.
	ListHoldings(ctx context.Context) ([]*Holding, error)

	// ListTransactions retrieves the full transaction log ordered by timestamp
	// ascending.
	ListTransactions(ctx context.Context) ([]*Transaction, error)

	// GetAccount retrieves the cash account.
	GetAccount(ctx context.Context) (*Account, error)

	// EnsureAccount creates the cash account with the given opening state if
	// it does not exist yet. No-op when the account is already present.
	EnsureAccount(ctx context.Context, opening Account) error

	// Apply durably applies a ledger change as a single unit.
	// A failure leaves state exactly as it was (ErrPersistenceFailure).
	Apply(ctx context.Context, change *LedgerChange) error
}

// ClosingPriceRepository defines the interface for historical daily price
// persistence operations.
type ClosingPriceRepository interface {
	// Add records a closing price observation. Recording a second price for
	// the same symbol and date replaces the earlier one.
	Add(ctx context.Context, entry *ClosingPrice) error

	// GetAsOf retrieves the most recent closing price for symbol at or before
	// date. Returns ErrQuoteUnavailable if none exists.
	GetAsOf(ctx context.Context, symbol string, date time.Time) (*ClosingPrice, error)
}
