package domain

import "errors"

// Domain error values. Callers classify with errors.Is; adapters map them
// to transport-level responses.
var (
	// ErrInvalidInput marks a rejected request: non-positive quantity or price,
	// or a malformed symbol. Rejected before any mutation, never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientHoldings marks a sell of more shares than are held.
	// No partial fill, no state change.
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrInsufficientFunds marks a buy the account balance cannot cover.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrHoldingNotFound is returned by reads for a symbol with no live holding.
	ErrHoldingNotFound = errors.New("holding not found")

	// ErrQuoteUnavailable marks a failed or timed-out price lookup.
	// Recovered locally via fallback pricing; never fatal to a summary.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrPersistenceFailure marks a ledger mutation the store could not apply
	// durably. The attempted operation fails; state is left untouched.
	ErrPersistenceFailure = errors.New("persistence failure")
)
