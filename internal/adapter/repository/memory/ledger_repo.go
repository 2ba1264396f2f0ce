// Package memory provides in-memory repository implementations, used when the
// server runs without Postgres and as fakes in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/paperfolio/paperfolio-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// LedgerRepository implements domain.LedgerRepository
type LedgerRepository struct {
	mu           sync.RWMutex
	holdings     map[string]*domain.Holding
	transactions []*domain.Transaction
	account      domain.Account

	// failNextApply makes the next Apply fail without mutating state.
	// Test hook for persistence-failure paths.
	failNextApply bool
}

// NewLedgerRepository creates an in-memory ledger seeded with an opening balance.
func NewLedgerRepository(openingBalance decimal.Decimal) *LedgerRepository {
	return &LedgerRepository{
		holdings: make(map[string]*domain.Holding),
		account:  domain.Account{Balance: openingBalance},
	}
}

// GetHolding retrieves the live holding for a symbol.
func (r *LedgerRepository) GetHolding(ctx context.Context, symbol string) (*domain.Holding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	holding, ok := r.holdings[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrHoldingNotFound, symbol)
	}
	copied := *holding
	return &copied, nil
}

// ListHoldings retrieves all live holdings ordered by symbol.
func (r *LedgerRepository) ListHoldings(ctx context.Context) ([]*domain.Holding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	holdings := make([]*domain.Holding, 0, len(r.holdings))
	for _, holding := range r.holdings {
		copied := *holding
		holdings = append(holdings, &copied)
	}
	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].Symbol < holdings[j].Symbol
	})
	return holdings, nil
}

// ListTransactions retrieves the transaction log ordered by timestamp ascending.
func (r *LedgerRepository) ListTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	transactions := make([]*domain.Transaction, len(r.transactions))
	for i, tx := range r.transactions {
		copied := *tx
		transactions[i] = &copied
	}
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].Timestamp.Before(transactions[j].Timestamp)
	})
	return transactions, nil
}

// GetAccount retrieves the cash account.
func (r *LedgerRepository) GetAccount(ctx context.Context) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account := r.account
	return &account, nil
}

// EnsureAccount is a no-op: the in-memory account is seeded at construction.
func (r *LedgerRepository) EnsureAccount(ctx context.Context, opening domain.Account) error {
	return nil
}

// Apply applies a ledger change atomically.
func (r *LedgerRepository) Apply(ctx context.Context, change *domain.LedgerChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failNextApply {
		r.failNextApply = false
		return fmt.Errorf("%w: in-memory store rejected change", domain.ErrPersistenceFailure)
	}

	if change.Holding.Quantity == 0 {
		delete(r.holdings, change.Holding.Symbol)
	} else {
		copied := *change.Holding
		r.holdings[copied.Symbol] = &copied
	}

	tx := *change.Transaction
	r.transactions = append(r.transactions, &tx)
	r.account = change.NewBalance
	return nil
}

// FailNextApply arms the persistence-failure test hook.
func (r *LedgerRepository) FailNextApply() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failNextApply = true
}
