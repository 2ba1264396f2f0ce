package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paperfolio/paperfolio-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// ChangeEvent notifies subscribers that a ledger mutation was durably applied.
// Replaces the ambient "refresh everything" global the UI used to poke.
type ChangeEvent struct {
	Kind        domain.TransactionKind
	Symbol      string
	Transaction *domain.Transaction
}

// Subscriber receives change events after each successful mutation.
// Called synchronously after the mutation's locks are released, so a
// subscriber may read the ledger from its callback.
type Subscriber func(ChangeEvent)

// Snapshot is a consistent view of the whole ledger: holdings, transaction
// log and cash account as of a single instant, with no mutation committed
// between its parts.
type Snapshot struct {
	Holdings     []*domain.Holding
	Transactions []*domain.Transaction
	Account      *domain.Account
}

// Service is the cost-basis ledger: it owns all mutation of holdings and the
// cash account, maintains weighted-average cost per symbol, and appends to the
// transaction log. Everything else reads through it.
type Service struct {
	Repo domain.LedgerRepository

	// Now supplies transaction timestamps; overridable in tests.
	Now func() time.Time

	// Mutations hold snapshotMu in read mode plus the per-symbol mutex, so
	// same-symbol mutations serialize while different symbols proceed
	// concurrently. Snapshot reads take snapshotMu in write mode and therefore
	// never observe a half-applied mutation.
	snapshotMu  sync.RWMutex
	symbolMu    sync.Mutex
	symbolLocks map[string]*sync.Mutex

	subscriberMu sync.RWMutex
	subscribers  []Subscriber
}

// NewService creates a new ledger Service instance
func NewService(repo domain.LedgerRepository) *Service {
	return &Service{
		Repo:        repo,
		Now:         time.Now,
		symbolLocks: make(map[string]*sync.Mutex),
	}
}

// Subscribe registers a subscriber for ledger change events.
func (s *Service) Subscribe(fn Subscriber) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// RecordBuy applies a purchase of quantity shares at price.
// First buy of a symbol creates the holding at average_cost = price; later
// buys move the average to the quantity-weighted mean of the prior holding and
// the new lot. The account is debited by quantity * price.
func (s *Service) RecordBuy(ctx context.Context, symbol, name string, quantity int64, price decimal.Decimal) (*domain.Transaction, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if err := validateOrder(symbol, quantity, price); err != nil {
		return nil, err
	}

	tx, err := s.applyBuy(ctx, symbol, name, quantity, price)
	if err != nil {
		return nil, err
	}

	s.notify(ChangeEvent{Kind: domain.TransactionKindBuy, Symbol: symbol, Transaction: tx})
	return tx, nil
}

func (s *Service) applyBuy(ctx context.Context, symbol, name string, quantity int64, price decimal.Decimal) (*domain.Transaction, error) {
	unlock := s.lockSymbol(symbol)
	defer unlock()

	holding, err := s.Repo.GetHolding(ctx, symbol)
	if err != nil && !errors.Is(err, domain.ErrHoldingNotFound) {
		return nil, err
	}

	account, err := s.Repo.GetAccount(ctx)
	if err != nil {
		return nil, err
	}

	total := decimal.NewFromInt(quantity).Mul(price)
	if !account.CanCover(total) {
		return nil, fmt.Errorf("%w: buying %d %s costs %s but balance is %s",
			domain.ErrInsufficientFunds, quantity, symbol, total, account.Balance)
	}

	var updated domain.Holding
	if holding == nil {
		updated = domain.Holding{
			Symbol:      symbol,
			Name:        name,
			Quantity:    quantity,
			AverageCost: price,
		}
	} else {
		updated = *holding
		updated.AverageCost = holding.CostAfterBuy(quantity, price)
		updated.Quantity = holding.Quantity + quantity
		if updated.Name == "" {
			updated.Name = name
		}
	}

	tx := &domain.Transaction{
		ID:          uuid.New(),
		Symbol:      symbol,
		Kind:        domain.TransactionKindBuy,
		Quantity:    quantity,
		Price:       price,
		TotalAmount: total,
		Timestamp:   s.Now(),
	}

	change := &domain.LedgerChange{
		Transaction: tx,
		Holding:     &updated,
		NewBalance:  domain.Account{Balance: account.Balance.Sub(total)},
	}
	if err := s.Repo.Apply(ctx, change); err != nil {
		return nil, err
	}
	return tx, nil
}

// RecordSell applies a sale of quantity shares at price.
// Fails with ErrInsufficientHoldings if the held quantity does not cover the
// request; nothing is mutated on failure. On success the realized delta
// quantity * (price - average_cost) is locked into the transaction, the
// average cost stays unchanged and the account is credited. Selling the
// entire position removes the holding.
func (s *Service) RecordSell(ctx context.Context, symbol string, quantity int64, price decimal.Decimal) (*domain.Transaction, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if err := validateOrder(symbol, quantity, price); err != nil {
		return nil, err
	}

	tx, err := s.applySell(ctx, symbol, quantity, price)
	if err != nil {
		return nil, err
	}

	s.notify(ChangeEvent{Kind: domain.TransactionKindSell, Symbol: symbol, Transaction: tx})
	return tx, nil
}

func (s *Service) applySell(ctx context.Context, symbol string, quantity int64, price decimal.Decimal) (*domain.Transaction, error) {
	unlock := s.lockSymbol(symbol)
	defer unlock()

	holding, err := s.Repo.GetHolding(ctx, symbol)
	if err != nil {
		if errors.Is(err, domain.ErrHoldingNotFound) {
			return nil, fmt.Errorf("%w: no shares of %s held", domain.ErrInsufficientHoldings, symbol)
		}
		return nil, err
	}
	if holding.Quantity < quantity {
		return nil, fmt.Errorf("%w: tried to sell %d %s but only %d held",
			domain.ErrInsufficientHoldings, quantity, symbol, holding.Quantity)
	}

	account, err := s.Repo.GetAccount(ctx)
	if err != nil {
		return nil, err
	}

	total := decimal.NewFromInt(quantity).Mul(price)
	realized := decimal.NewFromInt(quantity).Mul(price.Sub(holding.AverageCost))

	updated := *holding
	updated.Quantity = holding.Quantity - quantity
	// AverageCost deliberately untouched: cost basis only moves on BUY.

	tx := &domain.Transaction{
		ID:            uuid.New(),
		Symbol:        symbol,
		Kind:          domain.TransactionKindSell,
		Quantity:      quantity,
		Price:         price,
		TotalAmount:   total,
		RealizedDelta: realized,
		Timestamp:     s.Now(),
	}

	change := &domain.LedgerChange{
		Transaction: tx,
		Holding:     &updated,
		NewBalance:  domain.Account{Balance: account.Balance.Add(total)},
	}
	if err := s.Repo.Apply(ctx, change); err != nil {
		return nil, err
	}
	return tx, nil
}

// GetHolding retrieves the live holding for a symbol.
func (s *Service) GetHolding(ctx context.Context, symbol string) (*domain.Holding, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if err := domain.ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	s.snapshotMu.Lock()
	defer s.snapshotMu.Unlock()
	return s.Repo.GetHolding(ctx, symbol)
}

// ListHoldings retrieves all live holdings as a consistent snapshot.
func (s *Service) ListHoldings(ctx context.Context) ([]*domain.Holding, error) {
	s.snapshotMu.Lock()
	defer s.snapshotMu.Unlock()
	return s.Repo.ListHoldings(ctx)
}

// ListTransactions retrieves the transaction log ordered by timestamp ascending.
func (s *Service) ListTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	s.snapshotMu.Lock()
	defer s.snapshotMu.Unlock()
	return s.Repo.ListTransactions(ctx)
}

// GetAccount retrieves the cash account.
func (s *Service) GetAccount(ctx context.Context) (*domain.Account, error) {
	s.snapshotMu.Lock()
	defer s.snapshotMu.Unlock()
	return s.Repo.GetAccount(ctx)
}

// Snapshot reads holdings, transaction log and account under one lock
// acquisition. Composed reads (totals, the value series) go through this so a
// mutation committing mid-read can never mix pre- and post-mutation state.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.snapshotMu.Lock()
	defer s.snapshotMu.Unlock()

	holdings, err := s.Repo.ListHoldings(ctx)
	if err != nil {
		return nil, err
	}
	transactions, err := s.Repo.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	account, err := s.Repo.GetAccount(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Holdings: holdings, Transactions: transactions, Account: account}, nil
}

// lockSymbol serializes mutations on one symbol while letting mutations on
// different symbols run concurrently. Returns the matching unlock function.
func (s *Service) lockSymbol(symbol string) func() {
	s.symbolMu.Lock()
	lock, ok := s.symbolLocks[symbol]
	if !ok {
		lock = &sync.Mutex{}
		s.symbolLocks[symbol] = lock
	}
	s.symbolMu.Unlock()

	s.snapshotMu.RLock()
	lock.Lock()
	return func() {
		lock.Unlock()
		s.snapshotMu.RUnlock()
	}
}

func (s *Service) notify(event ChangeEvent) {
	s.subscriberMu.RLock()
	subscribers := make([]Subscriber, len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.subscriberMu.RUnlock()

	for _, fn := range subscribers {
		fn(event)
	}
}

func validateOrder(symbol string, quantity int64, price decimal.Decimal) error {
	if err := domain.ValidateSymbol(symbol); err != nil {
		return err
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidInput)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: price must be positive", domain.ErrInvalidInput)
	}
	return nil
}
