package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paperfolio/paperfolio-backend/internal/domain"
)

// ClosingPriceRepository implements domain.ClosingPriceRepository
type ClosingPriceRepository struct {
	mu sync.RWMutex
	// entries per symbol, kept unsorted; GetAsOf scans. Daily data stays tiny.
	entries map[string][]domain.ClosingPrice
}

// NewClosingPriceRepository creates an in-memory closing price store.
func NewClosingPriceRepository() *ClosingPriceRepository {
	return &ClosingPriceRepository{
		entries: make(map[string][]domain.ClosingPrice),
	}
}

// Add records a closing price, replacing any earlier price for the same
// symbol and calendar date.
func (r *ClosingPriceRepository) Add(ctx context.Context, entry *domain.ClosingPrice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	day := truncateToDay(entry.Date)
	prices := r.entries[entry.Symbol]
	for i := range prices {
		if prices[i].Date.Equal(day) {
			prices[i].Price = entry.Price
			return nil
		}
	}
	r.entries[entry.Symbol] = append(prices, domain.ClosingPrice{
		Symbol: entry.Symbol,
		Date:   day,
		Price:  entry.Price,
	})
	return nil
}

// GetAsOf retrieves the most recent closing price for symbol at or before date.
func (r *ClosingPriceRepository) GetAsOf(ctx context.Context, symbol string, date time.Time) (*domain.ClosingPrice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day := truncateToDay(date)
	var best *domain.ClosingPrice
	for i := range r.entries[symbol] {
		entry := r.entries[symbol][i]
		if entry.Date.After(day) {
			continue
		}
		if best == nil || entry.Date.After(best.Date) {
			copied := entry
			best = &copied
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: no closing price for %s on or before %s",
			domain.ErrQuoteUnavailable, symbol, day.Format("2006-01-02"))
	}
	return best, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
