package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/paperfolio/paperfolio-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// closingPriceRepository implements domain.ClosingPriceRepository
type closingPriceRepository struct {
	db *DB
}

// NewClosingPriceRepository creates a new closing price repository
func NewClosingPriceRepository(db *DB) domain.ClosingPriceRepository {
	return &closingPriceRepository{db: db}
}

// Add records a closing price observation, replacing any earlier price for
// the same symbol and date
func (r *closingPriceRepository) Add(ctx context.Context, entry *domain.ClosingPrice) error {
	query := `
		INSERT INTO closing_prices (symbol, date, price)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol, date)
		DO UPDATE SET price = EXCLUDED.price
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.Symbol,
		entry.Date.UTC().Format("2006-01-02"),
		entry.Price.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert closing price: %w", err)
	}
	return nil
}

// GetAsOf retrieves the most recent closing price for symbol at or before date
func (r *closingPriceRepository) GetAsOf(ctx context.Context, symbol string, date time.Time) (*domain.ClosingPrice, error) {
	query := `
		SELECT symbol, date, price
		FROM closing_prices
		WHERE symbol = $1 AND date <= $2
		ORDER BY date DESC
		LIMIT 1
	`

	var entry domain.ClosingPrice
	var priceStr string

	err := r.db.QueryRowContext(ctx, query, symbol, date.UTC().Format("2006-01-02")).Scan(
		&entry.Symbol,
		&entry.Date,
		&priceStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no closing price for %s on or before %s",
				domain.ErrQuoteUnavailable, symbol, date.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("failed to get closing price: %w", err)
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}
	entry.Price = price

	return &entry, nil
}
