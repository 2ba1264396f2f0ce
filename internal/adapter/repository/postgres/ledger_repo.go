package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/paperfolio/paperfolio-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// ledgerRepository implements domain.LedgerRepository
type ledgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *DB) domain.LedgerRepository {
	return &ledgerRepository{db: db}
}

// GetHolding retrieves the live holding for a symbol
func (r *ledgerRepository) GetHolding(ctx context.Context, symbol string) (*domain.Holding, error) {
	query := `
		SELECT symbol, name, quantity, average_cost
		FROM holdings
		WHERE symbol = $1
	`

	holding, err := scanHolding(r.db.QueryRowContext(ctx, query, symbol))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrHoldingNotFound, symbol)
		}
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return holding, nil
}

// ListHoldings retrieves all live holdings ordered by symbol
func (r *ledgerRepository) ListHoldings(ctx context.Context) ([]*domain.Holding, error) {
	query := `
		SELECT symbol, name, quantity, average_cost
		FROM holdings
		ORDER BY symbol ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*domain.Holding
	for rows.Next() {
		holding, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, holding)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate holdings: %w", err)
	}
	return holdings, nil
}

// ListTransactions retrieves the full transaction log ordered by timestamp ascending
func (r *ledgerRepository) ListTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	query := `
		SELECT id, symbol, kind, quantity, price, total_amount, realized_delta, executed_at
		FROM transactions
		ORDER BY executed_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var priceStr, totalStr, realizedStr string

		if err := rows.Scan(
			&tx.ID,
			&tx.Symbol,
			&tx.Kind,
			&tx.Quantity,
			&priceStr,
			&totalStr,
			&realizedStr,
			&tx.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		if tx.Price, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("failed to parse price: %w", err)
		}
		if tx.TotalAmount, err = decimal.NewFromString(totalStr); err != nil {
			return nil, fmt.Errorf("failed to parse total_amount: %w", err)
		}
		if tx.RealizedDelta, err = decimal.NewFromString(realizedStr); err != nil {
			return nil, fmt.Errorf("failed to parse realized_delta: %w", err)
		}
		transactions = append(transactions, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}

// GetAccount retrieves the single cash account
func (r *ledgerRepository) GetAccount(ctx context.Context) (*domain.Account, error) {
	query := `SELECT balance FROM account WHERE id = 1`

	var balanceStr string
	if err := r.db.QueryRowContext(ctx, query).Scan(&balanceStr); err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}
	return &domain.Account{Balance: balance}, nil
}

// EnsureAccount creates the account row with the opening balance if missing
func (r *ledgerRepository) EnsureAccount(ctx context.Context, opening domain.Account) error {
	query := `
		INSERT INTO account (id, balance)
		VALUES (1, $1)
		ON CONFLICT (id) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, opening.Balance.String()); err != nil {
		return fmt.Errorf("failed to ensure account: %w", err)
	}
	return nil
}

// Apply applies a ledger change in a single database transaction: holding
// upsert (or delete on full exit), transaction append, balance update.
// Any failure rolls everything back and surfaces as ErrPersistenceFailure.
func (r *ledgerRepository) Apply(ctx context.Context, change *domain.LedgerChange) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", domain.ErrPersistenceFailure, err)
	}
	defer dbTx.Rollback()

	if change.Holding.Quantity == 0 {
		deleteQuery := `DELETE FROM holdings WHERE symbol = $1`
		if _, err := dbTx.ExecContext(ctx, deleteQuery, change.Holding.Symbol); err != nil {
			return fmt.Errorf("%w: failed to delete holding: %v", domain.ErrPersistenceFailure, err)
		}
	} else {
		upsertQuery := `
			INSERT INTO holdings (symbol, name, quantity, average_cost)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (symbol)
			DO UPDATE SET name = EXCLUDED.name, quantity = EXCLUDED.quantity, average_cost = EXCLUDED.average_cost
		`
		if _, err := dbTx.ExecContext(ctx, upsertQuery,
			change.Holding.Symbol,
			change.Holding.Name,
			change.Holding.Quantity,
			change.Holding.AverageCost.String(),
		); err != nil {
			return fmt.Errorf("%w: failed to upsert holding: %v", domain.ErrPersistenceFailure, err)
		}
	}

	insertQuery := `
		INSERT INTO transactions (id, symbol, kind, quantity, price, total_amount, realized_delta, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := dbTx.ExecContext(ctx, insertQuery,
		change.Transaction.ID,
		change.Transaction.Symbol,
		string(change.Transaction.Kind),
		change.Transaction.Quantity,
		change.Transaction.Price.String(),
		change.Transaction.TotalAmount.String(),
		change.Transaction.RealizedDelta.String(),
		change.Transaction.Timestamp,
	); err != nil {
		return fmt.Errorf("%w: failed to insert transaction: %v", domain.ErrPersistenceFailure, err)
	}

	balanceQuery := `UPDATE account SET balance = $1 WHERE id = 1`
	if _, err := dbTx.ExecContext(ctx, balanceQuery, change.NewBalance.Balance.String()); err != nil {
		return fmt.Errorf("%w: failed to update balance: %v", domain.ErrPersistenceFailure, err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit: %v", domain.ErrPersistenceFailure, err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanHolding(row scanner) (*domain.Holding, error) {
	var holding domain.Holding
	var costStr string

	if err := row.Scan(
		&holding.Symbol,
		&holding.Name,
		&holding.Quantity,
		&costStr,
	); err != nil {
		return nil, err
	}

	cost, err := decimal.NewFromString(costStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse average_cost: %w", err)
	}
	holding.AverageCost = cost
	return &holding, nil
}
