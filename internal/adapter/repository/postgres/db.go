package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=paperfolio sslmode=disable"
func NewDB(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Migrate creates the schema if it does not exist yet
func (db *DB) Migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS account (
			id INTEGER PRIMARY KEY,
			balance DECIMAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS holdings (
			symbol TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			quantity BIGINT NOT NULL CHECK (quantity > 0),
			average_cost DECIMAL NOT NULL CHECK (average_cost > 0)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			symbol TEXT NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('BUY', 'SELL')),
			quantity BIGINT NOT NULL CHECK (quantity > 0),
			price DECIMAL NOT NULL,
			total_amount DECIMAL NOT NULL,
			realized_delta DECIMAL NOT NULL DEFAULT 0,
			executed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_executed_at ON transactions (executed_at)`,
		`CREATE TABLE IF NOT EXISTS closing_prices (
			symbol TEXT NOT NULL,
			date DATE NOT NULL,
			price DECIMAL NOT NULL,
			PRIMARY KEY (symbol, date)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
