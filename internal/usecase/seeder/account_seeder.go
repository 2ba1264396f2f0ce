package seeder

import (
	"context"
	"fmt"

	"github.com/paperfolio/paperfolio-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// AccountSeeder ensures the single cash account exists before the server
// starts serving. Runs at startup; a later restart never resets the balance.
type AccountSeeder struct {
	Repo           domain.LedgerRepository
	OpeningBalance decimal.Decimal
}

// NewAccountSeeder creates a new AccountSeeder instance
func NewAccountSeeder(repo domain.LedgerRepository, openingBalance decimal.Decimal) *AccountSeeder {
	return &AccountSeeder{
		Repo:           repo,
		OpeningBalance: openingBalance,
	}
}

// Seed creates the account with the configured opening balance if it does not
// exist yet
func (s *AccountSeeder) Seed(ctx context.Context) error {
	if s.OpeningBalance.IsNegative() {
		return fmt.Errorf("%w: opening balance cannot be negative", domain.ErrInvalidInput)
	}
	return s.Repo.EnsureAccount(ctx, domain.Account{Balance: s.OpeningBalance})
}
