package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paperfolio/paperfolio-backend/internal/adapter/repository/memory"
	"github.com/paperfolio/paperfolio-backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockQuoteClient is a mock implementation of QuoteClient for testing
type MockQuoteClient struct {
	mock.Mock
}

func (m *MockQuoteClient) Lookup(ctx context.Context, symbol string) (*domain.PriceQuote, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PriceQuote), args.Error(1)
}

func TestResolve_FreshQuote(t *testing.T) {
	ctx := context.Background()
	client := new(MockQuoteClient)
	resolver := NewResolver(client, time.Second, zerolog.Nop())

	asOf := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
	client.On("Lookup", mock.Anything, "AAPL").Return(&domain.PriceQuote{
		Symbol:       "AAPL",
		Name:         "Apple Inc.",
		CurrentPrice: decimal.NewFromFloat(187.5),
		Currency:     "USD",
		AsOf:         asOf,
	}, nil)

	resolved := resolver.Resolve(ctx, "AAPL", decimal.NewFromInt(100))
	assert.False(t, resolved.Stale)
	assert.True(t, decimal.NewFromFloat(187.5).Equal(resolved.Price))
	assert.Equal(t, asOf, resolved.AsOf)
	client.AssertExpectations(t)
}

func TestResolve_FallbackOnProviderError(t *testing.T) {
	ctx := context.Background()
	client := new(MockQuoteClient)
	resolver := NewResolver(client, time.Second, zerolog.Nop())

	client.On("Lookup", mock.Anything, "AAPL").Return(nil, errors.New("connection refused"))

	resolved := resolver.Resolve(ctx, "AAPL", decimal.NewFromInt(150))
	assert.True(t, resolved.Stale)
	assert.True(t, decimal.NewFromInt(150).Equal(resolved.Price))
}

func TestResolve_FallbackTimestampComesFromTheClock(t *testing.T) {
	ctx := context.Background()
	client := new(MockQuoteClient)
	resolver := NewResolver(client, time.Second, zerolog.Nop())

	now := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)
	resolver.Now = func() time.Time { return now }

	client.On("Lookup", mock.Anything, "AAPL").Return(nil, errors.New("connection refused"))

	resolved := resolver.Resolve(ctx, "AAPL", decimal.NewFromInt(150))
	require.True(t, resolved.Stale)
	assert.Equal(t, now, resolved.AsOf)
}

func TestResolve_FallbackOnTimeout(t *testing.T) {
	ctx := context.Background()
	client := new(MockQuoteClient)
	resolver := NewResolver(client, 10*time.Millisecond, zerolog.Nop())

	client.On("Lookup", mock.Anything, "SLOW").Return(nil, context.DeadlineExceeded).Run(func(args mock.Arguments) {
		callCtx := args.Get(0).(context.Context)
		<-callCtx.Done()
	}).Once()

	resolved := resolver.Resolve(ctx, "SLOW", decimal.NewFromInt(42))
	assert.True(t, resolved.Stale)
	assert.True(t, decimal.NewFromInt(42).Equal(resolved.Price))
}

func TestLookup_RejectsNonPositivePrice(t *testing.T) {
	ctx := context.Background()
	client := new(MockQuoteClient)
	resolver := NewResolver(client, time.Second, zerolog.Nop())

	client.On("Lookup", mock.Anything, "BAD").Return(&domain.PriceQuote{
		Symbol:       "BAD",
		CurrentPrice: decimal.Zero,
	}, nil)

	_, err := resolver.Lookup(ctx, "BAD")
	assert.ErrorIs(t, err, domain.ErrQuoteUnavailable)
}

func TestLookup_CapturesClosingPrice(t *testing.T) {
	ctx := context.Background()
	client := new(MockQuoteClient)
	resolver := NewResolver(client, time.Second, zerolog.Nop())
	history := memory.NewClosingPriceRepository()
	resolver.History = history

	asOf := time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC)
	client.On("Lookup", mock.Anything, "AAPL").Return(&domain.PriceQuote{
		Symbol:       "AAPL",
		CurrentPrice: decimal.NewFromInt(190),
		AsOf:         asOf,
	}, nil)

	_, err := resolver.Lookup(ctx, "AAPL")
	require.NoError(t, err)

	entry, err := history.GetAsOf(ctx, "AAPL", asOf)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(190).Equal(entry.Price))
}
