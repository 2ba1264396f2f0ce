package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/paperfolio/paperfolio-backend/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// QuoteClient is the external quote provider boundary.
type QuoteClient interface {
	// Lookup fetches a fresh quote for symbol.
	Lookup(ctx context.Context, symbol string) (*domain.PriceQuote, error)
}

// Resolver wraps quote lookups with a per-call timeout and a fallback policy:
// when the provider fails or times out, the caller-supplied reference price is
// returned marked stale instead of failing the whole request. Resolutions of
// different symbols are independent; one failure never blocks another.
type Resolver struct {
	Client  QuoteClient
	Timeout time.Duration
	// History, when set, captures each fresh quote as that day's closing price
	// so the snapshot builder can price past dates. Optional.
	History domain.ClosingPriceRepository

	// Now timestamps fallback resolutions; overridable in tests.
	Now func() time.Time

	log zerolog.Logger
}

// NewResolver creates a new Resolver instance
func NewResolver(client QuoteClient, timeout time.Duration, log zerolog.Logger) *Resolver {
	return &Resolver{
		Client:  client,
		Timeout: timeout,
		Now:     time.Now,
		log:     log.With().Str("component", "price_resolver").Logger(),
	}
}

// Resolve returns the current price for symbol, or the reference price marked
// stale when the provider cannot answer in time.
func (r *Resolver) Resolve(ctx context.Context, symbol string, reference decimal.Decimal) domain.ResolvedPrice {
	quote, err := r.Lookup(ctx, symbol)
	if err != nil {
		r.log.Warn().Str("symbol", symbol).Err(err).Msg("quote lookup failed, falling back to reference price")
		return domain.ResolvedPrice{
			Symbol: symbol,
			Price:  reference,
			Stale:  true,
			AsOf:   r.Now(),
		}
	}
	return domain.ResolvedPrice{
		Symbol: symbol,
		Price:  quote.CurrentPrice,
		Stale:  false,
		AsOf:   quote.AsOf,
	}
}

// Lookup fetches a fresh quote without fallback. Used where staleness cannot
// be papered over, such as pricing a buy order.
func (r *Resolver) Lookup(ctx context.Context, symbol string) (*domain.PriceQuote, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	quote, err := r.Client.Lookup(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrQuoteUnavailable, symbol, err)
	}
	if quote.CurrentPrice.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: %s: provider returned non-positive price", domain.ErrQuoteUnavailable, symbol)
	}

	if r.History != nil {
		entry := &domain.ClosingPrice{Symbol: quote.Symbol, Date: quote.AsOf, Price: quote.CurrentPrice}
		if err := r.History.Add(ctx, entry); err != nil {
			// History capture is best effort; the quote itself is still good.
			r.log.Warn().Str("symbol", symbol).Err(err).Msg("failed to record closing price")
		}
	}
	return quote, nil
}
