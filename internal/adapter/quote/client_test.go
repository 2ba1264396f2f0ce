package quote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_DecodesQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/quote/AAPL", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"AAPL","name":"Apple Inc.","current_price":187.35,"currency":"USD","previous_close":185.1}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, zerolog.Nop())
	quote, err := client.Lookup(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", quote.Symbol)
	assert.Equal(t, "Apple Inc.", quote.Name)
	assert.Equal(t, "USD", quote.Currency)
	assert.True(t, decimal.NewFromFloat(187.35).Equal(quote.CurrentPrice))
	assert.True(t, decimal.NewFromFloat(185.1).Equal(quote.PreviousClose))
	assert.False(t, quote.AsOf.IsZero())
}

func TestLookup_ProviderErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Stock not found"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, zerolog.Nop())
	_, err := client.Lookup(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Stock not found")
}

func TestLookup_ContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL, 0, zerolog.Nop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Lookup(ctx, "SLOW")
	assert.Error(t, err)
}

func TestLookup_CachesWithinTTL(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"symbol":"AAPL","name":"Apple Inc.","current_price":187.35,"currency":"USD"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Minute, zerolog.Nop())
	for i := 0; i < 5; i++ {
		_, err := client.Lookup(context.Background(), "AAPL")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), hits.Load())
}
