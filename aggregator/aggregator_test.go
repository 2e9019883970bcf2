package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quoteflow/internal/symbols"
	"quoteflow/models"
	"quoteflow/venue"
)

type stubAdapter struct {
	name     string
	delay    time.Duration
	snap     *models.VenueSnapshot
	err      error
	panicMsg string
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Fetch(ctx context.Context, _ symbols.NormalizedSymbol, _ int) (*models.VenueSnapshot, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.snap, s.err
}

func snapshot(venueID string) *models.VenueSnapshot {
	return &models.VenueSnapshot{
		Venue: venueID,
		Orderbook: models.Orderbook{
			Venue:     venueID,
			Symbol:    "BTC-USDT",
			Bids:      []models.OrderbookLevel{{Price: decimal.NewFromInt(99), Quantity: decimal.NewFromInt(5)}},
			Asks:      []models.OrderbookLevel{{Price: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(5)}},
			Timestamp: time.Now().UTC(),
		},
		Volume24h: decimal.NewFromInt(1000),
	}
}

func testSymbol() symbols.NormalizedSymbol {
	return symbols.NormalizedSymbol{
		Symbol: "BTC-USDT", Base: "BTC", Quote: "USDT",
		Availability: []string{"binance", "bybit", "kucoin"},
	}
}

func newStubAggregator(stubs []stubAdapter, timeouts map[string]time.Duration) *Aggregator {
	adapters := make([]venue.Adapter, 0, len(stubs))
	for i := range stubs {
		adapters = append(adapters, &stubs[i])
	}
	return New(adapters, timeouts)
}

func TestFetchAllIsolatesSlowVenue(t *testing.T) {
	adapters := []stubAdapter{
		{name: "binance", snap: snapshot("binance")},
		{name: "bybit", delay: 200 * time.Millisecond, snap: snapshot("bybit")},
		{name: "kucoin", snap: snapshot("kucoin")},
	}
	agg := newStubAggregator(adapters, map[string]time.Duration{
		"binance": time.Second,
		"bybit":   20 * time.Millisecond,
		"kucoin":  time.Second,
	})

	batch, err := agg.FetchAll(context.Background(), testSymbol(), []string{"binance", "bybit", "kucoin"}, 10)
	require.NoError(t, err)

	require.Len(t, batch.Results, 3)
	assert.Equal(t, 2, batch.SuccessCount)

	// results are re-associated with the requested order regardless of
	// completion order
	assert.Equal(t, "binance", batch.Results[0].Venue)
	assert.Equal(t, "bybit", batch.Results[1].Venue)
	assert.Equal(t, "kucoin", batch.Results[2].Venue)

	assert.Equal(t, models.FetchSuccess, batch.Results[0].Status)
	assert.Equal(t, models.FetchFailure, batch.Results[1].Status)
	assert.Equal(t, models.FailureTimeout, batch.Results[1].Kind)
	assert.Equal(t, models.FetchSuccess, batch.Results[2].Status)
}

func TestFetchAllClassifiesFailures(t *testing.T) {
	adapters := []stubAdapter{
		{name: "binance", err: errors.New("connection refused")},
		{name: "bybit", err: symbols.ErrUnsupportedSymbol},
		{name: "kucoin", panicMsg: "index out of range"},
	}
	agg := newStubAggregator(adapters, nil)

	batch, err := agg.FetchAll(context.Background(), testSymbol(), []string{"binance", "bybit", "kucoin"}, 10)
	require.NoError(t, err)

	assert.Equal(t, 0, batch.SuccessCount)
	assert.Equal(t, models.FailureError, batch.Results[0].Kind)
	assert.Equal(t, "connection refused", batch.Results[0].Message)
	assert.Equal(t, models.FailureUnavailable, batch.Results[1].Kind)
	assert.Equal(t, models.FailureError, batch.Results[2].Kind)
	assert.Contains(t, batch.Results[2].Message, "panic")
}

func TestFetchAllUnknownVenue(t *testing.T) {
	agg := newStubAggregator([]stubAdapter{{name: "binance", snap: snapshot("binance")}}, nil)

	batch, err := agg.FetchAll(context.Background(), testSymbol(), []string{"binance", "ftx"}, 10)
	require.NoError(t, err)

	assert.Equal(t, 1, batch.SuccessCount)
	assert.Equal(t, models.FailureUnavailable, batch.Results[1].Kind)
}

func TestFetchAllNoVenues(t *testing.T) {
	agg := newStubAggregator(nil, nil)

	_, err := agg.FetchAll(context.Background(), testSymbol(), nil, 10)
	require.ErrorIs(t, err, ErrNoVenues)
}

func TestFetchAllBatchMetadata(t *testing.T) {
	agg := newStubAggregator([]stubAdapter{{name: "binance", snap: snapshot("binance")}}, nil)

	before := time.Now().UTC()
	batch, err := agg.FetchAll(context.Background(), testSymbol(), []string{"binance"}, 10)
	require.NoError(t, err)

	assert.NotEmpty(t, batch.ID)
	assert.False(t, batch.Timestamp.Before(before))
	assert.Equal(t, "BTC-USDT", batch.Symbol.Symbol)
}
