package venue

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"quoteflow/config"
	"quoteflow/internal/symbols"
	"quoteflow/models"
)

// Adapter fetches a raw orderbook snapshot plus 24h volume from one exchange
// and translates it into the common VenueSnapshot shape. Implementations pace
// their own calls; errors are classified into typed failures by the
// aggregator.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, sym symbols.NormalizedSymbol, depth int) (*models.VenueSnapshot, error)
}

// NewHTTPClient builds an HTTP client with the shared pooling defaults.
func NewHTTPClient(pool config.ConnectionPoolConfig, timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        pool.MaxIdleConns,
		MaxIdleConnsPerHost: pool.MaxIdleConns,
		MaxConnsPerHost:     pool.MaxConnsPerHost,
		IdleConnTimeout:     pool.IdleConnTimeout,
		DisableCompression:  false,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// NewLimiter builds the per-venue pacing limiter. Venues with no configured
// rate fall back to a conservative 5 req/s with no burst.
func NewLimiter(rl config.RateLimitConfig) *rate.Limiter {
	rps := rl.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := rl.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// ParseLevels converts raw [price, quantity, ...] string pairs into orderbook
// levels. Extra columns (OKX appends order counts) are ignored. Levels with a
// non-positive quantity are dropped.
func ParseLevels(pairs [][]string) ([]models.OrderbookLevel, error) {
	levels := make([]models.OrderbookLevel, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair) < 2 {
			return nil, fmt.Errorf("level has %d columns, want at least 2", len(pair))
		}
		price, err := decimal.NewFromString(pair[0])
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", pair[0], err)
		}
		qty, err := decimal.NewFromString(pair[1])
		if err != nil {
			return nil, fmt.Errorf("parse quantity %q: %w", pair[1], err)
		}
		if !qty.IsPositive() {
			continue
		}
		levels = append(levels, models.OrderbookLevel{Price: price, Quantity: qty})
	}
	return levels, nil
}

// SortBids orders bid levels by descending price.
func SortBids(levels []models.OrderbookLevel) {
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Price.GreaterThan(levels[j].Price)
	})
}

// SortAsks orders ask levels by ascending price.
func SortAsks(levels []models.OrderbookLevel) {
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Price.LessThan(levels[j].Price)
	})
}
