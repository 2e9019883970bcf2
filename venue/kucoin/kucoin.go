package kucoin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"quoteflow/config"
	"quoteflow/internal/symbols"
	"quoteflow/logger"
	"quoteflow/models"
	"quoteflow/venue"
)

const venueID = "kucoin"

const (
	orderbookPath = "/api/v1/market/orderbook/level2_100"
	statsPath     = "/api/v1/market/stats"
	defaultBase   = "https://api.kucoin.com"
)

type orderbookResponse struct {
	Code string `json:"code"`
	Data struct {
		Time     int64      `json:"time"`
		Sequence string     `json:"sequence"`
		Bids     [][]string `json:"bids"`
		Asks     [][]string `json:"asks"`
	} `json:"data"`
}

type statsResponse struct {
	Code string `json:"code"`
	Data struct {
		Symbol string `json:"symbol"`
		Vol    string `json:"vol"`
	} `json:"data"`
}

// Adapter fetches spot orderbook snapshots and 24h volume from KuCoin's
// public REST API.
type Adapter struct {
	cfg     config.VenueConfig
	client  *http.Client
	baseURL string
	mapper  *symbols.Mapper
	limiter *rate.Limiter
	log     *logger.Log
}

// New creates a KuCoin adapter with a pooled HTTP client.
func New(cfg config.VenueConfig, pool config.ConnectionPoolConfig, mapper *symbols.Mapper) *Adapter {
	log := logger.GetLogger()

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBase
	}

	log.WithComponent("kucoin_adapter").WithFields(logger.Fields{
		"base_url": base,
		"timeout":  cfg.Timeout,
	}).Info("kucoin adapter initialized")

	return &Adapter{
		cfg:     cfg,
		client:  venue.NewHTTPClient(pool, cfg.Timeout),
		baseURL: base,
		mapper:  mapper,
		limiter: venue.NewLimiter(cfg.RateLimit),
		log:     log,
	}
}

func (a *Adapter) Name() string { return venueID }

// Fetch pulls the level2 snapshot and market stats for one symbol. KuCoin
// caps the public book at 100 levels, so the depth hint only trims locally.
func (a *Adapter) Fetch(ctx context.Context, sym symbols.NormalizedSymbol, depth int) (*models.VenueSnapshot, error) {
	log := a.log.WithComponent("kucoin_adapter").WithFields(logger.Fields{
		"symbol":    sym.Symbol,
		"operation": "fetch_orderbook",
	})

	local, err := a.mapper.Denormalize(sym, venueID)
	if err != nil {
		return nil, err
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	var book orderbookResponse
	if err := a.get(ctx, orderbookPath, local, &book); err != nil {
		return nil, fmt.Errorf("kucoin orderbook: %w", err)
	}
	logger.LogPerformanceEntry(log, "kucoin_adapter", "orderbook_request", time.Since(start), logger.Fields{"symbol": local})

	if book.Code != "200000" {
		return nil, fmt.Errorf("kucoin orderbook: unexpected code %q", book.Code)
	}

	bids, err := venue.ParseLevels(book.Data.Bids)
	if err != nil {
		return nil, fmt.Errorf("kucoin bids: %w", err)
	}
	asks, err := venue.ParseLevels(book.Data.Asks)
	if err != nil {
		return nil, fmt.Errorf("kucoin asks: %w", err)
	}
	venue.SortBids(bids)
	venue.SortAsks(asks)

	if depth <= 0 {
		depth = a.cfg.DepthLimit
	}
	if depth > 0 {
		if len(bids) > depth {
			bids = bids[:depth]
		}
		if len(asks) > depth {
			asks = asks[:depth]
		}
	}

	ts := time.Now().UTC()
	if book.Data.Time > 0 {
		ts = time.UnixMilli(book.Data.Time).UTC()
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	volume := decimal.Zero
	var stats statsResponse
	if err := a.get(ctx, statsPath, local, &stats); err != nil || stats.Code != "200000" {
		log.WithError(err).Warn("failed to fetch market stats")
	} else if v, perr := decimal.NewFromString(stats.Data.Vol); perr == nil {
		volume = v
	}

	return &models.VenueSnapshot{
		Venue: venueID,
		Orderbook: models.Orderbook{
			Venue:     venueID,
			Symbol:    sym.Symbol,
			Bids:      bids,
			Asks:      asks,
			Timestamp: ts,
		},
		Volume24h: volume,
	}, nil
}

func (a *Adapter) get(ctx context.Context, path, symbol string, out interface{}) error {
	reqURL, err := url.Parse(a.baseURL + path)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	q := reqURL.Query()
	q.Set("symbol", symbol)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	res, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
