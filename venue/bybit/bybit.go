package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	bybit "github.com/bybit-exchange/bybit.go.api"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"quoteflow/config"
	"quoteflow/internal/symbols"
	"quoteflow/logger"
	"quoteflow/models"
	"quoteflow/venue"
)

const venueID = "bybit"

// orderbookResult is the v5 market orderbook payload under result.
type orderbookResult struct {
	Symbol string     `json:"s"`
	Bids   [][]string `json:"b"`
	Asks   [][]string `json:"a"`
	Ts     int64      `json:"ts"`
}

// tickersResult is the v5 market tickers payload under result.
type tickersResult struct {
	List []struct {
		Symbol    string `json:"symbol"`
		Volume24h string `json:"volume24h"`
	} `json:"list"`
}

// Adapter fetches spot orderbook snapshots and 24h volume from Bybit.
type Adapter struct {
	cfg     config.VenueConfig
	client  *bybit.Client
	mapper  *symbols.Mapper
	limiter *rate.Limiter
	log     *logger.Log
}

// New creates a Bybit adapter using the official v5 HTTP client.
func New(cfg config.VenueConfig, pool config.ConnectionPoolConfig, mapper *symbols.Mapper) *Adapter {
	log := logger.GetLogger()

	opts := []bybit.ClientOption{}
	if cfg.BaseURL != "" {
		if parsed, err := url.Parse(cfg.BaseURL); err == nil {
			opts = append(opts, bybit.WithBaseURL(fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)))
		}
	}
	client := bybit.NewBybitHttpClient("", "", opts...)
	client.HTTPClient = venue.NewHTTPClient(pool, cfg.Timeout)

	log.WithComponent("bybit_adapter").WithFields(logger.Fields{
		"timeout":     cfg.Timeout,
		"depth_limit": cfg.DepthLimit,
	}).Info("bybit adapter initialized")

	return &Adapter{
		cfg:     cfg,
		client:  client,
		mapper:  mapper,
		limiter: venue.NewLimiter(cfg.RateLimit),
		log:     log,
	}
}

func (a *Adapter) Name() string { return venueID }

// Fetch pulls the spot orderbook and ticker for one symbol.
func (a *Adapter) Fetch(ctx context.Context, sym symbols.NormalizedSymbol, depth int) (*models.VenueSnapshot, error) {
	log := a.log.WithComponent("bybit_adapter").WithFields(logger.Fields{
		"symbol":    sym.Symbol,
		"operation": "fetch_orderbook",
	})

	local, err := a.mapper.Denormalize(sym, venueID)
	if err != nil {
		return nil, err
	}
	if depth <= 0 {
		depth = a.cfg.DepthLimit
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := map[string]interface{}{
		"category": "spot",
		"symbol":   local,
		"limit":    depth,
	}

	start := time.Now()
	resp, err := a.client.NewUtaBybitServiceWithParams(params).GetOrderBookInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("bybit orderbook: %w", err)
	}
	logger.LogPerformanceEntry(log, "bybit_adapter", "orderbook_request", time.Since(start), logger.Fields{"symbol": local})

	if resp.RetCode != 0 {
		return nil, fmt.Errorf("bybit orderbook: retCode=%d retMsg=%q", resp.RetCode, resp.RetMsg)
	}

	payload, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("bybit orderbook: marshal result: %w", err)
	}
	var book orderbookResult
	if err := json.Unmarshal(payload, &book); err != nil {
		return nil, fmt.Errorf("bybit orderbook: decode result: %w", err)
	}

	bids, err := venue.ParseLevels(book.Bids)
	if err != nil {
		return nil, fmt.Errorf("bybit bids: %w", err)
	}
	asks, err := venue.ParseLevels(book.Asks)
	if err != nil {
		return nil, fmt.Errorf("bybit asks: %w", err)
	}
	venue.SortBids(bids)
	venue.SortAsks(asks)

	ts := time.Now().UTC()
	if book.Ts > 0 {
		ts = time.UnixMilli(book.Ts).UTC()
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	volume := decimal.Zero
	tickResp, err := a.client.NewUtaBybitServiceWithParams(map[string]interface{}{
		"category": "spot",
		"symbol":   local,
	}).GetMarketTickers(ctx)
	if err != nil || tickResp.RetCode != 0 {
		log.WithError(err).Warn("failed to fetch 24h ticker")
	} else if payload, merr := json.Marshal(tickResp.Result); merr == nil {
		var tickers tickersResult
		if json.Unmarshal(payload, &tickers) == nil && len(tickers.List) > 0 {
			if v, perr := decimal.NewFromString(tickers.List[0].Volume24h); perr == nil {
				volume = v
			}
		}
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
