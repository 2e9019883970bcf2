package binance

import (
	"context"
	"fmt"
	"net/url"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"quoteflow/config"
	"quoteflow/internal/symbols"
	"quoteflow/logger"
	"quoteflow/models"
	"quoteflow/venue"
)

const venueID = "binance"

// Adapter fetches spot orderbook snapshots and 24h volume from Binance
// through the go-binance client.
type Adapter struct {
	cfg     config.VenueConfig
	client  *binance.Client
	mapper  *symbols.Mapper
	limiter *rate.Limiter
	log     *logger.Log
}

// New creates a Binance adapter bound to the shared connection pool settings.
func New(cfg config.VenueConfig, pool config.ConnectionPoolConfig, mapper *symbols.Mapper) *Adapter {
	log := logger.GetLogger()

	client := binance.NewClient("", "")
	client.HTTPClient = venue.NewHTTPClient(pool, cfg.Timeout)
	if cfg.BaseURL != "" {
		if parsed, err := url.Parse(cfg.BaseURL); err == nil {
			client.BaseURL = fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
		}
	}

	log.WithComponent("binance_adapter").WithFields(logger.Fields{
		"timeout":     cfg.Timeout,
		"depth_limit": cfg.DepthLimit,
	}).Info("binance adapter initialized")

	return &Adapter{
		cfg:     cfg,
		client:  client,
		mapper:  mapper,
		limiter: venue.NewLimiter(cfg.RateLimit),
		log:     log,
	}
}

func (a *Adapter) Name() string { return venueID }

// Fetch pulls the depth snapshot and 24h ticker for one symbol. Both calls
// go through the adapter's limiter so venue pacing never blocks siblings.
func (a *Adapter) Fetch(ctx context.Context, sym symbols.NormalizedSymbol, depth int) (*models.VenueSnapshot, error) {
	log := a.log.WithComponent("binance_adapter").WithFields(logger.Fields{
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

	start := time.Now()
	res, err := a.client.NewDepthService().Symbol(local).Limit(depth).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance depth: %w", err)
	}
	logger.LogPerformanceEntry(log, "binance_adapter", "depth_request", time.Since(start), logger.Fields{"symbol": local})

	// Binance spot depth carries no venue timestamp; receipt time stands in.
	ts := time.Now().UTC()

	bids := make([]models.OrderbookLevel, 0, len(res.Bids))
	for _, lvl := range res.Bids {
		parsed, err := parseLevel(lvl.Price, lvl.Quantity)
		if err != nil {
			return nil, err
		}
		if parsed.Quantity.IsPositive() {
			bids = append(bids, parsed)
		}
	}
	asks := make([]models.OrderbookLevel, 0, len(res.Asks))
	for _, lvl := range res.Asks {
		parsed, err := parseLevel(lvl.Price, lvl.Quantity)
		if err != nil {
			return nil, err
		}
		if parsed.Quantity.IsPositive() {
			asks = append(asks, parsed)
		}
	}
	venue.SortBids(bids)
	venue.SortAsks(asks)

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	volume := decimal.Zero
	stats, err := a.client.NewListPriceChangeStatsService().Symbol(local).Do(ctx)
	if err != nil {
		// Volume is advisory; a missing ticker must not fail the snapshot.
		log.WithError(err).Warn("failed to fetch 24h ticker")
	} else if len(stats) > 0 {
		if v, perr := decimal.NewFromString(stats[0].Volume); perr == nil {
			volume = v
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

func parseLevel(price, qty string) (models.OrderbookLevel, error) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return models.OrderbookLevel{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	q, err := decimal.NewFromString(qty)
	if err != nil {
		return models.OrderbookLevel{}, fmt.Errorf("parse quantity %q: %w", qty, err)
	}
	return models.OrderbookLevel{Price: p, Quantity: q}, nil
}
