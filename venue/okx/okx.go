package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
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

const venueID = "okx"

const (
	booksPath   = "/api/v5/market/books"
	tickerPath  = "/api/v5/market/ticker"
	defaultBase = "https://www.okx.com"
)

type booksResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		Asks [][]string `json:"asks"`
		Bids [][]string `json:"bids"`
		Ts   string     `json:"ts"`
	} `json:"data"`
}

type tickerResponse struct {
	Code string `json:"code"`
	Data []struct {
		InstID string `json:"instId"`
		Vol24h string `json:"vol24h"`
	} `json:"data"`
}

// Adapter fetches spot orderbook snapshots and 24h volume from OKX's public
// REST API.
type Adapter struct {
	cfg     config.VenueConfig
	client  *http.Client
	baseURL string
	mapper  *symbols.Mapper
	limiter *rate.Limiter
	log     *logger.Log
}

// New creates an OKX adapter with a pooled HTTP client.
func New(cfg config.VenueConfig, pool config.ConnectionPoolConfig, mapper *symbols.Mapper) *Adapter {
	log := logger.GetLogger()

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBase
	}

	log.WithComponent("okx_adapter").WithFields(logger.Fields{
		"base_url": base,
		"timeout":  cfg.Timeout,
	}).Info("okx adapter initialized")

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

// Fetch pulls the book snapshot and ticker for one instrument.
func (a *Adapter) Fetch(ctx context.Context, sym symbols.NormalizedSymbol, depth int) (*models.VenueSnapshot, error) {
	log := a.log.WithComponent("okx_adapter").WithFields(logger.Fields{
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
	// OKX caps the books endpoint at 400 rows per side.
	if depth > 400 {
		depth = 400
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	var book booksResponse
	params := url.Values{"instId": {local}, "sz": {strconv.Itoa(depth)}}
	if err := a.get(ctx, booksPath, params, &book); err != nil {
		return nil, fmt.Errorf("okx books: %w", err)
	}
	logger.LogPerformanceEntry(log, "okx_adapter", "books_request", time.Since(start), logger.Fields{"symbol": local})

	if book.Code != "0" {
		return nil, fmt.Errorf("okx books: code=%q msg=%q", book.Code, book.Msg)
	}
	if len(book.Data) == 0 {
		return nil, fmt.Errorf("okx books: empty data for %q", local)
	}

	bids, err := venue.ParseLevels(book.Data[0].Bids)
	if err != nil {
		return nil, fmt.Errorf("okx bids: %w", err)
	}
	asks, err := venue.ParseLevels(book.Data[0].Asks)
	if err != nil {
		return nil, fmt.Errorf("okx asks: %w", err)
	}
	venue.SortBids(bids)
	venue.SortAsks(asks)

	ts := time.Now().UTC()
	if ms, perr := strconv.ParseInt(book.Data[0].Ts, 10, 64); perr == nil && ms > 0 {
		ts = time.UnixMilli(ms).UTC()
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	volume := decimal.Zero
	var ticker tickerResponse
	if err := a.get(ctx, tickerPath, url.Values{"instId": {local}}, &ticker); err != nil || ticker.Code != "0" || len(ticker.Data) == 0 {
		log.WithError(err).Warn("failed to fetch 24h ticker")
	} else if v, perr := decimal.NewFromString(ticker.Data[0].Vol24h); perr == nil {
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

func (a *Adapter) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	reqURL, err := url.Parse(a.baseURL + path)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	reqURL.RawQuery = params.Encode()

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
