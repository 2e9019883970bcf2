package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"quoteflow/aggregator"
	"quoteflow/config"
	"quoteflow/internal/affiliate"
	"quoteflow/internal/symbols"
	"quoteflow/logger"
	"quoteflow/models"
	"quoteflow/quote"
	"quoteflow/venue"
	binanceadapter "quoteflow/venue/binance"
	bybitadapter "quoteflow/venue/bybit"
	kucoinadapter "quoteflow/venue/kucoin"
	okxadapter "quoteflow/venue/okx"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	symbolFlag := flag.String("symbol", "BTC-USDT", "Canonical BASE-QUOTE pair")
	sideFlag := flag.String("side", "BUY", "Order side: BUY or SELL")
	quantityFlag := flag.String("quantity", "1", "Order quantity in base units")
	venuesFlag := flag.String("venues", "", "Comma-separated venue subset (default: all enabled)")
	depthFlag := flag.Int("depth", 0, "Orderbook depth hint (default: per-venue config)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Quoteflow.Name,
		"version": cfg.Quoteflow.Version,
	}).Info("starting quoteflow")

	if cfg.Metrics.Enabled {
		logger.InitCloudWatch(cfg.Metrics.Region, cfg.Metrics.Namespace)
	}

	req, err := buildRequest(*symbolFlag, *sideFlag, *quantityFlag, *venuesFlag, cfg)
	if err != nil {
		log.WithError(err).Error("invalid request")
		os.Exit(1)
	}

	mapper := symbols.NewMapper(symbols.DefaultTable())
	sym, err := mapper.Lookup(req.Symbol)
	if err != nil {
		log.WithError(err).Error("unknown symbol")
		os.Exit(1)
	}

	adapters, timeouts := buildAdapters(cfg, mapper)
	ag := aggregator.New(adapters, timeouts)
	asm := quote.NewAssembler(
		affiliate.NewStatic(affiliateURLs(cfg)),
		time.Duration(cfg.Quote.StaleThresholdMs)*time.Millisecond,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Quote.RequestTimeout)
	defer cancel()

	batch, err := ag.FetchAll(ctx, sym, req.Venues, *depthFlag)
	if err != nil {
		log.WithError(err).Error("fetch failed")
		os.Exit(1)
	}

	resp, err := asm.Assemble(req, batch)
	if err != nil {
		log.WithError(err).Error("quote failed")
		os.Exit(1)
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		log.WithError(err).Error("failed to encode response")
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// buildRequest validates caller input before it reaches the engine: side
// enum, quantity positivity and the venue subset against enabled venues.
func buildRequest(symbol, side, quantity, venuesCSV string, cfg *config.Config) (quote.Request, error) {
	req := quote.Request{Symbol: strings.ToUpper(strings.TrimSpace(symbol))}

	switch strings.ToUpper(strings.TrimSpace(side)) {
	case string(models.SideBuy):
		req.Side = models.SideBuy
	case string(models.SideSell):
		req.Side = models.SideSell
	default:
		return req, fmt.Errorf("side must be BUY or SELL, got %q", side)
	}

	qty, err := decimal.NewFromString(strings.TrimSpace(quantity))
	if err != nil {
		return req, fmt.Errorf("invalid quantity %q: %w", quantity, err)
	}
	if !qty.IsPositive() {
		return req, fmt.Errorf("quantity must be positive, got %s", qty)
	}
	req.Quantity = qty

	enabled := cfg.Venues.EnabledIDs()
	if venuesCSV == "" {
		req.Venues = enabled
		return req, nil
	}

	enabledSet := make(map[string]bool, len(enabled))
	for _, id := range enabled {
		enabledSet[id] = true
	}
	for _, raw := range strings.Split(venuesCSV, ",") {
		id := strings.ToLower(strings.TrimSpace(raw))
		if id == "" {
			continue
		}
		if !enabledSet[id] {
			return req, fmt.Errorf("venue %q is not enabled", id)
		}
		req.Venues = append(req.Venues, id)
	}
	if len(req.Venues) == 0 {
		return req, fmt.Errorf("no venues requested")
	}
	return req, nil
}

func buildAdapters(cfg *config.Config, mapper *symbols.Mapper) ([]venue.Adapter, map[string]time.Duration) {
	adapters := make([]venue.Adapter, 0, 4)
	timeouts := make(map[string]time.Duration, 4)

	for _, id := range cfg.Venues.EnabledIDs() {
		vc, _ := cfg.Venues.Get(id)
		switch id {
		case "binance":
			adapters = append(adapters, binanceadapter.New(vc, cfg.ConnectionPool, mapper))
		case "bybit":
			adapters = append(adapters, bybitadapter.New(vc, cfg.ConnectionPool, mapper))
		case "kucoin":
			adapters = append(adapters, kucoinadapter.New(vc, cfg.ConnectionPool, mapper))
		case "okx":
			adapters = append(adapters, okxadapter.New(vc, cfg.ConnectionPool, mapper))
		}
		timeouts[id] = vc.Timeout
	}
	return adapters, timeouts
}

func affiliateURLs(cfg *config.Config) map[string]string {
	urls := make(map[string]string, 4)
	for _, id := range cfg.Venues.EnabledIDs() {
		vc, _ := cfg.Venues.Get(id)
		if vc.AffiliateURL != "" {
			urls[id] = vc.AffiliateURL
		}
	}
	return urls
}
