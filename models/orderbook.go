package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderbookLevel represents a single price level in the orderbook.
// Price and Quantity are always positive on well-formed books.
type OrderbookLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Orderbook is the normalized snapshot shape produced by every venue adapter.
// Bids are sorted by strictly descending price, asks by strictly ascending
// price. A book is built fresh per request and never mutated afterwards.
type Orderbook struct {
	Venue     string           `json:"venue"`
	Symbol    string           `json:"symbol"`
	Bids      []OrderbookLevel `json:"bids"`
	Asks      []OrderbookLevel `json:"asks"`
	Timestamp time.Time        `json:"timestamp"`
}

// BestBid returns the highest bid level, if any.
func (b *Orderbook) BestBid() (OrderbookLevel, bool) {
	if len(b.Bids) == 0 {
		return OrderbookLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask level, if any.
func (b *Orderbook) BestAsk() (OrderbookLevel, bool) {
	if len(b.Asks) == 0 {
		return OrderbookLevel{}, false
	}
	return b.Asks[0], true
}

// VenueSnapshot bundles the orderbook with the venue's 24h base volume,
// fetched in the same adapter call.
type VenueSnapshot struct {
	Venue     string          `json:"venue"`
	Orderbook Orderbook       `json:"orderbook"`
	Volume24h decimal.Decimal `json:"volume_24h"`
}
