package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side of the simulated order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// FetchStatus tags a VenueFetchResult as success or failure.
type FetchStatus string

const (
	FetchSuccess FetchStatus = "success"
	FetchFailure FetchStatus = "failure"
)

// FailureKind classifies a per-venue fetch failure.
type FailureKind string

const (
	FailureError       FailureKind = "error"
	FailureTimeout     FailureKind = "timeout"
	FailureUnavailable FailureKind = "unavailable"
)

// VenueFetchResult is the settled outcome of one adapter call. Snapshot is
// set only when Status is FetchSuccess; Kind and Message only on failure.
type VenueFetchResult struct {
	Venue    string         `json:"venue"`
	Status   FetchStatus    `json:"status"`
	Snapshot *VenueSnapshot `json:"snapshot,omitempty"`
	Kind     FailureKind    `json:"kind,omitempty"`
	Message  string         `json:"message,omitempty"`
}

// PriceImpactResult holds the fill statistics from walking one orderbook.
// VolumePct is nil when the venue reported no usable 24h volume; nil means
// "unknown", which is distinct from zero.
type PriceImpactResult struct {
	MidPrice       decimal.Decimal  `json:"mid_price"`
	BestBid        decimal.Decimal  `json:"best_bid"`
	BestAsk        decimal.Decimal  `json:"best_ask"`
	AvgFillPrice   decimal.Decimal  `json:"avg_fill_price"`
	TotalCost      decimal.Decimal  `json:"total_cost"`
	PriceImpactPct decimal.Decimal  `json:"price_impact_pct"`
	VolumePct      *decimal.Decimal `json:"volume_pct,omitempty"`
	DepthConsumed  int              `json:"depth_consumed"`
	Fillable       bool             `json:"fillable"`
	Shortfall      decimal.Decimal  `json:"shortfall"`
}

// QuoteRecord is the per-venue row of the final response. Successful fetches
// carry Impact and the snapshot timestamp; failures carry FailureKind and
// Message with no price fields.
type QuoteRecord struct {
	Venue         string             `json:"venue"`
	Status        FetchStatus        `json:"status"`
	Impact        *PriceImpactResult `json:"impact,omitempty"`
	Stale         bool               `json:"stale"`
	BookTimestamp *time.Time         `json:"book_timestamp,omitempty"`
	FailureKind   FailureKind        `json:"failure_kind,omitempty"`
	Message       string             `json:"message,omitempty"`
	AffiliateURL  string             `json:"affiliate_url,omitempty"`
}

// AggregatedQuoteResponse is the ranked multi-venue answer for one request.
// BestVenue is empty when no venue produced a fillable success.
type AggregatedQuoteResponse struct {
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	Timestamp time.Time       `json:"timestamp"`
	Results   []QuoteRecord   `json:"results"`
	BestVenue string          `json:"best_venue,omitempty"`
}
