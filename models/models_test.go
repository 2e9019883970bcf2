package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func level(price, qty string) OrderbookLevel {
	return OrderbookLevel{
		Price:    decimal.RequireFromString(price),
		Quantity: decimal.RequireFromString(qty),
	}
}

func TestBestBidBestAsk(t *testing.T) {
	book := Orderbook{
		Bids: []OrderbookLevel{level("100.2", "3"), level("100.1", "1")},
		Asks: []OrderbookLevel{level("100.4", "2"), level("100.6", "1")},
	}

	bid, ok := book.BestBid()
	if !ok || bid.Price.String() != "100.2" {
		t.Fatalf("BestBid = %v, %v", bid, ok)
	}
	ask, ok := book.BestAsk()
	if !ok || ask.Price.String() != "100.4" {
		t.Fatalf("BestAsk = %v, %v", ask, ok)
	}

	empty := Orderbook{}
	if _, ok := empty.BestBid(); ok {
		t.Fatal("BestBid on empty book should report false")
	}
	if _, ok := empty.BestAsk(); ok {
		t.Fatal("BestAsk on empty book should report false")
	}
}

func TestResponseMarshalsDecimalsAsStrings(t *testing.T) {
	vol := decimal.RequireFromString("0.0125")
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	resp := AggregatedQuoteResponse{
		Symbol:    "BTC-USDT",
		Side:      SideBuy,
		Quantity:  decimal.RequireFromString("8"),
		Timestamp: ts,
		Results: []QuoteRecord{
			{
				Venue:  "binance",
				Status: FetchSuccess,
				Impact: &PriceImpactResult{
					MidPrice:       decimal.RequireFromString("99.5"),
					BestBid:        decimal.RequireFromString("99"),
					BestAsk:        decimal.RequireFromString("100"),
					AvgFillPrice:   decimal.RequireFromString("100.375"),
					TotalCost:      decimal.RequireFromString("803"),
					PriceImpactPct: decimal.RequireFromString("0.8794"),
					VolumePct:      &vol,
					DepthConsumed:  2,
					Fillable:       true,
				},
				BookTimestamp: &ts,
			},
		},
		BestVenue: "binance",
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(raw)

	// Prices cross the JSON boundary as strings, never floats.
	for _, want := range []string{
		`"quantity":"8"`,
		`"avg_fill_price":"100.375"`,
		`"total_cost":"803"`,
		`"volume_pct":"0.0125"`,
		`"best_venue":"binance"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("marshaled response missing %s:\n%s", want, out)
		}
	}
}

func TestFailureRecordOmitsPriceFields(t *testing.T) {
	rec := QuoteRecord{
		Venue:       "okx",
		Status:      FetchFailure,
		FailureKind: FailureTimeout,
		Message:     "context deadline exceeded",
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(raw)

	if strings.Contains(out, "impact") || strings.Contains(out, "book_timestamp") {
		t.Errorf("failure record should omit price fields:\n%s", out)
	}
	if !strings.Contains(out, `"failure_kind":"timeout"`) {
		t.Errorf("failure record missing kind:\n%s", out)
	}
}

func TestVolumePctOmittedWhenUnknown(t *testing.T) {
	raw, err := json.Marshal(PriceImpactResult{Fillable: false})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "volume_pct") {
		t.Errorf("nil VolumePct should be omitted:\n%s", raw)
	}
}
