package impact

import (
	"github.com/shopspring/decimal"

	"quoteflow/models"
)

var hundred = decimal.NewFromInt(100)

// Compute walks an orderbook to simulate filling the requested quantity and
// returns the resulting fill statistics. It is pure and deterministic: no
// I/O, no clock, safe to call from any goroutine.
//
// BUY consumes asks in ascending price order, SELL consumes bids in
// descending price order. TotalCost is the same running accumulator for both
// sides: spent amount for BUY, received proceeds for SELL.
func Compute(side models.Side, quantity decimal.Decimal, book *models.Orderbook, volume24h decimal.Decimal) models.PriceImpactResult {
	res := models.PriceImpactResult{
		AvgFillPrice:   decimal.Zero,
		TotalCost:      decimal.Zero,
		PriceImpactPct: decimal.Zero,
		MidPrice:       decimal.Zero,
		BestBid:        decimal.Zero,
		BestAsk:        decimal.Zero,
		Shortfall:      quantity,
	}

	bestBid, hasBid := book.BestBid()
	bestAsk, hasAsk := book.BestAsk()
	if hasBid {
		res.BestBid = bestBid.Price
	}
	if hasAsk {
		res.BestAsk = bestAsk.Price
	}

	// Mid is taken from the untouched book. With one side empty it falls
	// back to the populated side; with both empty it stays zero.
	switch {
	case hasBid && hasAsk:
		res.MidPrice = bestBid.Price.Add(bestAsk.Price).Div(decimal.NewFromInt(2))
	case hasBid:
		res.MidPrice = bestBid.Price
	case hasAsk:
		res.MidPrice = bestAsk.Price
	}

	levels := book.Asks
	if side == models.SideSell {
		levels = book.Bids
	}

	remaining := quantity
	filled := decimal.Zero
	for _, lvl := range levels {
		if !remaining.IsPositive() {
			break
		}
		// A malformed book must not break the walk.
		if !lvl.Price.IsPositive() || !lvl.Quantity.IsPositive() {
			continue
		}
		consumed := decimal.Min(remaining, lvl.Quantity)
		res.TotalCost = res.TotalCost.Add(lvl.Price.Mul(consumed))
		filled = filled.Add(consumed)
		remaining = remaining.Sub(consumed)
		res.DepthConsumed++
	}

	res.Fillable = filled.GreaterThanOrEqual(quantity)
	res.Shortfall = quantity.Sub(filled)
	if res.Shortfall.IsNegative() {
		res.Shortfall = decimal.Zero
	}

	if filled.IsPositive() {
		res.AvgFillPrice = res.TotalCost.Div(filled)
		if res.MidPrice.IsPositive() {
			res.PriceImpactPct = res.AvgFillPrice.Sub(res.MidPrice).Div(res.MidPrice).Mul(hundred)
		}
	}

	if volume24h.IsPositive() {
		pct := quantity.Div(volume24h).Mul(hundred)
		res.VolumePct = &pct
	}

	return res
}
