package quote

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"quoteflow/aggregator"
	"quoteflow/impact"
	"quoteflow/internal/affiliate"
	"quoteflow/logger"
	"quoteflow/models"
)

// ErrAllVenuesUnreachable is returned when every requested venue failed.
// It is distinct from a successful response with no fillable venues.
var ErrAllVenuesUnreachable = errors.New("all venues unreachable")

// DefaultStaleThreshold is the snapshot age beyond which a venue's data is
// flagged stale. The boundary is exclusive: data exactly this old is fresh.
const DefaultStaleThreshold = 5000 * time.Millisecond

// Request describes one quote request. Validation of format, positivity and
// enum membership is the caller's responsibility.
type Request struct {
	Symbol   string
	Side     models.Side
	Quantity decimal.Decimal
	Venues   []string
}

// Assembler merges a settled batch with per-venue impact calculations into
// the final ranked response.
type Assembler struct {
	affiliates     affiliate.Provider
	staleThreshold time.Duration
	now            func() time.Time
	log            *logger.Log
}

// NewAssembler builds an Assembler. A non-positive staleThreshold falls back
// to DefaultStaleThreshold.
func NewAssembler(affiliates affiliate.Provider, staleThreshold time.Duration) *Assembler {
	if staleThreshold <= 0 {
		staleThreshold = DefaultStaleThreshold
	}
	return &Assembler{
		affiliates:     affiliates,
		staleThreshold: staleThreshold,
		now:            time.Now,
		log:            logger.GetLogger(),
	}
}

// Assemble runs the impact calculation for every successful venue fetch,
// flags stale snapshots, and selects the best venue for the requested side.
func (as *Assembler) Assemble(req Request, batch *aggregator.Batch) (*models.AggregatedQuoteResponse, error) {
	log := as.log.WithComponent("assembler").WithFields(logger.Fields{
		"batch_id": batch.ID,
		"symbol":   req.Symbol,
		"side":     string(req.Side),
	})

	resp := &models.AggregatedQuoteResponse{
		Symbol:    req.Symbol,
		Side:      req.Side,
		Quantity:  req.Quantity,
		Timestamp: batch.Timestamp,
		Results:   make([]models.QuoteRecord, 0, len(batch.Results)),
	}

	now := as.now().UTC()
	anySuccess := false

	for _, res := range batch.Results {
		record := models.QuoteRecord{
			Venue:        res.Venue,
			Status:       res.Status,
			AffiliateURL: as.affiliates.URL(res.Venue),
		}

		if res.Status == models.FetchSuccess && res.Snapshot != nil {
			anySuccess = true
			book := res.Snapshot.Orderbook
			result := impact.Compute(req.Side, req.Quantity, &book, res.Snapshot.Volume24h)
			record.Impact = &result
			bookTS := book.Timestamp
			record.BookTimestamp = &bookTS
			record.Stale = now.Sub(book.Timestamp) > as.staleThreshold
		} else {
			record.FailureKind = res.Kind
			record.Message = res.Message
		}

		resp.Results = append(resp.Results, record)
	}

	if !anySuccess {
		log.Warn("every requested venue failed")
		return nil, ErrAllVenuesUnreachable
	}

	resp.BestVenue = selectBestVenue(req.Side, resp.Results)

	log.WithFields(logger.Fields{
		"results":    len(resp.Results),
		"best_venue": resp.BestVenue,
	}).Info("quote assembled")

	return resp, nil
}

// selectBestVenue picks the fillable success with the lowest total cost for
// BUY or the highest proceeds for SELL. Records are compared in response
// order and only a strictly better cost displaces the incumbent, so ties go
// to the earlier venue in the caller's requested order.
func selectBestVenue(side models.Side, records []models.QuoteRecord) string {
	best := ""
	var bestCost decimal.Decimal
	for _, rec := range records {
		if rec.Status != models.FetchSuccess || rec.Impact == nil || !rec.Impact.Fillable {
			continue
		}
		cost := rec.Impact.TotalCost
		if best == "" {
			best, bestCost = rec.Venue, cost
			continue
		}
		if side == models.SideBuy && cost.LessThan(bestCost) {
			best, bestCost = rec.Venue, cost
		}
		if side == models.SideSell && cost.GreaterThan(bestCost) {
			best, bestCost = rec.Venue, cost
		}
	}
	return best
}
