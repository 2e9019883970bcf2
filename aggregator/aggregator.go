package aggregator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"quoteflow/internal/symbols"
	"quoteflow/logger"
	"quoteflow/models"
	"quoteflow/venue"
)

// ErrNoVenues is returned when a caller requests a quote for zero venues.
var ErrNoVenues = errors.New("no venues requested")

// Batch is the settled outcome of one fan-out. Results are ordered by the
// requested venue order regardless of completion order, and Timestamp is the
// instant the batch was initiated.
type Batch struct {
	ID           string                    `json:"id"`
	Symbol       symbols.NormalizedSymbol  `json:"symbol"`
	Results      []models.VenueFetchResult `json:"results"`
	SuccessCount int                       `json:"success_count"`
	Timestamp    time.Time                 `json:"timestamp"`
}

// Aggregator dispatches one adapter call per requested venue concurrently
// and waits for every call to settle. A slow or failing venue never delays
// or fails the collection of the others; each call's outcome is converted to
// a typed VenueFetchResult before joining.
type Aggregator struct {
	adapters map[string]venue.Adapter
	timeouts map[string]time.Duration
	log      *logger.Log
}

// New builds an Aggregator over the given adapters. Each adapter call is
// bounded by its venue's timeout.
func New(adapters []venue.Adapter, timeouts map[string]time.Duration) *Aggregator {
	byID := make(map[string]venue.Adapter, len(adapters))
	for _, a := range adapters {
		byID[a.Name()] = a
	}
	return &Aggregator{
		adapters: byID,
		timeouts: timeouts,
		log:      logger.GetLogger(),
	}
}

// FetchAll fans out to the requested venues and blocks until every call has
// settled. It never cancels siblings on first failure.
func (ag *Aggregator) FetchAll(ctx context.Context, sym symbols.NormalizedSymbol, venueIDs []string, depth int) (*Batch, error) {
	if len(venueIDs) == 0 {
		return nil, ErrNoVenues
	}

	batch := &Batch{
		ID:        uuid.NewString(),
		Symbol:    sym,
		Results:   make([]models.VenueFetchResult, len(venueIDs)),
		Timestamp: time.Now().UTC(),
	}

	log := ag.log.WithComponent("aggregator").WithFields(logger.Fields{
		"batch_id": batch.ID,
		"symbol":   sym.Symbol,
		"venues":   venueIDs,
	})
	log.Info("dispatching venue fetches")

	var wg sync.WaitGroup
	for i, id := range venueIDs {
		wg.Add(1)
		go func(slot int, venueID string) {
			defer wg.Done()
			batch.Results[slot] = ag.fetchOne(ctx, venueID, sym, depth)
		}(i, id)
	}
	wg.Wait()

	for _, res := range batch.Results {
		if res.Status == models.FetchSuccess {
			batch.SuccessCount++
		}
	}

	log.WithFields(logger.Fields{
		"success_count": batch.SuccessCount,
		"venue_count":   len(venueIDs),
	}).Info("batch settled")

	return batch, nil
}

// fetchOne runs a single adapter call under its venue timeout and converts
// any failure, including a panic inside an adapter, into a typed result.
func (ag *Aggregator) fetchOne(ctx context.Context, venueID string, sym symbols.NormalizedSymbol, depth int) (result models.VenueFetchResult) {
	log := ag.log.WithComponent("aggregator").WithFields(logger.Fields{
		"venue":  venueID,
		"symbol": sym.Symbol,
	})

	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logger.Fields{"panic": fmt.Sprint(r)}).Error("adapter panicked")
			result = models.VenueFetchResult{
				Venue:   venueID,
				Status:  models.FetchFailure,
				Kind:    models.FailureError,
				Message: fmt.Sprintf("adapter panic: %v", r),
			}
		}
	}()

	adapter, ok := ag.adapters[venueID]
	if !ok {
		return models.VenueFetchResult{
			Venue:   venueID,
			Status:  models.FetchFailure,
			Kind:    models.FailureUnavailable,
			Message: fmt.Sprintf("venue %q is not configured", venueID),
		}
	}

	vctx := ctx
	var cancel context.CancelFunc
	if timeout := ag.timeouts[venueID]; timeout > 0 {
		vctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	snap, err := adapter.Fetch(vctx, sym, depth)
	duration := time.Since(start)

	if err != nil {
		kind := classify(err)
		log.WithError(err).WithFields(logger.Fields{
			"kind":        string(kind),
			"duration_ms": duration.Milliseconds(),
		}).Warn("venue fetch failed")
		logger.PublishFetchMetrics(ctx, venueID, duration, string(kind))
		return models.VenueFetchResult{
			Venue:   venueID,
			Status:  models.FetchFailure,
			Kind:    kind,
			Message: err.Error(),
		}
	}

	log.WithFields(logger.Fields{
		"bids":        len(snap.Orderbook.Bids),
		"asks":        len(snap.Orderbook.Asks),
		"duration_ms": duration.Milliseconds(),
	}).Debug("venue fetch succeeded")
	logger.PublishFetchMetrics(ctx, venueID, duration, "success")

	return models.VenueFetchResult{
		Venue:    venueID,
		Status:   models.FetchSuccess,
		Snapshot: snap,
	}
}

// classify maps an adapter error to the failure taxonomy. Deadline and
// transport timeouts become "timeout", missing symbol mappings become
// "unavailable", everything else is a venue error with the message kept for
// diagnostics.
func classify(err error) models.FailureKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.FailureTimeout
	case errors.Is(err, symbols.ErrUnsupportedSymbol):
		return models.FailureUnavailable
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return models.FailureTimeout
	}
	return models.FailureError
}
