package controllers

import (
	"context"
	"fmt"
	"sync"

	"github.com/amaumene/listarr/internal/metrics"
	"github.com/amaumene/listarr/internal/models"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// Partition is the three-way split of checked items. Every input item lands
// in exactly one of Available, Requested or Missing.
type Partition struct {
	Available []models.MediaItem
	Requested []models.MediaItem
	Missing   []models.MediaItem

	LookupFailures int
}

// Total returns the number of classified items
func (p *Partition) Total() int {
	return len(p.Available) + len(p.Requested) + len(p.Missing)
}

// AvailabilityChecker classifies items against the destination with a
// bounded number of concurrent lookups
type AvailabilityChecker struct {
	lookup      StatusLookup
	concurrency int
	batchSize   int
	metrics     metrics.Recorder
	tracer      trace.Tracer
	logger      zerolog.Logger
}

// NewAvailabilityChecker creates a checker. Items are looked up in batches of
// batchSize with at most concurrency lookups in flight; a batch fully settles
// before the next one starts.
func NewAvailabilityChecker(lookup StatusLookup, concurrency, batchSize int, recorder metrics.Recorder, tracer trace.Tracer, logger zerolog.Logger) *AvailabilityChecker {
	if concurrency < 1 {
		concurrency = 1
	}
	if batchSize < 1 {
		batchSize = concurrency
	}
	return &AvailabilityChecker{
		lookup:      lookup,
		concurrency: concurrency,
		batchSize:   batchSize,
		metrics:     recorder,
		tracer:      tracer,
		logger:      logger.With().Str("component", "availability").Logger(),
	}
}

type lookupResult struct {
	status models.MediaStatus
	err    error
}

// Check classifies items. A failed lookup places the item in Missing so it
// still gets requested. The only error returned is ctx cancellation.
func (c *AvailabilityChecker) Check(ctx context.Context, items []models.MediaItem, profile *models.DestinationConfig) (*Partition, error) {
	ctx, span := c.tracer.Start(ctx, "availability.check", trace.WithAttributes(
		attribute.Int("items", len(items)),
		attribute.Int("concurrency", c.concurrency),
	))
	defer span.End()

	results := make([]lookupResult, len(items))
	sem := semaphore.NewWeighted(int64(c.concurrency))

	for start := 0; start < len(items); start += c.batchSize {
		end := start + c.batchSize
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			if err := sem.Acquire(ctx, 1); err != nil {
				wg.Wait()
				return nil, fmt.Errorf("availability check interrupted: %w", err)
			}
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer sem.Release(1)
				status, err := c.lookup.GetStatus(ctx, items[i], profile)
				results[i] = lookupResult{status: status, err: err}
			}(i)
		}
		wg.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("availability check interrupted: %w", err)
	}

	partition := &Partition{}
	for i, item := range items {
		result := results[i]
		if result.err != nil {
			partition.LookupFailures++
			c.metrics.RecordLookupFailure()
			c.logger.Warn().
				Err(result.err).
				Str("title", item.Title).
				Int("catalog_id", item.CatalogID).
				Str("media_kind", string(item.Kind)).
				Msg("Status lookup failed, treating item as missing")
			partition.Missing = append(partition.Missing, item)
			continue
		}

		switch result.status {
		case models.MediaStatusAvailable:
			partition.Available = append(partition.Available, item)
		case models.MediaStatusRequested:
			partition.Requested = append(partition.Requested, item)
		default:
			partition.Missing = append(partition.Missing, item)
		}
	}

	span.SetAttributes(
		attribute.Int("available", len(partition.Available)),
		attribute.Int("requested", len(partition.Requested)),
		attribute.Int("missing", len(partition.Missing)),
		attribute.Int("lookup_failures", partition.LookupFailures),
	)
	c.logger.Debug().
		Int("available", len(partition.Available)).
		Int("requested", len(partition.Requested)).
		Int("missing", len(partition.Missing)).
		Int("lookup_failures", partition.LookupFailures).
		Msg("Availability check complete")

	return partition, nil
}
