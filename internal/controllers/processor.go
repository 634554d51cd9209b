package controllers

import (
	"context"
	"fmt"

	"github.com/amaumene/listarr/internal/models"
	"github.com/rs/zerolog"
)

// FailedItem is an item whose request submission failed
type FailedItem struct {
	Item  models.MediaItem
	Error string
}

// ProcessResult holds the outcome of one list's items
type ProcessResult struct {
	Successful          []models.MediaItem
	Failed              []FailedItem
	Available           []models.MediaItem
	PreviouslyRequested []models.MediaItem
}

// Counts converts the result into execution tallies
func (r *ProcessResult) Counts(found int) models.ExecutionCounts {
	return models.ExecutionCounts{
		Found:            found,
		Requested:        len(r.Successful),
		Failed:           len(r.Failed),
		SkippedAvailable: len(r.Available),
		SkippedRequested: len(r.PreviouslyRequested),
	}
}

// Orchestrator checks availability, then requests the missing items
type Orchestrator struct {
	checker   *AvailabilityChecker
	submitter RequestSubmitter
	logger    zerolog.Logger
}

// NewOrchestrator creates a list processing orchestrator
func NewOrchestrator(checker *AvailabilityChecker, submitter RequestSubmitter, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		checker:   checker,
		submitter: submitter,
		logger:    logger.With().Str("component", "orchestrator").Logger(),
	}
}

// ProcessItems classifies every item before submitting anything. Submissions
// run one at a time. Per-item failures end up in Failed; an error is only
// returned when ctx is cancelled.
func (o *Orchestrator) ProcessItems(ctx context.Context, items []models.MediaItem, profile *models.DestinationConfig) (*ProcessResult, error) {
	partition, err := o.checker.Check(ctx, items, profile)
	if err != nil {
		return nil, err
	}

	result := &ProcessResult{
		Available:           partition.Available,
		PreviouslyRequested: partition.Requested,
	}

	for _, item := range partition.Missing {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("request submission interrupted: %w", err)
		}

		if err := o.submitter.SubmitRequest(ctx, item, profile); err != nil {
			o.logger.Warn().
				Err(err).
				Str("title", item.Title).
				Int("catalog_id", item.CatalogID).
				Str("media_kind", string(item.Kind)).
				Msg("Failed to submit request")
			result.Failed = append(result.Failed, FailedItem{Item: item, Error: err.Error()})
			continue
		}

		o.logger.Info().
			Str("title", item.Title).
			Int("catalog_id", item.CatalogID).
			Str("media_kind", string(item.Kind)).
			Msg("Requested item")
		result.Successful = append(result.Successful, item)
	}

	return result, nil
}
