package controllers

import (
	"context"
	"errors"
	"fmt"

	"github.com/amaumene/listarr/internal/metrics"
	"github.com/amaumene/listarr/internal/models"
	"github.com/amaumene/listarr/internal/services/provider"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ProcessController runs lists end to end: validate, record running, fetch,
// process, record terminal. Manual and scheduled triggers both land here.
type ProcessController struct {
	lists        ListStore
	destinations DestinationStore
	fetchers     FetcherResolver
	recorder     *ExecutionRecorder
	orchestrator *Orchestrator
	metrics      metrics.Recorder
	tracer       trace.Tracer
	logger       zerolog.Logger
}

// NewProcessController creates a new process controller
func NewProcessController(
	lists ListStore,
	destinations DestinationStore,
	fetchers FetcherResolver,
	recorder *ExecutionRecorder,
	orchestrator *Orchestrator,
	metricsRecorder metrics.Recorder,
	tracer trace.Tracer,
	logger zerolog.Logger,
) *ProcessController {
	return &ProcessController{
		lists:        lists,
		destinations: destinations,
		fetchers:     fetchers,
		recorder:     recorder,
		orchestrator: orchestrator,
		metrics:      metricsRecorder,
		tracer:       tracer,
		logger:       logger.With().Str("component", "process").Logger(),
	}
}

// TriggerProcessing processes one list owned by userID under a fresh batch id
func (c *ProcessController) TriggerProcessing(ctx context.Context, userID, listID uint, trigger models.TriggerKind) (*models.ExecutionSummary, error) {
	list, err := c.lists.FindList(ctx, userID, listID)
	if err != nil {
		return nil, fmt.Errorf("list %d: %w", listID, err)
	}
	return c.processList(ctx, list, models.NewBatchID(trigger), trigger)
}

// TriggerAll processes every enabled list of userID, one after the other,
// sharing one batch id. Lists that are not configured are skipped.
func (c *ProcessController) TriggerAll(ctx context.Context, userID uint, trigger models.TriggerKind) ([]models.ExecutionSummary, error) {
	lists, err := c.lists.FindListsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lists: %w", err)
	}

	var enabled []*models.MediaList
	for _, list := range lists {
		if list.Enabled {
			enabled = append(enabled, list)
		}
	}
	return c.runBatch(ctx, enabled, trigger)
}

// ProcessScheduled processes every schedulable list across all users. It is
// the callback of the automatic-processing job.
func (c *ProcessController) ProcessScheduled(ctx context.Context) ([]models.ExecutionSummary, error) {
	lists, err := c.lists.FindSchedulableLists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedulable lists: %w", err)
	}
	return c.runBatch(ctx, lists, models.TriggerScheduled)
}

func (c *ProcessController) runBatch(ctx context.Context, lists []*models.MediaList, trigger models.TriggerKind) ([]models.ExecutionSummary, error) {
	batchID := models.NewBatchID(trigger)
	c.logger.Info().
		Str("batch_id", batchID).
		Str("trigger", string(trigger)).
		Int("lists", len(lists)).
		Msg("Starting batch")

	summaries := make([]models.ExecutionSummary, 0, len(lists))
	for _, list := range lists {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}

		summary, err := c.processList(ctx, list, batchID, trigger)
		if summary != nil {
			summaries = append(summaries, *summary)
		}
		if err != nil {
			if models.IsConfigurationError(err) {
				c.logger.Warn().Err(err).Uint("list_id", list.ID).Str("batch_id", batchID).Msg("Skipping list")
			} else {
				c.logger.Error().Err(err).Uint("list_id", list.ID).Str("batch_id", batchID).Msg("List processing failed")
			}
		}
	}

	c.logger.Info().
		Str("batch_id", batchID).
		Int("executions", len(summaries)).
		Msg("Batch complete")
	return summaries, nil
}

// processList returns a summary whenever an execution record was created,
// including when the run ended in error
func (c *ProcessController) processList(ctx context.Context, list *models.MediaList, batchID string, trigger models.TriggerKind) (*models.ExecutionSummary, error) {
	ctx, span := c.tracer.Start(ctx, "process.list", trace.WithAttributes(
		attribute.Int64("list_id", int64(list.ID)),
		attribute.String("batch_id", batchID),
		attribute.String("provider", string(list.Provider)),
		attribute.String("trigger", string(trigger)),
	))
	defer span.End()

	// Preconditions are checked before any execution record exists
	profile, err := c.destination(ctx, list.UserID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	fetcher, ok, err := c.fetchers.Resolve(ctx, list.UserID, list.Provider)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !ok {
		span.SetStatus(codes.Error, models.ErrProviderNotConfigured.Error())
		return nil, fmt.Errorf("%s: %w", list.Provider, models.ErrProviderNotConfigured)
	}

	execution, err := c.recorder.Start(ctx, list.ID, batchID, trigger)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	counts, err := c.run(ctx, list, fetcher, profile)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if recErr := c.recorder.Fail(ctx, execution, err, counts.Found); recErr != nil {
			c.logger.Error().Err(recErr).Uint("execution_id", execution.ID).Msg("Failed to record execution error")
		}
		summary := c.summary(list, execution)
		return &summary, err
	}

	if err := c.recorder.Succeed(ctx, execution, counts); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if recErr := c.recorder.Fail(ctx, execution, err, counts.Found); recErr != nil {
			c.logger.Error().Err(recErr).Uint("execution_id", execution.ID).Msg("Execution left running, next startup sweep closes it")
		}
		summary := c.summary(list, execution)
		return &summary, err
	}
	c.metrics.RecordItems(metrics.OutcomeRequested, counts.Requested)
	c.metrics.RecordItems(metrics.OutcomeFailed, counts.Failed)
	c.metrics.RecordItems(metrics.OutcomeSkippedAvailable, counts.SkippedAvailable)
	c.metrics.RecordItems(metrics.OutcomeSkippedRequested, counts.SkippedRequested)

	span.SetAttributes(
		attribute.Int("items_found", counts.Found),
		attribute.Int("items_requested", counts.Requested),
		attribute.Int("items_failed", counts.Failed),
	)
	summary := c.summary(list, execution)
	return &summary, nil
}

func (c *ProcessController) run(ctx context.Context, list *models.MediaList, fetcher provider.Fetcher, profile *models.DestinationConfig) (models.ExecutionCounts, error) {
	var counts models.ExecutionCounts

	items, err := fetcher.FetchItems(ctx, list.SourceURL, list.MaxItems)
	if err != nil {
		return counts, fmt.Errorf("failed to fetch items: %w", err)
	}
	items = models.Truncate(items, list.MaxItems)
	counts.Found = len(items)

	c.logger.Info().
		Uint("list_id", list.ID).
		Str("provider", string(list.Provider)).
		Int("items", len(items)).
		Msg("Fetched list items")

	result, err := c.orchestrator.ProcessItems(ctx, items, profile)
	if err != nil {
		return counts, err
	}
	return result.Counts(len(items)), nil
}

func (c *ProcessController) destination(ctx context.Context, userID uint) (*models.DestinationConfig, error) {
	profile, err := c.destinations.FindDestinationConfig(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrDestinationNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load destination configuration: %w", err)
	}
	if !profile.Configured() {
		return nil, models.ErrDestinationNotConfigured
	}
	return profile, nil
}

func (c *ProcessController) summary(list *models.MediaList, execution *models.ProcessingExecution) models.ExecutionSummary {
	summary := execution.Summary()
	summary.ListName = list.Name
	return summary
}
