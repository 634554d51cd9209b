package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/amaumene/listarr/internal/metrics"
	"github.com/amaumene/listarr/internal/models"
	"github.com/rs/zerolog"
)

// ExecutionRecorder persists the running -> success | error lifecycle of an execution
type ExecutionRecorder struct {
	store   ExecutionStore
	metrics metrics.Recorder
	logger  zerolog.Logger
	now     func() time.Time
}

// NewExecutionRecorder creates an execution recorder
func NewExecutionRecorder(store ExecutionStore, recorder metrics.Recorder, logger zerolog.Logger) *ExecutionRecorder {
	return &ExecutionRecorder{
		store:   store,
		metrics: recorder,
		logger:  logger.With().Str("component", "recorder").Logger(),
		now:     time.Now,
	}
}

// Start persists a new running execution
func (r *ExecutionRecorder) Start(ctx context.Context, listID uint, batchID string, trigger models.TriggerKind) (*models.ProcessingExecution, error) {
	execution, err := r.store.SaveExecution(ctx, models.NewExecution(listID, batchID, trigger, r.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to record execution start: %w", err)
	}

	r.logger.Info().
		Uint("list_id", listID).
		Str("batch_id", batchID).
		Uint("execution_id", execution.ID).
		Str("trigger", string(trigger)).
		Msg("Execution started")
	return execution, nil
}

// Succeed moves the execution to success with its final tallies. When the
// save fails the execution is left running so the caller can still fail it.
func (r *ExecutionRecorder) Succeed(ctx context.Context, execution *models.ProcessingExecution, counts models.ExecutionCounts) error {
	updated := *execution
	if err := updated.MarkSuccess(counts, r.now()); err != nil {
		return err
	}
	if _, err := r.store.SaveExecution(context.WithoutCancel(ctx), &updated); err != nil {
		return fmt.Errorf("failed to record execution success: %w", err)
	}
	*execution = updated

	r.metrics.RecordExecution(string(execution.Status), string(execution.Trigger), execution.Duration())
	r.logger.Info().
		Uint("list_id", execution.ListID).
		Str("batch_id", execution.BatchID).
		Uint("execution_id", execution.ID).
		Int("found", counts.Found).
		Int("requested", counts.Requested).
		Int("failed", counts.Failed).
		Int("skipped_available", counts.SkippedAvailable).
		Int("skipped_requested", counts.SkippedRequested).
		Dur("duration", execution.Duration()).
		Msg("Execution succeeded")
	return nil
}

// Fail moves the execution to error with cause as its message
func (r *ExecutionRecorder) Fail(ctx context.Context, execution *models.ProcessingExecution, cause error, itemsFound int) error {
	if err := execution.MarkError(cause.Error(), itemsFound, r.now()); err != nil {
		return err
	}

	// The record must reach a terminal state even when the run was cancelled
	if _, err := r.store.SaveExecution(context.WithoutCancel(ctx), execution); err != nil {
		return fmt.Errorf("failed to record execution error: %w", err)
	}

	r.metrics.RecordExecution(string(execution.Status), string(execution.Trigger), execution.Duration())
	r.logger.Error().
		Err(cause).
		Uint("list_id", execution.ListID).
		Str("batch_id", execution.BatchID).
		Uint("execution_id", execution.ID).
		Msg("Execution failed")
	return nil
}
