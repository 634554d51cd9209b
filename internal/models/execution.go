package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProcessingExecution records one processing attempt of one list.
// Lifecycle: running -> success | error. Terminal states are final.
type ProcessingExecution struct {
	ID          uint            `gorm:"primaryKey"` // 0 until first save
	ListID      uint            `gorm:"index;not null"`
	BatchID     string          `gorm:"index;not null"`
	Trigger     TriggerKind     `gorm:"not null"`
	Status      ExecutionStatus `gorm:"index;not null"`
	StartedAt   time.Time       `gorm:"index"`
	CompletedAt *time.Time

	ItemsFound                      int
	ItemsRequested                  int
	ItemsFailed                     int
	ItemsSkippedAvailable           int
	ItemsSkippedPreviouslyRequested int

	ErrorMessage *string
}

// ExecutionCounts holds the final tallies of a successful run
type ExecutionCounts struct {
	Found            int
	Requested        int
	Failed           int
	SkippedAvailable int
	SkippedRequested int
}

// NewBatchID generates a correlation id that encodes the trigger kind
func NewBatchID(trigger TriggerKind) string {
	return fmt.Sprintf("%s-%s", trigger, uuid.NewString())
}

// NewExecution creates an execution in the running state
func NewExecution(listID uint, batchID string, trigger TriggerKind, now time.Time) *ProcessingExecution {
	return &ProcessingExecution{
		ListID:    listID,
		BatchID:   batchID,
		Trigger:   trigger,
		Status:    ExecutionRunning,
		StartedAt: now,
	}
}

// MarkSuccess moves a running execution to success with its final tallies
func (e *ProcessingExecution) MarkSuccess(counts ExecutionCounts, now time.Time) error {
	if e.Status != ExecutionRunning {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, ExecutionSuccess)
	}
	e.Status = ExecutionSuccess
	e.CompletedAt = &now
	e.ItemsFound = counts.Found
	e.ItemsRequested = counts.Requested
	e.ItemsFailed = counts.Failed
	e.ItemsSkippedAvailable = counts.SkippedAvailable
	e.ItemsSkippedPreviouslyRequested = counts.SkippedRequested
	return nil
}

// MarkError moves a running execution to error. Counts gathered so far may be kept.
func (e *ProcessingExecution) MarkError(message string, itemsFound int, now time.Time) error {
	if e.Status != ExecutionRunning {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, ExecutionError)
	}
	e.Status = ExecutionError
	e.CompletedAt = &now
	e.ItemsFound = itemsFound
	e.ErrorMessage = &message
	return nil
}

// Duration returns the run time, or zero while running
func (e *ProcessingExecution) Duration() time.Duration {
	if e.CompletedAt == nil {
		return 0
	}
	return e.CompletedAt.Sub(e.StartedAt)
}

// ExecutionSummary is the caller-facing view of a finished execution
type ExecutionSummary struct {
	ExecutionID                     uint            `json:"execution_id"`
	ListID                          uint            `json:"list_id"`
	ListName                        string          `json:"list_name,omitempty"`
	BatchID                         string          `json:"batch_id"`
	Trigger                         TriggerKind     `json:"trigger"`
	Status                          ExecutionStatus `json:"status"`
	StartedAt                       time.Time       `json:"started_at"`
	CompletedAt                     *time.Time      `json:"completed_at,omitempty"`
	ItemsFound                      int             `json:"items_found"`
	ItemsRequested                  int             `json:"items_requested"`
	ItemsFailed                     int             `json:"items_failed"`
	ItemsSkippedAvailable           int             `json:"items_skipped_available"`
	ItemsSkippedPreviouslyRequested int             `json:"items_skipped_previously_requested"`
	ErrorMessage                    *string         `json:"error_message,omitempty"`
}

// Summary converts the execution into an ExecutionSummary
func (e *ProcessingExecution) Summary() ExecutionSummary {
	return ExecutionSummary{
		ExecutionID:                     e.ID,
		ListID:                          e.ListID,
		BatchID:                         e.BatchID,
		Trigger:                         e.Trigger,
		Status:                          e.Status,
		StartedAt:                       e.StartedAt,
		CompletedAt:                     e.CompletedAt,
		ItemsFound:                      e.ItemsFound,
		ItemsRequested:                  e.ItemsRequested,
		ItemsFailed:                     e.ItemsFailed,
		ItemsSkippedAvailable:           e.ItemsSkippedAvailable,
		ItemsSkippedPreviouslyRequested: e.ItemsSkippedPreviouslyRequested,
		ErrorMessage:                    e.ErrorMessage,
	}
}
