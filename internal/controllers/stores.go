package controllers

import (
	"context"

	"github.com/amaumene/listarr/internal/models"
	"github.com/amaumene/listarr/internal/services/provider"
)

// The stores below are all implemented by *models.Database

// ListStore reads and writes media lists
type ListStore interface {
	FindList(ctx context.Context, userID, listID uint) (*models.MediaList, error)
	FindListsByUser(ctx context.Context, userID uint) ([]*models.MediaList, error)
	FindSchedulableLists(ctx context.Context) ([]*models.MediaList, error)
	SaveList(ctx context.Context, list *models.MediaList) error
}

// ExecutionStore persists execution history. SaveExecution inserts when the
// id is zero and updates otherwise.
type ExecutionStore interface {
	SaveExecution(ctx context.Context, execution *models.ProcessingExecution) (*models.ProcessingExecution, error)
	FindExecutionsByList(ctx context.Context, listID uint, limit int) ([]*models.ProcessingExecution, error)
}

// DestinationStore reads per-user destination connection profiles
type DestinationStore interface {
	FindDestinationConfig(ctx context.Context, userID uint) (*models.DestinationConfig, error)
}

// SettingsStore reads and writes the global automatic-processing settings
type SettingsStore interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, settings *models.Settings) error
}

// FetcherResolver picks the fetcher for a list's provider
type FetcherResolver interface {
	Resolve(ctx context.Context, userID uint, p models.Provider) (provider.Fetcher, bool, error)
}

// StatusLookup asks the destination what it knows about an item
type StatusLookup interface {
	GetStatus(ctx context.Context, item models.MediaItem, profile *models.DestinationConfig) (models.MediaStatus, error)
}

// RequestSubmitter creates requests on the destination
type RequestSubmitter interface {
	SubmitRequest(ctx context.Context, item models.MediaItem, profile *models.DestinationConfig) error
}

// PendingCounter reads the destination's pending request count
type PendingCounter interface {
	PendingRequestCount(ctx context.Context, profile *models.DestinationConfig) (int, error)
}

// ScheduleReloader re-derives the active job table from stored settings
type ScheduleReloader interface {
	Reload(ctx context.Context) error
}
