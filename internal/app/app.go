// Package app assembles the listarr object graph.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/amaumene/listarr/internal/api"
	"github.com/amaumene/listarr/internal/config"
	"github.com/amaumene/listarr/internal/controllers"
	"github.com/amaumene/listarr/internal/models"
	"github.com/amaumene/listarr/internal/scheduler"
	"github.com/amaumene/listarr/internal/services/animap"
	"github.com/rs/zerolog"
)

// App holds the long-lived components the commands drive
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	DB         *models.Database
	Translator *animap.Translator
	Process    *controllers.ProcessController
	Scheduler  *scheduler.Scheduler
	Server     *api.Server
}

// Prepare runs the startup steps that must finish before any processing:
// interrupted executions are closed, the anime id table is loaded and the
// schedule is installed from stored settings.
func (a *App) Prepare(ctx context.Context) error {
	swept, err := a.DB.MarkInterruptedExecutions(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to sweep interrupted executions: %w", err)
	}
	if swept > 0 {
		a.Logger.Warn().Int64("executions", swept).Msg("Marked interrupted executions as failed")
	}

	// Lookup retries the download on demand
	if err := a.Translator.Initialize(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Anime id mapping unavailable at startup")
	}

	if err := a.Scheduler.Reload(ctx); err != nil {
		return fmt.Errorf("failed to install schedule: %w", err)
	}
	return nil
}
