package controllers

import (
	"context"
	"fmt"
	"strings"

	"github.com/amaumene/listarr/internal/models"
	"github.com/rs/zerolog"
)

// SettingsController updates the global automatic-processing settings
type SettingsController struct {
	settings SettingsStore
	reloader ScheduleReloader
	logger   zerolog.Logger
}

// NewSettingsController creates a new settings controller
func NewSettingsController(settings SettingsStore, reloader ScheduleReloader, logger zerolog.Logger) *SettingsController {
	return &SettingsController{
		settings: settings,
		reloader: reloader,
		logger:   logger.With().Str("component", "settings").Logger(),
	}
}

// Get returns the current settings
func (c *SettingsController) Get(ctx context.Context) (*models.Settings, error) {
	return c.settings.GetSettings(ctx)
}

// UpdateAutomaticProcessing validates and stores the settings, then reloads
// the schedule. Invalid cron expressions and timezones are rejected.
func (c *SettingsController) UpdateAutomaticProcessing(ctx context.Context, enabled bool, schedule, timezone string) (*models.Settings, error) {
	current, err := c.settings.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	updated := *current
	updated.AutomaticProcessingEnabled = enabled
	updated.AutomaticProcessingSchedule = nil
	if expr := strings.TrimSpace(schedule); expr != "" {
		updated.AutomaticProcessingSchedule = &expr
	}
	if tz := strings.TrimSpace(timezone); tz != "" {
		updated.Timezone = tz
	}

	if err := updated.Validate(); err != nil {
		return nil, err
	}
	if err := c.settings.SaveSettings(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	c.logger.Info().
		Bool("enabled", updated.AutomaticProcessingEnabled).
		Str("timezone", updated.Timezone).
		Msg("Automatic processing settings updated")

	if err := c.reloader.Reload(ctx); err != nil {
		return &updated, fmt.Errorf("settings saved but schedule reload failed: %w", err)
	}
	return &updated, nil
}
