package handlers

import (
	"context"

	"github.com/amaumene/listarr/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// SettingsUpdater persists the automatic-processing settings and reloads the schedule
type SettingsUpdater interface {
	UpdateAutomaticProcessing(ctx context.Context, enabled bool, schedule, timezone string) (*models.Settings, error)
}

// SettingsHandler handles settings updates
type SettingsHandler struct {
	settings SettingsUpdater
	logger   zerolog.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings SettingsUpdater, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

type automaticProcessingRequest struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"`
	Timezone string `json:"timezone"`
}

// UpdateAutomaticProcessing handles PUT /api/settings/automatic-processing
func (h *SettingsHandler) UpdateAutomaticProcessing(c *fiber.Ctx) error {
	var req automaticProcessingRequest
	if err := c.BodyParser(&req); err != nil {
		return &models.ValidationError{Field: "body", Reason: err.Error()}
	}

	settings, err := h.settings.UpdateAutomaticProcessing(c.UserContext(), req.Enabled, req.Schedule, req.Timezone)
	if err != nil {
		if settings == nil {
			return err
		}
		// Saved, but the scheduler could not pick it up yet
		h.logger.Warn().Err(err).Msg("Settings stored without a schedule reload")
	}
	return c.JSON(newAutomaticProcessing(settings))
}
