package handlers

import (
	"context"
	"strconv"

	"github.com/amaumene/listarr/internal/models"
	"github.com/amaumene/listarr/internal/scheduler"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Schedule is the part of the scheduler the API exposes
type Schedule interface {
	Reload(ctx context.Context) error
	Unschedule(id int)
	ListActiveJobs() []scheduler.Job
}

// SettingsReader reads the global settings
type SettingsReader interface {
	Get(ctx context.Context) (*models.Settings, error)
}

// StatusHandler reports the automatic-processing state and manages the job table
type StatusHandler struct {
	settings SettingsReader
	schedule Schedule
	logger   zerolog.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(settings SettingsReader, schedule Schedule, logger zerolog.Logger) *StatusHandler {
	return &StatusHandler{
		settings: settings,
		schedule: schedule,
		logger:   logger,
	}
}

// AutomaticProcessing is the API view of the stored settings
type AutomaticProcessing struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

func newAutomaticProcessing(s *models.Settings) AutomaticProcessing {
	view := AutomaticProcessing{Enabled: s.AutomaticProcessingEnabled, Timezone: s.Timezone}
	if s.AutomaticProcessingSchedule != nil {
		view.Schedule = *s.AutomaticProcessingSchedule
	}
	return view
}

// StatusResponse represents the status response
type StatusResponse struct {
	AutomaticProcessing AutomaticProcessing `json:"automatic_processing"`
	Jobs                []scheduler.Job     `json:"jobs"`
}

// Get handles GET /status
func (h *StatusHandler) Get(c *fiber.Ctx) error {
	settings, err := h.settings.Get(c.UserContext())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read settings")
		return err
	}
	return c.JSON(StatusResponse{
		AutomaticProcessing: newAutomaticProcessing(settings),
		Jobs:                h.schedule.ListActiveJobs(),
	})
}

// Jobs handles GET /api/schedule/jobs
func (h *StatusHandler) Jobs(c *fiber.Ctx) error {
	return c.JSON(h.schedule.ListActiveJobs())
}

// Reload handles POST /api/schedule/reload
func (h *StatusHandler) Reload(c *fiber.Ctx) error {
	if err := h.schedule.Reload(c.UserContext()); err != nil {
		h.logger.Error().Err(err).Msg("Schedule reload failed")
		return err
	}
	return c.JSON(h.schedule.ListActiveJobs())
}

// Unschedule handles DELETE /api/schedule/jobs/:jobID. The job comes back on
// the next reload while the settings still enable it.
func (h *StatusHandler) Unschedule(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("jobID"))
	if err != nil {
		return &models.ValidationError{Field: "jobID", Reason: "must be an integer"}
	}
	h.schedule.Unschedule(id)
	return c.SendStatus(fiber.StatusNoContent)
}
