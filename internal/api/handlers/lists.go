package handlers

import (
	"context"
	"strconv"

	"github.com/amaumene/listarr/internal/controllers"
	"github.com/amaumene/listarr/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Processor runs lists on demand
type Processor interface {
	TriggerProcessing(ctx context.Context, userID, listID uint, trigger models.TriggerKind) (*models.ExecutionSummary, error)
	TriggerAll(ctx context.Context, userID uint, trigger models.TriggerKind) ([]models.ExecutionSummary, error)
}

// ListManager changes list settings and reads execution history
type ListManager interface {
	ChangeMaxItems(ctx context.Context, userID, listID uint, n int) (*models.MediaList, error)
	SetSchedule(ctx context.Context, userID, listID uint, expr string) (*models.MediaList, error)
	SetEnabled(ctx context.Context, userID, listID uint, enabled bool) (*models.MediaList, error)
	History(ctx context.Context, userID, listID uint, limit int) ([]models.ExecutionSummary, error)
}

// PendingReader reads the dashboard's pending-request count
type PendingReader interface {
	PendingRequests(ctx context.Context, userID uint) controllers.PendingRequests
}

// ListHandler serves the per-user list endpoints
type ListHandler struct {
	processor Processor
	lists     ListManager
	dashboard PendingReader
	logger    zerolog.Logger
}

// NewListHandler creates a new list handler
func NewListHandler(processor Processor, lists ListManager, dashboard PendingReader, logger zerolog.Logger) *ListHandler {
	return &ListHandler{
		processor: processor,
		lists:     lists,
		dashboard: dashboard,
		logger:    logger,
	}
}

// Process handles POST /api/users/:userID/lists/:listID/process
func (h *ListHandler) Process(c *fiber.Ctx) error {
	userID, err := idParam(c, "userID")
	if err != nil {
		return err
	}
	listID, err := idParam(c, "listID")
	if err != nil {
		return err
	}

	summary, err := h.processor.TriggerProcessing(c.UserContext(), userID, listID, models.TriggerManual)
	if err != nil {
		return writeError(c, err, summary)
	}
	return c.JSON(summary)
}

// ProcessAll handles POST /api/users/:userID/lists/process
func (h *ListHandler) ProcessAll(c *fiber.Ctx) error {
	userID, err := idParam(c, "userID")
	if err != nil {
		return err
	}

	summaries, err := h.processor.TriggerAll(c.UserContext(), userID, models.TriggerManual)
	if err != nil {
		return err
	}
	return c.JSON(summaries)
}

// Executions handles GET /api/users/:userID/lists/:listID/executions
func (h *ListHandler) Executions(c *fiber.Ctx) error {
	userID, err := idParam(c, "userID")
	if err != nil {
		return err
	}
	listID, err := idParam(c, "listID")
	if err != nil {
		return err
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return &models.ValidationError{Field: "limit", Reason: "must be a non-negative integer"}
		}
	}

	history, err := h.lists.History(c.UserContext(), userID, listID, limit)
	if err != nil {
		return err
	}
	return c.JSON(history)
}

type maxItemsRequest struct {
	MaxItems *int `json:"max_items"`
}

// ChangeMaxItems handles PUT /api/users/:userID/lists/:listID/max-items
func (h *ListHandler) ChangeMaxItems(c *fiber.Ctx) error {
	userID, err := idParam(c, "userID")
	if err != nil {
		return err
	}
	listID, err := idParam(c, "listID")
	if err != nil {
		return err
	}

	var req maxItemsRequest
	if err := c.BodyParser(&req); err != nil {
		return &models.ValidationError{Field: "body", Reason: err.Error()}
	}
	if req.MaxItems == nil {
		return &models.ValidationError{Field: "max_items", Reason: "required"}
	}

	list, err := h.lists.ChangeMaxItems(c.UserContext(), userID, listID, *req.MaxItems)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"id": list.ID, "max_items": list.MaxItems})
}

type scheduleRequest struct {
	Schedule string `json:"schedule"`
}

// SetSchedule handles PUT /api/users/:userID/lists/:listID/schedule. An empty
// schedule clears it.
func (h *ListHandler) SetSchedule(c *fiber.Ctx) error {
	userID, listID, err := listParams(c)
	if err != nil {
		return err
	}

	var req scheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return &models.ValidationError{Field: "body", Reason: err.Error()}
	}

	list, err := h.lists.SetSchedule(c.UserContext(), userID, listID, req.Schedule)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"id": list.ID, "schedule": list.Schedule})
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// SetEnabled handles PUT /api/users/:userID/lists/:listID/enabled
func (h *ListHandler) SetEnabled(c *fiber.Ctx) error {
	userID, listID, err := listParams(c)
	if err != nil {
		return err
	}

	var req enabledRequest
	if err := c.BodyParser(&req); err != nil {
		return &models.ValidationError{Field: "body", Reason: err.Error()}
	}
	if req.Enabled == nil {
		return &models.ValidationError{Field: "enabled", Reason: "required"}
	}

	list, err := h.lists.SetEnabled(c.UserContext(), userID, listID, *req.Enabled)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"id": list.ID, "enabled": list.Enabled})
}

func listParams(c *fiber.Ctx) (userID, listID uint, err error) {
	if userID, err = idParam(c, "userID"); err != nil {
		return 0, 0, err
	}
	if listID, err = idParam(c, "listID"); err != nil {
		return 0, 0, err
	}
	return userID, listID, nil
}

// PendingRequests handles GET /api/users/:userID/dashboard/pending-requests
func (h *ListHandler) PendingRequests(c *fiber.Ctx) error {
	userID, err := idParam(c, "userID")
	if err != nil {
		return err
	}
	return c.JSON(h.dashboard.PendingRequests(c.UserContext(), userID))
}
