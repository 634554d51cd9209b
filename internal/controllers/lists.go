package controllers

import (
	"context"
	"fmt"

	"github.com/amaumene/listarr/internal/models"
	"github.com/rs/zerolog"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// ListController handles list mutations and history reads
type ListController struct {
	lists      ListStore
	executions ExecutionStore
	logger     zerolog.Logger
}

// NewListController creates a new list controller
func NewListController(lists ListStore, executions ExecutionStore, logger zerolog.Logger) *ListController {
	return &ListController{
		lists:      lists,
		executions: executions,
		logger:     logger.With().Str("component", "lists").Logger(),
	}
}

// Lists returns every list owned by userID
func (c *ListController) Lists(ctx context.Context, userID uint) ([]*models.MediaList, error) {
	return c.lists.FindListsByUser(ctx, userID)
}

// ChangeMaxItems sets the item cap of a list. Values outside [1,50] are
// rejected and nothing is saved.
func (c *ListController) ChangeMaxItems(ctx context.Context, userID, listID uint, n int) (*models.MediaList, error) {
	return c.update(ctx, userID, listID, func(list *models.MediaList) error {
		return list.ChangeMaxItems(n)
	})
}

// SetSchedule sets or clears (empty expression) the list's cron expression
func (c *ListController) SetSchedule(ctx context.Context, userID, listID uint, expr string) (*models.MediaList, error) {
	return c.update(ctx, userID, listID, func(list *models.MediaList) error {
		return list.ChangeSchedule(expr)
	})
}

// SetEnabled enables or disables a list
func (c *ListController) SetEnabled(ctx context.Context, userID, listID uint, enabled bool) (*models.MediaList, error) {
	return c.update(ctx, userID, listID, func(list *models.MediaList) error {
		list.Enabled = enabled
		return nil
	})
}

// History returns the newest executions of a list. limit defaults to 20 and
// is capped at 100.
func (c *ListController) History(ctx context.Context, userID, listID uint, limit int) ([]models.ExecutionSummary, error) {
	list, err := c.lists.FindList(ctx, userID, listID)
	if err != nil {
		return nil, fmt.Errorf("list %d: %w", listID, err)
	}

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	executions, err := c.executions.FindExecutionsByList(ctx, list.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load executions: %w", err)
	}

	summaries := make([]models.ExecutionSummary, 0, len(executions))
	for _, execution := range executions {
		summary := execution.Summary()
		summary.ListName = list.Name
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (c *ListController) update(ctx context.Context, userID, listID uint, mutate func(*models.MediaList) error) (*models.MediaList, error) {
	list, err := c.lists.FindList(ctx, userID, listID)
	if err != nil {
		return nil, fmt.Errorf("list %d: %w", listID, err)
	}
	if err := mutate(list); err != nil {
		return nil, err
	}
	if err := c.lists.SaveList(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to save list: %w", err)
	}

	c.logger.Info().Uint("list_id", list.ID).Uint("user_id", userID).Msg("List updated")
	return list, nil
}
