package controllers

import (
	"context"

	"github.com/amaumene/listarr/internal/models"
	"github.com/rs/zerolog"
)

// PendingRequests is the dashboard's pending-request widget. Error is set
// instead of failing so the rest of the dashboard still renders.
type PendingRequests struct {
	Count int  `json:"count"`
	Error bool `json:"error"`
}

// DashboardController serves dashboard reads
type DashboardController struct {
	destinations DestinationStore
	counter      PendingCounter
	logger       zerolog.Logger
}

// NewDashboardController creates a new dashboard controller
func NewDashboardController(destinations DestinationStore, counter PendingCounter, logger zerolog.Logger) *DashboardController {
	return &DashboardController{
		destinations: destinations,
		counter:      counter,
		logger:       logger.With().Str("component", "dashboard").Logger(),
	}
}

// PendingRequests never returns an error
func (c *DashboardController) PendingRequests(ctx context.Context, userID uint) PendingRequests {
	profile, err := c.destinations.FindDestinationConfig(ctx, userID)
	if err != nil || !profile.Configured() {
		if err == nil {
			err = models.ErrDestinationNotConfigured
		}
		c.logger.Debug().Err(err).Uint("user_id", userID).Msg("Pending requests unavailable")
		return PendingRequests{Error: true}
	}

	count, err := c.counter.PendingRequestCount(ctx, profile)
	if err != nil {
		c.logger.Warn().Err(err).Uint("user_id", userID).Msg("Failed to read pending requests")
		return PendingRequests{Error: true}
	}
	return PendingRequests{Count: count}
}
