package handlers

import (
	"errors"
	"math"
	"strconv"

	"github.com/amaumene/listarr/internal/models"
	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the JSON body of every failed request. Execution is set
// when the run was recorded before it failed.
type ErrorResponse struct {
	Error     string                   `json:"error"`
	Execution *models.ExecutionSummary `json:"execution,omitempty"`
}

// StatusFor maps an error to its HTTP status code
func StatusFor(err error) int {
	var rateLimit *models.RateLimitError
	var fiberErr *fiber.Error

	switch {
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrValidation):
		return fiber.StatusBadRequest
	case models.IsConfigurationError(err):
		return fiber.StatusConflict
	case errors.As(err, &rateLimit):
		return fiber.StatusTooManyRequests
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler is the fiber error handler. Handlers return errors and this
// renders them.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return writeError(c, err, nil)
}

func writeError(c *fiber.Ctx, err error, execution *models.ExecutionSummary) error {
	var rateLimit *models.RateLimitError
	if errors.As(err, &rateLimit) && rateLimit.RetryAfter > 0 {
		seconds := int(math.Ceil(rateLimit.RetryAfter.Seconds()))
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
	}
	return c.Status(StatusFor(err)).JSON(ErrorResponse{Error: err.Error(), Execution: execution})
}

func idParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, &models.ValidationError{Field: name, Reason: "must be a positive integer"}
	}
	return uint(id), nil
}
