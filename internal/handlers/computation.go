package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"backendmonitoring/internal/models"
	"backendmonitoring/internal/workload"
)

// Greeting is the body served on the root route
const Greeting = "Hello World"

// Workload runs one unit of simulated work
type Workload interface {
	Run(ctx context.Context) (workload.Result, error)
}

// ComputationHandlers serves the greeting and the simulated workload routes
type ComputationHandlers struct {
	workload Workload
	logger   zerolog.Logger
}

// NewComputationHandlers creates the handlers
func NewComputationHandlers(w Workload, logger zerolog.Logger) *ComputationHandlers {
	return &ComputationHandlers{
		workload: w,
		logger:   logger,
	}
}

// Root returns a handler that serves the fixed greeting
func (h *ComputationHandlers) Root() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.logger.Info().
			Str("request_id", c.GetString("request_id")).
			Msg("Request received on / route")

		c.String(http.StatusOK, Greeting)
	}
}

// HeavyComputation returns a handler that runs the simulated workload.
// Failure kinds are logged but never returned to the client.
func (h *ComputationHandlers) HeavyComputation() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetString("request_id")
		h.logger.Info().
			Str("request_id", requestID).
			Msg("Request received on /heavy-computation route")

		result, err := h.workload.Run(c.Request.Context())
		if err != nil {
			event := h.logger.Error().Err(err).Str("request_id", requestID)

			var failure *workload.Failure
			switch {
			case errors.As(err, &failure):
				event = event.Str("kind", failure.Kind.String()).Int("elapsed_ms", failure.ElapsedMs)
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				event = event.Str("kind", "cancelled")
			}
			event.Msg("Error in /heavy-computation route")

			c.JSON(http.StatusInternalServerError, models.NewErrorResponse(
				models.ErrorCodeInternal,
				models.GenericErrorMessage,
				requestID,
			))
			return
		}

		c.JSON(http.StatusOK, models.NewComputationResponse(result.ElapsedMs))
	}
}
