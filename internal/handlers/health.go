package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"backendmonitoring/internal/metrics"
	"backendmonitoring/internal/models"
)

// MetricsExporter renders the text exposition of all registered metrics
type MetricsExporter interface {
	Export() (string, error)
}

// HealthHandlers contains health check handlers
type HealthHandlers struct {
	version   string
	startTime time.Time
}

// NewHealthHandlers creates new health handlers
func NewHealthHandlers(version string, startTime time.Time) *HealthHandlers {
	return &HealthHandlers{
		version:   version,
		startTime: startTime,
	}
}

// HealthCheck returns a handler for health check endpoint
func (h *HealthHandlers) HealthCheck() gin.HandlerFunc {
	return func(c *gin.Context) {
		uptime := time.Since(h.startTime).Seconds()

		response := models.HealthResponse{
			Status:  "healthy",
			Version: h.version,
			Uptime:  int64(uptime),
		}

		c.JSON(http.StatusOK, response)
	}
}

// Metrics returns a handler for Prometheus metrics endpoint
func (h *HealthHandlers) Metrics(exporter MetricsExporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := exporter.Export()
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, models.NewErrorResponse(
				models.ErrorCodeMetrics,
				"Failed to collect metrics",
				c.GetString("request_id"),
			))
			return
		}

		c.Data(http.StatusOK, metrics.ContentType, []byte(body))
	}
}
