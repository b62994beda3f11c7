package models

import (
	"fmt"
	"time"
)

// Error codes used in ErrorResponse
const (
	ErrorCodeInternal = "INTERNAL_ERROR"
	ErrorCodeMetrics  = "METRICS_ERROR"
	ErrorCodeNotFound = "NOT_FOUND"
)

// GenericErrorMessage is the only failure detail exposed to clients
const GenericErrorMessage = "Internal server error"

// ComputationResponse is returned by a successful heavy computation
type ComputationResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ElapsedMs int    `json:"elapsed_ms"`
}

// NewComputationResponse creates a success envelope for elapsedMs
func NewComputationResponse(elapsedMs int) *ComputationResponse {
	return &ComputationResponse{
		Status:    "success",
		Message:   fmt.Sprintf("Heavy computation completed successfully in %dms", elapsedMs),
		ElapsedMs: elapsedMs,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(errorCode, message, requestID string) *ErrorResponse {
	return &ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}

// HealthResponse represents the health status of the service
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  int64  `json:"uptime"`
}
