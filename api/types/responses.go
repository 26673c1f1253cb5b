package types

import (
	"github.com/killallgit/speech-coach/internal/models"
)

// Status constants for API responses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// BaseResponse contains fields common to all API responses
type BaseResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse for detailed error information
type ErrorResponse struct {
	Status  string      `json:"status" example:"error"`
	Message string      `json:"message" example:"recording not found"`
	Error   string      `json:"error,omitempty" example:"NOT_FOUND"`
	Details interface{} `json:"details,omitempty"`
}

// RecordingAccepted is returned when a recording has been queued
type RecordingAccepted struct {
	ID    string       `json:"id" example:"8f14e45f-ceea-467f-a0e6-1b9c2f5b7a10"`
	Stage models.Stage `json:"stage" example:"transcribing"`
}

// RecordingsResponse for recording lists
type RecordingsResponse struct {
	BaseResponse
	Recordings []models.Recording `json:"recordings"`
	Count      int                `json:"count"`
	Total      int64              `json:"total"`
	Offset     int                `json:"offset,omitempty"`
}

// ExemplarsResponse for exemplar lists
type ExemplarsResponse struct {
	BaseResponse
	Exemplars []models.Exemplar `json:"exemplars"`
	Count     int               `json:"count"`
	Total     int64             `json:"total"`
	Offset    int               `json:"offset,omitempty"`
}

// HealthResponse for health check endpoint
type HealthResponse struct {
	Status    string                 `json:"status" example:"ok"`
	Timestamp string                 `json:"timestamp"`
	Database  map[string]interface{} `json:"database"`
	Workers   map[string]interface{} `json:"workers,omitempty"`
}
