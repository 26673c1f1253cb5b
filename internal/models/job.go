package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobStatus represents the status of a job in the queue
type JobStatus string

const (
	JobStatusPending           JobStatus = "pending"
	JobStatusProcessing        JobStatus = "processing"
	JobStatusCompleted         JobStatus = "completed"
	JobStatusFailed            JobStatus = "failed"
	JobStatusPermanentlyFailed JobStatus = "permanently_failed"
)

// JobType represents the type of job to be processed
type JobType string

const (
	JobTypeTranscription     JobType = "transcription"
	JobTypeEmbedding         JobType = "embedding"
	JobTypeFeedback          JobType = "feedback"
	JobTypeExemplarEmbedding JobType = "exemplar_embedding"
)

// AllJobTypes lists every job type the workers understand.
var AllJobTypes = []JobType{
	JobTypeTranscription,
	JobTypeEmbedding,
	JobTypeFeedback,
	JobTypeExemplarEmbedding,
}

// JobPayload is the input of a job
type JobPayload map[string]interface{}

// JobResult is the output recorded on a completed job
type JobResult map[string]interface{}

// Payload keys shared by producers and processors.
const (
	PayloadRecordingID = "recording_id"
	PayloadExemplarID  = "exemplar_id"
	PayloadGeneration  = "generation"
)

// JobErrorType represents the category of error that occurred
type JobErrorType string

const (
	ErrorTypeAdapter  JobErrorType = "adapter"   // External service failed
	ErrorTypeSystem   JobErrorType = "system"    // Database, worker, or other system error
	ErrorTypeNotFound JobErrorType = "not_found" // Target entity is gone
)

// StructuredJobError carries a classification the worker records on the job.
type StructuredJobError struct {
	Type      JobErrorType
	Code      string
	Message   string
	Permanent bool
	Original  error
}

func (e *StructuredJobError) Error() string {
	return e.Message
}

func (e *StructuredJobError) Unwrap() error {
	return e.Original
}

// NewPermanentError builds an error that must not be retried by the queue.
func NewPermanentError(errorType JobErrorType, code, message string, original error) *StructuredJobError {
	return &StructuredJobError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Permanent: true,
		Original:  original,
	}
}

// NewSystemError creates a retryable system error
func NewSystemError(code, message string, original error) *StructuredJobError {
	return &StructuredJobError{
		Type:     ErrorTypeSystem,
		Code:     code,
		Message:  message,
		Original: original,
	}
}

// Job represents a unit of asynchronous work in the queue
type Job struct {
	gorm.Model
	Type         JobType           `json:"type" gorm:"not null;index:idx_jobs_type_status"`
	Status       JobStatus         `json:"status" gorm:"default:'pending';index:idx_jobs_type_status;index:idx_jobs_status_priority"`
	Payload      datatypes.JSONMap `json:"payload"`
	Priority     int               `json:"priority" gorm:"default:0;index:idx_jobs_status_priority"`
	MaxRetries   int               `json:"max_retries" gorm:"default:3"`
	RetryCount   int               `json:"retry_count" gorm:"default:0"`
	Progress     int               `json:"progress" gorm:"default:0"`
	StartedAt    *time.Time        `json:"started_at"`
	CompletedAt  *time.Time        `json:"completed_at"`
	LastFailedAt *time.Time        `json:"last_failed_at"`
	Error        string            `json:"error,omitempty"`
	Result       datatypes.JSONMap `json:"result,omitempty"`
	WorkerID     string            `json:"worker_id,omitempty"`
	ErrorType    string            `json:"error_type,omitempty"`
	ErrorCode    string            `json:"error_code,omitempty"`
	CreatedBy    string            `json:"created_by,omitempty"`
}

// IsRetryable returns true if the job can be claimed again
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// IsTerminal returns true if the job is in a terminal state
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted ||
		j.Status == JobStatusPermanentlyFailed ||
		(j.Status == JobStatusFailed && !j.IsRetryable())
}

// GetPayloadString safely retrieves a string value from the payload
func (j *Job) GetPayloadString(key string) (string, bool) {
	if j.Payload == nil {
		return "", false
	}
	str, ok := j.Payload[key].(string)
	return str, ok && str != ""
}

// GetPayloadInt safely retrieves an int value from the payload
func (j *Job) GetPayloadInt(key string) (int, bool) {
	if j.Payload == nil {
		return 0, false
	}

	// JSONMap decodes numbers as json.Number after a round trip
	switch v := j.Payload[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	default:
		return 0, false
	}
}

// TableName specifies the table name for GORM
func (Job) TableName() string {
	return "jobs"
}
