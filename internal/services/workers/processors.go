package workers

import (
	"context"
	"fmt"

	"github.com/killallgit/speech-coach/internal/models"
	"github.com/killallgit/speech-coach/internal/services/recordings"
)

// RecordingHandler is the part of the scheduler driven by recording jobs
type RecordingHandler interface {
	HandleTranscription(ctx context.Context, id string, generation int) error
	HandleEmbedding(ctx context.Context, id string, generation int) error
	HandleFeedback(ctx context.Context, id string) error
	HandleAbandoned(ctx context.Context, adapter recordings.Adapter, id string, generation int, reason string) error
}

// ExemplarHandler is the part of the exemplar service driven by exemplar jobs
type ExemplarHandler interface {
	ProcessEmbedding(ctx context.Context, id string) error
	AbandonEmbedding(ctx context.Context, id, reason string) error
}

func invalidPayload(job *models.Job, key string) error {
	return models.NewPermanentError(models.ErrorTypeSystem, "INVALID_PAYLOAD",
		fmt.Sprintf("job %d has no %s in payload", job.ID, key), nil)
}

// recordingTarget reads the recording id and generation of a job
func recordingTarget(job *models.Job) (string, int, error) {
	id, ok := job.GetPayloadString(models.PayloadRecordingID)
	if !ok {
		return "", 0, invalidPayload(job, models.PayloadRecordingID)
	}
	generation, ok := job.GetPayloadInt(models.PayloadGeneration)
	if !ok {
		return "", 0, invalidPayload(job, models.PayloadGeneration)
	}
	return id, generation, nil
}

// TranscriptionProcessor runs transcription jobs
type TranscriptionProcessor struct {
	handler RecordingHandler
}

// NewTranscriptionProcessor creates a new transcription processor
func NewTranscriptionProcessor(handler RecordingHandler) *TranscriptionProcessor {
	return &TranscriptionProcessor{handler: handler}
}

func (p *TranscriptionProcessor) CanProcess(jobType models.JobType) bool {
	return jobType == models.JobTypeTranscription
}

func (p *TranscriptionProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	id, generation, err := recordingTarget(job)
	if err != nil {
		return err
	}
	return p.handler.HandleTranscription(ctx, id, generation)
}

func (p *TranscriptionProcessor) JobAbandoned(ctx context.Context, job *models.Job) error {
	id, generation, err := recordingTarget(job)
	if err != nil {
		return err
	}
	return p.handler.HandleAbandoned(ctx, recordings.AdapterTranscription, id, generation, job.Error)
}

// EmbeddingProcessor runs recording embedding jobs
type EmbeddingProcessor struct {
	handler RecordingHandler
}

// NewEmbeddingProcessor creates a new embedding processor
func NewEmbeddingProcessor(handler RecordingHandler) *EmbeddingProcessor {
	return &EmbeddingProcessor{handler: handler}
}

func (p *EmbeddingProcessor) CanProcess(jobType models.JobType) bool {
	return jobType == models.JobTypeEmbedding
}

func (p *EmbeddingProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	id, generation, err := recordingTarget(job)
	if err != nil {
		return err
	}
	return p.handler.HandleEmbedding(ctx, id, generation)
}

func (p *EmbeddingProcessor) JobAbandoned(ctx context.Context, job *models.Job) error {
	id, generation, err := recordingTarget(job)
	if err != nil {
		return err
	}
	return p.handler.HandleAbandoned(ctx, recordings.AdapterEmbedding, id, generation, job.Error)
}

// FeedbackProcessor runs feedback jobs. An abandoned feedback job leaves the
// recording completed without feedback.
type FeedbackProcessor struct {
	handler RecordingHandler
}

// NewFeedbackProcessor creates a new feedback processor
func NewFeedbackProcessor(handler RecordingHandler) *FeedbackProcessor {
	return &FeedbackProcessor{handler: handler}
}

func (p *FeedbackProcessor) CanProcess(jobType models.JobType) bool {
	return jobType == models.JobTypeFeedback
}

func (p *FeedbackProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	id, ok := job.GetPayloadString(models.PayloadRecordingID)
	if !ok {
		return invalidPayload(job, models.PayloadRecordingID)
	}
	return p.handler.HandleFeedback(ctx, id)
}

// ExemplarEmbeddingProcessor embeds curated exemplars
type ExemplarEmbeddingProcessor struct {
	handler ExemplarHandler
}

// NewExemplarEmbeddingProcessor creates a new exemplar embedding processor
func NewExemplarEmbeddingProcessor(handler ExemplarHandler) *ExemplarEmbeddingProcessor {
	return &ExemplarEmbeddingProcessor{handler: handler}
}

func (p *ExemplarEmbeddingProcessor) CanProcess(jobType models.JobType) bool {
	return jobType == models.JobTypeExemplarEmbedding
}

func (p *ExemplarEmbeddingProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	id, ok := job.GetPayloadString(models.PayloadExemplarID)
	if !ok {
		return invalidPayload(job, models.PayloadExemplarID)
	}
	return p.handler.ProcessEmbedding(ctx, id)
}

func (p *ExemplarEmbeddingProcessor) JobAbandoned(ctx context.Context, job *models.Job) error {
	id, ok := job.GetPayloadString(models.PayloadExemplarID)
	if !ok {
		return invalidPayload(job, models.PayloadExemplarID)
	}
	return p.handler.AbandonEmbedding(ctx, id, job.Error)
}
