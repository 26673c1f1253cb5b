// Package pipeline drives recordings through transcription, analysis,
// embedding and feedback. Every external call runs as a queued job; the
// scheduler only reacts to their completion and persists transitions with
// conditional writes.
package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/killallgit/speech-coach/internal/models"
	"github.com/killallgit/speech-coach/internal/services/embedding"
	"github.com/killallgit/speech-coach/internal/services/feedback"
	"github.com/killallgit/speech-coach/internal/services/jobs"
	"github.com/killallgit/speech-coach/internal/services/metrics"
	"github.com/killallgit/speech-coach/internal/services/recordings"
	"github.com/killallgit/speech-coach/internal/services/similarity"
	"github.com/killallgit/speech-coach/internal/services/transcription"
	apperrors "github.com/killallgit/speech-coach/pkg/errors"
	"github.com/killallgit/speech-coach/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Scheduler owns the recording state machine
type Scheduler struct {
	repo        recordings.Repository
	jobs        jobs.Service
	transcriber transcription.Transcriber
	embedder    embedding.Embedder
	synthesizer feedback.Synthesizer
	exemplars   ExemplarSource
	opts        Options
	log         *logrus.Entry
}

// NewScheduler wires the scheduler to its store, queue and adapters
func NewScheduler(
	repo recordings.Repository,
	jobService jobs.Service,
	transcriber transcription.Transcriber,
	embedder embedding.Embedder,
	synthesizer feedback.Synthesizer,
	exemplars ExemplarSource,
	opts Options,
) *Scheduler {
	if opts.SimilarLimit <= 0 {
		opts.SimilarLimit = similarity.DefaultLimit
	}
	return &Scheduler{
		repo:        repo,
		jobs:        jobService,
		transcriber: transcriber,
		embedder:    embedder,
		synthesizer: synthesizer,
		exemplars:   exemplars,
		opts:        opts,
		log:         logger.WithComponent("scheduler"),
	}
}

// CreateRecording persists a pending recording and dispatches transcription
// and embedding. The returned entity is the pending row as created; dispatch
// progress and adapter outcomes surface later through GetStatus.
func (s *Scheduler) CreateRecording(ctx context.Context, req CreateRequest) (*models.Recording, error) {
	if strings.TrimSpace(req.AudioRef) == "" {
		return nil, apperrors.MissingFieldError("audio_ref")
	}

	rec := &models.Recording{
		ID:       uuid.New().String(),
		UserID:   req.UserID,
		Title:    req.Title,
		AudioRef: strings.TrimSpace(req.AudioRef),
		Stage:    models.StagePending,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, apperrors.DatabaseError("create recording", err)
	}

	s.log.WithFields(logrus.Fields{
		"recording_id": rec.ID,
		"user_id":      rec.UserID,
	}).Info("Recording created")

	if err := s.dispatch(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetStatus returns the stage and error of a recording
func (s *Scheduler) GetStatus(ctx context.Context, id string) (*Status, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toStatus(rec), nil
}

// GetAnalysis returns the results of a recording. limit caps the similar
// exemplars; non-positive means the configured default.
func (s *Scheduler) GetAnalysis(ctx context.Context, id string, limit int) (*Analysis, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{ID: rec.ID, Stage: rec.Stage}
	if rec.Stage != models.StageCompleted {
		return analysis, nil
	}

	analysis.Transcript = rec.TranscriptText
	if analysis.Metrics, err = rec.MetricsData(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "stored metrics are unreadable")
	}
	if analysis.Metrics != nil {
		analysis.PacingAdvice = metrics.AssessPacing(analysis.Metrics.WordsPerMinute).Advice()
	}
	if analysis.Feedback, err = rec.FeedbackData(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "stored feedback is unreadable")
	}

	vec, err := rec.EmbeddingVector()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "stored embedding is unreadable")
	}
	if s.exemplars != nil {
		corpus, err := s.exemplars.ListSearchable(ctx)
		if err != nil {
			return nil, err
		}
		if limit <= 0 {
			limit = s.opts.SimilarLimit
		}
		analysis.SimilarExemplars = toSimilar(similarity.FindSimilar(vec, corpus, limit))
	}
	return analysis, nil
}

// Retry resets a failed recording and re-dispatches only the stages whose
// output is still missing. Any other stage is rejected unchanged.
func (s *Scheduler) Retry(ctx context.Context, id string) (*Status, error) {
	rec, err := s.repo.ResetForRetry(ctx, id)
	switch {
	case errors.Is(err, recordings.ErrRecordingNotFound):
		return nil, apperrors.NotFound("recording", id)
	case errors.Is(err, recordings.ErrNotRetryable):
		return nil, apperrors.InvalidState("recording", string(rec.Stage), "retry")
	case err != nil:
		return nil, apperrors.DatabaseError("reset recording", err)
	}

	s.log.WithFields(logrus.Fields{
		"recording_id": id,
		"generation":   rec.Generation,
	}).Info("Retrying recording")

	if err := s.dispatch(ctx, rec); err != nil {
		return nil, err
	}
	rec, err = s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toStatus(rec), nil
}

// ListRecordings pages through recordings
func (s *Scheduler) ListRecordings(ctx context.Context, opts recordings.ListOptions) ([]models.Recording, int64, error) {
	recs, total, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, 0, apperrors.DatabaseError("list recordings", err)
	}
	return recs, total, nil
}

// dispatch claims and enqueues every adapter whose artifact is missing. When
// the transcript survived a failure but metrics did not, metrics run inline.
// With nothing left to dispatch the completion join is attempted directly.
func (s *Scheduler) dispatch(ctx context.Context, rec *models.Recording) error {
	dispatched := false

	if !rec.HasTranscript() {
		ok, err := s.claimAndEnqueue(ctx, rec, recordings.AdapterTranscription, models.JobTypeTranscription)
		if err != nil {
			return err
		}
		dispatched = dispatched || ok
	} else if !rec.HasMetrics() {
		transcript, err := rec.TranscriptData()
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "stored transcript is unreadable")
		}
		if err := s.analyze(ctx, rec.ID, rec.Generation, transcript); err != nil {
			return err
		}
	}

	if !rec.HasEmbedding() {
		ok, err := s.claimAndEnqueue(ctx, rec, recordings.AdapterEmbedding, models.JobTypeEmbedding)
		if err != nil {
			return err
		}
		dispatched = dispatched || ok
	}

	if !dispatched {
		return s.tryComplete(ctx, rec.ID, rec.Generation)
	}
	return nil
}

// claimAndEnqueue sets the adapter's in-flight flag and queues its job. A
// lost claim means a call for this generation is already outstanding.
func (s *Scheduler) claimAndEnqueue(ctx context.Context, rec *models.Recording, adapter recordings.Adapter, jobType models.JobType) (bool, error) {
	claimed, err := s.repo.ClaimDispatch(ctx, rec.ID, rec.Generation, adapter)
	if err != nil {
		return false, apperrors.DatabaseError("claim dispatch", err)
	}
	if !claimed {
		return false, nil
	}

	payload := models.JobPayload{
		models.PayloadRecordingID: rec.ID,
		models.PayloadGeneration:  rec.Generation,
	}
	job, err := s.jobs.EnqueueJob(ctx, jobType, payload, jobs.WithCreatedBy("scheduler"))
	if err != nil {
		// Without a job nothing would clear the flag; fail so retry is possible.
		s.log.WithError(err).WithField("recording_id", rec.ID).Error("Failed to enqueue job")
		if _, markErr := s.repo.MarkFailed(ctx, rec.ID, rec.Generation, adapter, "could not schedule "+string(adapter)); markErr != nil {
			return false, apperrors.DatabaseError("mark recording failed", markErr)
		}
		return false, nil
	}

	s.log.WithFields(logrus.Fields{
		"recording_id": rec.ID,
		"generation":   rec.Generation,
		"job_id":       job.ID,
		"job_type":     jobType,
	}).Debug("Dispatched")
	return true, nil
}

func (s *Scheduler) get(ctx context.Context, id string) (*models.Recording, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, recordings.ErrRecordingNotFound) {
			return nil, apperrors.NotFound("recording", id)
		}
		return nil, apperrors.DatabaseError("get recording", err)
	}
	return rec, nil
}
