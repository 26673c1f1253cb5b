package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/killallgit/speech-coach/internal/models"
	"github.com/killallgit/speech-coach/internal/services/embedding"
	"github.com/killallgit/speech-coach/internal/services/feedback"
	"github.com/killallgit/speech-coach/internal/services/jobs"
	"github.com/killallgit/speech-coach/internal/services/metrics"
	"github.com/killallgit/speech-coach/internal/services/recordings"
	"github.com/killallgit/speech-coach/internal/services/transcription"
	apperrors "github.com/killallgit/speech-coach/pkg/errors"
	"github.com/sirupsen/logrus"
)

// The handlers below are invoked by the job processors. A nil return
// completes the job, a permanent *models.StructuredJobError ends it without
// retry, and anything else lets the queue redeliver it.

// persistTimeout bounds the writes that follow an adapter call. They run
// outside the job deadline so an adapter that used up the deadline still
// has its outcome recorded.
const persistTimeout = 15 * time.Second

func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}

// HandleTranscription transcribes the recording, computes metrics inline and
// attempts the completion join.
func (s *Scheduler) HandleTranscription(ctx context.Context, id string, generation int) error {
	rec, err := s.current(ctx, id, generation)
	if err != nil || rec == nil {
		return err
	}
	if rec.HasTranscript() {
		// Redelivered after the transcript was saved.
		return s.finishTranscript(ctx, rec)
	}

	transcript, err := s.transcriber.Transcribe(ctx, rec.AudioRef, transcription.Options{})
	ctx, cancel := detach(ctx)
	defer cancel()
	if err != nil {
		return s.fail(ctx, rec, recordings.AdapterTranscription, apperrors.AdapterFailure("transcription", err))
	}
	if transcript.IsEmpty() {
		return s.fail(ctx, rec, recordings.AdapterTranscription, apperrors.EmptyResult("transcription", EmptyTranscriptMessage))
	}

	raw, err := models.EncodeJSON(transcript)
	if err != nil {
		return models.NewPermanentError(models.ErrorTypeSystem, "ENCODING_ERROR", "encoding transcript", err)
	}
	saved, err := s.repo.SaveTranscript(ctx, id, generation, recordings.TranscriptUpdate{
		Transcript:  raw,
		Text:        transcript.Text,
		DurationSec: transcript.DurationSec,
	})
	if err != nil {
		return models.NewSystemError("DATABASE_ERROR", "saving transcript", err)
	}
	if !saved {
		s.logFor(id, generation).Info("Discarding transcript for superseded generation")
		return nil
	}

	s.logFor(id, generation).WithField("words", len(transcript.Words)).Info("Transcript saved")

	if err := s.analyze(ctx, id, generation, transcript); err != nil {
		return err
	}
	return s.tryComplete(ctx, id, generation)
}

func (s *Scheduler) finishTranscript(ctx context.Context, rec *models.Recording) error {
	if !rec.HasMetrics() {
		transcript, err := rec.TranscriptData()
		if err != nil {
			return models.NewPermanentError(models.ErrorTypeSystem, "DECODING_ERROR", "decoding stored transcript", err)
		}
		if err := s.analyze(ctx, rec.ID, rec.Generation, transcript); err != nil {
			return err
		}
	}
	return s.tryComplete(ctx, rec.ID, rec.Generation)
}

// analyze runs the metric extractor on a saved transcript
func (s *Scheduler) analyze(ctx context.Context, id string, generation int, transcript *models.Transcript) error {
	m := metrics.Extract(transcript.Words, transcript.DurationSec)
	raw, err := models.EncodeJSON(m)
	if err != nil {
		return models.NewPermanentError(models.ErrorTypeSystem, "ENCODING_ERROR", "encoding metrics", err)
	}
	saved, err := s.repo.SaveMetrics(ctx, id, generation, raw)
	if err != nil {
		return models.NewSystemError("DATABASE_ERROR", "saving metrics", err)
	}
	if saved {
		s.logFor(id, generation).WithFields(logrus.Fields{
			"wpm":     m.WordsPerMinute,
			"pauses":  len(m.Pauses),
			"fillers": m.TotalFillers(),
			"clarity": m.ClarityScore,
		}).Info("Metrics saved")
	}
	return nil
}

// HandleEmbedding embeds the recording audio and attempts the completion join.
func (s *Scheduler) HandleEmbedding(ctx context.Context, id string, generation int) error {
	rec, err := s.current(ctx, id, generation)
	if err != nil || rec == nil {
		return err
	}
	if rec.HasEmbedding() {
		return s.tryComplete(ctx, id, generation)
	}

	vec, err := s.embedder.Embed(ctx, rec.AudioRef)
	ctx, cancel := detach(ctx)
	defer cancel()
	if err != nil {
		if errors.Is(err, embedding.ErrEmptyVector) {
			return s.fail(ctx, rec, recordings.AdapterEmbedding, apperrors.EmptyResult("embedding", "No embedding generated"))
		}
		return s.fail(ctx, rec, recordings.AdapterEmbedding, apperrors.AdapterFailure("embedding", err))
	}

	raw, err := models.EncodeJSON(vec)
	if err != nil {
		return models.NewPermanentError(models.ErrorTypeSystem, "ENCODING_ERROR", "encoding embedding", err)
	}
	saved, err := s.repo.SaveEmbedding(ctx, id, generation, raw)
	if err != nil {
		return models.NewSystemError("DATABASE_ERROR", "saving embedding", err)
	}
	if !saved {
		s.logFor(id, generation).Info("Discarding embedding for superseded generation")
		return nil
	}

	s.logFor(id, generation).WithField("dimension", len(vec)).Info("Embedding saved")
	return s.tryComplete(ctx, id, generation)
}

// HandleFeedback generates feedback for a completed recording. It is a no-op
// once feedback exists. Synthesizer failures leave feedback absent.
func (s *Scheduler) HandleFeedback(ctx context.Context, id string) error {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, recordings.ErrRecordingNotFound) {
			return models.NewPermanentError(models.ErrorTypeNotFound, "RECORDING_NOT_FOUND", err.Error(), err)
		}
		return models.NewSystemError("DATABASE_ERROR", "loading recording", err)
	}
	if rec.Stage != models.StageCompleted || rec.HasFeedback() {
		return nil
	}

	m, err := rec.MetricsData()
	if err != nil || m == nil {
		return models.NewPermanentError(models.ErrorTypeSystem, "DECODING_ERROR", "completed recording has unreadable metrics", err)
	}

	log := s.log.WithField("recording_id", id)
	fb, err := s.synthesizer.Generate(ctx, feedback.Request{
		Transcript:     rec.TranscriptText,
		Metrics:        *m,
		MetricsSummary: metrics.Summarize(*m),
	})
	ctx, cancel := detach(ctx)
	defer cancel()
	if err != nil {
		log.WithError(err).Warn("Feedback generation failed")
		appErr := apperrors.AdapterFailure("feedback", err)
		return models.NewPermanentError(models.ErrorTypeAdapter, string(appErr.Code), appErr.Error(), err)
	}

	raw, err := models.EncodeJSON(fb)
	if err != nil {
		return models.NewPermanentError(models.ErrorTypeSystem, "ENCODING_ERROR", "encoding feedback", err)
	}
	saved, err := s.repo.SaveFeedback(ctx, id, raw)
	if err != nil {
		// A redelivery would call the synthesizer again.
		log.WithError(err).Error("Failed to save feedback")
		return models.NewPermanentError(models.ErrorTypeSystem, "DATABASE_ERROR", "saving feedback", err)
	}
	if saved {
		log.WithField("source", fb.Source).Info("Feedback saved")
	}
	return nil
}

// HandleAbandoned fails a recording whose adapter job was given up by the
// queue, so that retry becomes available. An earlier error message wins.
func (s *Scheduler) HandleAbandoned(ctx context.Context, adapter recordings.Adapter, id string, generation int, reason string) error {
	msg := fmt.Sprintf("%s did not complete", adapter)
	if reason != "" {
		msg += ": " + reason
	}
	failed, err := s.repo.MarkFailed(ctx, id, generation, adapter, msg)
	if err != nil {
		return err
	}
	if failed {
		s.logFor(id, generation).WithField("adapter", adapter).Warn("Recording failed after job was abandoned")
	}
	return nil
}

// tryComplete attempts the completion join. Only the caller whose
// conditional update wins enqueues feedback.
func (s *Scheduler) tryComplete(ctx context.Context, id string, generation int) error {
	won, err := s.repo.TryComplete(ctx, id, generation)
	if err != nil {
		return models.NewSystemError("DATABASE_ERROR", "completing recording", err)
	}
	if !won {
		return nil
	}

	s.logFor(id, generation).Info("Recording completed")

	if !s.opts.EnableFeedback {
		return nil
	}
	_, err = s.jobs.EnqueueUniqueJob(ctx, models.JobTypeFeedback,
		models.JobPayload{models.PayloadRecordingID: id, models.PayloadGeneration: generation},
		models.PayloadRecordingID, jobs.WithCreatedBy("scheduler"))
	if err != nil {
		// Completion is already persisted; feedback stays absent.
		s.logFor(id, generation).WithError(err).Error("Failed to enqueue feedback")
	}
	return nil
}

// fail records an adapter error on the recording and ends the job
func (s *Scheduler) fail(ctx context.Context, rec *models.Recording, adapter recordings.Adapter, appErr *apperrors.AppError) error {
	msg := apperrors.UserMessage(appErr)
	failed, err := s.repo.MarkFailed(ctx, rec.ID, rec.Generation, adapter, msg)
	if err != nil {
		return models.NewSystemError("DATABASE_ERROR", "marking recording failed", err)
	}
	s.logFor(rec.ID, rec.Generation).WithFields(logrus.Fields{
		"adapter": adapter,
		"applied": failed,
	}).Warn(msg)
	return models.NewPermanentError(models.ErrorTypeAdapter, string(appErr.Code), appErr.Error(), appErr)
}

// current loads the recording for a job. It returns nil without error when
// the job belongs to an older generation or the recording already completed.
func (s *Scheduler) current(ctx context.Context, id string, generation int) (*models.Recording, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, recordings.ErrRecordingNotFound) {
			return nil, models.NewPermanentError(models.ErrorTypeNotFound, "RECORDING_NOT_FOUND", err.Error(), err)
		}
		return nil, models.NewSystemError("DATABASE_ERROR", "loading recording", err)
	}
	if rec.Generation != generation || rec.Stage == models.StageCompleted {
		s.logFor(id, generation).WithField("current_generation", rec.Generation).Debug("Skipping stale job")
		return nil, nil
	}
	return rec, nil
}

func (s *Scheduler) logFor(id string, generation int) *logrus.Entry {
	return s.log.WithFields(logrus.Fields{
		"recording_id": id,
		"generation":   generation,
	})
}
