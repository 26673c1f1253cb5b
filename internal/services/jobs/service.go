package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/killallgit/speech-coach/internal/models"
	"github.com/killallgit/speech-coach/pkg/logger"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxRetries = 3
	DefaultPriority   = 0
)

type service struct {
	repo       Repository
	maxRetries int
	log        *logrus.Entry
}

// NewService creates the job service. maxRetries is the default attempt
// budget for jobs enqueued without WithMaxRetries; zero keeps DefaultMaxRetries.
func NewService(repo Repository, maxRetries int) Service {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &service{
		repo:       repo,
		maxRetries: maxRetries,
		log:        logger.WithComponent("jobs"),
	}
}

func (s *service) EnqueueJob(ctx context.Context, jobType models.JobType, payload models.JobPayload, opts ...JobOption) (*models.Job, error) {
	cfg := &jobConfig{
		Priority:   DefaultPriority,
		MaxRetries: s.maxRetries,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	job := &models.Job{
		Type:       jobType,
		Status:     models.JobStatusPending,
		Payload:    map[string]interface{}(payload),
		Priority:   cfg.Priority,
		MaxRetries: cfg.MaxRetries,
		CreatedBy:  cfg.CreatedBy,
	}

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"job_type": jobType,
		"priority": job.Priority,
	}).Debug("Enqueued job")

	return job, nil
}

// EnqueueUniqueJob returns the live job already carrying payload[uniqueKey]
// instead of enqueuing a duplicate.
func (s *service) EnqueueUniqueJob(ctx context.Context, jobType models.JobType, payload models.JobPayload, uniqueKey string, opts ...JobOption) (*models.Job, error) {
	uniqueValue, ok := payload[uniqueKey]
	if !ok {
		return nil, fmt.Errorf("unique key %s not found in payload", uniqueKey)
	}

	existingJob, err := s.repo.GetJobByTypeAndPayload(ctx, jobType, uniqueKey, fmt.Sprintf("%v", uniqueValue))
	if err == nil && existingJob != nil && !existingJob.IsTerminal() {
		s.log.WithFields(logrus.Fields{
			"job_id":   existingJob.ID,
			"job_type": jobType,
			"status":   existingJob.Status,
		}).Debugf("Job already exists for %s=%v", uniqueKey, uniqueValue)
		return existingJob, nil
	}

	return s.EnqueueJob(ctx, jobType, payload, opts...)
}

func (s *service) GetJob(ctx context.Context, jobID uint) (*models.Job, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("getting job: %w", err)
	}
	return job, nil
}

func (s *service) ListJobs(ctx context.Context, status models.JobStatus, limit int) ([]*models.Job, error) {
	jobs, err := s.repo.GetJobsByStatus(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, nil
}

func (s *service) ClaimNextJob(ctx context.Context, workerID string, jobTypes []models.JobType) (*models.Job, error) {
	job, err := s.repo.ClaimNextJob(ctx, workerID, jobTypes)
	if err != nil {
		if errors.Is(err, ErrNoJobsAvailable) || errors.Is(err, ErrJobAlreadyClaimed) {
			return nil, ErrNoJobsAvailable
		}
		return nil, fmt.Errorf("claiming job: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"worker_id": workerID,
		"job_id":    job.ID,
		"job_type":  job.Type,
		"attempt":   job.RetryCount + 1,
	}).Debug("Claimed job")

	return job, nil
}

func (s *service) UpdateProgress(ctx context.Context, jobID uint, progress int) error {
	if err := s.repo.UpdateJobProgress(ctx, jobID, progress); err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return err
		}
		return fmt.Errorf("updating job progress: %w", err)
	}
	return nil
}

func (s *service) CompleteJob(ctx context.Context, jobID uint, result models.JobResult) error {
	if err := s.repo.CompleteJob(ctx, jobID, result); err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return err
		}
		return fmt.Errorf("completing job: %w", err)
	}

	s.log.WithField("job_id", jobID).Debug("Job completed")
	return nil
}

// FailJob records a failed attempt and returns the job's new state. A
// *models.StructuredJobError in the chain decides classification and
// whether the queue may try again.
func (s *service) FailJob(ctx context.Context, jobID uint, err error) (*models.Job, error) {
	details := FailureDetails{
		Type:    models.ErrorTypeSystem,
		Message: err.Error(),
	}
	var jobErr *models.StructuredJobError
	if errors.As(err, &jobErr) {
		details.Type = jobErr.Type
		details.Code = jobErr.Code
		details.Permanent = jobErr.Permanent
	}

	job, failErr := s.repo.FailJobWithDetails(ctx, jobID, details)
	if failErr != nil {
		if errors.Is(failErr, ErrJobNotFound) || errors.Is(failErr, ErrJobAlreadyClaimed) {
			return job, failErr
		}
		return nil, fmt.Errorf("failing job: %w", failErr)
	}

	entry := s.log.WithFields(logrus.Fields{
		"job_id":     jobID,
		"job_type":   job.Type,
		"error_type": details.Type,
		"error_code": details.Code,
	})
	if job.Status == models.JobStatusPermanentlyFailed {
		entry.Errorf("Job failed permanently: %s", details.Message)
	} else {
		entry.Warnf("Job failed (attempt %d/%d): %s", job.RetryCount, job.MaxRetries, details.Message)
	}

	return job, nil
}

func (s *service) ReleaseJob(ctx context.Context, jobID uint) error {
	if err := s.repo.ReleaseJob(ctx, jobID); err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return err
		}
		return fmt.Errorf("releasing job: %w", err)
	}

	s.log.WithField("job_id", jobID).Debug("Job released back to pending")
	return nil
}

// ReleaseStaleJobs fails every attempt that has been processing longer than
// olderThan, which covers workers that died mid-job. Jobs that run out of
// attempts this way are returned so callers can settle their targets.
func (s *service) ReleaseStaleJobs(ctx context.Context, olderThan time.Duration) ([]*models.Job, error) {
	stale, err := s.repo.GetStaleJobs(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return nil, err
	}

	var exhausted []*models.Job
	for _, candidate := range stale {
		job, err := s.repo.FailJobWithDetails(ctx, candidate.ID, FailureDetails{
			Type:    models.ErrorTypeSystem,
			Code:    "STALE_JOB",
			Message: fmt.Sprintf("job exceeded %s without finishing", olderThan),
		})
		if err != nil {
			if errors.Is(err, ErrJobAlreadyClaimed) || errors.Is(err, ErrJobNotFound) {
				continue
			}
			return exhausted, fmt.Errorf("releasing stale job %d: %w", candidate.ID, err)
		}
		s.log.WithFields(logrus.Fields{
			"job_id":    job.ID,
			"job_type":  job.Type,
			"worker_id": candidate.WorkerID,
		}).Warn("Released stale job")
		if job.Status == models.JobStatusPermanentlyFailed {
			exhausted = append(exhausted, job)
		}
	}

	return exhausted, nil
}

func (s *service) CleanupOldJobs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive")
	}

	cutoffTime := time.Now().AddDate(0, 0, -retentionDays)

	deleted, err := s.repo.DeleteOldJobs(ctx, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("cleaning up old jobs: %w", err)
	}

	if deleted > 0 {
		s.log.Infof("Deleted %d old jobs (older than %d days)", deleted, retentionDays)
	}

	return deleted, nil
}
