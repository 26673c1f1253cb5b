package cleanup

import (
	"context"
	"sync"
	"time"

	"github.com/killallgit/speech-coach/pkg/download"
	"github.com/killallgit/speech-coach/pkg/logger"
	"github.com/sirupsen/logrus"
)

// JobPruner deletes finished jobs older than the retention window
type JobPruner interface {
	CleanupOldJobs(ctx context.Context, retentionDays int) (int64, error)
}

// Options configure the cleanup service
type Options struct {
	TempDir  string
	MaxAge   time.Duration
	Interval time.Duration
	// JobRetentionDays enables job pruning when positive.
	JobRetentionDays int
}

// Service removes downloaded audio left behind by failed or killed jobs and
// prunes finished jobs.
type Service struct {
	opts   Options
	jobs   JobPruner
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *logrus.Entry
}

// NewService creates a new cleanup service. jobs may be nil.
func NewService(opts Options, jobs JobPruner) *Service {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	return &Service{
		opts: opts,
		jobs: jobs,
		log:  logger.WithComponent("cleanup"),
	}
}

// Start runs one pass immediately and then one per interval until Stop or
// ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.RunOnce(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx)
			case <-ctx.Done():
				s.log.Info("Cleanup service stopped")
				return
			}
		}
	}()

	s.log.WithFields(logrus.Fields{
		"interval": s.opts.Interval,
		"max_age":  s.opts.MaxAge,
	}).Info("Cleanup service started")
}

// Stop stops the cleanup service
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Result counts what one pass removed
type Result struct {
	TempFiles int
	Jobs      int64
}

// RunOnce performs a single cleanup pass
func (s *Service) RunOnce(ctx context.Context) Result {
	var res Result

	if s.opts.TempDir != "" && s.opts.MaxAge > 0 {
		removed, err := download.CleanupOldTempFiles(s.opts.TempDir, s.opts.MaxAge)
		if err != nil {
			s.log.WithError(err).Warn("Temp file cleanup failed")
		}
		res.TempFiles = removed
	}

	if s.jobs != nil && s.opts.JobRetentionDays > 0 {
		deleted, err := s.jobs.CleanupOldJobs(ctx, s.opts.JobRetentionDays)
		if err != nil {
			s.log.WithError(err).Warn("Job cleanup failed")
		}
		res.Jobs = deleted
	}

	if res.TempFiles > 0 || res.Jobs > 0 {
		s.log.WithFields(logrus.Fields{
			"temp_files": res.TempFiles,
			"jobs":       res.Jobs,
		}).Info("Cleanup pass finished")
	}
	return res
}
