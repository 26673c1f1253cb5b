package cmd

import (
	"fmt"

	"github.com/killallgit/speech-coach/internal/database"
	"github.com/killallgit/speech-coach/internal/models"
	"github.com/killallgit/speech-coach/internal/services/cache"
	"github.com/killallgit/speech-coach/internal/services/cleanup"
	"github.com/killallgit/speech-coach/internal/services/embedding"
	"github.com/killallgit/speech-coach/internal/services/exemplars"
	"github.com/killallgit/speech-coach/internal/services/feedback"
	"github.com/killallgit/speech-coach/internal/services/jobs"
	"github.com/killallgit/speech-coach/internal/services/pipeline"
	"github.com/killallgit/speech-coach/internal/services/recordings"
	"github.com/killallgit/speech-coach/internal/services/transcription"
	"github.com/killallgit/speech-coach/internal/services/workers"
	"github.com/killallgit/speech-coach/pkg/config"
	"github.com/killallgit/speech-coach/pkg/download"
	"github.com/killallgit/speech-coach/pkg/ffmpeg"
	"github.com/killallgit/speech-coach/pkg/logger"
)

// cacheSizeMB bounds the in-process exemplar snapshot cache
const cacheSizeMB = 64

// application holds every long-lived component of a running process
type application struct {
	db         *database.DB
	cache      *cache.MemoryCache
	recordings recordings.Repository
	jobs       jobs.Service
	exemplars  exemplars.Service
	scheduler  *pipeline.Scheduler
	pool       *workers.WorkerPool
	cleanup    *cleanup.Service
}

// openDatabase connects to the configured database and migrates the schema
func openDatabase(cfg config.DatabaseConfig) (*database.DB, error) {
	db, err := database.Initialize(cfg.Path, database.Options{
		Verbose:       cfg.Verbose,
		EnableWAL:     cfg.EnableWAL,
		BusyTimeoutMS: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return db, nil
}

// newApplication wires storage, adapters, the scheduler and the worker pool
func newApplication(cfg *config.Config) (*application, error) {
	db, err := openDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	dlOpts := download.DefaultOptions()
	if cfg.Storage.TempDir != "" {
		dlOpts.TempDir = cfg.Storage.TempDir
	}
	if cfg.Whisper.MaxFileSize > 0 {
		dlOpts.MaxSize = cfg.Whisper.MaxFileSize
	}
	downloader := download.NewDownloader(dlOpts)

	prober := ffmpeg.New(cfg.Processing.FFprobePath, cfg.Processing.FFprobeTimeout)
	if err := prober.ValidateBinaries(); err != nil {
		logger.WithComponent("app").WithError(err).Warn("ffprobe unavailable, durations fall back to word timings")
	}

	transcriber := transcription.NewWhisperClient(cfg.Whisper, downloader, prober)
	embedder := embedding.NewHTTPClient(cfg.Embedding, downloader)
	synthesizer := feedback.New(cfg.Feedback)

	memCache := cache.NewMemoryCache(cacheSizeMB, cfg.Similarity.CacheTTL)

	jobService := jobs.NewService(jobs.NewRepository(db.DB), cfg.Processing.MaxRetries)
	recordingRepo := recordings.NewRepository(db.DB)
	exemplarService := exemplars.NewService(exemplars.NewRepository(db.DB), jobService, embedder, memCache, cfg.Similarity.CacheTTL)

	scheduler := pipeline.NewScheduler(recordingRepo, jobService, transcriber, embedder, synthesizer, exemplarService, pipeline.Options{
		SimilarLimit:   cfg.Similarity.DefaultLimit,
		EnableFeedback: cfg.Features.EnableFeedback,
	})

	pool := workers.NewWorkerPool(jobService, workers.PoolOptions{
		Workers:      cfg.Processing.Workers,
		PollInterval: cfg.Processing.PollInterval,
		JobTimeout:   cfg.Processing.JobTimeout,
		StaleAfter:   cfg.Processing.StaleJobAfter,
	})
	pool.RegisterProcessor(workers.NewTranscriptionProcessor(scheduler))
	pool.RegisterProcessor(workers.NewEmbeddingProcessor(scheduler))
	pool.RegisterProcessor(workers.NewFeedbackProcessor(scheduler))
	pool.RegisterProcessor(workers.NewExemplarEmbeddingProcessor(exemplarService))

	cleaner := cleanup.NewService(cleanup.Options{
		TempDir:          dlOpts.TempDir,
		MaxAge:           cfg.Storage.MaxTempAge,
		Interval:         cfg.Storage.CleanupInterval,
		JobRetentionDays: cfg.Processing.JobRetention,
	}, jobService)

	return &application{
		db:         db,
		cache:      memCache,
		recordings: recordingRepo,
		jobs:       jobService,
		exemplars:  exemplarService,
		scheduler:  scheduler,
		pool:       pool,
		cleanup:    cleaner,
	}, nil
}

// Close stops background components and closes the database
func (a *application) Close() error {
	a.pool.Stop()
	a.cleanup.Stop()
	a.cache.Stop()
	return a.db.Close()
}
