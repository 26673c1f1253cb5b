package types

import (
	"context"

	"github.com/killallgit/speech-coach/internal/database"
	"github.com/killallgit/speech-coach/internal/models"
	"github.com/killallgit/speech-coach/internal/services/exemplars"
	"github.com/killallgit/speech-coach/internal/services/jobs"
	"github.com/killallgit/speech-coach/internal/services/pipeline"
	"github.com/killallgit/speech-coach/internal/services/recordings"
	"github.com/killallgit/speech-coach/internal/services/workers"
)

// RecordingService is the part of the stage scheduler the handlers use
type RecordingService interface {
	CreateRecording(ctx context.Context, req pipeline.CreateRequest) (*models.Recording, error)
	GetStatus(ctx context.Context, id string) (*pipeline.Status, error)
	GetAnalysis(ctx context.Context, id string, limit int) (*pipeline.Analysis, error)
	Retry(ctx context.Context, id string) (*pipeline.Status, error)
	ListRecordings(ctx context.Context, opts recordings.ListOptions) ([]models.Recording, int64, error)
}

// BuildInfo identifies the running binary
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
}

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB               *database.DB
	RecordingService RecordingService
	ExemplarService  exemplars.Service
	JobService       jobs.Service
	WorkerPool       *workers.WorkerPool
	Build            BuildInfo
}
