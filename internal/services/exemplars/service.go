package exemplars

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/killallgit/speech-coach/internal/models"
	"github.com/killallgit/speech-coach/internal/services/cache"
	"github.com/killallgit/speech-coach/internal/services/embedding"
	"github.com/killallgit/speech-coach/internal/services/jobs"
	apperrors "github.com/killallgit/speech-coach/pkg/errors"
	"github.com/killallgit/speech-coach/pkg/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const searchableCacheKey = "exemplars:searchable"

// CreateRequest describes a new exemplar. When Embedding is set the
// exemplar is stored completed and no embedding job is queued.
type CreateRequest struct {
	SpeakerName   string     `json:"speaker_name" yaml:"speaker_name"`
	Title         string     `json:"title" yaml:"title"`
	Occasion      string     `json:"occasion,omitempty" yaml:"occasion"`
	Category      string     `json:"category,omitempty" yaml:"category"`
	DateDelivered *time.Time `json:"date_delivered,omitempty" yaml:"-"`
	AudioRef      string     `json:"audio_ref" yaml:"audio_ref"`
	Transcript    string     `json:"transcript,omitempty" yaml:"transcript"`
	Embedding     []float32  `json:"embedding,omitempty" yaml:"embedding"`
}

// Service manages the exemplar corpus
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*models.Exemplar, error)
	Get(ctx context.Context, id string) (*models.Exemplar, error)
	List(ctx context.Context, opts ListOptions) ([]models.Exemplar, int64, error)
	ListSearchable(ctx context.Context) ([]models.Exemplar, error)
	ProcessEmbedding(ctx context.Context, id string) error
	AbandonEmbedding(ctx context.Context, id, reason string) error
	ImportManifest(ctx context.Context, r io.Reader) (*ImportResult, error)
}

type service struct {
	repo     Repository
	jobs     jobs.Service
	embedder embedding.Embedder
	cache    cache.Cache
	cacheTTL time.Duration
	log      *logrus.Entry
}

// NewService wires the exemplar service. cache may be nil to disable the
// searchable snapshot.
func NewService(repo Repository, jobService jobs.Service, embedder embedding.Embedder, c cache.Cache, cacheTTL time.Duration) Service {
	return &service{
		repo:     repo,
		jobs:     jobService,
		embedder: embedder,
		cache:    c,
		cacheTTL: cacheTTL,
		log:      logger.WithComponent("exemplars"),
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*models.Exemplar, error) {
	if strings.TrimSpace(req.SpeakerName) == "" {
		return nil, apperrors.MissingFieldError("speaker_name")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.MissingFieldError("title")
	}
	if strings.TrimSpace(req.AudioRef) == "" {
		return nil, apperrors.MissingFieldError("audio_ref")
	}

	ex := &models.Exemplar{
		ID:            uuid.New().String(),
		SpeakerName:   strings.TrimSpace(req.SpeakerName),
		Title:         strings.TrimSpace(req.Title),
		Occasion:      req.Occasion,
		Category:      req.Category,
		DateDelivered: req.DateDelivered,
		AudioRef:      req.AudioRef,
		Transcript:    req.Transcript,
		Stage:         models.StagePending,
	}

	if len(req.Embedding) > 0 {
		raw, err := models.EncodeJSON(req.Embedding)
		if err != nil {
			return nil, apperrors.ValidationError("embedding", err.Error())
		}
		ex.Embedding = raw
		ex.Stage = models.StageCompleted
	}

	if err := s.repo.Create(ctx, ex); err != nil {
		return nil, apperrors.DatabaseError("create exemplar", err)
	}

	if ex.Stage == models.StageCompleted {
		s.invalidate(ctx)
		return ex, nil
	}

	if err := s.dispatch(ctx, ex.ID); err != nil {
		return nil, err
	}
	return ex, nil
}

func (s *service) dispatch(ctx context.Context, id string) error {
	claimed, err := s.repo.ClaimEmbedding(ctx, id)
	if err != nil {
		return apperrors.DatabaseError("claim exemplar embedding", err)
	}
	if !claimed {
		return nil
	}
	_, err = s.jobs.EnqueueUniqueJob(ctx, models.JobTypeExemplarEmbedding,
		models.JobPayload{models.PayloadExemplarID: id}, models.PayloadExemplarID,
		jobs.WithCreatedBy("exemplars"))
	if err != nil {
		return apperrors.DatabaseError("enqueue exemplar embedding", err)
	}
	return nil
}

func (s *service) Get(ctx context.Context, id string) (*models.Exemplar, error) {
	ex, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrExemplarNotFound) {
			return nil, apperrors.NotFound("exemplar", id)
		}
		return nil, apperrors.DatabaseError("get exemplar", err)
	}
	return ex, nil
}

func (s *service) List(ctx context.Context, opts ListOptions) ([]models.Exemplar, int64, error) {
	list, total, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, 0, apperrors.DatabaseError("list exemplars", err)
	}
	return list, total, nil
}

// snapshotEntry carries the embedding explicitly because Exemplar hides it
// from JSON.
type snapshotEntry struct {
	Exemplar  models.Exemplar `json:"exemplar"`
	Embedding json.RawMessage `json:"embedding"`
}

// ListSearchable returns the similarity corpus, served from the cache
// while the snapshot is fresh.
func (s *service) ListSearchable(ctx context.Context) ([]models.Exemplar, error) {
	if s.cache != nil {
		var snap []snapshotEntry
		if cache.GetJSON(ctx, s.cache, searchableCacheKey, &snap) {
			out := make([]models.Exemplar, len(snap))
			for i, e := range snap {
				out[i] = e.Exemplar
				out[i].Embedding = datatypes.JSON(e.Embedding)
			}
			return out, nil
		}
	}

	list, err := s.repo.ListSearchable(ctx)
	if err != nil {
		return nil, apperrors.DatabaseError("list searchable exemplars", err)
	}

	if s.cache != nil {
		snap := make([]snapshotEntry, len(list))
		for i, ex := range list {
			snap[i] = snapshotEntry{Exemplar: ex, Embedding: json.RawMessage(ex.Embedding)}
		}
		if err := cache.SetJSON(ctx, s.cache, searchableCacheKey, snap, s.cacheTTL); err != nil {
			s.log.WithError(err).Warn("Failed to cache exemplar snapshot")
		}
	}
	return list, nil
}

// persistTimeout bounds the writes that follow an embedder call
const persistTimeout = 15 * time.Second

// ProcessEmbedding embeds a pending exemplar. It is a no-op for exemplars
// that are already completed or failed. Adapter errors fail the exemplar
// and are returned as permanent job errors.
func (s *service) ProcessEmbedding(ctx context.Context, id string) error {
	ex, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrExemplarNotFound) {
			return models.NewPermanentError(models.ErrorTypeNotFound, "EXEMPLAR_NOT_FOUND", err.Error(), err)
		}
		return models.NewSystemError("DATABASE_ERROR", "loading exemplar", err)
	}
	if ex.Stage != models.StagePending {
		return nil
	}

	log := s.log.WithField("exemplar_id", id)

	vec, err := s.embedder.Embed(ctx, ex.AudioRef)
	// The outcome is stored even when the embedder used up the job deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err != nil {
		appErr := apperrors.AdapterFailure("embedding", err)
		if _, markErr := s.repo.MarkFailed(ctx, id, apperrors.UserMessage(appErr)); markErr != nil {
			return models.NewSystemError("DATABASE_ERROR", "failing exemplar", markErr)
		}
		log.WithError(err).Warn("Exemplar embedding failed")
		return models.NewPermanentError(models.ErrorTypeAdapter, string(apperrors.ErrCodeAdapterFailure), appErr.Error(), err)
	}

	raw, err := models.EncodeJSON(vec)
	if err != nil {
		return models.NewSystemError("ENCODING_ERROR", "encoding embedding", err)
	}
	ok, err := s.repo.CompleteEmbedding(ctx, id, raw)
	if err != nil {
		return models.NewSystemError("DATABASE_ERROR", "saving exemplar embedding", err)
	}
	if ok {
		s.invalidate(ctx)
		log.WithField("dimension", len(vec)).Info("Exemplar completed")
	}
	return nil
}

// AbandonEmbedding fails a pending exemplar whose embedding job was given up.
func (s *service) AbandonEmbedding(ctx context.Context, id, reason string) error {
	msg := "embedding did not complete"
	if reason != "" {
		msg += ": " + reason
	}
	failed, err := s.repo.MarkFailed(ctx, id, msg)
	if err != nil {
		return err
	}
	if failed {
		s.log.WithField("exemplar_id", id).Warn("Exemplar failed after job was abandoned")
	}
	return nil
}

func (s *service) invalidate(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, searchableCacheKey)
	}
}
