package recordings

import (
	"context"
	"errors"
	"fmt"

	"github.com/killallgit/speech-coach/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository errors
var (
	ErrRecordingNotFound = errors.New("recording not found")
	ErrNotRetryable      = errors.New("recording is not in a retryable stage")
)

// Adapter names an external stage that runs at most once at a time per recording.
type Adapter string

const (
	AdapterTranscription Adapter = "transcription"
	AdapterEmbedding     Adapter = "embedding"
)

// columns returns the in-flight flag and artifact column owned by the adapter.
func (a Adapter) columns() (flag, artifact string, err error) {
	switch a {
	case AdapterTranscription:
		return "transcription_in_flight", "transcript", nil
	case AdapterEmbedding:
		return "embedding_in_flight", "embedding", nil
	default:
		return "", "", fmt.Errorf("unknown adapter %q", a)
	}
}

// ListOptions filter and page List results.
type ListOptions struct {
	UserID string
	Stage  models.Stage
	Limit  int
	Offset int
}

// TranscriptUpdate is the transcription stage output.
type TranscriptUpdate struct {
	Transcript  datatypes.JSON
	Text        string
	DurationSec float64
}

// Repository persists recordings with field-scoped, generation-guarded writes.
// Every mutating method reports whether a row was changed; false means the
// write lost a race or targeted a stale generation and must be treated as a no-op.
type Repository interface {
	Create(ctx context.Context, rec *models.Recording) error
	Get(ctx context.Context, id string) (*models.Recording, error)
	List(ctx context.Context, opts ListOptions) ([]models.Recording, int64, error)
	ListCompleted(ctx context.Context, limit int) ([]models.Recording, error)

	ClaimDispatch(ctx context.Context, id string, generation int, adapter Adapter) (bool, error)
	SaveTranscript(ctx context.Context, id string, generation int, update TranscriptUpdate) (bool, error)
	SaveMetrics(ctx context.Context, id string, generation int, metrics datatypes.JSON) (bool, error)
	SaveEmbedding(ctx context.Context, id string, generation int, embedding datatypes.JSON) (bool, error)
	TryComplete(ctx context.Context, id string, generation int) (bool, error)
	MarkFailed(ctx context.Context, id string, generation int, adapter Adapter, message string) (bool, error)
	ResetForRetry(ctx context.Context, id string) (*models.Recording, error)
	SaveFeedback(ctx context.Context, id string, feedback datatypes.JSON) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new recording repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, rec *models.Recording) error {
	if rec.Generation == 0 {
		rec.Generation = 1
	}
	if rec.Stage == "" {
		rec.Stage = models.StagePending
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("creating recording: %w", err)
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id string) (*models.Recording, error) {
	var rec models.Recording
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordingNotFound
		}
		return nil, fmt.Errorf("getting recording: %w", err)
	}
	return &rec, nil
}

func (r *repository) List(ctx context.Context, opts ListOptions) ([]models.Recording, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Recording{})
	if opts.UserID != "" {
		query = query.Where("user_id = ?", opts.UserID)
	}
	if opts.Stage != "" {
		query = query.Where("stage = ?", opts.Stage)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting recordings: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var recs []models.Recording
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(opts.Offset).
		Find(&recs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing recordings: %w", err)
	}
	return recs, total, nil
}

func (r *repository) ListCompleted(ctx context.Context, limit int) ([]models.Recording, error) {
	query := r.db.WithContext(ctx).
		Where("stage = ?", models.StageCompleted).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var recs []models.Recording
	if err := query.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing completed recordings: %w", err)
	}
	return recs, nil
}

// scoped restricts a write to a live, non-completed row of the given generation.
func (r *repository) scoped(ctx context.Context, id string, generation int) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Recording{}).
		Where("id = ? AND generation = ?", id, generation).
		Where("stage <> ?", models.StageCompleted)
}

// ClaimDispatch atomically sets the adapter's in-flight flag when its artifact
// is missing and no call is outstanding. The first transcription claim moves
// pending to transcribing; an embedding-only claim moves pending to embedding.
func (r *repository) ClaimDispatch(ctx context.Context, id string, generation int, adapter Adapter) (bool, error) {
	flag, artifact, err := adapter.columns()
	if err != nil {
		return false, err
	}

	var stageExpr clause.Expr
	switch adapter {
	case AdapterTranscription:
		stageExpr = gorm.Expr("CASE WHEN stage = ? THEN ? ELSE stage END",
			models.StagePending, models.StageTranscribing)
	case AdapterEmbedding:
		stageExpr = gorm.Expr("CASE WHEN stage = ? AND transcript IS NOT NULL THEN ? ELSE stage END",
			models.StagePending, models.StageEmbedding)
	}

	res := r.scoped(ctx, id, generation).
		Where("stage <> ?", models.StageFailed).
		Where(flag+" = ?", false).
		Where(artifact + " IS NULL").
		Updates(map[string]interface{}{
			flag:    true,
			"stage": stageExpr,
		})
	if res.Error != nil {
		return false, fmt.Errorf("claiming %s dispatch: %w", adapter, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// SaveTranscript stores the transcript once per generation and moves the
// recording to analyzing. A failed recording keeps its stage so that a
// later retry only re-runs what is still missing.
func (r *repository) SaveTranscript(ctx context.Context, id string, generation int, update TranscriptUpdate) (bool, error) {
	res := r.scoped(ctx, id, generation).
		Where("transcript IS NULL").
		Updates(map[string]interface{}{
			"transcript":              update.Transcript,
			"transcript_text":         update.Text,
			"audio_duration_sec":      update.DurationSec,
			"transcription_in_flight": false,
			"stage": gorm.Expr("CASE WHEN stage = ? THEN stage ELSE ? END",
				models.StageFailed, models.StageAnalyzing),
		})
	if res.Error != nil {
		return false, fmt.Errorf("saving transcript: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// SaveMetrics stores metrics computed from an already-saved transcript. The
// stage becomes embedding while the embedding is still outstanding.
func (r *repository) SaveMetrics(ctx context.Context, id string, generation int, metrics datatypes.JSON) (bool, error) {
	res := r.scoped(ctx, id, generation).
		Where("transcript IS NOT NULL").
		Where("metrics IS NULL").
		Updates(map[string]interface{}{
			"metrics": metrics,
			"stage": gorm.Expr("CASE WHEN stage = ? THEN stage WHEN embedding IS NULL THEN ? ELSE ? END",
				models.StageFailed, models.StageEmbedding, models.StageAnalyzing),
		})
	if res.Error != nil {
		return false, fmt.Errorf("saving metrics: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// SaveEmbedding stores the embedding vector. The stage is left to the
// completion join.
func (r *repository) SaveEmbedding(ctx context.Context, id string, generation int, embedding datatypes.JSON) (bool, error) {
	res := r.scoped(ctx, id, generation).
		Where("embedding IS NULL").
		Updates(map[string]interface{}{
			"embedding":           embedding,
			"embedding_in_flight": false,
		})
	if res.Error != nil {
		return false, fmt.Errorf("saving embedding: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// TryComplete is the completion join. It transitions to completed only when
// transcript, metrics and embedding are all persisted, and marks feedback as
// requested in the same statement. Exactly one caller observes true.
func (r *repository) TryComplete(ctx context.Context, id string, generation int) (bool, error) {
	res := r.scoped(ctx, id, generation).
		Where("stage <> ?", models.StageFailed).
		Where("transcript IS NOT NULL AND metrics IS NOT NULL AND embedding IS NOT NULL").
		Updates(map[string]interface{}{
			"stage":              models.StageCompleted,
			"feedback_requested": true,
		})
	if res.Error != nil {
		return false, fmt.Errorf("completing recording: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// MarkFailed moves the recording to failed and clears the adapter's in-flight
// flag. When the recording already failed the first error message is kept.
func (r *repository) MarkFailed(ctx context.Context, id string, generation int, adapter Adapter, message string) (bool, error) {
	flag, _, err := adapter.columns()
	if err != nil {
		return false, err
	}

	res := r.scoped(ctx, id, generation).
		Updates(map[string]interface{}{
			flag: false,
			"error_message": gorm.Expr("CASE WHEN stage = ? THEN error_message ELSE ? END",
				models.StageFailed, message),
			"failed_stage": gorm.Expr("CASE WHEN stage = ? THEN failed_stage ELSE ? END",
				models.StageFailed, string(adapter)),
			"stage": models.StageFailed,
		})
	if res.Error != nil {
		return false, fmt.Errorf("marking recording failed: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ResetForRetry moves a failed recording back to pending, clears the error and
// in-flight flags, and bumps the generation so late results are discarded.
// Artifacts that already exist are kept.
func (r *repository) ResetForRetry(ctx context.Context, id string) (*models.Recording, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Recording{}).
		Where("id = ? AND stage = ?", id, models.StageFailed).
		Updates(map[string]interface{}{
			"stage":                   models.StagePending,
			"error_message":           "",
			"failed_stage":            "",
			"generation":              gorm.Expr("generation + 1"),
			"transcription_in_flight": false,
			"embedding_in_flight":     false,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("resetting recording: %w", res.Error)
	}

	rec, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return rec, ErrNotRetryable
	}
	return rec, nil
}

// SaveFeedback stores feedback once, only on a completed recording.
func (r *repository) SaveFeedback(ctx context.Context, id string, feedback datatypes.JSON) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Recording{}).
		Where("id = ? AND stage = ?", id, models.StageCompleted).
		Where("feedback IS NULL").
		Update("feedback", feedback)
	if res.Error != nil {
		return false, fmt.Errorf("saving feedback: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
