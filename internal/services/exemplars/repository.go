package exemplars

import (
	"context"
	"errors"
	"fmt"

	"github.com/killallgit/speech-coach/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrExemplarNotFound is returned when no exemplar has the given id
var ErrExemplarNotFound = errors.New("exemplar not found")

// ListOptions filter and page List results
type ListOptions struct {
	Category string
	Stage    models.Stage
	Limit    int
	Offset   int
}

// Repository persists exemplars. Completed exemplars are never written again.
type Repository interface {
	Create(ctx context.Context, ex *models.Exemplar) error
	Get(ctx context.Context, id string) (*models.Exemplar, error)
	List(ctx context.Context, opts ListOptions) ([]models.Exemplar, int64, error)
	ListSearchable(ctx context.Context) ([]models.Exemplar, error)
	ClaimEmbedding(ctx context.Context, id string) (bool, error)
	CompleteEmbedding(ctx context.Context, id string, embedding datatypes.JSON) (bool, error)
	MarkFailed(ctx context.Context, id, message string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new exemplar repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, ex *models.Exemplar) error {
	if ex.Stage == "" {
		ex.Stage = models.StagePending
	}
	if err := ex.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(ex).Error; err != nil {
		return fmt.Errorf("creating exemplar: %w", err)
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id string) (*models.Exemplar, error) {
	var ex models.Exemplar
	if err := r.db.WithContext(ctx).First(&ex, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExemplarNotFound
		}
		return nil, fmt.Errorf("getting exemplar: %w", err)
	}
	return &ex, nil
}

func (r *repository) List(ctx context.Context, opts ListOptions) ([]models.Exemplar, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Exemplar{})
	if opts.Category != "" {
		query = query.Where("category = ?", opts.Category)
	}
	if opts.Stage != "" {
		query = query.Where("stage = ?", opts.Stage)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting exemplars: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var list []models.Exemplar
	if err := query.Order("created_at ASC, id ASC").Limit(limit).Offset(opts.Offset).Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("listing exemplars: %w", err)
	}
	return list, total, nil
}

// ListSearchable returns completed exemplars with an embedding in a stable
// order, which the similarity ranking relies on for ties.
func (r *repository) ListSearchable(ctx context.Context) ([]models.Exemplar, error) {
	var list []models.Exemplar
	err := r.db.WithContext(ctx).
		Where("stage = ? AND embedding IS NOT NULL", models.StageCompleted).
		Order("created_at ASC, id ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("listing searchable exemplars: %w", err)
	}
	return list, nil
}

// ClaimEmbedding sets the in-flight flag when no embedding call is outstanding
func (r *repository) ClaimEmbedding(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Exemplar{}).
		Where("id = ? AND stage = ? AND embedding_in_flight = ? AND embedding IS NULL",
			id, models.StagePending, false).
		Update("embedding_in_flight", true)
	if res.Error != nil {
		return false, fmt.Errorf("claiming exemplar embedding: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CompleteEmbedding(ctx context.Context, id string, embedding datatypes.JSON) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Exemplar{}).
		Where("id = ? AND stage = ?", id, models.StagePending).
		Updates(map[string]interface{}{
			"embedding":           embedding,
			"embedding_in_flight": false,
			"stage":               models.StageCompleted,
		})
	if res.Error != nil {
		return false, fmt.Errorf("completing exemplar: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) MarkFailed(ctx context.Context, id, message string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Exemplar{}).
		Where("id = ? AND stage = ?", id, models.StagePending).
		Updates(map[string]interface{}{
			"embedding_in_flight": false,
			"stage":               models.StageFailed,
			"error_message":       message,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failing exemplar: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
