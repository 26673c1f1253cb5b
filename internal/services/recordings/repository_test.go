package recordings

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/killallgit/speech-coach/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Recording{}))
	return db
}

func newRecording(t *testing.T, repo Repository, id string) *models.Recording {
	t.Helper()
	rec := &models.Recording{ID: id, AudioRef: "/audio/" + id + ".wav", Title: "Practice"}
	require.NoError(t, repo.Create(context.Background(), rec))
	return rec
}

var (
	transcriptJSON = datatypes.JSON(`{"text":"um test","words":[{"text":"um","start":0,"end":0.3,"confidence":0.9}]}`)
	metricsJSON    = datatypes.JSON(`{"words_per_minute":12}`)
	embeddingJSON  = datatypes.JSON(`[1,0]`)
)

func TestCreateAndGet(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	rec := newRecording(t, repo, "rec-1")
	assert.Equal(t, models.StagePending, rec.Stage)
	assert.Equal(t, 1, rec.Generation)

	got, err := repo.Get(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "/audio/rec-1.wav", got.AudioRef)
	assert.False(t, got.HasTranscript())
	assert.False(t, got.HasEmbedding())

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrRecordingNotFound)
}

func TestCreate_RejectsInvalid(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	err := repo.Create(context.Background(), &models.Recording{ID: "x"})
	assert.Error(t, err)
}

func TestClaimDispatch(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	newRecording(t, repo, "rec-1")

	ok, err := repo.ClaimDispatch(ctx, "rec-1", 1, AdapterTranscription)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ClaimDispatch(ctx, "rec-1", 1, AdapterTranscription)
	require.NoError(t, err)
	assert.False(t, ok, "second claim while in flight must be refused")

	ok, err = repo.ClaimDispatch(ctx, "rec-1", 1, AdapterEmbedding)
	require.NoError(t, err)
	assert.True(t, ok, "adapters are guarded independently")

	rec, err := repo.Get(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageTranscribing, rec.Stage)
	assert.True(t, rec.TranscriptionInFlight)
	assert.True(t, rec.EmbeddingInFlight)

	ok, err = repo.ClaimDispatch(ctx, "rec-1", 2, AdapterTranscription)
	require.NoError(t, err)
	assert.False(t, ok, "stale generation")

	_, err = repo.ClaimDispatch(ctx, "rec-1", 1, Adapter("feedback"))
	assert.Error(t, err)
}

func TestClaimDispatch_Concurrent(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	newRecording(t, repo, "rec-1")

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.ClaimDispatch(context.Background(), "rec-1", 1, AdapterEmbedding)
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestSaveTranscriptAndMetrics_StageFlow(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	newRecording(t, repo, "rec-1")
	_, err := repo.ClaimDispatch(ctx, "rec-1", 1, AdapterTranscription)
	require.NoError(t, err)

	ok, err := repo.SaveTranscript(ctx, "rec-1", 1, TranscriptUpdate{Transcript: transcriptJSON, Text: "um test", DurationSec: 10})
	require.NoError(t, err)
	assert.True(t, ok)

	rec, _ := repo.Get(ctx, "rec-1")
	assert.Equal(t, models.StageAnalyzing, rec.Stage)
	assert.False(t, rec.TranscriptionInFlight)
	assert.Equal(t, 10.0, rec.AudioDurationSec)

	ok, err = repo.SaveTranscript(ctx, "rec-1", 1, TranscriptUpdate{Transcript: transcriptJSON})
	require.NoError(t, err)
	assert.False(t, ok, "transcript is written once")

	ok, err = repo.SaveMetrics(ctx, "rec-1", 1, metricsJSON)
	require.NoError(t, err)
	assert.True(t, ok)

	rec, _ = repo.Get(ctx, "rec-1")
	assert.Equal(t, models.StageEmbedding, rec.Stage, "waits for the embedding")
}

func TestSaveMetrics_RequiresTranscript(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	newRecording(t, repo, "rec-1")

	ok, err := repo.SaveMetrics(context.Background(), "rec-1", 1, metricsJSON)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTryComplete_BothOrderings(t *testing.T) {
	tests := []struct {
		name  string
		steps []string
	}{
		{name: "transcript first", steps: []string{"transcript", "embedding"}},
		{name: "embedding first", steps: []string{"embedding", "transcript"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewRepository(setupTestDB(t))
			ctx := context.Background()
			newRecording(t, repo, "rec-1")

			completions := 0
			for _, step := range tt.steps {
				switch step {
				case "transcript":
					_, err := repo.SaveTranscript(ctx, "rec-1", 1, TranscriptUpdate{Transcript: transcriptJSON})
					require.NoError(t, err)
					_, err = repo.SaveMetrics(ctx, "rec-1", 1, metricsJSON)
					require.NoError(t, err)
				case "embedding":
					_, err := repo.SaveEmbedding(ctx, "rec-1", 1, embeddingJSON)
					require.NoError(t, err)
				}
				ok, err := repo.TryComplete(ctx, "rec-1", 1)
				require.NoError(t, err)
				if ok {
					completions++
				}
			}

			assert.Equal(t, 1, completions)
			rec, err := repo.Get(ctx, "rec-1")
			require.NoError(t, err)
			assert.Equal(t, models.StageCompleted, rec.Stage)
			assert.True(t, rec.FeedbackRequested)
			assert.NoError(t, rec.Validate())
			assert.JSONEq(t, string(embeddingJSON), string(rec.Embedding))
			assert.JSONEq(t, string(metricsJSON), string(rec.Metrics))
		})
	}
}

func TestTryComplete_ConcurrentSingleWinner(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	newRecording(t, repo, "rec-1")
	_, _ = repo.SaveTranscript(ctx, "rec-1", 1, TranscriptUpdate{Transcript: transcriptJSON})
	_, _ = repo.SaveMetrics(ctx, "rec-1", 1, metricsJSON)
	_, _ = repo.SaveEmbedding(ctx, "rec-1", 1, embeddingJSON)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := repo.TryComplete(ctx, "rec-1", 1); err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestTryComplete_IncompleteOrFailed(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	newRecording(t, repo, "rec-1")
	_, _ = repo.SaveEmbedding(ctx, "rec-1", 1, embeddingJSON)

	ok, err := repo.TryComplete(ctx, "rec-1", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _ = repo.SaveTranscript(ctx, "rec-1", 1, TranscriptUpdate{Transcript: transcriptJSON})
	_, err = repo.MarkFailed(ctx, "rec-1", 1, AdapterTranscription, "boom")
	require.NoError(t, err)
	_, _ = repo.SaveMetrics(ctx, "rec-1", 1, metricsJSON)

	ok, err = repo.TryComplete(ctx, "rec-1", 1)
	require.NoError(t, err)
	assert.False(t, ok, "failed recordings never complete without retry")
}

func TestMarkFailed_KeepsFirstError(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	newRecording(t, repo, "rec-1")
	_, _ = repo.ClaimDispatch(ctx, "rec-1", 1, AdapterTranscription)
	_, _ = repo.ClaimDispatch(ctx, "rec-1", 1, AdapterEmbedding)

	ok, err := repo.MarkFailed(ctx, "rec-1", 1, AdapterEmbedding, "embedding service error: 503")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repo.MarkFailed(ctx, "rec-1", 1, AdapterTranscription, "No transcript generated")
	require.NoError(t, err)

	rec, _ := repo.Get(ctx, "rec-1")
	assert.Equal(t, models.StageFailed, rec.Stage)
	assert.Equal(t, "embedding service error: 503", rec.ErrorMessage)
	assert.Equal(t, "embedding", rec.FailedStage)
	assert.False(t, rec.TranscriptionInFlight)
	assert.False(t, rec.EmbeddingInFlight)
}

func TestResetForRetry(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	newRecording(t, repo, "rec-1")
	_, _ = repo.ClaimDispatch(ctx, "rec-1", 1, AdapterTranscription)
	_, _ = repo.ClaimDispatch(ctx, "rec-1", 1, AdapterEmbedding)
	_, _ = repo.SaveEmbedding(ctx, "rec-1", 1, embeddingJSON)
	_, _ = repo.MarkFailed(ctx, "rec-1", 1, AdapterTranscription, "No transcript generated")

	rec, err := repo.ResetForRetry(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, models.StagePending, rec.Stage)
	assert.Empty(t, rec.ErrorMessage)
	assert.Empty(t, rec.FailedStage)
	assert.Equal(t, 2, rec.Generation)
	assert.False(t, rec.TranscriptionInFlight)
	assert.True(t, rec.HasEmbedding(), "existing artifacts survive a retry")

	ok, err := repo.SaveTranscript(ctx, "rec-1", 1, TranscriptUpdate{Transcript: transcriptJSON})
	require.NoError(t, err)
	assert.False(t, ok, "late result from the previous generation is discarded")

	ok, err = repo.ClaimDispatch(ctx, "rec-1", 2, AdapterTranscription)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResetForRetry_NotFailed(t *testing.T) {
	stages := []models.Stage{models.StagePending, models.StageTranscribing, models.StageEmbedding}
	for _, stage := range stages {
		t.Run(string(stage), func(t *testing.T) {
			db := setupTestDB(t)
			repo := NewRepository(db)
			ctx := context.Background()
			newRecording(t, repo, "rec-1")
			require.NoError(t, db.Model(&models.Recording{}).Where("id = ?", "rec-1").Update("stage", stage).Error)
			before, _ := repo.Get(ctx, "rec-1")

			rec, err := repo.ResetForRetry(ctx, "rec-1")
			assert.ErrorIs(t, err, ErrNotRetryable)
			require.NotNil(t, rec)
			assert.Equal(t, stage, rec.Stage)
			assert.Equal(t, before.Generation, rec.Generation)
			assert.Equal(t, before.UpdatedAt, rec.UpdatedAt)
		})
	}

	repo := NewRepository(setupTestDB(t))
	_, err := repo.ResetForRetry(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRecordingNotFound)
}

func TestSaveFeedback_OnceAndOnlyWhenCompleted(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	newRecording(t, repo, "rec-1")
	fb := datatypes.JSON(`{"strengths":["a","b","c"]}`)

	ok, err := repo.SaveFeedback(ctx, "rec-1", fb)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _ = repo.SaveTranscript(ctx, "rec-1", 1, TranscriptUpdate{Transcript: transcriptJSON})
	_, _ = repo.SaveMetrics(ctx, "rec-1", 1, metricsJSON)
	_, _ = repo.SaveEmbedding(ctx, "rec-1", 1, embeddingJSON)
	_, _ = repo.TryComplete(ctx, "rec-1", 1)

	ok, err = repo.SaveFeedback(ctx, "rec-1", fb)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SaveFeedback(ctx, "rec-1", datatypes.JSON(`{"strengths":["x"]}`))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		rec := &models.Recording{ID: fmt.Sprintf("rec-%d", i), AudioRef: "a.wav", UserID: "u1"}
		if i%2 == 0 {
			rec.UserID = "u2"
		}
		require.NoError(t, repo.Create(ctx, rec))
	}

	all, total, err := repo.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, all, 5)

	u2, total, err := repo.List(ctx, ListOptions{UserID: "u2", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, u2, 2)

	pending, _, err := repo.List(ctx, ListOptions{Stage: models.StagePending})
	require.NoError(t, err)
	assert.Len(t, pending, 5)

	completed, err := repo.ListCompleted(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, completed)
}
