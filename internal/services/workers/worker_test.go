package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/killallgit/speech-coach/internal/models"
	"github.com/killallgit/speech-coach/internal/services/jobs"
	"github.com/killallgit/speech-coach/internal/services/recordings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupJobService(t *testing.T) jobs.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Job{}))
	return jobs.NewService(jobs.NewRepository(db), 3)
}

type funcProcessor struct {
	jobType   models.JobType
	fn        func(ctx context.Context, job *models.Job) error
	processed int32
	abandoned int32
}

func (p *funcProcessor) CanProcess(jobType models.JobType) bool { return jobType == p.jobType }

func (p *funcProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	atomic.AddInt32(&p.processed, 1)
	return p.fn(ctx, job)
}

func (p *funcProcessor) JobAbandoned(ctx context.Context, job *models.Job) error {
	atomic.AddInt32(&p.abandoned, 1)
	return nil
}

func jobStatus(t *testing.T, svc jobs.Service, id uint) models.JobStatus {
	t.Helper()
	job, err := svc.GetJob(context.Background(), id)
	require.NoError(t, err)
	return job.Status
}

func startPool(t *testing.T, svc jobs.Service, opts PoolOptions, processors ...JobProcessor) *WorkerPool {
	t.Helper()
	pool := NewWorkerPool(svc, opts)
	for _, p := range processors {
		pool.RegisterProcessor(p)
	}
	require.NoError(t, pool.Start(context.Background()))
	t.Cleanup(pool.Stop)
	return pool
}

func TestWorkerPool_ProcessesJobsOnce(t *testing.T) {
	svc := setupJobService(t)
	ctx := context.Background()

	var mu sync.Mutex
	seen := map[uint]int{}
	proc := &funcProcessor{jobType: models.JobTypeTranscription, fn: func(ctx context.Context, job *models.Job) error {
		mu.Lock()
		seen[job.ID]++
		mu.Unlock()
		return nil
	}}

	var ids []uint
	for i := 0; i < 6; i++ {
		job, err := svc.EnqueueJob(ctx, models.JobTypeTranscription, models.JobPayload{"n": i})
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	startPool(t, svc, PoolOptions{Workers: 3, PollInterval: 5 * time.Millisecond}, proc)

	assert.Eventually(t, func() bool {
		for _, id := range ids {
			if jobStatus(t, svc, id) != models.JobStatusCompleted {
				return false
			}
		}
		return true
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, id := range ids {
		assert.Equal(t, 1, seen[id], "job %d", id)
	}
}

func TestWorkerPool_RetriesThenAbandons(t *testing.T) {
	svc := setupJobService(t)
	proc := &funcProcessor{jobType: models.JobTypeEmbedding, fn: func(ctx context.Context, job *models.Job) error {
		return errors.New("database is locked")
	}}

	job, err := svc.EnqueueJob(context.Background(), models.JobTypeEmbedding, models.JobPayload{}, jobs.WithMaxRetries(2))
	require.NoError(t, err)

	startPool(t, svc, PoolOptions{Workers: 1, PollInterval: 5 * time.Millisecond}, proc)

	assert.Eventually(t, func() bool {
		return jobStatus(t, svc, job.ID) == models.JobStatusPermanentlyFailed
	}, 5*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&proc.abandoned) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&proc.processed))
}

func TestWorkerPool_PermanentErrorAbandonsImmediately(t *testing.T) {
	svc := setupJobService(t)
	proc := &funcProcessor{jobType: models.JobTypeTranscription, fn: func(ctx context.Context, job *models.Job) error {
		return models.NewPermanentError(models.ErrorTypeAdapter, "ADAPTER_FAILURE", "whisper rejected audio", nil)
	}}

	job, err := svc.EnqueueJob(context.Background(), models.JobTypeTranscription, models.JobPayload{})
	require.NoError(t, err)

	startPool(t, svc, PoolOptions{Workers: 1, PollInterval: 5 * time.Millisecond}, proc)

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&proc.abandoned) == 1
	}, 5*time.Second, 10*time.Millisecond)

	stored, err := svc.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPermanentlyFailed, stored.Status)
	assert.Equal(t, "ADAPTER_FAILURE", stored.ErrorCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&proc.processed))
}

func TestWorkerPool_JobTimeout(t *testing.T) {
	svc := setupJobService(t)
	proc := &funcProcessor{jobType: models.JobTypeFeedback, fn: func(ctx context.Context, job *models.Job) error {
		<-ctx.Done()
		return models.NewPermanentError(models.ErrorTypeAdapter, "TIMEOUT", ctx.Err().Error(), ctx.Err())
	}}

	job, err := svc.EnqueueJob(context.Background(), models.JobTypeFeedback, models.JobPayload{})
	require.NoError(t, err)

	startPool(t, svc, PoolOptions{Workers: 1, PollInterval: 5 * time.Millisecond, JobTimeout: 20 * time.Millisecond}, proc)

	assert.Eventually(t, func() bool {
		return jobStatus(t, svc, job.ID) == models.JobStatusPermanentlyFailed
	}, 5*time.Second, 10*time.Millisecond)

	stored, err := svc.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.Error, "deadline exceeded")
}

func TestWorkerPool_ReapStaleJobs(t *testing.T) {
	svc := setupJobService(t)
	ctx := context.Background()
	proc := &funcProcessor{jobType: models.JobTypeTranscription, fn: func(ctx context.Context, job *models.Job) error { return nil }}

	job, err := svc.EnqueueJob(ctx, models.JobTypeTranscription, models.JobPayload{}, jobs.WithMaxRetries(1))
	require.NoError(t, err)

	// A worker that claims the job and disappears.
	claimed, err := svc.ClaimNextJob(ctx, "dead-worker", []models.JobType{models.JobTypeTranscription})
	require.NoError(t, err)
	require.Equal(t, job.ID, claimed.ID)

	pool := NewWorkerPool(svc, PoolOptions{Workers: 1, StaleAfter: time.Millisecond})
	pool.RegisterProcessor(proc)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, 1, pool.ReapStaleJobs(ctx))
	assert.Equal(t, int32(1), atomic.LoadInt32(&proc.abandoned))
	assert.Equal(t, models.JobStatusPermanentlyFailed, jobStatus(t, svc, job.ID))

	// Nothing left to reap.
	assert.Equal(t, 0, pool.ReapStaleJobs(ctx))
}

func TestWorkerPool_StartTwice(t *testing.T) {
	svc := setupJobService(t)
	pool := startPool(t, svc, PoolOptions{Workers: 1, PollInterval: time.Second},
		&funcProcessor{jobType: models.JobTypeFeedback, fn: func(context.Context, *models.Job) error { return nil }})
	assert.True(t, pool.Running())
	assert.Equal(t, 1, pool.Size())
	assert.Error(t, pool.Start(context.Background()))

	pool.Stop()
	assert.False(t, pool.Running())
}

type recordingCall struct {
	method     string
	id         string
	generation int
	adapter    recordings.Adapter
	reason     string
}

type fakeRecordingHandler struct {
	calls []recordingCall
}

func (f *fakeRecordingHandler) HandleTranscription(ctx context.Context, id string, generation int) error {
	f.calls = append(f.calls, recordingCall{method: "transcription", id: id, generation: generation})
	return nil
}

func (f *fakeRecordingHandler) HandleEmbedding(ctx context.Context, id string, generation int) error {
	f.calls = append(f.calls, recordingCall{method: "embedding", id: id, generation: generation})
	return nil
}

func (f *fakeRecordingHandler) HandleFeedback(ctx context.Context, id string) error {
	f.calls = append(f.calls, recordingCall{method: "feedback", id: id})
	return nil
}

func (f *fakeRecordingHandler) HandleAbandoned(ctx context.Context, adapter recordings.Adapter, id string, generation int, reason string) error {
	f.calls = append(f.calls, recordingCall{method: "abandoned", id: id, generation: generation, adapter: adapter, reason: reason})
	return nil
}

type fakeExemplarHandler struct {
	processed []string
	abandoned []string
}

func (f *fakeExemplarHandler) ProcessEmbedding(ctx context.Context, id string) error {
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeExemplarHandler) AbandonEmbedding(ctx context.Context, id, reason string) error {
	f.abandoned = append(f.abandoned, id+":"+reason)
	return nil
}

func TestRecordingProcessors(t *testing.T) {
	handler := &fakeRecordingHandler{}
	ctx := context.Background()
	job := &models.Job{
		Type:    models.JobTypeTranscription,
		Payload: map[string]interface{}{models.PayloadRecordingID: "rec-1", models.PayloadGeneration: float64(2)},
		Error:   "stale",
	}

	transcription := NewTranscriptionProcessor(handler)
	embedding := NewEmbeddingProcessor(handler)
	feedback := NewFeedbackProcessor(handler)

	assert.True(t, transcription.CanProcess(models.JobTypeTranscription))
	assert.False(t, transcription.CanProcess(models.JobTypeEmbedding))
	assert.True(t, embedding.CanProcess(models.JobTypeEmbedding))
	assert.True(t, feedback.CanProcess(models.JobTypeFeedback))

	require.NoError(t, transcription.ProcessJob(ctx, job))
	require.NoError(t, embedding.ProcessJob(ctx, job))
	require.NoError(t, feedback.ProcessJob(ctx, job))
	require.NoError(t, transcription.JobAbandoned(ctx, job))
	require.NoError(t, embedding.JobAbandoned(ctx, job))

	assert.Equal(t, []recordingCall{
		{method: "transcription", id: "rec-1", generation: 2},
		{method: "embedding", id: "rec-1", generation: 2},
		{method: "feedback", id: "rec-1"},
		{method: "abandoned", id: "rec-1", generation: 2, adapter: recordings.AdapterTranscription, reason: "stale"},
		{method: "abandoned", id: "rec-1", generation: 2, adapter: recordings.AdapterEmbedding, reason: "stale"},
	}, handler.calls)

	_, isAbandoner := interface{}(feedback).(AbandonHandler)
	assert.False(t, isAbandoner)
}

func TestRecordingProcessors_InvalidPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
	}{
		{name: "missing id", payload: map[string]interface{}{models.PayloadGeneration: 1}},
		{name: "missing generation", payload: map[string]interface{}{models.PayloadRecordingID: "rec-1"}},
		{name: "empty id", payload: map[string]interface{}{models.PayloadRecordingID: "", models.PayloadGeneration: 1}},
	}

	proc := NewTranscriptionProcessor(&fakeRecordingHandler{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := proc.ProcessJob(context.Background(), &models.Job{Payload: tt.payload})
			var jobErr *models.StructuredJobError
			require.True(t, errors.As(err, &jobErr))
			assert.True(t, jobErr.Permanent)
			assert.Equal(t, "INVALID_PAYLOAD", jobErr.Code)
		})
	}
}

func TestExemplarEmbeddingProcessor(t *testing.T) {
	handler := &fakeExemplarHandler{}
	proc := NewExemplarEmbeddingProcessor(handler)
	ctx := context.Background()
	job := &models.Job{
		Type:    models.JobTypeExemplarEmbedding,
		Payload: map[string]interface{}{models.PayloadExemplarID: "ex-1"},
		Error:   "gave up",
	}

	assert.True(t, proc.CanProcess(models.JobTypeExemplarEmbedding))
	require.NoError(t, proc.ProcessJob(ctx, job))
	require.NoError(t, proc.JobAbandoned(ctx, job))
	assert.Equal(t, []string{"ex-1"}, handler.processed)
	assert.Equal(t, []string{"ex-1:gave up"}, handler.abandoned)

	err := proc.ProcessJob(ctx, &models.Job{})
	assert.Error(t, err)
}
