package recordings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/speech-coach/api/types"
	"github.com/killallgit/speech-coach/internal/models"
	"github.com/killallgit/speech-coach/internal/services/pipeline"
	recordingstore "github.com/killallgit/speech-coach/internal/services/recordings"
	apperrors "github.com/killallgit/speech-coach/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecordingService struct {
	created   *pipeline.CreateRequest
	createErr error

	recordings []models.Recording
	listOpts   recordingstore.ListOptions

	status   map[string]*pipeline.Status
	analysis map[string]*pipeline.Analysis
	gotLimit int

	retryErr error
}

func (f *fakeRecordingService) CreateRecording(ctx context.Context, req pipeline.CreateRequest) (*models.Recording, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = &req
	return &models.Recording{ID: "rec-1", AudioRef: req.AudioRef, Stage: models.StagePending}, nil
}

func (f *fakeRecordingService) GetStatus(ctx context.Context, id string) (*pipeline.Status, error) {
	if s, ok := f.status[id]; ok {
		return s, nil
	}
	return nil, apperrors.NotFound("recording", id)
}

func (f *fakeRecordingService) GetAnalysis(ctx context.Context, id string, limit int) (*pipeline.Analysis, error) {
	f.gotLimit = limit
	if a, ok := f.analysis[id]; ok {
		return a, nil
	}
	return nil, apperrors.NotFound("recording", id)
}

func (f *fakeRecordingService) Retry(ctx context.Context, id string) (*pipeline.Status, error) {
	if f.retryErr != nil {
		return nil, f.retryErr
	}
	return &pipeline.Status{ID: id, Stage: models.StageTranscribing, Generation: 2}, nil
}

func (f *fakeRecordingService) ListRecordings(ctx context.Context, opts recordingstore.ListOptions) ([]models.Recording, int64, error) {
	f.listOpts = opts
	return f.recordings, int64(len(f.recordings)), nil
}

func setupRouter(svc *fakeRecordingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router.Group("/api/v1/recordings"), &types.Dependencies{RecordingService: svc})
	return router
}

func do(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		createErr      error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "accepted",
			body:           CreateRecordingRequest{AudioRef: "speech.wav", Title: "Toast"},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "missing audio_ref",
			body:           map[string]string{"title": "no audio"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION",
		},
		{
			name:           "store failure",
			body:           CreateRecordingRequest{AudioRef: "speech.wav"},
			createErr:      apperrors.DatabaseError("create recording", errors.New("disk full")),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "DATABASE_QUERY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeRecordingService{createErr: tt.createErr}
			w := do(setupRouter(svc), http.MethodPost, "/api/v1/recordings", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusAccepted {
				var resp types.RecordingAccepted
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "rec-1", resp.ID)
				assert.Equal(t, models.StagePending, resp.Stage)
				require.NotNil(t, svc.created)
				assert.Equal(t, "Toast", svc.created.Title)
				return
			}

			var resp types.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, types.StatusError, resp.Status)
			assert.Equal(t, tt.expectedCode, resp.Error)
		})
	}
}

func TestList(t *testing.T) {
	svc := &fakeRecordingService{recordings: []models.Recording{
		{ID: "a", Stage: models.StageCompleted},
		{ID: "b", Stage: models.StageCompleted},
	}}
	router := setupRouter(svc)

	t.Run("filters are passed through", func(t *testing.T) {
		w := do(router, http.MethodGet, "/api/v1/recordings?stage=completed&user_id=u1&limit=500&offset=2", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp types.RecordingsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Count)
		assert.Equal(t, int64(2), resp.Total)
		assert.Equal(t, recordingstore.ListOptions{UserID: "u1", Stage: models.StageCompleted, Limit: types.MaxPageSize, Offset: 2}, svc.listOpts)
	})

	badQueries := []string{"stage=done", "limit=0", "limit=abc", "offset=-1"}
	for _, q := range badQueries {
		t.Run("rejects "+q, func(t *testing.T) {
			w := do(router, http.MethodGet, "/api/v1/recordings?"+q, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetStatus(t *testing.T) {
	svc := &fakeRecordingService{status: map[string]*pipeline.Status{
		"rec-1": {ID: "rec-1", Stage: models.StageFailed, ErrorMessage: "No transcript generated", FailedStage: "transcription"},
	}}
	router := setupRouter(svc)

	w := do(router, http.MethodGet, "/api/v1/recordings/rec-1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status pipeline.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.StageFailed, status.Stage)
	assert.Equal(t, "No transcript generated", status.ErrorMessage)

	w = do(router, http.MethodGet, "/api/v1/recordings/missing/status", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp types.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_FOUND", resp.Error)
	assert.Equal(t, "recording not found", resp.Message)
}

func TestGetAnalysis(t *testing.T) {
	svc := &fakeRecordingService{analysis: map[string]*pipeline.Analysis{
		"rec-1": {
			ID:      "rec-1",
			Stage:   models.StageCompleted,
			Metrics: &models.Metrics{WordsPerMinute: 140, PacingAssessment: "appropriate"},
			SimilarExemplars: []pipeline.SimilarExemplar{
				{ID: "ex-1", SpeakerName: "Ada", Title: "On engines", Score: 0.9},
			},
		},
	}}
	router := setupRouter(svc)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedLimit  int
	}{
		{name: "default limit", query: "", expectedStatus: http.StatusOK, expectedLimit: 0},
		{name: "explicit limit", query: "?limit=3", expectedStatus: http.StatusOK, expectedLimit: 3},
		{name: "limit is capped", query: "?limit=1000", expectedStatus: http.StatusOK, expectedLimit: maxSimilarLimit},
		{name: "invalid limit", query: "?limit=-2", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc.gotLimit = -1
			w := do(router, http.MethodGet, "/api/v1/recordings/rec-1/analysis"+tt.query, nil)
			require.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			assert.Equal(t, tt.expectedLimit, svc.gotLimit)

			var analysis pipeline.Analysis
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analysis))
			require.NotNil(t, analysis.Metrics)
			assert.InDelta(t, 140.0, analysis.Metrics.WordsPerMinute, 1e-9)
			require.Len(t, analysis.SimilarExemplars, 1)
			assert.Equal(t, "ex-1", analysis.SimilarExemplars[0].ID)
		})
	}
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name           string
		retryErr       error
		expectedStatus int
		expectedCode   string
	}{
		{name: "failed recording is retried", expectedStatus: http.StatusAccepted},
		{
			name:           "not failed",
			retryErr:       apperrors.InvalidState("recording", "completed", "retry"),
			expectedStatus: http.StatusConflict,
			expectedCode:   "INVALID_STATE",
		},
		{
			name:           "unknown id",
			retryErr:       apperrors.NotFound("recording", "rec-1"),
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(setupRouter(&fakeRecordingService{retryErr: tt.retryErr}), http.MethodPost, "/api/v1/recordings/rec-1/retry", nil)
			require.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedCode == "" {
				var status pipeline.Status
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
				assert.Equal(t, 2, status.Generation)
				return
			}
			var resp types.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedCode, resp.Error)
		})
	}
}
