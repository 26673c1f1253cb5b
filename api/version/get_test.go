package version

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/speech-coach/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name         string
		build        types.BuildInfo
		path         string
		expectedBody map[string]interface{}
	}{
		{
			name:  "root reports build info",
			build: types.BuildInfo{Version: "1.2.0", GitCommit: "abc123", BuildTime: "2025-01-01T00:00:00Z"},
			path:  "/",
			expectedBody: map[string]interface{}{
				"name":       "Speech Coach API",
				"version":    "1.2.0",
				"git_commit": "abc123",
				"status":     "running",
			},
		},
		{
			name: "unset version is dev",
			path: "/version",
			expectedBody: map[string]interface{}{
				"version": "dev",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			RegisterRoutes(router, &types.Dependencies{Build: tt.build})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusOK, w.Code)

			var response map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			for key, expectedValue := range tt.expectedBody {
				assert.Equal(t, expectedValue, response[key], "Key: %s", key)
			}
		})
	}
}
