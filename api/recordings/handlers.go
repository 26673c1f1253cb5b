package recordings

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/speech-coach/api/types"
	"github.com/killallgit/speech-coach/internal/models"
	"github.com/killallgit/speech-coach/internal/services/pipeline"
	recordingstore "github.com/killallgit/speech-coach/internal/services/recordings"
)

// maxSimilarLimit caps the similar exemplars a client may ask for
const maxSimilarLimit = 50

// CreateRecordingRequest is the body of POST /api/v1/recordings
// @Description Audio to analyze. audio_ref is a local path or an http(s) URL.
type CreateRecordingRequest struct {
	AudioRef string `json:"audio_ref" binding:"required" example:"https://example.com/speech.wav"`
	Title    string `json:"title,omitempty" example:"Quarterly all-hands"`
	UserID   string `json:"user_id,omitempty" example:"user-42"`
}

// Create handles recording submission
// @Summary Submit a recording for analysis
// @Description Persists the recording and starts transcription and embedding in the background.
// @Description Poll the status endpoint to follow progress; adapter failures never fail this call.
// @Tags recordings
// @Accept json
// @Produce json
// @Param request body CreateRecordingRequest true "Recording to analyze"
// @Success 202 {object} types.RecordingAccepted "Recording accepted"
// @Failure 400 {object} types.ErrorResponse "Invalid request body"
// @Failure 500 {object} types.ErrorResponse "Internal server error"
// @Router /api/v1/recordings [post]
func Create(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateRecordingRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		rec, err := deps.RecordingService.CreateRecording(c.Request.Context(), pipeline.CreateRequest{
			AudioRef: req.AudioRef,
			Title:    req.Title,
			UserID:   req.UserID,
		})
		if err != nil {
			types.SendError(c, err)
			return
		}

		types.SendAccepted(c, types.RecordingAccepted{ID: rec.ID, Stage: rec.Stage})
	}
}

// List handles recording listing
// @Summary List recordings
// @Description Newest first. Filter by stage or owner.
// @Tags recordings
// @Produce json
// @Param stage query string false "Stage filter" Enums(pending, transcribing, analyzing, embedding, completed, failed)
// @Param user_id query string false "Owner filter"
// @Param limit query int false "Page size (max 100)" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} types.RecordingsResponse
// @Failure 400 {object} types.ErrorResponse "Invalid query parameters"
// @Router /api/v1/recordings [get]
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset, ok := types.ParsePagination(c)
		if !ok {
			return
		}

		stage := models.Stage(c.Query("stage"))
		if stage != "" && !stage.Valid() {
			types.SendBadRequest(c, "unknown stage "+strconv.Quote(string(stage)))
			return
		}

		recs, total, err := deps.RecordingService.ListRecordings(c.Request.Context(), recordingstore.ListOptions{
			UserID: c.Query("user_id"),
			Stage:  stage,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			types.SendError(c, err)
			return
		}
		if recs == nil {
			recs = []models.Recording{}
		}

		types.SendSuccess(c, types.RecordingsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Recordings:   recs,
			Count:        len(recs),
			Total:        total,
			Offset:       offset,
		})
	}
}

// GetStatus handles status polling
// @Summary Get recording status
// @Description Current stage, the first recorded error and which artifacts are stored.
// @Tags recordings
// @Produce json
// @Param id path string true "Recording ID"
// @Success 200 {object} pipeline.Status
// @Failure 404 {object} types.ErrorResponse "Recording not found"
// @Router /api/v1/recordings/{id}/status [get]
func GetStatus(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := deps.RecordingService.GetStatus(c.Request.Context(), c.Param("id"))
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, status)
	}
}

// GetAnalysis handles analysis retrieval
// @Summary Get recording analysis
// @Description Metrics, feedback and similar exemplars. Only id and stage are returned until the recording is completed.
// @Tags recordings
// @Produce json
// @Param id path string true "Recording ID"
// @Param limit query int false "Number of similar exemplars (max 50)"
// @Success 200 {object} pipeline.Analysis
// @Failure 400 {object} types.ErrorResponse "Invalid limit"
// @Failure 404 {object} types.ErrorResponse "Recording not found"
// @Router /api/v1/recordings/{id}/analysis [get]
func GetAnalysis(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 1 {
				types.SendBadRequest(c, "limit must be a positive integer")
				return
			}
			limit = min(v, maxSimilarLimit)
		}

		analysis, err := deps.RecordingService.GetAnalysis(c.Request.Context(), c.Param("id"), limit)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, analysis)
	}
}

// Retry handles retrying a failed recording
// @Summary Retry a failed recording
// @Description Resets a failed recording and re-runs only the stages whose output is missing.
// @Tags recordings
// @Produce json
// @Param id path string true "Recording ID"
// @Success 202 {object} pipeline.Status "Retry scheduled"
// @Failure 404 {object} types.ErrorResponse "Recording not found"
// @Failure 409 {object} types.ErrorResponse "Recording is not failed"
// @Router /api/v1/recordings/{id}/retry [post]
func Retry(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := deps.RecordingService.Retry(c.Request.Context(), c.Param("id"))
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendAccepted(c, status)
	}
}
