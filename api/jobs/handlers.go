package jobs

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/speech-coach/api/types"
	"github.com/killallgit/speech-coach/internal/models"
	jobsvc "github.com/killallgit/speech-coach/internal/services/jobs"
	apperrors "github.com/killallgit/speech-coach/pkg/errors"
)

// JobsResponse for job lists
type JobsResponse struct {
	types.BaseResponse
	Jobs  []*models.Job `json:"jobs"`
	Count int           `json:"count"`
}

var validStatuses = map[models.JobStatus]bool{
	models.JobStatusPending:           true,
	models.JobStatusProcessing:        true,
	models.JobStatusCompleted:         true,
	models.JobStatusFailed:            true,
	models.JobStatusPermanentlyFailed: true,
}

// List handles job listing by status
// @Summary List background jobs
// @Tags jobs
// @Produce json
// @Param status query string false "Job status" Enums(pending, processing, completed, failed, permanently_failed) default(pending)
// @Param limit query int false "Page size (max 100)" default(20)
// @Success 200 {object} JobsResponse
// @Failure 400 {object} types.ErrorResponse "Invalid query parameters"
// @Router /api/v1/jobs [get]
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _, ok := types.ParsePagination(c)
		if !ok {
			return
		}

		status := models.JobStatus(c.DefaultQuery("status", string(models.JobStatusPending)))
		if !validStatuses[status] {
			types.SendBadRequest(c, "unknown job status "+strconv.Quote(string(status)))
			return
		}

		list, err := deps.JobService.ListJobs(c.Request.Context(), status, limit)
		if err != nil {
			types.SendError(c, apperrors.DatabaseError("list jobs", err))
			return
		}
		if list == nil {
			list = []*models.Job{}
		}

		types.SendSuccess(c, JobsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Jobs:         list,
			Count:        len(list),
		})
	}
}

// Get handles job retrieval
// @Summary Get a background job
// @Tags jobs
// @Produce json
// @Param id path int true "Job ID"
// @Success 200 {object} models.Job
// @Failure 400 {object} types.ErrorResponse "Invalid job ID"
// @Failure 404 {object} types.ErrorResponse "Job not found"
// @Router /api/v1/jobs/{id} [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			types.SendBadRequest(c, "Invalid job ID")
			return
		}

		job, err := deps.JobService.GetJob(c.Request.Context(), uint(id))
		if err != nil {
			if errors.Is(err, jobsvc.ErrJobNotFound) {
				types.SendError(c, apperrors.NotFound("job", id))
				return
			}
			types.SendError(c, apperrors.DatabaseError("get job", err))
			return
		}
		types.SendSuccess(c, job)
	}
}
