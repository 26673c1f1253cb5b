package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/speech-coach/api/types"
)

// Get handles health check requests
// @Summary Service health
// @Description Reports database connectivity and worker pool state. Returns 503 when the database is unreachable.
// @Tags health
// @Produce json
// @Success 200 {object} types.HealthResponse
// @Failure 503 {object} types.HealthResponse
// @Router /health [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := types.HealthResponse{
			Status:    types.StatusOK,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Database:  gin.H{"status": "not configured"},
		}
		code := http.StatusOK

		if deps != nil && deps.DB != nil {
			response.Database = getDatabaseStatus(c, deps)
			if response.Database["status"] != "healthy" {
				response.Status = "unhealthy"
				code = http.StatusServiceUnavailable
			}
		}

		if deps != nil && deps.WorkerPool != nil {
			response.Workers = gin.H{
				"count":   deps.WorkerPool.Size(),
				"running": deps.WorkerPool.Running(),
			}
		}

		c.JSON(code, response)
	}
}

// getDatabaseStatus returns the database connection status
func getDatabaseStatus(c *gin.Context, deps *types.Dependencies) gin.H {
	if deps.DB == nil || deps.DB.DB == nil {
		return gin.H{"status": "not configured"}
	}

	if err := deps.DB.HealthCheck(c.Request.Context()); err != nil {
		return gin.H{"status": "unhealthy", "error": err.Error()}
	}

	return gin.H{"status": "healthy"}
}
