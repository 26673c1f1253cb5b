package version

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/speech-coach/api/types"
)

// Get handles version requests
// @Summary Service version
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /version [get]
func Get(build types.BuildInfo) gin.HandlerFunc {
	if build.Version == "" {
		build.Version = "dev"
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":        "Speech Coach API",
			"version":     build.Version,
			"git_commit":  build.GitCommit,
			"build_time":  build.BuildTime,
			"description": "Speech analysis and coaching API",
			"status":      "running",
		})
	}
}
