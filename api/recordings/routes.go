package recordings

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/speech-coach/api/types"
)

// RegisterRoutes registers recording routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.POST("", Create(deps))
	router.GET("", List(deps))
	router.GET("/:id/status", GetStatus(deps))
	router.GET("/:id/analysis", GetAnalysis(deps))
	router.POST("/:id/retry", Retry(deps))
}
