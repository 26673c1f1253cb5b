package jobs

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/speech-coach/api/types"
)

// RegisterRoutes registers job queue inspection routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("", List(deps))
	router.GET("/:id", Get(deps))
}
