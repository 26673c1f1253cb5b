package exemplars

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/speech-coach/api/types"
)

// RegisterRoutes registers exemplar corpus routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("", List(deps))
	router.POST("", Create(deps))
	router.POST("/import", Import(deps))
	router.GET("/:id", Get(deps))
}
