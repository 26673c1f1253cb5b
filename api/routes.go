package api

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/killallgit/speech-coach/api/exemplars"
	"github.com/killallgit/speech-coach/api/health"
	"github.com/killallgit/speech-coach/api/jobs"
	"github.com/killallgit/speech-coach/api/recordings"
	"github.com/killallgit/speech-coach/api/types"
	"github.com/killallgit/speech-coach/api/version"
	_ "github.com/killallgit/speech-coach/docs/swagger"
)

// RouteOptions toggle optional route groups
type RouteOptions struct {
	EnableSwagger bool
	RateLimit     bool
	RPS           float64
	Burst         int
}

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once, opts RouteOptions) error {
	if deps == nil {
		return fmt.Errorf("handler dependencies are required")
	}

	// Register public routes (no rate limiting)
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	if opts.EnableSwagger {
		engine.GET("/docs", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
		})
		docsGroup := engine.Group("/docs")
		docsGroup.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Setup 404 handler
	engine.NoRoute(NotFoundHandler())

	v1 := engine.Group("/api/v1")
	if opts.RateLimit {
		rps, burst := opts.RPS, opts.Burst
		if rps <= 0 {
			rps = 10
		}
		if burst <= 0 {
			burst = 20
		}
		v1.Use(PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, rps, burst))
	}

	if deps.RecordingService != nil {
		recordings.RegisterRoutes(v1.Group("/recordings"), deps)
	}
	if deps.ExemplarService != nil {
		exemplars.RegisterRoutes(v1.Group("/exemplars"), deps)
	}
	if deps.JobService != nil {
		jobs.RegisterRoutes(v1.Group("/jobs"), deps)
	}

	return nil
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "error",
			"message": "The requested endpoint was not found",
			"path":    c.Request.URL.Path,
		})
	}
}
