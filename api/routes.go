package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/killallgit/meeting-recorder/api/analysis"
	authHandlers "github.com/killallgit/meeting-recorder/api/auth"
	"github.com/killallgit/meeting-recorder/api/health"
	"github.com/killallgit/meeting-recorder/api/jobs"
	"github.com/killallgit/meeting-recorder/api/livekit"
	"github.com/killallgit/meeting-recorder/api/recordings"
	"github.com/killallgit/meeting-recorder/api/types"
	"github.com/killallgit/meeting-recorder/api/version"
	_ "github.com/killallgit/meeting-recorder/docs/swagger"
	"github.com/killallgit/meeting-recorder/pkg/config"
)

// Rate limit scopes looked up in rate_limiting.endpoints
const (
	ScopeWebhook  = "webhook"
	ScopeAnalysis = "analysis"
	ScopeDefault  = "default"
)

// RegisterRoutes registers all API routes
func RegisterRoutes(engine *gin.Engine, deps *types.Dependencies, limits config.RateLimitConfig, rateLimiters *sync.Map, cleanupStop chan struct{}, cleanupInitialized *sync.Once) error {
	limit := func(scope string) []gin.HandlerFunc {
		if !limits.Enabled {
			return nil
		}
		rps := limits.Endpoints[scope]
		if rps <= 0 {
			rps = limits.Endpoints[ScopeDefault]
		}
		if rps <= 0 {
			return nil
		}
		return []gin.HandlerFunc{PerClientRateLimit(rateLimiters, cleanupStop, cleanupInitialized, scope, rps, rps*2)}
	}

	// Public routes
	health.RegisterRoutes(engine, deps)
	version.RegisterRoutes(engine, deps)

	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
	engine.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Media server webhooks authenticate with their own signature
	if deps.WebhookVerifier != nil && deps.WebhookRouter != nil {
		livekit.RegisterRoutes(engine, deps, limit(ScopeWebhook)...)
	}

	if deps.AuthService != nil {
		authHandler := authHandlers.NewHandler(deps.AuthService)

		v1 := engine.Group("/api/v1")
		v1.Use(authHandler.AuthMiddleware())
		v1.GET("/me", authHandler.Me)

		if deps.RecordingService != nil {
			group := v1.Group("")
			group.Use(limit(ScopeDefault)...)
			recordings.RegisterRoutes(group, deps)
		}

		if deps.AnalysisService != nil {
			group := v1.Group("")
			group.Use(limit(ScopeAnalysis)...)
			analysis.RegisterRoutes(group, deps)
		}

		if deps.JobService != nil {
			group := v1.Group("")
			group.Use(limit(ScopeDefault)...)
			jobs.RegisterRoutes(group, deps)
		}
	}

	engine.NoRoute(NotFoundHandler())
	return nil
}

// NotFoundHandler handles 404 errors
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, types.ErrorResponse{
			Error:   "The requested endpoint was not found",
			Code:    "NOT_FOUND",
			Details: map[string]interface{}{"path": c.Request.URL.Path},
		})
	}
}
