package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fabio1shot/card-price-extractor/internal/config"
	"github.com/fabio1shot/card-price-extractor/internal/handler"
	"github.com/fabio1shot/card-price-extractor/internal/middleware"
)

// RegisterRoutes sets up all HTTP routes on the Gin engine.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps Deps, logger *zap.Logger) {
	healthHandler := handler.NewHealthHandler(deps.BatchRepo, logger)
	cardHandler := handler.NewCardHandler(deps.CardService, logger)
	batchHandler := handler.NewBatchHandler(deps.CardService, deps.BatchRepo, cfg.Batch.MaxUploadBytes, logger)
	adminHandler := handler.NewAdminHandler(deps.BatchRepo, deps.LookupRepo, logger)

	// Engine-level so preflight requests, which match no route, still get an answer.
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	r.GET("/healthz", healthHandler.Healthz)

	api := r.Group("/api/v1")

	authed := api.Group("")
	authed.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	authed.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	{
		authed.GET("/cards", cardHandler.Search)
		authed.GET("/cards/:id/image", cardHandler.Image)
		authed.GET("/sets", cardHandler.Sets)

		authed.POST("/batches", batchHandler.Create)
		authed.POST("/batches/upload", batchHandler.Upload)
		authed.POST("/batches/stream", batchHandler.Stream)
		authed.GET("/batches", batchHandler.List)
		authed.GET("/batches/:id", batchHandler.Get)
		authed.GET("/batches/:id/download", batchHandler.Download)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminKeyAuth(cfg.Auth.AdminKeys))
	{
		admin.GET("/stats", adminHandler.Stats)
	}
}
