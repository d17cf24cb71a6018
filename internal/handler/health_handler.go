// Package handler contains the gin HTTP handlers. Each handler struct groups
// the endpoints of one resource.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fabio1shot/card-price-extractor/internal/storage"
)

// HealthHandler reports liveness and whether batch history is reachable.
type HealthHandler struct {
	batchRepo storage.BatchRepository
	logger    *zap.Logger
}

func NewHealthHandler(batchRepo storage.BatchRepository, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{batchRepo: batchRepo, logger: logger}
}

// Healthz answers 200 when history storage responds, 503 otherwise.
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	storageStatus := "ok"
	code := http.StatusOK
	if _, err := h.batchRepo.Count(ctx); err != nil {
		h.logger.Error("health check: storage", zap.Error(err))
		storageStatus = "unavailable"
		code = http.StatusServiceUnavailable
	}

	status := "ok"
	if code != http.StatusOK {
		status = "degraded"
	}
	c.JSON(code, gin.H{
		"status":  status,
		"service": "card-price-extractor",
		"storage": storageStatus,
	})
}
