package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fabio1shot/card-price-extractor/internal/model"
	"github.com/fabio1shot/card-price-extractor/internal/storage"
)

// AdminHandler handles administrative endpoints.
type AdminHandler struct {
	batchRepo  storage.BatchRepository
	lookupRepo storage.LookupRepository
	logger     *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(batchRepo storage.BatchRepository, lookupRepo storage.LookupRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		batchRepo:  batchRepo,
		lookupRepo: lookupRepo,
		logger:     logger,
	}
}

// Stats returns batch run and upstream lookup counters.
// Route: GET /api/v1/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	batches, err := h.batchStats(ctx)
	if err != nil {
		h.logger.Error("counting batches", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	lookups, err := h.lookupStats(ctx)
	if err != nil {
		h.logger.Error("counting lookups", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batches": batches,
		"lookups": lookups,
	})
}

func (h *AdminHandler) batchStats(ctx context.Context) (gin.H, error) {
	total, err := h.batchRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	stats := gin.H{"total": total}
	for _, status := range []model.RunStatus{model.RunSuccess, model.RunPartial, model.RunCancelled} {
		n, err := h.batchRepo.CountByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		stats[string(status)] = n
	}
	return stats, nil
}

func (h *AdminHandler) lookupStats(ctx context.Context) (gin.H, error) {
	total, err := h.lookupRepo.Count(ctx)
	if err != nil {
		return nil, err
	}

	stats := gin.H{"total": total}
	for _, outcome := range []model.LookupOutcome{model.OutcomeFound, model.OutcomeNotFound, model.OutcomeError} {
		n, err := h.lookupRepo.CountByOutcome(ctx, outcome)
		if err != nil {
			return nil, err
		}
		stats[string(outcome)] = n
	}
	return stats, nil
}
