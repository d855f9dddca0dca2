package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emifrog/speechtotalk/internal/services"
)

// CacheHandler exposes cache observability and maintenance.
type CacheHandler struct {
	orchestrator *services.Orchestrator
	worker       *services.OptimizeWorker
}

func NewCacheHandler(orchestrator *services.Orchestrator, worker *services.OptimizeWorker) *CacheHandler {
	return &CacheHandler{orchestrator: orchestrator, worker: worker}
}

// GetStats returns the cache snapshot
// GET /api/cache/stats
func (h *CacheHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.orchestrator.GetCacheStats())
}

// Clear empties the cache
// DELETE /api/cache
func (h *CacheHandler) Clear(c *gin.Context) {
	h.orchestrator.ClearCache()
	c.JSON(http.StatusOK, gin.H{"message": "cache cleared"})
}

type setLimitRequest struct {
	Limit int `json:"limit" binding:"required"`
}

// SetLimit adjusts the cache capacity
// PUT /api/cache/limit
func (h *CacheHandler) SetLimit(c *gin.Context) {
	var req setLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	applied := h.orchestrator.SetCacheLimit(req.Limit)
	stats := h.orchestrator.GetCacheStats()
	c.JSON(http.StatusOK, gin.H{
		"applied_exactly": applied,
		"total_entries":   stats.TotalEntries,
	})
}

// Optimize forces a storage-optimization pass
// POST /api/cache/optimize
func (h *CacheHandler) Optimize(c *gin.Context) {
	result := h.orchestrator.ForceStorageOptimization()
	if !result.Success {
		c.JSON(http.StatusInternalServerError, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// OptimizeStatus reports the background worker's last pass
// GET /api/cache/optimize/status
func (h *CacheHandler) OptimizeStatus(c *gin.Context) {
	if h.worker == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "optimize worker not running"})
		return
	}
	c.JSON(http.StatusOK, h.worker.Status())
}
