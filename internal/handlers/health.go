package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CachePinger reports whether the optional seat-usage cache is reachable.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service liveness and readiness
type HealthHandler struct {
	db    *gorm.DB
	cache CachePinger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// SetCache wires the optional seat-usage cache into the readiness probe
func (h *HealthHandler) SetCache(cache CachePinger) {
	h.cache = cache
}

// Health is the liveness probe
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "license-service",
	})
}

// Ready is the readiness probe; it fails when the database is unreachable.
// The cache is optional, so its state is reported but never fails the probe.
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unreachable",
		})
		return
	}

	resp := gin.H{"status": "ready"}
	if status := h.cacheStatus(c.Request.Context()); status != "" {
		resp["cache"] = status
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) cacheStatus(ctx context.Context) string {
	if h.cache == nil {
		return ""
	}
	if err := h.cache.Ping(ctx); err != nil {
		return "unavailable"
	}
	return "ok"
}
