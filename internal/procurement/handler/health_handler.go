package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/uthejd-slx/procura-backend/internal/shared/metrics"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db      *gorm.DB
	rdb     *redis.Client
	version string
}

func NewHealthHandler(db *gorm.DB, rdb *redis.Client, version string) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb, version: version}
}

// Live GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		checks["database"] = err.Error()
		ready = false
	} else {
		checks["database"] = "ok"
	}

	if h.rdb == nil {
		checks["redis"] = "disabled"
	} else if err := h.rdb.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		ready = false
	} else {
		checks["redis"] = "ok"
	}

	status := http.StatusOK
	state := "ok"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "unavailable"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

// Version GET /version
func (h *HealthHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": h.version})
}

// Metrics GET /metrics
func (h *HealthHandler) Metrics(c *gin.Context) {
	metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
