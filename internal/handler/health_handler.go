package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chatbuddy/internal/cache"
)

// Version 服务版本，构建时可通过 -ldflags 覆盖
var Version = "1.0.0"

// HealthHandler 健康检查处理器
type HealthHandler struct {
	db    *gorm.DB
	store cache.Store
}

// NewHealthHandler 创建 HealthHandler 实例
func NewHealthHandler(db *gorm.DB, store cache.Store) *HealthHandler {
	return &HealthHandler{db: db, store: store}
}

// Health 健康检查
// 数据库或缓存不可用时返回 503
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok", "cache": "ok"}
	status := http.StatusOK

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if err := h.store.Ping(ctx); err != nil {
		checks["cache"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":  state,
		"version": Version,
		"checks":  checks,
	})
}
