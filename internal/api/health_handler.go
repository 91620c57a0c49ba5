package api

import (
	"context"
	"net/http"
	"time"

	"go-markboard/internal/service"
	"go-markboard/pkg/db"
	"go-markboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db          *gorm.DB
	fileService *service.FileService
}

func NewHealthHandler(gdb *gorm.DB, fileService *service.FileService) *HealthHandler {
	return &HealthHandler{db: gdb, fileService: fileService}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code, database := "healthy", http.StatusOK, "connected"
	if err := db.Ping(ctx, h.db); err != nil {
		logger.L.Error("Health check failed", zap.Error(err))
		status, code, database = "unhealthy", http.StatusServiceUnavailable, "unreachable"
	}
	c.JSON(code, gin.H{
		"status":              status,
		"database":            database,
		"versioning_failures": h.fileService.VersioningFailures(),
	})
}
