package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go-markboard/internal/middleware"
	"go-markboard/internal/service"
	"go-markboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var statusByKind = map[service.ErrorKind]int{
	service.KindInvalidInput:    http.StatusBadRequest,
	service.KindInvalidState:    http.StatusBadRequest,
	service.KindUnauthenticated: http.StatusUnauthorized,
	service.KindAccessDenied:    http.StatusForbidden,
	service.KindForbidden:       http.StatusForbidden,
	service.KindNotFound:        http.StatusNotFound,
	service.KindConflict:        http.StatusConflict,
	service.KindOperationFailed: http.StatusInternalServerError,
}

// respondError 把业务错误映射为状态码，内部原因只写日志
func respondError(c *gin.Context, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		logger.L.Error("Unexpected handler error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	status, ok := statusByKind[se.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		logger.L.Error(se.Message, zap.String("path", c.FullPath()), zap.Error(se.Err))
	}
	c.JSON(status, gin.H{"error": se.Message})
}

// respond 把资源字段平铺在响应顶层，可附带 message
func respond(c *gin.Context, status int, body interface{}, message string) {
	fields := gin.H{}
	if body != nil {
		data, err := json.Marshal(body)
		if err == nil {
			err = json.Unmarshal(data, &fields)
		}
		if err != nil {
			logger.L.Error("Failed to build response", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
	}
	if message != "" {
		fields["message"] = message
	}
	c.JSON(status, fields)
}

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userIDValue, exists := c.Get(middleware.ContextUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	userID, ok := userIDValue.(uint)
	if !ok {
		logger.L.Error("Invalid userID type in context", zap.Any("userIDValue", userIDValue))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID in context"})
		return 0, false
	}
	return userID, true
}

func getIDFromParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " parameter"})
		return 0, false
	}
	return uint(id), true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		logger.L.Debug("Failed to bind request", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}
