package api

import (
	"net/http"

	"go-markboard/internal/service"
	internalws "go-markboard/internal/websocket"
	"go-markboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler 管理端操作记录实时推送
type WSHandler struct {
	hub          *internalws.Hub
	adminService *service.AdminService
}

func NewWSHandler(hub *internalws.Hub, adminService *service.AdminService) *WSHandler {
	return &WSHandler{hub: hub, adminService: adminService}
}

func (h *WSHandler) ActivityStream(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.adminService.Authorize(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.L.Error("Failed to upgrade WebSocket connection", zap.Uint("userID", userID), zap.Error(err))
		return
	}
	logger.L.Info("WebSocket connection upgraded", zap.Uint("userID", userID))

	client := internalws.NewClient(h.hub, userID, conn)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
