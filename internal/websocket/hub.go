package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-markboard/internal/messaging"
	"go-markboard/internal/model"
	"go-markboard/pkg/config"
	"go-markboard/pkg/logger"

	"go.uber.org/zap"
)

var ErrHubFull = errors.New("hub broadcast channel is full")

// Hub 管理端操作记录实时推送。Run 是唯一修改连接集合的 goroutine。
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	broadcast  chan *model.ActivityLog
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	retryCount    int
	retryInterval time.Duration
	writeWait     time.Duration
	pongWait      time.Duration
}

func NewHub(wsConfig config.WebSocketConfig) *Hub {
	retryCount := wsConfig.MessageRetryCount
	if retryCount <= 0 {
		retryCount = 3
		logger.L.Warn("Invalid retryCount, using default", zap.Int("default", retryCount))
	}

	retryInterval := time.Duration(wsConfig.MessageRetryIntervalMs) * time.Millisecond
	if retryInterval <= 0 {
		retryInterval = 100 * time.Millisecond
		logger.L.Warn("Invalid retryInterval, using default", zap.Duration("default", retryInterval))
	}

	broadcastBufferSize := wsConfig.BroadcastBufferSize
	if broadcastBufferSize <= 0 {
		broadcastBufferSize = 256
		logger.L.Warn("Invalid BroadcastBufferSize, using default", zap.Int("default", broadcastBufferSize))
	}

	writeWait := time.Duration(wsConfig.WriteWaitSeconds) * time.Second
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}
	pongWait := time.Duration(wsConfig.PongWaitSeconds) * time.Second
	if pongWait <= 0 {
		pongWait = 60 * time.Second
	}

	return &Hub{
		clients:       make(map[*Client]struct{}),
		broadcast:     make(chan *model.ActivityLog, broadcastBufferSize),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		done:          make(chan struct{}),
		retryCount:    retryCount,
		retryInterval: retryInterval,
		writeWait:     writeWait,
		pongWait:      pongWait,
	}
}

func (h *Hub) Name() string {
	return "websocket"
}

// Publish 把记录放入广播队列，队列满时丢弃，不阻塞调用方
func (h *Hub) Publish(entry *model.ActivityLog) error {
	select {
	case h.broadcast <- entry:
		return nil
	default:
		logger.L.Warn("Hub broadcast channel full. Dropping activity.", zap.Uint("activityID", entry.ID))
		return ErrHubFull
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

func (h *Hub) trySendMessage(client *Client, data []byte) {
	select {
	case client.send <- data:
		// 发送成功
	default:
		for i := 0; i < h.retryCount; i++ {
			logger.L.Warn("Client send buffer full, retry attempt",
				zap.Uint("userID", client.UserID),
				zap.Int("attempt", i+1))
			timer := time.NewTimer(h.retryInterval)
			select {
			case client.send <- data:
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		// 所有重试失败 关闭连接
		logger.L.Error("Client send buffer still full after retries, closing connection",
			zap.Uint("userID", client.UserID),
			zap.Int("attempts", h.retryCount))
		h.removeClient(client)
	}
}

// Run 处理注册、注销和广播，ctx 结束时关闭所有连接
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for client := range h.clients {
			delete(h.clients, client)
			close(client.send)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			logger.L.Info("Activity feed client registered", zap.Uint("userID", client.UserID))

		case client := <-h.unregister:
			h.removeClient(client)
			logger.L.Info("Activity feed client unregistered", zap.Uint("userID", client.UserID))

		case entry := <-h.broadcast:
			data, err := messaging.EncodeActivity(entry)
			if err != nil {
				logger.L.Error("Failed to encode activity", zap.Error(err))
				continue
			}

			h.mu.RLock()
			targets := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				targets = append(targets, client)
			}
			h.mu.RUnlock()

			for _, client := range targets {
				h.trySendMessage(client, data)
			}
		}
	}
}
