package service

import (
	"context"
	"sync"

	"go-markboard/internal/interfaces"
	"go-markboard/internal/model"
	"go-markboard/internal/repository"
	"go-markboard/pkg/logger"

	"go.uber.org/zap"
)

const (
	DefaultActivityLimit = 50
	MaxActivityLimit     = 1000
)

// ActivityService 记录只追加的操作日志。记录失败只写日志，不影响调用方。
type ActivityService struct {
	repo *repository.ActivityRepository

	mu    sync.RWMutex
	sinks []interfaces.ActivitySink
}

func NewActivityService(repo *repository.ActivityRepository, sinks ...interfaces.ActivitySink) *ActivityService {
	return &ActivityService{repo: repo, sinks: sinks}
}

// AddSink 注册额外的记录接收方，例如管理端实时推送
func (s *ActivityService) AddSink(sink interfaces.ActivitySink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

// Record 写入一条操作记录并分发给所有接收方
func (s *ActivityService) Record(ctx context.Context, userID uint, action, resourceType string, resourceID *uint, details string) {
	entry := &model.ActivityLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
	}

	// 操作已经生效，客户端断开不应丢失记录
	if err := s.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		logger.L.Error("Failed to record activity",
			zap.Uint("userID", userID),
			zap.String("action", action),
			zap.Error(err))
		return
	}

	s.mu.RLock()
	sinks := s.sinks
	s.mu.RUnlock()

	for _, sink := range sinks {
		if err := sink.Publish(entry); err != nil {
			logger.L.Warn("Failed to publish activity",
				zap.String("sink", sink.Name()),
				zap.Uint("activityID", entry.ID),
				zap.Error(err))
		}
	}
}

// ListRecent 最近的操作记录，limit 必须在 1 到 1000 之间
func (s *ActivityService) ListRecent(ctx context.Context, limit int) ([]repository.ActivityWithUser, error) {
	if limit < 1 || limit > MaxActivityLimit {
		return nil, invalidInput("Limit must be between 1 and 1000")
	}
	logs, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, operationFailed("Failed to load activity logs", err)
	}
	return logs, nil
}

func uintPtr(v uint) *uint {
	return &v
}
