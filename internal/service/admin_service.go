package service

import (
	"context"
	"time"

	"go-markboard/internal/model"
	"go-markboard/internal/repository"
)

const (
	activeUserWindow     = 30 * 24 * time.Hour
	recentActivityWindow = 7 * 24 * time.Hour
)

// AdminService 管理员视图。每个方法首先确认调用者是管理员。
type AdminService struct {
	users    *repository.UserRepository
	files    *repository.FileRepository
	activity *repository.ActivityRepository
	recorder *ActivityService
	fileSvc  *FileService
	now      func() time.Time
}

func NewAdminService(
	users *repository.UserRepository,
	files *repository.FileRepository,
	activity *repository.ActivityRepository,
	recorder *ActivityService,
	fileSvc *FileService,
) *AdminService {
	return &AdminService{
		users:    users,
		files:    files,
		activity: activity,
		recorder: recorder,
		fileSvc:  fileSvc,
		now:      time.Now,
	}
}

type SystemStats struct {
	TotalUsers         int64 `json:"totalUsers"`
	ActiveUsers        int64 `json:"activeUsers"`
	TotalFiles         int64 `json:"totalFiles"`
	RecentActivity     int64 `json:"recentActivity"`
	VersioningFailures int64 `json:"versioningFailures"`
}

func (s *AdminService) requireAdmin(ctx context.Context, actorID uint) error {
	user, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return operationFailed("Authorization check failed", err)
	}
	if user == nil || !user.IsAdmin {
		return forbidden("Admin privileges required")
	}
	return nil
}

func (s *AdminService) ListUsers(ctx context.Context, actorID uint) ([]model.User, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, operationFailed("Failed to list users", err)
	}
	return users, nil
}

// Stats 用户数、30 天内活跃用户数、文件数和 7 天内操作数
func (s *AdminService) Stats(ctx context.Context, actorID uint) (*SystemStats, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	now := s.now()

	var stats SystemStats
	var err error
	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, operationFailed("Failed to load stats", err)
	}
	if stats.ActiveUsers, err = s.users.CountActiveSince(ctx, now.Add(-activeUserWindow)); err != nil {
		return nil, operationFailed("Failed to load stats", err)
	}
	if stats.TotalFiles, err = s.files.Count(ctx); err != nil {
		return nil, operationFailed("Failed to load stats", err)
	}
	if stats.RecentActivity, err = s.activity.CountSince(ctx, now.Add(-recentActivityWindow)); err != nil {
		return nil, operationFailed("Failed to load stats", err)
	}
	stats.VersioningFailures = s.fileSvc.VersioningFailures()
	return &stats, nil
}

func (s *AdminService) ActivityLogs(ctx context.Context, actorID uint, limit int) ([]repository.ActivityWithUser, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return s.recorder.ListRecent(ctx, limit)
}

// SweepStorage 回收不再被引用的存储内容
func (s *AdminService) SweepStorage(ctx context.Context, actorID uint) (int, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return 0, err
	}
	return s.fileSvc.SweepOrphans(ctx)
}

// Authorize 检查管理员身份，供实时推送等不经过其他方法的入口使用
func (s *AdminService) Authorize(ctx context.Context, actorID uint) error {
	return s.requireAdmin(ctx, actorID)
}
