package repository

import (
	"context"
	"time"

	"go-markboard/internal/model"

	"gorm.io/gorm"
)

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// ActivityWithUser 操作记录附带用户邮箱，用户不存在时邮箱为空
type ActivityWithUser struct {
	model.ActivityLog
	UserEmail *string `json:"user_email"`
}

func (r *ActivityRepository) Create(ctx context.Context, entry *model.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// 最近的操作记录，最新的在前
func (r *ActivityRepository) ListRecent(ctx context.Context, limit int) ([]ActivityWithUser, error) {
	var logs []ActivityWithUser
	err := r.db.WithContext(ctx).Table("activity_logs").
		Select("activity_logs.*, users.email AS user_email").
		Joins("LEFT JOIN users ON users.id = activity_logs.user_id").
		Order("activity_logs.created_at DESC").Order("activity_logs.id DESC").
		Limit(limit).
		Scan(&logs).Error
	return logs, err
}

func (r *ActivityRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ActivityLog{}).Where("created_at >= ?", since).Count(&n).Error
	return n, err
}
