package repository

import (
	"context"

	"go-markboard/internal/model"

	"gorm.io/gorm"
)

type FileVersionRepository struct {
	db *gorm.DB
}

func NewFileVersionRepository(db *gorm.DB) *FileVersionRepository {
	return &FileVersionRepository{db: db}
}

func (r *FileVersionRepository) Create(ctx context.Context, v *model.FileVersion) error {
	return r.db.WithContext(ctx).Create(v).Error
}

// 最新的版本在前
func (r *FileVersionRepository) ListByFile(ctx context.Context, fileID uint) ([]model.FileVersion, error) {
	var versions []model.FileVersion
	err := r.db.WithContext(ctx).Where("file_id = ?", fileID).Order("id DESC").Find(&versions).Error
	return versions, err
}

func (r *FileVersionRepository) CountByFile(ctx context.Context, fileID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.FileVersion{}).Where("file_id = ?", fileID).Count(&n).Error
	return n, err
}

func (r *FileVersionRepository) ContentLocations(ctx context.Context) ([]string, error) {
	var locations []string
	err := r.db.WithContext(ctx).Model(&model.FileVersion{}).Pluck("content_location", &locations).Error
	return locations, err
}
