package repository

import (
	"context"
	"errors"

	"go-markboard/internal/model"

	"gorm.io/gorm"
)

type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

// CreateWithContent 在一个事务中插入占位记录、调用 write 写入内容、再保存存储信息。
// write 可以根据已分配的 file.ID 计算存储位置并填充 ContentLocation 等字段。
// 事务失败时由调用方负责清理已写入的内容。
func (r *FileRepository) CreateWithContent(ctx context.Context, file *model.File, write func(file *model.File) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Owner", "Team").Create(file).Error; err != nil {
			return err
		}
		if err := write(file); err != nil {
			return err
		}
		return tx.Model(&model.File{}).Where("id = ?", file.ID).UpdateColumns(map[string]interface{}{
			"content_location": file.ContentLocation,
			"file_size":        file.FileSize,
			"checksum":         file.Checksum,
			"mime_type":        file.MimeType,
		}).Error
	})
}

// 根据ID查找未删除的文件
func (r *FileRepository) FindByID(ctx context.Context, id uint) (*model.File, error) {
	var file model.File
	if err := r.db.WithContext(ctx).First(&file, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &file, nil
}

// Exists 文件记录是否存在过（包括已软删除的）
func (r *FileRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Unscoped().Model(&model.File{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// CanAccess 用户是文件所有者或文件所属团队的成员（任意角色）。
// 软删除的文件同样参与判断，删除状态由调用方在取数时处理。
func (r *FileRepository) CanAccess(ctx context.Context, userID, fileID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Unscoped().Model(&model.File{}).
		Joins("LEFT JOIN team_members ON team_members.team_id = files.team_id AND team_members.user_id = ?", userID).
		Where("files.id = ?", fileID).
		Where("files.owner_id = ? OR team_members.user_id IS NOT NULL", userID).
		Count(&n).Error
	return n > 0, err
}

// NameTaken 检查同一作用域内是否已有同名的未删除文件。
// teamID 非空时作用域为团队，否则为所有者的个人文件。excludeID 为 0 时不排除任何文件。
func (r *FileRepository) NameTaken(ctx context.Context, name string, ownerID uint, teamID *uint, excludeID uint) (bool, error) {
	q := r.db.WithContext(ctx).Model(&model.File{}).Where("name = ?", name)
	if teamID != nil {
		q = q.Where("team_id = ?", *teamID)
	} else {
		q = q.Where("owner_id = ? AND team_id IS NULL", ownerID)
	}
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

// Update 用一条语句更新给定字段，updated_at 一并刷新
func (r *FileRepository) Update(ctx context.Context, id uint, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.File{ID: id}).Updates(updates).Error
}

// 软删除，内容保留
func (r *FileRepository) SoftDelete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.File{}, id).Error
}

// 用户可访问的文件：自己的文件和所在团队的文件
func (r *FileRepository) ListAccessible(ctx context.Context, userID uint) ([]model.File, error) {
	var files []model.File
	err := r.db.WithContext(ctx).
		Joins("LEFT JOIN team_members ON team_members.team_id = files.team_id AND team_members.user_id = ?", userID).
		Where("files.owner_id = ? OR team_members.user_id IS NOT NULL", userID).
		Order("files.updated_at DESC").Order("files.id DESC").
		Find(&files).Error
	return files, err
}

func (r *FileRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.File{}).Count(&n).Error
	return n, err
}

// ContentLocations 所有文件记录（包括已软删除的）引用的存储位置
func (r *FileRepository) ContentLocations(ctx context.Context) ([]string, error) {
	var locations []string
	err := r.db.WithContext(ctx).Unscoped().Model(&model.File{}).
		Where("content_location <> ''").
		Pluck("content_location", &locations).Error
	return locations, err
}
