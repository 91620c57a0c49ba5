package service

import (
	"context"

	"go-markboard/internal/model"
	"go-markboard/internal/repository"
)

// AccessService 文件访问控制：所有者或文件所属团队的任意成员可以访问
type AccessService struct {
	files *repository.FileRepository
}

func NewAccessService(files *repository.FileRepository) *AccessService {
	return &AccessService{files: files}
}

func (s *AccessService) CanAccess(ctx context.Context, userID, fileID uint) (bool, error) {
	return s.files.CanAccess(ctx, userID, fileID)
}

// AuthorizeFile 检查访问权限并返回未删除的文件。
// 从未存在的文件返回 NotFound，存在但无权访问返回 AccessDenied，
// 有权访问但已删除返回 NotFound。
func (s *AccessService) AuthorizeFile(ctx context.Context, userID, fileID uint) (*model.File, error) {
	ok, err := s.files.CanAccess(ctx, userID, fileID)
	if err != nil {
		return nil, operationFailed("Failed to check file access", err)
	}
	if !ok {
		exists, err := s.files.Exists(ctx, fileID)
		if err != nil {
			return nil, operationFailed("Failed to check file access", err)
		}
		if !exists {
			return nil, notFound("File not found")
		}
		return nil, accessDenied("Access denied")
	}

	file, err := s.files.FindByID(ctx, fileID)
	if err != nil {
		return nil, operationFailed("Failed to load file", err)
	}
	if file == nil {
		return nil, notFound("File not found")
	}
	return file, nil
}
