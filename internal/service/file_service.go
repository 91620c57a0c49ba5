package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go-markboard/internal/interfaces"
	"go-markboard/internal/model"
	"go-markboard/internal/repository"
	"go-markboard/internal/storage"
	"go-markboard/pkg/logger"

	"go.uber.org/zap"
)

// FileService 管理文件的创建、读取、更新、删除和历史版本
type FileService struct {
	files    *repository.FileRepository
	versions *repository.FileVersionRepository
	members  *repository.TeamMemberRepository
	access   *AccessService
	activity *ActivityService
	store    interfaces.ContentStore

	maxContentSize     int64
	versioningFailures atomic.Int64
}

func NewFileService(
	files *repository.FileRepository,
	versions *repository.FileVersionRepository,
	members *repository.TeamMemberRepository,
	access *AccessService,
	activity *ActivityService,
	store interfaces.ContentStore,
	maxContentSize int64,
) *FileService {
	return &FileService{
		files:          files,
		versions:       versions,
		members:        members,
		access:         access,
		activity:       activity,
		store:          store,
		maxContentSize: maxContentSize,
	}
}

// FileDetails 文件元数据，读取时附带内容
type FileDetails struct {
	*model.File
	SizeFormatted string  `json:"size_formatted"`
	Content       *string `json:"content,omitempty"`
}

func newFileDetails(f *model.File) *FileDetails {
	return &FileDetails{File: f, SizeFormatted: storage.FormatSize(f.FileSize)}
}

type CreateFileRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	TeamID  *uint  `json:"team_id"`
}

type UpdateFileRequest struct {
	Name    *string `json:"name"`
	Content *string `json:"content"`
}

// VersioningFailures 快照失败的累计次数
func (s *FileService) VersioningFailures() int64 {
	return s.versioningFailures.Load()
}

func (s *FileService) checkSize(content string) error {
	if s.maxContentSize > 0 && int64(len(content)) > s.maxContentSize {
		return invalidInput(fmt.Sprintf("Content exceeds maximum size of %s", storage.FormatSize(s.maxContentSize)))
	}
	return nil
}

// Create 创建文件。记录和内容在同一事务中写入，提交失败时删除已写入的内容。
func (s *FileService) Create(ctx context.Context, ownerID uint, req CreateFileRequest) (*FileDetails, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidInput("File name is required")
	}
	if err := s.checkSize(req.Content); err != nil {
		return nil, err
	}
	clean := storage.SanitizeFilename(name)

	if req.TeamID != nil {
		member, err := s.members.Find(ctx, *req.TeamID, ownerID)
		if err != nil {
			return nil, operationFailed("Failed to create file", err)
		}
		if member == nil {
			return nil, accessDenied("Access denied to team")
		}
	}

	taken, err := s.files.NameTaken(ctx, clean, ownerID, req.TeamID, 0)
	if err != nil {
		return nil, operationFailed("Failed to create file", err)
	}
	if taken {
		return nil, conflict("File with this name already exists")
	}

	file := &model.File{
		Name:     clean,
		OwnerID:  ownerID,
		TeamID:   req.TeamID,
		MimeType: storage.DetectMimeType(clean),
	}
	var written string
	err = s.files.CreateWithContent(ctx, file, func(f *model.File) error {
		location := s.store.PathFor(f.ID, clean)
		size, checksum, err := s.store.Write(location, []byte(req.Content))
		if err != nil {
			return err
		}
		written = location
		f.ContentLocation = location
		f.FileSize = size
		f.Checksum = checksum
		return nil
	})
	if err != nil {
		if written != "" {
			if _, delErr := s.store.Delete(written); delErr != nil {
				logger.L.Error("Failed to remove content of rolled back file",
					zap.String("location", written), zap.Error(delErr))
			}
		}
		return nil, operationFailed("Failed to create file", err)
	}

	details := "Created file: " + clean
	if req.TeamID != nil {
		details += " (Team file)"
	}
	s.activity.Record(ctx, ownerID, model.ActionFileCreated, model.ResourceFile, uintPtr(file.ID), details)

	logger.L.Info("File created",
		zap.Uint("fileID", file.ID),
		zap.Uint("ownerID", ownerID),
		zap.Int64("size", file.FileSize))

	return newFileDetails(file), nil
}

// Read 返回元数据和内容，并顺带校验内容摘要（只记录日志）
func (s *FileService) Read(ctx context.Context, fileID, userID uint) (*FileDetails, error) {
	file, err := s.access.AuthorizeFile(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}

	content, err := s.readContent(file)
	if err != nil {
		return nil, err
	}

	if file.Checksum != "" {
		if _, err := s.store.Verify(file.ContentLocation, file.Checksum); err != nil {
			logger.L.Warn("Content verification failed", zap.Uint("fileID", file.ID), zap.Error(err))
		}
	}

	s.activity.Record(ctx, userID, model.ActionFileViewed, model.ResourceFile, uintPtr(file.ID), "Viewed file: "+file.Name)

	details := newFileDetails(file)
	text := string(content)
	details.Content = &text
	return details, nil
}

// Content 只返回文件名和内容，用于下载
func (s *FileService) Content(ctx context.Context, fileID, userID uint) (string, []byte, error) {
	file, err := s.access.AuthorizeFile(ctx, userID, fileID)
	if err != nil {
		return "", nil, err
	}
	content, err := s.readContent(file)
	if err != nil {
		return "", nil, err
	}
	return file.Name, content, nil
}

func (s *FileService) readContent(file *model.File) ([]byte, error) {
	content, err := s.store.Read(file.ContentLocation)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			logger.L.Error("File content not found", zap.Uint("fileID", file.ID), zap.String("location", file.ContentLocation))
			return nil, notFound("File content not found")
		}
		return nil, operationFailed("Failed to read file", err)
	}
	return content, nil
}

// Update 修改文件名和/或内容。修改内容前先保存当前内容的快照。
func (s *FileService) Update(ctx context.Context, fileID, userID uint, req UpdateFileRequest) (*FileDetails, error) {
	if req.Name == nil && req.Content == nil {
		return nil, invalidInput("No updates provided")
	}

	file, err := s.access.AuthorizeFile(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	var changes []string

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, invalidInput("File name cannot be empty")
		}
		clean := storage.SanitizeFilename(name)
		taken, err := s.files.NameTaken(ctx, clean, file.OwnerID, file.TeamID, file.ID)
		if err != nil {
			return nil, operationFailed("Failed to update file", err)
		}
		if taken {
			return nil, conflict("File with this name already exists")
		}
		updates["name"] = clean
		updates["mime_type"] = storage.DetectMimeType(clean)
		changes = append(changes, fmt.Sprintf("name to '%s'", clean))
	}

	if req.Content != nil {
		if err := s.checkSize(*req.Content); err != nil {
			return nil, err
		}
		s.snapshot(ctx, file)

		size, checksum, err := s.store.Write(file.ContentLocation, []byte(*req.Content))
		if err != nil {
			return nil, operationFailed("Failed to update file", err)
		}
		updates["file_size"] = size
		updates["checksum"] = checksum
		changes = append(changes, "content")
	}

	if err := s.files.Update(ctx, file.ID, updates); err != nil {
		return nil, operationFailed("Failed to update file", err)
	}

	updated, err := s.files.FindByID(ctx, file.ID)
	if err != nil {
		return nil, operationFailed("Failed to update file", err)
	}
	if updated == nil {
		return nil, notFound("File not found")
	}

	s.activity.Record(ctx, userID, model.ActionFileEdited, model.ResourceFile, uintPtr(file.ID),
		fmt.Sprintf("Updated file %s: %s", file.Name, strings.Join(changes, ", ")))

	return newFileDetails(updated), nil
}

// snapshot 把当前内容保存为历史版本。失败只记录日志并计数，不阻止更新。
func (s *FileService) snapshot(ctx context.Context, file *model.File) {
	fail := func(msg string, err error) {
		s.versioningFailures.Add(1)
		logger.L.Warn(msg, zap.Uint("fileID", file.ID), zap.Error(err))
	}

	current, err := s.store.Read(file.ContentLocation)
	if err != nil {
		fail("Failed to read content for version snapshot", err)
		return
	}
	seq, err := s.versions.CountByFile(ctx, file.ID)
	if err != nil {
		fail("Failed to count file versions", err)
		return
	}

	location := s.store.VersionPathFor(file.ID, int(seq)+1, file.Name)
	size, checksum, err := s.store.Write(location, current)
	if err != nil {
		fail("Failed to write version snapshot", err)
		return
	}

	version := &model.FileVersion{
		FileID:          file.ID,
		ContentLocation: location,
		FileSize:        size,
		Checksum:        checksum,
	}
	if err := s.versions.Create(ctx, version); err != nil {
		fail("Failed to save file version", err)
		if _, delErr := s.store.Delete(location); delErr != nil {
			logger.L.Warn("Failed to remove orphaned snapshot", zap.String("location", location), zap.Error(delErr))
		}
	}
}

// Delete 软删除文件，内容保留到清理时回收
func (s *FileService) Delete(ctx context.Context, fileID, userID uint) error {
	file, err := s.access.AuthorizeFile(ctx, userID, fileID)
	if err != nil {
		return err
	}
	if err := s.files.SoftDelete(ctx, file.ID); err != nil {
		return operationFailed("Failed to delete file", err)
	}

	s.activity.Record(ctx, userID, model.ActionFileDeleted, model.ResourceFile, uintPtr(file.ID), "Deleted file: "+file.Name)
	return nil
}

// List 用户可访问的所有文件
func (s *FileService) List(ctx context.Context, userID uint) ([]*FileDetails, error) {
	files, err := s.files.ListAccessible(ctx, userID)
	if err != nil {
		return nil, operationFailed("Failed to list files", err)
	}
	out := make([]*FileDetails, 0, len(files))
	for i := range files {
		out = append(out, newFileDetails(&files[i]))
	}
	return out, nil
}

// Versions 文件的历史版本，最新的在前
func (s *FileService) Versions(ctx context.Context, fileID, userID uint) ([]model.FileVersion, error) {
	file, err := s.access.AuthorizeFile(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}
	versions, err := s.versions.ListByFile(ctx, file.ID)
	if err != nil {
		return nil, operationFailed("Failed to list file versions", err)
	}
	return versions, nil
}

// SweepOrphans 删除存储中不再被任何文件或版本引用的内容
func (s *FileService) SweepOrphans(ctx context.Context) (int, error) {
	fileLocs, err := s.files.ContentLocations(ctx)
	if err != nil {
		return 0, operationFailed("Failed to collect file locations", err)
	}
	versionLocs, err := s.versions.ContentLocations(ctx)
	if err != nil {
		return 0, operationFailed("Failed to collect version locations", err)
	}

	referenced := make(map[string]struct{}, len(fileLocs)+len(versionLocs))
	for _, loc := range fileLocs {
		referenced[loc] = struct{}{}
	}
	for _, loc := range versionLocs {
		referenced[loc] = struct{}{}
	}

	removed, err := s.store.Sweep(ctx, referenced)
	if err != nil {
		return removed, operationFailed("Failed to sweep storage", err)
	}
	logger.L.Info("Storage sweep finished", zap.Int("removed", removed), zap.Int("referenced", len(referenced)))
	return removed, nil
}
