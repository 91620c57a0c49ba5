package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-markboard/pkg/logger"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	// 每个分桶目录容纳的文件 ID 数
	bucketSize = 1000
	chunkSize  = 4096

	tempPrefix = ".tmp-"
	// 未被引用的文件修改后至少保留这么久，覆盖写入内容到提交元数据之间的窗口
	SweepGracePeriod = time.Hour

	versionsDir = "versions"
)

var ErrNotFound = errors.New("content not found")

// Error 表示除“不存在”之外的存储层故障
type Error struct {
	Op       string
	Location string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Location, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Store 把文件内容保存在分桶目录中，位置是相对存储根目录的路径
type Store struct {
	fs   afero.Fs
	root string
	now  func() time.Time
}

// New 在给定文件系统的 root 目录下创建存储
func New(fsys afero.Fs, root string) (*Store, error) {
	if err := fsys.MkdirAll(root, 0755); err != nil {
		return nil, &Error{Op: "init", Location: root, Err: err}
	}
	return &Store{fs: fsys, root: root, now: time.Now}, nil
}

// NewLocal 以 baseDir 为根目录的本地磁盘存储
func NewLocal(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, &Error{Op: "init", Location: baseDir, Err: err}
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), baseDir), "/")
}

func bucket(fileID uint) string {
	return fmt.Sprintf("%03d", fileID/bucketSize)
}

// diskName 拼接前缀和清理后的文件名，超出单个路径段上限时截短主干、保留扩展名
func diskName(prefix, filename string) string {
	name := SanitizeFilename(filename)
	room := maxFilenameLength - len(prefix)
	if len(name) > room {
		ext := filepath.Ext(name)
		if len(ext) >= room {
			ext = ""
		}
		name = name[:room-len(ext)] + ext
	}
	return prefix + name
}

// PathFor 返回文件当前内容的存储位置
func (s *Store) PathFor(fileID uint, filename string) string {
	return filepath.ToSlash(filepath.Join(bucket(fileID), diskName(fmt.Sprintf("%d_", fileID), filename)))
}

// VersionPathFor 返回历史版本快照的存储位置
func (s *Store) VersionPathFor(fileID uint, seq int, filename string) string {
	return filepath.ToSlash(filepath.Join(versionsDir, bucket(fileID),
		diskName(fmt.Sprintf("%d_v%d_", fileID, seq), filename)))
}

func (s *Store) abs(location string) string {
	return filepath.Join(s.root, filepath.FromSlash(location))
}

// Write 原子写入：先写同目录临时文件再重命名，读者不会看到半写的内容。
// 返回写入字节数和 sha256 十六进制摘要。
func (s *Store) Write(location string, content []byte) (int64, string, error) {
	dest := s.abs(location)
	dir := filepath.Dir(dest)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return 0, "", &Error{Op: "write", Location: location, Err: err}
	}

	tmp, err := afero.TempFile(s.fs, dir, tempPrefix+"*")
	if err != nil {
		return 0, "", &Error{Op: "write", Location: location, Err: err}
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = s.fs.Remove(tmpPath)
		}
	}()

	h := sha256.New()
	written, err := io.CopyBuffer(io.MultiWriter(tmp, h), onlyReader{bytes.NewReader(content)}, make([]byte, chunkSize))
	if err != nil {
		tmp.Close()
		return 0, "", &Error{Op: "write", Location: location, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return 0, "", &Error{Op: "write", Location: location, Err: err}
	}
	if err := s.fs.Rename(tmpPath, dest); err != nil {
		return 0, "", &Error{Op: "write", Location: location, Err: err}
	}

	success = true
	return written, hex.EncodeToString(h.Sum(nil)), nil
}

// Read 读取全部内容，不存在时返回 ErrNotFound
func (s *Store) Read(location string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.abs(location))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, &Error{Op: "read", Location: location, Err: err}
	}
	return data, nil
}

// Delete 删除内容，幂等；内容原本不存在时返回 false
func (s *Store) Delete(location string) (bool, error) {
	err := s.fs.Remove(s.abs(location))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &Error{Op: "delete", Location: location, Err: err}
	}
	return true, nil
}

func (s *Store) Exists(location string) (bool, error) {
	ok, err := afero.Exists(s.fs, s.abs(location))
	if err != nil {
		return false, &Error{Op: "stat", Location: location, Err: err}
	}
	return ok, nil
}

// Checksum 按 4 KiB 分块计算已存内容的 sha256
func (s *Store) Checksum(location string) (string, error) {
	f, err := s.fs.Open(s.abs(location))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", &Error{Op: "checksum", Location: location, Err: err}
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.CopyBuffer(h, onlyReader{f}, make([]byte, chunkSize)); err != nil {
		return "", &Error{Op: "checksum", Location: location, Err: err}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify 重新计算摘要并与期望值比较，不一致时记录警告
func (s *Store) Verify(location, expected string) (bool, error) {
	actual, err := s.Checksum(location)
	if err != nil {
		return false, err
	}
	if !strings.EqualFold(actual, expected) {
		logger.L.Warn("Content checksum mismatch",
			zap.String("location", location),
			zap.String("expected", expected),
			zap.String("actual", actual))
		return false, nil
	}
	return true, nil
}

// Sweep 删除根目录下所有未被引用的文件，返回删除数量。
// 修改时间在 SweepGracePeriod 之内的文件（包括临时文件）不会被回收，
// 它们可能属于尚未提交的创建或快照。
func (s *Store) Sweep(ctx context.Context, referenced map[string]struct{}) (int, error) {
	removed := 0
	cutoff := s.now().Add(-SweepGracePeriod)

	err := afero.Walk(s.fs, s.root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		location := filepath.ToSlash(rel)

		if !strings.HasPrefix(info.Name(), tempPrefix) {
			if _, ok := referenced[location]; ok {
				return nil
			}
		}
		if info.ModTime().After(cutoff) {
			return nil
		}

		if err := s.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		removed++
		logger.L.Debug("Swept orphaned content", zap.String("location", location))
		return nil
	})
	if err != nil {
		return removed, &Error{Op: "sweep", Location: s.root, Err: err}
	}
	return removed, nil
}

// onlyReader 隐藏 WriterTo/ReaderFrom，让 CopyBuffer 按固定块大小读取
type onlyReader struct {
	io.Reader
}
