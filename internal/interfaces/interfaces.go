package interfaces

import (
	"context"

	"go-markboard/internal/model"
)

// ContentStore 文件内容存储
// storage.Store实现
type ContentStore interface {
	PathFor(fileID uint, filename string) string
	VersionPathFor(fileID uint, seq int, filename string) string
	Write(location string, content []byte) (size int64, checksum string, err error)
	Read(location string) ([]byte, error)
	Delete(location string) (bool, error)
	Verify(location, expected string) (bool, error)
	Sweep(ctx context.Context, referenced map[string]struct{}) (int, error)
}

// ActivitySink 接收已持久化的操作记录
// websocket.Hub和messaging.KafkaPublisher实现
type ActivitySink interface {
	Name() string
	Publish(entry *model.ActivityLog) error
}
