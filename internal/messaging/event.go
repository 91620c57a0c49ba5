package messaging

import (
	"errors"
	"fmt"
	"time"

	"go-markboard/internal/model"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrInvalidEvent 负载不是合法的操作事件
var ErrInvalidEvent = errors.New("invalid activity event")

// EncodeActivity 把操作记录编码为 protobuf Struct 二进制负载，
// Kafka 消息和管理端 websocket 帧使用同一格式
func EncodeActivity(entry *model.ActivityLog) ([]byte, error) {
	fields := map[string]interface{}{
		"id":            float64(entry.ID),
		"user_id":       float64(entry.UserID),
		"action":        entry.Action,
		"resource_type": entry.ResourceType,
		"resource_id":   nil,
		"details":       entry.Details,
		"created_at":    entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if entry.ResourceID != nil {
		fields["resource_id"] = float64(*entry.ResourceID)
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build activity event: %w", err)
	}
	data, err := proto.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal activity event: %w", err)
	}
	return data, nil
}

// DecodeActivity 解析 EncodeActivity 生成的负载
func DecodeActivity(data []byte) (*model.ActivityLog, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	fields := s.GetFields()

	action := fields["action"].GetStringValue()
	if action == "" {
		return nil, fmt.Errorf("%w: missing action", ErrInvalidEvent)
	}

	entry := &model.ActivityLog{
		ID:           uint(fields["id"].GetNumberValue()),
		UserID:       uint(fields["user_id"].GetNumberValue()),
		Action:       action,
		ResourceType: fields["resource_type"].GetStringValue(),
		Details:      fields["details"].GetStringValue(),
	}
	if v, ok := fields["resource_id"].GetKind().(*structpb.Value_NumberValue); ok {
		id := uint(v.NumberValue)
		entry.ResourceID = &id
	}
	if ts := fields["created_at"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("%w: created_at: %w", ErrInvalidEvent, err)
		}
		entry.CreatedAt = t
	}
	return entry, nil
}
