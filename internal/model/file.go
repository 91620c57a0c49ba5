package model

import (
	"time"

	"gorm.io/gorm"
)

// File 文件元数据。ContentLocation 是内容在存储根目录下的相对路径，
// 软删除后内容保留，由存储清理回收。
type File struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Name            string         `gorm:"type:varchar(255);not null;index" json:"name"`
	ContentLocation string         `gorm:"type:varchar(512);not null;default:''" json:"-"`
	FileSize        int64          `gorm:"not null;default:0" json:"file_size"`
	Checksum        string         `gorm:"type:varchar(64)" json:"checksum"`
	MimeType        string         `gorm:"type:varchar(100);default:'text/plain'" json:"mime_type"`
	OwnerID         uint           `gorm:"not null;index" json:"owner_id"`
	TeamID          *uint          `gorm:"index" json:"team_id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	Owner User  `gorm:"foreignKey:OwnerID" json:"-"`
	Team  *Team `gorm:"foreignKey:TeamID" json:"-"`
}
