package model

import "time"

// FileVersion 文件内容更新前的快照，创建后不再修改
type FileVersion struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	FileID          uint      `gorm:"not null;index" json:"file_id"`
	ContentLocation string    `gorm:"type:varchar(512);not null" json:"-"`
	FileSize        int64     `gorm:"not null" json:"file_size"`
	Checksum        string    `gorm:"type:varchar(64)" json:"checksum"`
	CreatedAt       time.Time `json:"created_at"`
}
