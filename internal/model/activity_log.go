package model

import "time"

const (
	ActionUserRegistered   = "user_registered"
	ActionUserLogin        = "user_login"
	ActionFileCreated      = "file_created"
	ActionFileViewed       = "file_viewed"
	ActionFileEdited       = "file_edited"
	ActionFileDeleted      = "file_deleted"
	ActionTeamCreated      = "team_created"
	ActionTeamJoined       = "team_joined"
	ActionTeamLeft         = "team_left"
	ActionTeamMemberKicked = "team_member_kicked"
	ActionTeamDeleted      = "team_deleted"
	ActionTeamTransferred  = "team_ownership_transferred"
	ActionTeamRoleChanged  = "team_role_changed"

	ResourceUser = "user"
	ResourceFile = "file"
	ResourceTeam = "team"
)

// ActivityLog 只追加的操作记录。UserID 不设外键，用户删除后日志保留。
type ActivityLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	Action       string    `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType string    `gorm:"type:varchar(50);not null" json:"resource_type"`
	ResourceID   *uint     `json:"resource_id"`
	Details      string    `gorm:"type:text" json:"details"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}
