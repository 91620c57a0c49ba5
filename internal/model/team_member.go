package model

import "time"

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type TeamMember struct {
	TeamID   uint      `gorm:"primaryKey;autoIncrement:false" json:"team_id"`
	UserID   uint      `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	Role     string    `gorm:"type:varchar(20);not null;default:'member'" json:"role"` // 'owner', 'admin', 'member'
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`

	Team Team `gorm:"foreignKey:TeamID" json:"-"`
	User User `gorm:"foreignKey:UserID" json:"-"`
}

// CanManageMembers 是否可以移除其他成员
func (m *TeamMember) CanManageMembers() bool {
	return m.Role == RoleOwner || m.Role == RoleAdmin
}

func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}
