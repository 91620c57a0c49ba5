package repository

import (
	"context"
	"errors"
	"time"

	"go-markboard/internal/model"

	"gorm.io/gorm"
)

type TeamMemberRepository struct {
	db *gorm.DB
}

func NewTeamMemberRepository(db *gorm.DB) *TeamMemberRepository {
	return &TeamMemberRepository{db: db}
}

// MemberInfo 团队成员列表项
type MemberInfo struct {
	ID       uint      `json:"id"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// 将用户添加到团队
func (r *TeamMemberRepository) Add(ctx context.Context, teamID, userID uint, role string) error {
	if role == "" {
		role = model.RoleMember
	}
	member := &model.TeamMember{
		TeamID: teamID,
		UserID: userID,
		Role:   role,
	}
	return r.db.WithContext(ctx).Create(member).Error
}

// 查找特定团队的特定成员，不存在时返回 nil
func (r *TeamMemberRepository) Find(ctx context.Context, teamID, userID uint) (*model.TeamMember, error) {
	var member model.TeamMember
	err := r.db.WithContext(ctx).Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// 将用户从团队中移除，返回是否确实删除了记录
func (r *TeamMemberRepository) Remove(ctx context.Context, teamID, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("team_id = ? AND user_id = ?", teamID, userID).Delete(&model.TeamMember{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// 按加入时间列出团队成员
func (r *TeamMemberRepository) ListMembers(ctx context.Context, teamID uint) ([]MemberInfo, error) {
	var members []MemberInfo
	err := r.db.WithContext(ctx).Table("users").
		Select("users.id, users.email, team_members.role, team_members.joined_at").
		Joins("JOIN team_members ON team_members.user_id = users.id").
		Where("team_members.team_id = ?", teamID).
		Order("team_members.joined_at ASC").Order("users.id ASC").
		Scan(&members).Error
	return members, err
}

func (r *TeamMemberRepository) UpdateRole(ctx context.Context, teamID, userID uint, role string) error {
	return r.db.WithContext(ctx).Model(&model.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Update("role", role).Error
}
