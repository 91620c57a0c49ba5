package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go-markboard/internal/model"

	"gorm.io/gorm"
)

type TeamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// TeamSummary 团队列表项，附带文件数、成员数和当前用户的角色
type TeamSummary struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     uint      `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	FileCount   int64     `json:"file_count"`
	MemberCount int64     `json:"member_count"`
	Role        string    `json:"role,omitempty"`
}

const teamSummaryColumns = "teams.id, teams.name, teams.description, teams.owner_id, teams.created_at, " +
	"(SELECT COUNT(*) FROM files WHERE files.team_id = teams.id AND files.deleted_at IS NULL) AS file_count, " +
	"(SELECT COUNT(*) FROM team_members AS tm WHERE tm.team_id = teams.id) AS member_count"

// 创建新团队，并在同一事务中将创建者添加为 owner 成员
func (r *TeamRepository) Create(ctx context.Context, team *model.Team) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		owner := &model.TeamMember{
			TeamID: team.ID,
			UserID: team.OwnerID,
			Role:   model.RoleOwner,
		}
		return tx.Create(owner).Error
	})
}

func (r *TeamRepository) FindByID(ctx context.Context, teamID uint) (*model.Team, error) {
	var team model.Team
	err := r.db.WithContext(ctx).First(&team, teamID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &team, nil
}

func (r *TeamRepository) FindByName(ctx context.Context, name string) (*model.Team, error) {
	var team model.Team
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&team).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &team, nil
}

// 查找用户所属的所有团队
func (r *TeamRepository) ListForUser(ctx context.Context, userID uint) ([]TeamSummary, error) {
	var teams []TeamSummary
	err := r.db.WithContext(ctx).Table("teams").
		Select(teamSummaryColumns+", team_members.role AS role").
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ?", userID).
		Order("teams.created_at DESC").Order("teams.id DESC").
		Scan(&teams).Error
	return teams, err
}

// 用户尚未加入的团队
func (r *TeamRepository) ListAvailable(ctx context.Context, userID uint) ([]TeamSummary, error) {
	var teams []TeamSummary
	db := r.db.WithContext(ctx)
	member := db.Model(&model.TeamMember{}).Select("team_id").Where("user_id = ?", userID)
	err := db.Table("teams").
		Select(teamSummaryColumns).
		Where("teams.id NOT IN (?)", member).
		Order("teams.created_at DESC").Order("teams.id DESC").
		Scan(&teams).Error
	return teams, err
}

func (r *TeamRepository) CountForUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.TeamMember{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// Summary 单个团队的统计信息
func (r *TeamRepository) Summary(ctx context.Context, teamID uint) (*TeamSummary, error) {
	var teams []TeamSummary
	err := r.db.WithContext(ctx).Table("teams").
		Select(teamSummaryColumns).
		Where("teams.id = ?", teamID).
		Scan(&teams).Error
	if err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return nil, nil
	}
	return &teams[0], nil
}

// Disband 在一个事务中解散团队：所有团队文件（包括已软删除的）转为各自所有者的个人文件，
// 删除全部成员关系，最后删除团队。owner_id 保持不变。
// 转为个人文件后与所有者现有个人文件重名的，改名为 "<stem>_team<id><ext>"。
// 返回转移的文件数。
func (r *TeamRepository) Disband(ctx context.Context, team *model.Team) (int, error) {
	moved := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var files []model.File
		if err := tx.Unscoped().Where("team_id = ?", team.ID).Order("id").Find(&files).Error; err != nil {
			return fmt.Errorf("load team files: %w", err)
		}

		taken := make(map[uint]map[string]bool)
		for _, f := range files {
			names, ok := taken[f.OwnerID]
			if !ok {
				var existing []string
				err := tx.Model(&model.File{}).
					Where("owner_id = ? AND team_id IS NULL", f.OwnerID).
					Pluck("name", &existing).Error
				if err != nil {
					return fmt.Errorf("load personal names: %w", err)
				}
				names = make(map[string]bool, len(existing))
				for _, n := range existing {
					names[n] = true
				}
				taken[f.OwnerID] = names
			}

			updates := map[string]interface{}{"team_id": nil}
			// 软删除的文件不参与重名判断
			if !f.DeletedAt.Valid {
				name := f.Name
				if names[name] {
					name = disbandedName(f.Name, team.ID, names)
					updates["name"] = name
				}
				names[name] = true
			}

			if err := tx.Unscoped().Model(&model.File{}).Where("id = ?", f.ID).UpdateColumns(updates).Error; err != nil {
				return fmt.Errorf("reassign file %d: %w", f.ID, err)
			}
			moved++
		}

		if err := tx.Where("team_id = ?", team.ID).Delete(&model.TeamMember{}).Error; err != nil {
			return fmt.Errorf("delete members: %w", err)
		}
		if err := tx.Delete(&model.Team{}, team.ID).Error; err != nil {
			return fmt.Errorf("delete team: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

// 文件名列的长度上限
const maxFileNameLength = 255

// disbandedName 生成不冲突的新文件名，超长时截短主干，保证不超过 maxFileNameLength
func disbandedName(name string, teamID uint, taken map[string]bool) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	build := func(suffix string) string {
		e := ext
		if len(suffix)+len(e) >= maxFileNameLength {
			e = ""
		}
		s := stem
		if room := maxFileNameLength - len(suffix) - len(e); len(s) > room {
			s = s[:room]
		}
		return s + suffix + e
	}

	candidate := build(fmt.Sprintf("_team%d", teamID))
	for i := 2; taken[candidate]; i++ {
		candidate = build(fmt.Sprintf("_team%d_%d", teamID, i))
	}
	return candidate
}

// TransferOwnership 把团队所有权交给现有成员，原所有者降为 admin
func (r *TeamRepository) TransferOwnership(ctx context.Context, teamID, fromID, toID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Team{}).Where("id = ?", teamID).Update("owner_id", toID).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.TeamMember{}).
			Where("team_id = ? AND user_id = ?", teamID, toID).
			Update("role", model.RoleOwner).Error; err != nil {
			return err
		}
		return tx.Model(&model.TeamMember{}).
			Where("team_id = ? AND user_id = ?", teamID, fromID).
			Update("role", model.RoleAdmin).Error
	})
}
