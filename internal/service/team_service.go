package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go-markboard/internal/model"
	"go-markboard/internal/repository"
	"go-markboard/pkg/logger"

	"go.uber.org/zap"
)

const (
	maxTeamNameLength        = 100
	maxTeamDescriptionLength = 500
)

// TeamService 团队成员管理。角色和所有权检查总是在任何修改之前完成。
type TeamService struct {
	teams    *repository.TeamRepository
	members  *repository.TeamMemberRepository
	users    *repository.UserRepository
	activity *ActivityService
}

func NewTeamService(
	teams *repository.TeamRepository,
	members *repository.TeamMemberRepository,
	users *repository.UserRepository,
	activity *ActivityService,
) *TeamService {
	return &TeamService{teams: teams, members: members, users: users, activity: activity}
}

type CreateTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *TeamService) loadTeam(ctx context.Context, teamID uint) (*model.Team, error) {
	team, err := s.teams.FindByID(ctx, teamID)
	if err != nil {
		return nil, operationFailed("Failed to load team", err)
	}
	if team == nil {
		return nil, notFound("Team not found")
	}
	return team, nil
}

func (s *TeamService) findMember(ctx context.Context, teamID, userID uint) (*model.TeamMember, error) {
	member, err := s.members.Find(ctx, teamID, userID)
	if err != nil {
		return nil, operationFailed("Failed to load team membership", err)
	}
	return member, nil
}

// CreateTeam 创建团队，创建者成为 owner
func (s *TeamService) CreateTeam(ctx context.Context, ownerID uint, req CreateTeamRequest) (*repository.TeamSummary, error) {
	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)
	if name == "" {
		return nil, invalidInput("Team name is required")
	}
	if utf8.RuneCountInString(name) > maxTeamNameLength {
		return nil, invalidInput("Team name must be 100 characters or less")
	}
	if utf8.RuneCountInString(description) > maxTeamDescriptionLength {
		return nil, invalidInput("Description must be 500 characters or less")
	}

	existing, err := s.teams.FindByName(ctx, name)
	if err != nil {
		return nil, operationFailed("Failed to create team", err)
	}
	if existing != nil {
		return nil, conflict("Team name already exists")
	}

	team := &model.Team{Name: name, Description: description, OwnerID: ownerID}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, operationFailed("Failed to create team", err)
	}

	s.activity.Record(ctx, ownerID, model.ActionTeamCreated, model.ResourceTeam, uintPtr(team.ID), "Created team: "+name)
	logger.L.Info("Team created", zap.Uint("teamID", team.ID), zap.Uint("ownerID", ownerID))

	return &repository.TeamSummary{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		OwnerID:     team.OwnerID,
		CreatedAt:   team.CreatedAt,
		MemberCount: 1,
		Role:        model.RoleOwner,
	}, nil
}

// JoinTeam 以 member 角色加入团队
func (s *TeamService) JoinTeam(ctx context.Context, teamID, userID uint) error {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	member, err := s.findMember(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if member != nil {
		return conflict("Already a member of this team")
	}

	if err := s.members.Add(ctx, teamID, userID, model.RoleMember); err != nil {
		return operationFailed("Failed to join team", err)
	}

	s.activity.Record(ctx, userID, model.ActionTeamJoined, model.ResourceTeam, uintPtr(teamID), "Joined team: "+team.Name)
	return nil
}

// LeaveTeam 退出团队，所有者不能退出
func (s *TeamService) LeaveTeam(ctx context.Context, teamID, userID uint) error {
	member, err := s.findMember(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return invalidState("Not a member of this team")
	}
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team.OwnerID == userID || member.Role == model.RoleOwner {
		return forbidden("Team owner cannot leave the team. Transfer ownership or disband the team instead.")
	}

	if _, err := s.members.Remove(ctx, teamID, userID); err != nil {
		return operationFailed("Failed to leave team", err)
	}

	s.activity.Record(ctx, userID, model.ActionTeamLeft, model.ResourceTeam, uintPtr(teamID), "Left team: "+team.Name)
	return nil
}

// KickUser 由 owner 或 admin 移除成员，所有者不能被移除
func (s *TeamService) KickUser(ctx context.Context, teamID, targetID, actorID uint) error {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	actor, err := s.findMember(ctx, teamID, actorID)
	if err != nil {
		return err
	}
	if team.OwnerID != actorID && (actor == nil || !actor.CanManageMembers()) {
		return forbidden("Insufficient permissions")
	}
	if targetID == team.OwnerID {
		return forbidden("Cannot kick the team owner")
	}
	target, err := s.findMember(ctx, teamID, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return invalidState("User is not a member of this team")
	}

	if _, err := s.members.Remove(ctx, teamID, targetID); err != nil {
		return operationFailed("Failed to remove user from team", err)
	}

	who := fmt.Sprintf("user %d", targetID)
	if user, err := s.users.FindByID(ctx, targetID); err == nil && user != nil {
		who = user.Email
	}
	s.activity.Record(ctx, actorID, model.ActionTeamMemberKicked, model.ResourceTeam, uintPtr(teamID),
		fmt.Sprintf("Kicked %s from team: %s", who, team.Name))
	return nil
}

// DisbandTeam 解散团队，团队文件转为各自所有者的个人文件。返回转移的文件数。
func (s *TeamService) DisbandTeam(ctx context.Context, teamID, actorID uint) (int, error) {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return 0, err
	}
	if team.OwnerID != actorID {
		return 0, forbidden("Only team owner can disband the team")
	}

	moved, err := s.teams.Disband(ctx, team)
	if err != nil {
		return 0, operationFailed("Failed to disband team", err)
	}

	s.activity.Record(ctx, actorID, model.ActionTeamDeleted, model.ResourceTeam, uintPtr(teamID), "Disbanded team: "+team.Name)
	logger.L.Info("Team disbanded", zap.Uint("teamID", teamID), zap.Int("filesMoved", moved))
	return moved, nil
}

// TransferOwnership 把所有权交给现有成员，原所有者成为 admin
func (s *TeamService) TransferOwnership(ctx context.Context, teamID, actorID, newOwnerID uint) error {
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team.OwnerID != actorID {
		return forbidden("Only team owner can transfer ownership")
	}
	if newOwnerID == actorID {
		return invalidInput("You already own this team")
	}
	target, err := s.findMember(ctx, teamID, newOwnerID)
	if err != nil {
		return err
	}
	if target == nil {
		return invalidState("User is not a member of this team")
	}

	if err := s.teams.TransferOwnership(ctx, teamID, actorID, newOwnerID); err != nil {
		return operationFailed("Failed to transfer ownership", err)
	}

	s.activity.Record(ctx, actorID, model.ActionTeamTransferred, model.ResourceTeam, uintPtr(teamID),
		fmt.Sprintf("Transferred team %s to user %d", team.Name, newOwnerID))
	return nil
}

// SetMemberRole 由所有者在 admin 和 member 之间调整成员角色
func (s *TeamService) SetMemberRole(ctx context.Context, teamID, actorID, targetID uint, role string) error {
	if !model.ValidRole(role) || role == model.RoleOwner {
		return invalidInput("Role must be 'admin' or 'member'")
	}
	team, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team.OwnerID != actorID {
		return forbidden("Only team owner can change member roles")
	}
	if targetID == team.OwnerID {
		return forbidden("Cannot change the team owner's role")
	}
	target, err := s.findMember(ctx, teamID, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return invalidState("User is not a member of this team")
	}

	if err := s.members.UpdateRole(ctx, teamID, targetID, role); err != nil {
		return operationFailed("Failed to update member role", err)
	}

	s.activity.Record(ctx, actorID, model.ActionTeamRoleChanged, model.ResourceTeam, uintPtr(teamID),
		fmt.Sprintf("Changed role of user %d in team %s to %s", targetID, team.Name, role))
	return nil
}

func (s *TeamService) ListMyTeams(ctx context.Context, userID uint) ([]repository.TeamSummary, error) {
	teams, err := s.teams.ListForUser(ctx, userID)
	if err != nil {
		return nil, operationFailed("Failed to list teams", err)
	}
	return teams, nil
}

func (s *TeamService) CountMyTeams(ctx context.Context, userID uint) (int64, error) {
	n, err := s.teams.CountForUser(ctx, userID)
	if err != nil {
		return 0, operationFailed("Failed to count teams", err)
	}
	return n, nil
}

// ListAvailable 用户可以加入的团队
func (s *TeamService) ListAvailable(ctx context.Context, userID uint) ([]repository.TeamSummary, error) {
	teams, err := s.teams.ListAvailable(ctx, userID)
	if err != nil {
		return nil, operationFailed("Failed to list teams", err)
	}
	return teams, nil
}

// Details 团队详情，只对成员可见
func (s *TeamService) Details(ctx context.Context, teamID, userID uint) (*repository.TeamSummary, error) {
	member, err := s.findMember(ctx, teamID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, notFound("Team not found or access denied")
	}
	summary, err := s.teams.Summary(ctx, teamID)
	if err != nil {
		return nil, operationFailed("Failed to load team", err)
	}
	if summary == nil {
		return nil, notFound("Team not found or access denied")
	}
	summary.Role = member.Role
	return summary, nil
}

// ListMembers 团队成员列表，只对成员可见
func (s *TeamService) ListMembers(ctx context.Context, teamID, userID uint) ([]repository.MemberInfo, error) {
	member, err := s.findMember(ctx, teamID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, accessDenied("Access denied")
	}
	members, err := s.members.ListMembers(ctx, teamID)
	if err != nil {
		return nil, operationFailed("Failed to list team members", err)
	}
	return members, nil
}
