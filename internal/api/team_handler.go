package api

import (
	"net/http"

	"go-markboard/internal/service"

	"github.com/gin-gonic/gin"
)

type TeamHandler struct {
	teamService *service.TeamService
}

func NewTeamHandler(teamService *service.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

type memberRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *TeamHandler) ListMine(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	teams, err := h.teamService.ListMyTeams(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

func (h *TeamHandler) Count(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	count, err := h.teamService.CountMyTeams(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *TeamHandler) ListAvailable(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	teams, err := h.teamService.ListAvailable(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

func (h *TeamHandler) Create(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	var req service.CreateTeamRequest
	if !bindJSON(c, &req) {
		return
	}

	team, err := h.teamService.CreateTeam(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, team, "Team created successfully")
}

func (h *TeamHandler) Details(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := getIDFromParam(c, "id")
	if !ok {
		return
	}

	team, err := h.teamService.Details(c.Request.Context(), teamID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, team, "")
}

func (h *TeamHandler) Disband(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := getIDFromParam(c, "id")
	if !ok {
		return
	}

	moved, err := h.teamService.DisbandTeam(c.Request.Context(), teamID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"files_reassigned": moved}, "Team disbanded successfully")
}

func (h *TeamHandler) Join(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := getIDFromParam(c, "id")
	if !ok {
		return
	}

	if err := h.teamService.JoinTeam(c.Request.Context(), teamID, userID); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Joined team successfully")
}

func (h *TeamHandler) Leave(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := getIDFromParam(c, "id")
	if !ok {
		return
	}

	if err := h.teamService.LeaveTeam(c.Request.Context(), teamID, userID); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Left team successfully")
}

func (h *TeamHandler) Kick(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := getIDFromParam(c, "id")
	if !ok {
		return
	}
	var req memberRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.teamService.KickUser(c.Request.Context(), teamID, req.UserID, userID); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "User removed from team successfully")
}

func (h *TeamHandler) Members(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := getIDFromParam(c, "id")
	if !ok {
		return
	}

	members, err := h.teamService.ListMembers(c.Request.Context(), teamID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": members})
}

func (h *TeamHandler) Transfer(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := getIDFromParam(c, "id")
	if !ok {
		return
	}
	var req memberRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.teamService.TransferOwnership(c.Request.Context(), teamID, userID, req.UserID); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Ownership transferred successfully")
}

func (h *TeamHandler) SetRole(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}
	teamID, ok := getIDFromParam(c, "id")
	if !ok {
		return
	}
	targetID, ok := getIDFromParam(c, "user_id")
	if !ok {
		return
	}
	var req roleRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.teamService.SetMemberRole(c.Request.Context(), teamID, userID, targetID, req.Role); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nil, "Role updated successfully")
}
