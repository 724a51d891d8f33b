package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
)

// GroupHandler manages group-related endpoints.
type GroupHandler struct {
	groupRepo repositories.GroupRepository
	userRepo  repositories.UserRepository
	audit     *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groupRepo repositories.GroupRepository, userRepo repositories.UserRepository, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{groupRepo: groupRepo, userRepo: userRepo, audit: audit}
}

// CreateGroup handles POST /groups. A group needs a name and at least two
// members besides the creator; every member id must resolve to a persisted
// user. The creator is always appended and becomes the sole admin.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Name      string   `json:"name" binding:"required"`
		MemberIDs []string `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	others := 0
	for _, id := range req.MemberIDs {
		if id != userID {
			others++
		}
	}
	if others < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least 2 other members are required"})
		return
	}

	ok, err := h.userRepo.UsersExist(c.Request.Context(), req.MemberIDs)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate members"})
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown member id"})
		return
	}

	group, err := h.groupRepo.CreateGroup(c.Request.Context(), userID, req.Name, req.MemberIDs)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	detail, err := h.groupDetail(c, group)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load group"})
		return
	}

	h.emitAudit(c, "INFO", "Group created")
	c.JSON(http.StatusCreated, detail)
}

// ListGroups returns groups the caller belongs to.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	userID := c.GetString("userID")
	groups, err := h.groupRepo.ListGroupsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// GetGroup handles GET /groups/:group_id. Non-members are rejected before
// any group data is revealed.
func (h *GroupHandler) GetGroup(c *gin.Context) {
	groupID := c.Param("group_id")
	userID := c.GetString("userID")

	member, err := h.groupRepo.IsMember(c.Request.Context(), groupID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	group, err := h.groupRepo.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrGroupNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "group not found"})
		return
	}

	detail, err := h.groupDetail(c, group)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load group"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *GroupHandler) groupDetail(c *gin.Context, group models.Group) (models.GroupDetail, error) {
	members, err := h.groupRepo.GroupMembers(c.Request.Context(), group.ID)
	if err != nil {
		return models.GroupDetail{}, err
	}
	admins, err := h.groupRepo.GroupAdmins(c.Request.Context(), group.ID)
	if err != nil {
		return models.GroupDetail{}, err
	}
	return models.GroupDetail{Group: group, Members: members, Admins: admins}, nil
}

func (h *GroupHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
