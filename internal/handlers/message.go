package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/ws"
)

// MessageHandler serves message send and fetch endpoints.
type MessageHandler struct {
	directRepo repositories.DirectMessageRepository
	groupMsgs  repositories.GroupMessageRepository
	groupRepo  repositories.GroupRepository
	userRepo   repositories.UserRepository
	hub        *ws.Hub
	audit      *telemetry.AuditEmitter
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(directRepo repositories.DirectMessageRepository, groupMsgs repositories.GroupMessageRepository, groupRepo repositories.GroupRepository, userRepo repositories.UserRepository, hub *ws.Hub, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		directRepo: directRepo,
		groupMsgs:  groupMsgs,
		groupRepo:  groupRepo,
		userRepo:   userRepo,
		hub:        hub,
		audit:      audit,
	}
}

// SendMessage handles POST /messages. The request selects direct or group
// delivery; storage and responses use the matching typed shape, so a message
// never carries both a recipient and a group.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Content     string `json:"content"`
		IsDirect    bool   `json:"is_direct"`
		RecipientID string `json:"recipient_id"`
		GroupID     string `json:"group_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message content is required"})
		return
	}

	if req.IsDirect {
		h.sendDirect(c, userID, req.RecipientID, content)
		return
	}
	h.sendGroup(c, userID, req.GroupID, content)
}

func (h *MessageHandler) sendDirect(c *gin.Context, senderID, recipientID, content string) {
	if recipientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipient id is required for direct messages"})
		return
	}

	// recipients must be persisted users; there is no placeholder flow
	if _, err := h.userRepo.GetUser(c.Request.Context(), recipientID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "recipient not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve recipient"})
		return
	}

	msg, err := h.directRepo.CreateDirectMessage(c.Request.Context(), senderID, recipientID, content)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	observability.IncMessageStored("direct")
	h.hub.BroadcastDirectMessage(msg)
	h.publishMessageEvent(c, "messages.direct", msg.ID)
	h.emitAudit(c, "INFO", "Direct message sent")
	c.JSON(http.StatusCreated, gin.H{"message": msg, "is_direct": true})
}

func (h *MessageHandler) sendGroup(c *gin.Context, senderID, groupID, content string) {
	if groupID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group id is required for group messages"})
		return
	}

	member, err := h.groupRepo.IsMember(c.Request.Context(), groupID, senderID)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	msg, err := h.groupMsgs.CreateGroupMessage(c.Request.Context(), groupID, senderID, content)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	// Separate write; a failure leaves the pointer stale rather than failing
	// the send.
	if err := h.groupRepo.SetLastMessage(c.Request.Context(), groupID, msg.ID); err != nil {
		h.emitAudit(c, "ERROR", "last message update failed")
	}

	observability.IncMessageStored("group")
	h.hub.BroadcastGroupMessage(groupID, msg)
	h.publishMessageEvent(c, "messages.groups", msg.ID)
	h.emitAudit(c, "INFO", "Group message sent")
	c.JSON(http.StatusCreated, gin.H{"message": msg, "is_direct": false})
}

// ListDirectMessages handles GET /messages/direct.
func (h *MessageHandler) ListDirectMessages(c *gin.Context) {
	userID := c.GetString("userID")
	msgs, err := h.directRepo.ListDirectMessages(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	h.respondDirectMessages(c, msgs)
}

// ListDirectMessagesWith handles GET /messages/direct/:user_id.
func (h *MessageHandler) ListDirectMessagesWith(c *gin.Context) {
	userID := c.GetString("userID")
	otherID := c.Param("user_id")

	msgs, err := h.directRepo.ListDirectMessagesWith(c.Request.Context(), userID, otherID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	h.respondDirectMessages(c, msgs)
}

// ListGroupMessages handles GET /messages/group/:group_id. Membership is
// checked before any read; an unknown group reads as "not a member".
func (h *MessageHandler) ListGroupMessages(c *gin.Context) {
	groupID := c.Param("group_id")
	userID := c.GetString("userID")

	member, err := h.groupRepo.IsMember(c.Request.Context(), groupID, userID)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	msgs, err := h.groupMsgs.ListGroupMessages(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	senderNames, err := h.senderNames(c, groupSenderIDs(msgs))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load senders"})
		return
	}

	type messageResponse struct {
		models.GroupMessage
		SenderDisplayName string `json:"sender_display_name,omitempty"`
	}

	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, messageResponse{GroupMessage: m, SenderDisplayName: senderNames[m.SenderID]})
	}
	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

func (h *MessageHandler) respondDirectMessages(c *gin.Context, msgs []models.DirectMessage) {
	ids := make([]string, 0, 2*len(msgs))
	seen := map[string]struct{}{}
	for _, m := range msgs {
		for _, id := range []string{m.SenderID, m.RecipientID} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	names, err := h.senderNames(c, ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load senders"})
		return
	}

	type messageResponse struct {
		models.DirectMessage
		SenderDisplayName    string `json:"sender_display_name,omitempty"`
		RecipientDisplayName string `json:"recipient_display_name,omitempty"`
	}

	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, messageResponse{
			DirectMessage:        m,
			SenderDisplayName:    names[m.SenderID],
			RecipientDisplayName: names[m.RecipientID],
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

func (h *MessageHandler) senderNames(c *gin.Context, ids []string) (map[string]string, error) {
	names := map[string]string{}
	if len(ids) == 0 {
		return names, nil
	}
	refs, err := h.userRepo.GetUserRefs(c.Request.Context(), ids)
	if err != nil {
		return nil, err
	}
	for _, ref := range refs {
		names[ref.ID] = ref.DisplayName
	}
	return names, nil
}

func (h *MessageHandler) publishMessageEvent(c *gin.Context, routingKey, messageID string) {
	requestID := requestIDFromContext(c)
	_ = observability.PublishEvent(c.Request.Context(), routingKey, observability.EventEnvelope{
		EventType: "message_events",
		EventName: "message_created",
		Payload: map[string]interface{}{
			"message_id": messageID,
			"sender_id":  c.GetString("userID"),
		},
	}, observability.BuildHeaders(requestID, ""))
}

func (h *MessageHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

func groupSenderIDs(msgs []models.GroupMessage) []string {
	ids := make([]string, 0, len(msgs))
	seen := map[string]struct{}{}
	for _, m := range msgs {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			ids = append(ids, m.SenderID)
		}
	}
	return ids
}
