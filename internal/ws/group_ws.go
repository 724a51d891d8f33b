package ws

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"messaging-service/internal/observability"
	"messaging-service/internal/repositories"
)

// GroupWebSocketHandler handles group websocket connections.
type GroupWebSocketHandler struct {
	hub       *Hub
	groupRepo repositories.GroupRepository
	verifier  TokenVerifier
}

// NewGroupWebSocketHandler constructs a GroupWebSocketHandler.
func NewGroupWebSocketHandler(hub *Hub, groupRepo repositories.GroupRepository, verifier TokenVerifier) *GroupWebSocketHandler {
	return &GroupWebSocketHandler{hub: hub, groupRepo: groupRepo, verifier: verifier}
}

// Handle upgrades and registers a websocket connection for a group channel.
// Non-members are rejected before the upgrade.
func (h *GroupWebSocketHandler) Handle(c *gin.Context) {
	groupID := c.Param("group_id")

	ctx, span := otel.Tracer("messaging-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := authenticate(c, h.verifier)
	if !ok {
		return
	}

	member, err := h.groupRepo.IsMember(c.Request.Context(), groupID, userID)
	if err != nil || !member {
		abortForbidden(c, "not authorized for group")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddGroupClient(groupID, conn, info)

	observability.IncWSActive("group")
	observability.IncWSEvent("group", "ws_connect")
	publishLifecycleEvent(ctx, "group", groupID, "ws_connect", info, "")

	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveGroupClient(groupID, conn)
			conn.Close()
			observability.DecWSActive("group")
			observability.IncWSEvent("group", "ws_disconnect")
			publishLifecycleEvent(ctx, "group", groupID, "ws_disconnect", info, closeReason)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				return
			}
		}
	}()
}
