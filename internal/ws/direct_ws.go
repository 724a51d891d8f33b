package ws

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"messaging-service/internal/observability"
)

// DirectWebSocketHandler handles direct-message websocket connections. Each
// authenticated user subscribes to their own room and receives direct
// messages they send or are addressed.
type DirectWebSocketHandler struct {
	hub      *Hub
	verifier TokenVerifier
}

// NewDirectWebSocketHandler constructs a DirectWebSocketHandler.
func NewDirectWebSocketHandler(hub *Hub, verifier TokenVerifier) *DirectWebSocketHandler {
	return &DirectWebSocketHandler{hub: hub, verifier: verifier}
}

// Handle upgrades and registers a websocket connection for the caller's
// direct-message channel.
func (h *DirectWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messaging-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := authenticate(c, h.verifier)
	if !ok {
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
	h.hub.AddDirectClient(userID, conn, info)

	observability.IncWSActive("direct")
	observability.IncWSEvent("direct", "ws_connect")
	publishLifecycleEvent(ctx, "direct", userID, "ws_connect", info, "")

	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveDirectClient(userID, conn)
			conn.Close()
			observability.DecWSActive("direct")
			observability.IncWSEvent("direct", "ws_disconnect")
			publishLifecycleEvent(ctx, "direct", userID, "ws_disconnect", info, closeReason)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				return
			}
		}
	}()
}
