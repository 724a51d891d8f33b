package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/telemetry"
	"messaging-service/internal/ws"
)

// RegisterDebugRoutes wires debug-only endpoints. These are off unless
// DEBUG_ROUTES is set; they leak internals and must never be exposed in
// production.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, hub *ws.Hub, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/debug/ws-rooms", func(c *gin.Context) {
		groups, direct := hub.RoomCounts()
		c.JSON(http.StatusOK, gin.H{"group_rooms": groups, "direct_rooms": direct})
	})
}
