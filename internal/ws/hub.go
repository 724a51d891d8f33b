package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"messaging-service/internal/models"
	"messaging-service/internal/observability"
)

// Hub maintains active websocket rooms. Group rooms are keyed by group id;
// direct rooms are keyed by the subscribing user's id. Delivery is advisory:
// a write failure drops the connection and nothing is replayed.
type Hub struct {
	groupRooms     map[string]map[*websocket.Conn]bool
	directRooms    map[string]map[*websocket.Conn]bool
	groupConnInfo  map[string]map[*websocket.Conn]ConnInfo
	directConnInfo map[string]map[*websocket.Conn]ConnInfo
	mu             sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		groupRooms:     make(map[string]map[*websocket.Conn]bool),
		directRooms:    make(map[string]map[*websocket.Conn]bool),
		groupConnInfo:  make(map[string]map[*websocket.Conn]ConnInfo),
		directConnInfo: make(map[string]map[*websocket.Conn]ConnInfo),
	}
}

// AddGroupClient registers a websocket connection to a group room.
func (h *Hub) AddGroupClient(groupID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.groupRooms[groupID]; !ok {
		h.groupRooms[groupID] = make(map[*websocket.Conn]bool)
	}
	h.groupRooms[groupID][conn] = true
	if _, ok := h.groupConnInfo[groupID]; !ok {
		h.groupConnInfo[groupID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.groupConnInfo[groupID][conn] = info
}

// RemoveGroupClient removes a group websocket connection.
func (h *Hub) RemoveGroupClient(groupID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.groupRooms[groupID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.groupRooms, groupID)
		}
	}
	if infos, ok := h.groupConnInfo[groupID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.groupConnInfo, groupID)
		}
	}
}

// AddDirectClient registers a websocket connection to a user's direct room.
func (h *Hub) AddDirectClient(userID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.directRooms[userID]; !ok {
		h.directRooms[userID] = make(map[*websocket.Conn]bool)
	}
	h.directRooms[userID][conn] = true
	if _, ok := h.directConnInfo[userID]; !ok {
		h.directConnInfo[userID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.directConnInfo[userID][conn] = info
}

// RemoveDirectClient removes a direct websocket connection.
func (h *Hub) RemoveDirectClient(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.directRooms[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.directRooms, userID)
		}
	}
	if infos, ok := h.directConnInfo[userID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.directConnInfo, userID)
		}
	}
}

// RoomCounts reports the number of open connections per group room and per
// direct room. Used by the debug surface.
func (h *Hub) RoomCounts() (groups map[string]int, direct map[string]int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	groups = make(map[string]int, len(h.groupRooms))
	for id, conns := range h.groupRooms {
		groups[id] = len(conns)
	}
	direct = make(map[string]int, len(h.directRooms))
	for id, conns := range h.directRooms {
		direct[id] = len(conns)
	}
	return groups, direct
}

// BroadcastGroupMessage sends a message event to all clients in a group room.
func (h *Hub) BroadcastGroupMessage(groupID string, msg models.GroupMessage) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.groupRooms[groupID]))
	for conn := range h.groupRooms[groupID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	event := models.GroupEvent{Type: "message", Message: &msg}
	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.RemoveGroupClient(groupID, conn)
			h.publishWSError("group", groupID, conn, err)
		}
	}
}

// BroadcastDirectMessage sends a message event to the direct rooms of both
// the sender and the recipient.
func (h *Hub) BroadcastDirectMessage(msg models.DirectMessage) {
	event := models.DirectEvent{Type: "message", Message: &msg}
	payload, _ := json.Marshal(event)

	for _, userID := range []string{msg.RecipientID, msg.SenderID} {
		h.mu.RLock()
		conns := make([]*websocket.Conn, 0, len(h.directRooms[userID]))
		for conn := range h.directRooms[userID] {
			conns = append(conns, conn)
		}
		h.mu.RUnlock()

		for _, conn := range conns {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("websocket write error: %v", err)
				conn.Close()
				h.RemoveDirectClient(userID, conn)
				h.publishWSError("direct", userID, conn, err)
			}
		}
	}
}

func (h *Hub) publishWSError(kind, resourceID string, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(kind, resourceID, conn)
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        kind,
			"resource_id": resourceID,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent(kind, "ws_error")
}

func (h *Hub) getConnInfo(kind, resourceID string, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if kind == "group" {
		if infos, ok := h.groupConnInfo[resourceID]; ok {
			info, exists := infos[conn]
			return info, exists
		}
		return ConnInfo{}, false
	}
	if infos, ok := h.directConnInfo[resourceID]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}

func wsRoutingKey(kind string) string {
	if kind == "group" {
		return "ws_events.groups"
	}
	return "ws_events.direct"
}
