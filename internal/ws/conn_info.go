package ws

import "time"

// ConnInfo carries the identity and tracing context captured at websocket
// handshake time, attached to lifecycle and error events for that connection.
type ConnInfo struct {
	ConnID      string
	UserID      string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
