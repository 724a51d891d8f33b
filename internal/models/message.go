package models

import "time"

// DirectMessage is a message between exactly two users. The recipient is
// always set; direct messages never reference a group.
type DirectMessage struct {
	ID          string    `db:"id" json:"id"`
	SenderID    string    `db:"sender_id" json:"sender_id"`
	RecipientID string    `db:"recipient_id" json:"recipient_id"`
	Content     string    `db:"content" json:"content"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// GroupMessage is a message addressed to all members of a group. The group
// reference is always set; group messages never name a recipient.
type GroupMessage struct {
	ID        string    `db:"id" json:"id"`
	GroupID   string    `db:"group_id" json:"group_id"`
	SenderID  string    `db:"sender_id" json:"sender_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DirectEvent is broadcasted through websockets for direct messages.
type DirectEvent struct {
	Type    string         `json:"type"`
	Message *DirectMessage `json:"message,omitempty"`
}

// GroupEvent is emitted over WebSocket connections for groups.
type GroupEvent struct {
	Type    string        `json:"type"`
	Message *GroupMessage `json:"message,omitempty"`
}
