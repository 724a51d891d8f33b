package models

import "time"

// Group is a named chat group. Members and admins are relations into the
// users table; every admin is also a member.
type Group struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	LastMessageID *string   `db:"last_message_id" json:"last_message_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// GroupDetail is the API view of a group with member and admin identities
// resolved to display data.
type GroupDetail struct {
	Group
	Members []UserRef `json:"members"`
	Admins  []UserRef `json:"admins"`
}

// UserRef is the denormalized user slice embedded in group and message
// responses.
type UserRef struct {
	ID          string `db:"id" json:"id"`
	DisplayName string `db:"display_name" json:"display_name"`
	Email       string `db:"email" json:"email"`
}
