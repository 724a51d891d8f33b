package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// directMessagePageSize caps list reads. The API exposes no pagination
// cursor, so reads always return the newest page.
const directMessagePageSize = 50

// DirectMessageRepository defines interactions for direct messages.
type DirectMessageRepository interface {
	CreateDirectMessage(ctx context.Context, senderID, recipientID, content string) (models.DirectMessage, error)
	ListDirectMessages(ctx context.Context, userID string) ([]models.DirectMessage, error)
	ListDirectMessagesWith(ctx context.Context, userID, otherID string) ([]models.DirectMessage, error)
}

// DirectMessageRepo is a sqlx-backed implementation.
type DirectMessageRepo struct {
	db *sqlx.DB
}

// NewDirectMessageRepo constructs a DirectMessageRepo.
func NewDirectMessageRepo(db *sqlx.DB) *DirectMessageRepo {
	return &DirectMessageRepo{db: db}
}

// CreateDirectMessage persists a direct message. Messages are immutable once
// written.
func (r *DirectMessageRepo) CreateDirectMessage(ctx context.Context, senderID, recipientID, content string) (models.DirectMessage, error) {
	var msg models.DirectMessage
	err := r.db.QueryRowxContext(ctx, `INSERT INTO direct_messages (id, sender_id, recipient_id, content) VALUES ($1, $2, $3, $4) RETURNING id, sender_id, recipient_id, content, created_at`,
		uuid.NewString(), senderID, recipientID, content).
		Scan(&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.Content, &msg.CreatedAt)
	return msg, err
}

// ListDirectMessages returns the newest page of direct messages where the
// user is sender or recipient, newest first.
func (r *DirectMessageRepo) ListDirectMessages(ctx context.Context, userID string) ([]models.DirectMessage, error) {
	var msgs []models.DirectMessage
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, sender_id, recipient_id, content, created_at FROM direct_messages
        WHERE sender_id=$1 OR recipient_id=$1
        ORDER BY created_at DESC LIMIT $2`, userID, directMessagePageSize)
	return msgs, err
}

// ListDirectMessagesWith returns the newest page of the conversation between
// two users, newest first.
func (r *DirectMessageRepo) ListDirectMessagesWith(ctx context.Context, userID, otherID string) ([]models.DirectMessage, error) {
	var msgs []models.DirectMessage
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, sender_id, recipient_id, content, created_at FROM direct_messages
        WHERE (sender_id=$1 AND recipient_id=$2) OR (sender_id=$2 AND recipient_id=$1)
        ORDER BY created_at DESC LIMIT $3`, userID, otherID, directMessagePageSize)
	return msgs, err
}
