package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var ErrGroupNotFound = errors.New("group not found")

// GroupRepository abstracts group persistence.
type GroupRepository interface {
	CreateGroup(ctx context.Context, creatorID string, name string, memberIDs []string) (models.Group, error)
	ListGroupsForUser(ctx context.Context, userID string) ([]models.Group, error)
	GetGroup(ctx context.Context, groupID string) (models.Group, error)
	IsMember(ctx context.Context, groupID string, userID string) (bool, error)
	GroupMembers(ctx context.Context, groupID string) ([]models.UserRef, error)
	GroupAdmins(ctx context.Context, groupID string) ([]models.UserRef, error)
	SetLastMessage(ctx context.Context, groupID string, messageID string) error
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

// CreateGroup creates a group with its member and admin rows atomically.
// The creator is always a member and the sole admin.
func (r *GroupRepo) CreateGroup(ctx context.Context, creatorID string, name string, memberIDs []string) (models.Group, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Group{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var group models.Group
	if err = tx.QueryRowxContext(ctx, `INSERT INTO groups (id, name) VALUES ($1, $2) RETURNING id, name, last_message_id, created_at`,
		uuid.NewString(), name).
		Scan(&group.ID, &group.Name, &group.LastMessageID, &group.CreatedAt); err != nil {
		return models.Group{}, err
	}

	// creator is always present; dedupe the rest
	memberSet := map[string]struct{}{creatorID: {}}
	for _, id := range memberIDs {
		memberSet[id] = struct{}{}
	}
	ids := make([]string, 0, len(memberSet))
	for id := range memberSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if _, err = tx.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`, group.ID, id); err != nil {
			return models.Group{}, err
		}
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO group_admins (group_id, user_id) VALUES ($1, $2)`, group.ID, creatorID); err != nil {
		return models.Group{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Group{}, err
	}
	return group, nil
}

// ListGroupsForUser returns groups where the user is a member or an admin.
// Admins are members by construction, so the admin branch is defensive.
func (r *GroupRepo) ListGroupsForUser(ctx context.Context, userID string) ([]models.Group, error) {
	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups, `SELECT DISTINCT g.id, g.name, g.last_message_id, g.created_at FROM groups g
        LEFT JOIN group_members gm ON gm.group_id = g.id
        LEFT JOIN group_admins ga ON ga.group_id = g.id
        WHERE gm.user_id=$1 OR ga.user_id=$1
        ORDER BY g.created_at DESC`, userID)
	return groups, err
}

// GetGroup fetches a single group.
func (r *GroupRepo) GetGroup(ctx context.Context, groupID string) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT id, name, last_message_id, created_at FROM groups WHERE id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, err
}

// IsMember checks membership. An unknown group reads as "not a member".
func (r *GroupRepo) IsMember(ctx context.Context, groupID string, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id=$1 AND user_id=$2)`, groupID, userID)
	return exists, err
}

// GroupMembers returns the member identities of a group.
func (r *GroupRepo) GroupMembers(ctx context.Context, groupID string) ([]models.UserRef, error) {
	var members []models.UserRef
	err := r.db.SelectContext(ctx, &members, `SELECT u.id, u.display_name, u.email FROM users u
        INNER JOIN group_members gm ON gm.user_id = u.id
        WHERE gm.group_id=$1 ORDER BY u.display_name ASC`, groupID)
	return members, err
}

// GroupAdmins returns the admin identities of a group.
func (r *GroupRepo) GroupAdmins(ctx context.Context, groupID string) ([]models.UserRef, error) {
	var admins []models.UserRef
	err := r.db.SelectContext(ctx, &admins, `SELECT u.id, u.display_name, u.email FROM users u
        INNER JOIN group_admins ga ON ga.user_id = u.id
        WHERE ga.group_id=$1 ORDER BY u.display_name ASC`, groupID)
	return admins, err
}

// SetLastMessage updates the group's last-message pointer. This runs as a
// separate write after the message insert; a failure here leaves the pointer
// stale, which callers accept.
func (r *GroupRepo) SetLastMessage(ctx context.Context, groupID string, messageID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE groups SET last_message_id=$2 WHERE id=$1`, groupID, messageID)
	return err
}
