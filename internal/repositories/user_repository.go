package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messaging-service/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// UserRepository abstracts user persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, email, passwordHash, displayName string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUser(ctx context.Context, userID string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUserRefs(ctx context.Context, userIDs []string) ([]models.UserRef, error)
	UsersExist(ctx context.Context, userIDs []string) (bool, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateUser inserts a new user. A duplicate email yields ErrEmailTaken.
func (r *UserRepo) CreateUser(ctx context.Context, email, passwordHash, displayName string) (models.User, error) {
	var user models.User
	err := r.db.QueryRowxContext(ctx, `INSERT INTO users (id, email, password_hash, display_name) VALUES ($1, $2, $3, $4) RETURNING id, email, password_hash, display_name, created_at`,
		uuid.NewString(), email, passwordHash, displayName).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	return user, nil
}

// GetUserByEmail fetches a user by email.
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, email, password_hash, display_name, created_at FROM users WHERE email=$1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, email, password_hash, display_name, created_at FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// ListUsers returns every registered user.
func (r *UserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT id, email, password_hash, display_name, created_at FROM users ORDER BY display_name ASC`)
	return users, err
}

// GetUserRefs fetches display data for a set of user ids.
func (r *UserRepo) GetUserRefs(ctx context.Context, userIDs []string) ([]models.UserRef, error) {
	if len(userIDs) == 0 {
		return []models.UserRef{}, nil
	}
	var refs []models.UserRef
	err := r.db.SelectContext(ctx, &refs, `SELECT id, display_name, email FROM users WHERE id = ANY($1)`, pq.Array(userIDs))
	return refs, err
}

// UsersExist reports whether every id resolves to a persisted user.
func (r *UserRepo) UsersExist(ctx context.Context, userIDs []string) (bool, error) {
	if len(userIDs) == 0 {
		return true, nil
	}
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(DISTINCT id) FROM users WHERE id = ANY($1)`, pq.Array(userIDs))
	if err != nil {
		return false, err
	}
	distinct := map[string]struct{}{}
	for _, id := range userIDs {
		distinct[id] = struct{}{}
	}
	return count == len(distinct), nil
}
