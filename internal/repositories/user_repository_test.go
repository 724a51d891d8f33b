package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestCreateUserReturnsInsertedRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs(sqlmock.AnyArg(), "alice@example.com", "hash", "Alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "display_name", "created_at"}).
			AddRow("u1", "alice@example.com", "hash", "Alice", now))

	user, err := repo.CreateUser(context.Background(), "alice@example.com", "hash", "Alice")
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)
	require.Equal(t, "Alice", user.DisplayName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs(sqlmock.AnyArg(), "alice@example.com", "hash", "Alice").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.CreateUser(context.Background(), "alice@example.com", "hash", "Alice")
	require.ErrorIs(t, err, ErrEmailTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmailNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, email, password_hash, display_name, created_at FROM users WHERE email=$1`)).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "display_name", "created_at"}))

	_, err := repo.GetUserByEmail(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersExistCountsDistinctIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	ids := []string{"u1", "u2", "u1"}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(DISTINCT id) FROM users WHERE id = ANY($1)`)).
		WithArgs(pq.Array(ids)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	ok, err := repo.UsersExist(context.Background(), ids)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersExistMissingID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	ids := []string{"u1", "ghost"}
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(DISTINCT id) FROM users WHERE id = ANY($1)`)).
		WithArgs(pq.Array(ids)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := repo.UsersExist(context.Background(), ids)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUsersExistEmptyInput(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewUserRepo(db)

	ok, err := repo.UsersExist(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, ok)
}
