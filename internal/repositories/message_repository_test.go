package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestCreateDirectMessageReturnsInsertedRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDirectMessageRepo(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO direct_messages`)).
		WithArgs(sqlmock.AnyArg(), "u1", "u2", "hi").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sender_id", "recipient_id", "content", "created_at"}).
			AddRow("m1", "u1", "u2", "hi", now))

	msg, err := repo.CreateDirectMessage(context.Background(), "u1", "u2", "hi")
	require.NoError(t, err)
	require.Equal(t, "m1", msg.ID)
	require.Equal(t, "u2", msg.RecipientID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDirectMessagesCapsPageSize(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDirectMessageRepo(db)

	now := time.Now()
	mock.ExpectQuery(`FROM direct_messages`).
		WithArgs("u1", directMessagePageSize).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sender_id", "recipient_id", "content", "created_at"}).
			AddRow("m2", "u2", "u1", "newer", now).
			AddRow("m1", "u1", "u2", "older", now.Add(-time.Minute)))

	msgs, err := repo.ListDirectMessages(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "newer", msgs[0].Content)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDirectMessagesWithPassesBothParties(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDirectMessageRepo(db)

	mock.ExpectQuery(`FROM direct_messages`).
		WithArgs("u1", "u2", directMessagePageSize).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sender_id", "recipient_id", "content", "created_at"}))

	msgs, err := repo.ListDirectMessagesWith(context.Background(), "u1", "u2")
	require.NoError(t, err)
	require.Empty(t, msgs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGroupMessageReturnsInsertedRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGroupMessageRepo(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO group_messages`)).
		WithArgs(sqlmock.AnyArg(), "g1", "u1", "hello").
		WillReturnRows(sqlmock.NewRows([]string{"id", "group_id", "sender_id", "content", "created_at"}).
			AddRow("m1", "g1", "u1", "hello", now))

	msg, err := repo.CreateGroupMessage(context.Background(), "g1", "u1", "hello")
	require.NoError(t, err)
	require.Equal(t, "g1", msg.GroupID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListGroupMessagesCapsPageSize(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGroupMessageRepo(db)

	mock.ExpectQuery(`FROM group_messages`).
		WithArgs("g1", groupMessagePageSize).
		WillReturnRows(sqlmock.NewRows([]string{"id", "group_id", "sender_id", "content", "created_at"}))

	msgs, err := repo.ListGroupMessages(context.Background(), "g1")
	require.NoError(t, err)
	require.Empty(t, msgs)
	require.NoError(t, mock.ExpectationsWereMet())
}
