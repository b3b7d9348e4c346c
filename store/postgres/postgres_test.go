package postgres

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AustinSDK/Authincation-service/errors"
	"github.com/AustinSDK/Authincation-service/store"
)

func newMock(t *testing.T) (store.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func TestCreateUserTranslatesUniqueViolation(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: uniqueViolation})

	err := s.CreateUser(t.Context(), &store.User{
		Username: "alice", Email: "alice@example.com", PasswordHash: "h",
	})
	assert.True(t, errors.Is(err, store.ErrAlreadyExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserByUsernameNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE LOWER").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "username", "display_name", "email", "email_verified",
			"password_hash", "permissions", "created_at",
		}))

	_, err := s.UserByUsername(t.Context(), "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserByIDNormalizesPermissions(t *testing.T) {
	s, mock := newMock(t)

	rows := sqlmock.NewRows([]string{
		"id", "username", "display_name", "email", "email_verified",
		"password_hash", "permissions", "created_at",
	}).AddRow(int64(7), "legacy", "Legacy", "legacy@example.com", false, "h", nil, int64(0))

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(rows)

	u, err := s.UserByID(t.Context(), 7)
	require.NoError(t, err)
	assert.Equal(t, []string{}, u.Permissions, "NULL column should decode to an empty set")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPasswordRunsInTransaction(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs("newhash", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM sessions WHERE user_id").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, s.ResetUserPassword(t.Context(), 3, "newhash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPasswordRollsBackOnMissingUser(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs("newhash", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.ResetUserPassword(t.Context(), 9, "newhash")
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeAuthCodeLoserRollsBack(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM oauth_authorization_codes WHERE code").
		WithArgs("raced").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.ConsumeAuthCode(t.Context(), "raced", &store.AccessToken{Token: "at"})
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteApplicationCascadeCounts(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT client_id FROM oauth_applications").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"client_id"}).AddRow("client-4"))
	mock.ExpectExec("DELETE FROM oauth_authorization_codes WHERE client_id").
		WithArgs("client-4").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM oauth_access_tokens WHERE client_id").
		WithArgs("client-4").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("DELETE FROM oauth_applications WHERE id").
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := s.DeleteApplication(t.Context(), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.CodesDeleted)
	assert.Equal(t, int64(5), result.TokensDeleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
