package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classpulse/attendance-core/internal/models"
)

func newSessionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sessionRows(id string, method models.GenerationMethod) *sqlmock.Rows {
	day := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{"id", "slot_id", "date", "method", "closed", "starts_at", "created_at", "updated_at"}).
		AddRow(id, "slot-1", day, string(method), false, nil, time.Now(), time.Now())
}

func TestSessionRepositoryGetOrCreate(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	day := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO sessions").
		WithArgs(sqlmock.AnyArg(), "slot-1", day, string(models.MethodQR), sqlmock.AnyArg()).
		WillReturnRows(sessionRows("sess-1", models.MethodQR))

	session, err := repo.GetOrCreate(context.Background(), "slot-1", day, models.MethodQR)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.ID)
	assert.Equal(t, models.MethodQR, session.Method)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryIssueTokenDeactivatesThenInserts(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	expiresAt := time.Date(2026, time.January, 5, 10, 10, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM sessions WHERE id = $1 FOR UPDATE")).
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sess-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE checkin_tokens SET active = false WHERE session_id = $1 AND active")).
		WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO checkin_tokens").
		WithArgs(sqlmock.AnyArg(), "sess-1", "nonce-1", expiresAt, true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "nonce", "expires_at", "active", "created_at"}).
			AddRow("tok-1", "sess-1", "nonce-1", expiresAt, true, time.Now()))
	mock.ExpectCommit()

	stored, err := repo.IssueToken(context.Background(), &models.CheckInToken{
		SessionID: "sess-1",
		Nonce:     "nonce-1",
		ExpiresAt: expiresAt,
	})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", stored.ID)
	assert.True(t, stored.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryIssueTokenLockFailureRollsBack(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	// A racer holding the session row blocks the lock until its commit; a
	// lock error must abort before any token row is touched.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM sessions WHERE id = $1 FOR UPDATE")).
		WithArgs("sess-1").
		WillReturnError(errors.New("canceling statement due to lock timeout"))
	mock.ExpectRollback()

	_, err := repo.IssueToken(context.Background(), &models.CheckInToken{SessionID: "sess-1", Nonce: "n"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryIssueTokenRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM sessions WHERE id = $1 FOR UPDATE")).
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sess-1"))
	mock.ExpectExec("UPDATE checkin_tokens SET active = false").
		WithArgs("sess-1").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.IssueToken(context.Background(), &models.CheckInToken{SessionID: "sess-1", Nonce: "n"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryClose(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	day := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE sessions SET closed = true").
		WithArgs("slot-1", day, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Close(context.Background(), "slot-1", day, time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCloseMissing(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	day := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE sessions SET closed = true").
		WithArgs("slot-1", day, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Close(context.Background(), "slot-1", day, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryRevokeTokenMissing(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE checkin_tokens SET active = false WHERE id = $1")).
		WithArgs("tok-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RevokeToken(context.Background(), "tok-missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryListByDateRangeEmptySlots(t *testing.T) {
	db, _, cleanup := newSessionRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	sessions, err := repo.ListByDateRange(context.Background(), nil, time.Now(), time.Now())
	require.NoError(t, err)
	assert.Nil(t, sessions)
}
