package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classpulse/attendance-core/internal/models"
)

// SessionRepository persists sessions and their check-in tokens.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, slot_id, date, method, closed, starts_at, created_at, updated_at`

// GetOrCreate returns the session for (slot, date), creating it lazily.
// The conflict target is the (slot_id, date) unique key so racing callers
// converge on one row; the no-op update lets RETURNING yield the existing
// session.
func (r *SessionRepository) GetOrCreate(ctx context.Context, slotID string, date time.Time, method models.GenerationMethod) (*models.Session, error) {
	now := time.Now().UTC()
	query := fmt.Sprintf(`INSERT INTO sessions (id, slot_id, date, method, closed, created_at, updated_at)
VALUES ($1, $2, $3, $4, false, $5, $5)
ON CONFLICT (slot_id, date) DO UPDATE SET updated_at = sessions.updated_at
RETURNING %s`, sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, uuid.NewString(), slotID, date, method, now); err != nil {
		return nil, fmt.Errorf("get or create session: %w", err)
	}
	return &session, nil
}

// FindByID returns a session by primary key.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1`, sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// ListByDateRange returns all sessions for the given slots between two dates
// inclusive. Multiple rows per (slot, date) cannot occur through this
// service but rescheduled occurrences imported from upstream may collide,
// which the reconciler resolves.
func (r *SessionRepository) ListByDateRange(ctx context.Context, slotIDs []string, from, to time.Time) ([]models.Session, error) {
	if len(slotIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM sessions WHERE slot_id IN (?) AND date BETWEEN ? AND ? ORDER BY date ASC`, sessionColumns), slotIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("build session range query: %w", err)
	}
	query = r.db.Rebind(query)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions by range: %w", err)
	}
	return sessions, nil
}

// Close marks the session for (slot, date) closed for further check-ins.
func (r *SessionRepository) Close(ctx context.Context, slotID string, date, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET closed = true, updated_at = $3 WHERE slot_id = $1 AND date = $2`, slotID, date, now.UTC())
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("close session for slot %s: %w", slotID, sql.ErrNoRows)
	}
	return nil
}

// IssueToken atomically deactivates any active token for the session and
// inserts the replacement. The session row is locked first: under READ
// COMMITTED the deactivate alone cannot see a racer's uncommitted insert,
// so two issuers could each commit an active token. The lock serializes
// them; the second issuer's deactivate then runs after the first's commit
// and at most one active token survives.
func (r *SessionRepository) IssueToken(ctx context.Context, token *models.CheckInToken) (*models.CheckInToken, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin token issue: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	var sessionID string
	if err := tx.GetContext(ctx, &sessionID, `SELECT id FROM sessions WHERE id = $1 FOR UPDATE`, token.SessionID); err != nil {
		return nil, fmt.Errorf("lock session for token issue: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE checkin_tokens SET active = false WHERE session_id = $1 AND active`, token.SessionID); err != nil {
		return nil, fmt.Errorf("deactivate prior tokens: %w", err)
	}

	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	token.Active = true
	query := `INSERT INTO checkin_tokens (id, session_id, nonce, expires_at, active, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, session_id, nonce, expires_at, active, created_at`
	var stored models.CheckInToken
	if err := tx.GetContext(ctx, &stored, query, token.ID, token.SessionID, token.Nonce, token.ExpiresAt, token.Active, token.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit token issue: %w", err)
	}
	commit = true
	return &stored, nil
}

// FindToken returns a token by primary key.
func (r *SessionRepository) FindToken(ctx context.Context, id string) (*models.CheckInToken, error) {
	query := `SELECT id, session_id, nonce, expires_at, active, created_at FROM checkin_tokens WHERE id = $1`
	var token models.CheckInToken
	if err := r.db.GetContext(ctx, &token, query, id); err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}
	return &token, nil
}

// RevokeToken deactivates a token immediately, independent of expiry.
func (r *SessionRepository) RevokeToken(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE checkin_tokens SET active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("revoke token %s: %w", id, sql.ErrNoRows)
	}
	return nil
}
