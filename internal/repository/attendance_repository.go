package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classpulse/attendance-core/internal/models"
)

// AttendanceRepository persists attendance records. Every write path
// goes through the (session_id, student_id) unique key.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const recordColumns = `id, session_id, student_id, status, marked_at, created_at`

// InsertOnce writes the record unless one already exists for the
// (session, student) pair. The ON CONFLICT DO NOTHING insert plus the
// follow-up fetch makes the read-check-insert a single atomic operation:
// under concurrent calls exactly one row is created and every caller gets
// the same stored record. The second return value reports whether this
// call created the row.
func (r *AttendanceRepository) InsertOnce(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, bool, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`INSERT INTO attendance_records (id, session_id, student_id, status, marked_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (session_id, student_id) DO NOTHING
RETURNING %s`, recordColumns)
	var stored models.AttendanceRecord
	err := r.db.GetContext(ctx, &stored, query, record.ID, record.SessionID, record.StudentID, record.Status, record.MarkedAt, record.CreatedAt)
	if err == nil {
		return &stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert attendance record: %w", err)
	}

	existing, err := r.Find(ctx, record.SessionID, record.StudentID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Find returns the record for a (session, student) pair.
func (r *AttendanceRepository) Find(ctx context.Context, sessionID, studentID string) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendance_records WHERE session_id = $1 AND student_id = $2`, recordColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, sessionID, studentID); err != nil {
		return nil, fmt.Errorf("find attendance record: %w", err)
	}
	return &record, nil
}

// ListForStudentRange returns a student's records whose sessions fall
// inside the date range, keyed for reconciliation.
func (r *AttendanceRepository) ListForStudentRange(ctx context.Context, studentID string, from, to time.Time) ([]models.AttendanceRecord, error) {
	query := `SELECT ar.id, ar.session_id, ar.student_id, ar.status, ar.marked_at, ar.created_at
FROM attendance_records ar
JOIN sessions s ON s.id = ar.session_id
WHERE ar.student_id = $1 AND s.date BETWEEN $2 AND $3
ORDER BY s.date ASC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID, from, to); err != nil {
		return nil, fmt.Errorf("list attendance records for student: %w", err)
	}
	return records, nil
}

// WindowCounts aggregates a student's records over a trailing window.
func (r *AttendanceRepository) WindowCounts(ctx context.Context, studentID string, from, to time.Time) (*models.AttendanceWindowCounts, error) {
	query := `SELECT
COUNT(*) FILTER (WHERE ar.status = 'PRESENT') AS present,
COUNT(*) FILTER (WHERE ar.status = 'LATE') AS late,
COUNT(*) FILTER (WHERE ar.status = 'ABSENT') AS absent,
COUNT(*) AS total
FROM attendance_records ar
JOIN sessions s ON s.id = ar.session_id
WHERE ar.student_id = $1 AND s.date BETWEEN $2 AND $3`
	var counts models.AttendanceWindowCounts
	if err := r.db.GetContext(ctx, &counts, query, studentID, from, to); err != nil {
		return nil, fmt.Errorf("window counts: %w", err)
	}
	return &counts, nil
}

// Override rewrites a stored status through the administrative correction
// path. Validation never reaches this; it is the only mutation allowed on
// a written record.
func (r *AttendanceRepository) Override(ctx context.Context, sessionID, studentID string, status models.AttendanceStatus, now time.Time) (*models.AttendanceRecord, error) {
	query := fmt.Sprintf(`UPDATE attendance_records SET status = $3, marked_at = $4
WHERE session_id = $1 AND student_id = $2
RETURNING %s`, recordColumns)
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, sessionID, studentID, status, now.UTC()); err != nil {
		return nil, fmt.Errorf("override attendance record: %w", err)
	}
	return &record, nil
}
