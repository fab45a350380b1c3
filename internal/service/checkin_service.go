package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classpulse/attendance-core/internal/models"
	appErrors "github.com/classpulse/attendance-core/pkg/errors"
)

type tokenReader interface {
	FindToken(ctx context.Context, id string) (*models.CheckInToken, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
}

type attendanceWriter interface {
	Find(ctx context.Context, sessionID, studentID string) (*models.AttendanceRecord, error)
	InsertOnce(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, bool, error)
	Override(ctx context.Context, sessionID, studentID string, status models.AttendanceStatus, now time.Time) (*models.AttendanceRecord, error)
}

// CheckInService validates presented tokens and writes attendance records
// with exactly-once semantics. A repeat scan by the same student is a
// successful idempotent response, not an error.
type CheckInService struct {
	sessions      tokenReader
	slots         slotReader
	records       attendanceWriter
	validator     *validator.Validate
	logger        *zap.Logger
	lateThreshold time.Duration
}

// NewCheckInService constructs the check-in service.
func NewCheckInService(sessions tokenReader, slots slotReader, records attendanceWriter, validate *validator.Validate, logger *zap.Logger, lateThreshold time.Duration) *CheckInService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if lateThreshold <= 0 {
		lateThreshold = 15 * time.Minute
	}
	return &CheckInService{
		sessions:      sessions,
		slots:         slots,
		records:       records,
		validator:     validate,
		logger:        logger,
		lateThreshold: lateThreshold,
	}
}

// ValidateRequest is a presented check-in.
type ValidateRequest struct {
	TokenID   string    `json:"token_id" validate:"required"`
	StudentID string    `json:"student_id" validate:"required"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

// CheckInResult is the outcome of a validation. AlreadyMarked reports that
// the record predates this call; the status and record are identical for
// every caller of the same (session, student).
type CheckInResult struct {
	Status        models.AttendanceStatus  `json:"status"`
	Record        *models.AttendanceRecord `json:"record"`
	AlreadyMarked bool                     `json:"already_marked"`
}

// Validate checks the token, computes the status from the slot's window,
// and inserts the record. The insert is atomic against the unique
// (session, student) key: N concurrent calls produce one row and all N
// callers observe the same stored status. ABSENT is never written here;
// it is the reconciler's reading of a missing record.
func (s *CheckInService) Validate(ctx context.Context, req ValidateRequest) (*CheckInResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	token, err := s.sessions.FindToken(ctx, req.TokenID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "token not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "token lookup failed")
	}
	if !token.Usable(req.Timestamp) {
		return nil, appErrors.ErrTokenExpired
	}

	// A student who already holds a record for this session gets it back
	// unchanged, even when the session has since been closed or its window
	// has passed. The rejections below only apply to first scans.
	existing, err := s.records.Find(ctx, token.SessionID, req.StudentID)
	switch {
	case err == nil:
		return &CheckInResult{Status: existing.Status, Record: existing, AlreadyMarked: true}, nil
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "attendance lookup failed")
	}

	session, err := s.sessions.FindByID(ctx, token.SessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "session lookup failed")
	}
	if session.Closed {
		return nil, appErrors.ErrSessionClosed
	}

	slot, err := s.slots.FindByID(ctx, session.SlotID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "slot lookup failed")
	}

	start, end := sessionWindow(slot, session)
	if req.Timestamp.After(end) {
		return nil, appErrors.ErrSessionClosed
	}
	status := models.AttendancePresent
	if req.Timestamp.After(start.Add(s.lateThreshold)) {
		status = models.AttendanceLate
	}

	record := &models.AttendanceRecord{
		SessionID: session.ID,
		StudentID: req.StudentID,
		Status:    status,
		MarkedAt:  req.Timestamp,
	}
	stored, created, err := s.records.InsertOnce(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to store attendance")
	}
	if !created {
		// Idempotent re-scan: the existing record wins, whatever its status.
		return &CheckInResult{Status: stored.Status, Record: stored, AlreadyMarked: true}, nil
	}

	s.logger.Info("attendance marked",
		zap.String("session_id", session.ID),
		zap.String("student_id", req.StudentID),
		zap.String("status", string(stored.Status)),
	)
	return &CheckInResult{Status: stored.Status, Record: stored}, nil
}

// OverrideRequest is the administrative correction payload, the only path
// that mutates a written record.
type OverrideRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=PRESENT LATE ABSENT"`
}

// Override rewrites a stored record's status.
func (s *CheckInService) Override(ctx context.Context, req OverrideRequest, now time.Time) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	record, err := s.records.Override(ctx, req.SessionID, req.StudentID, models.AttendanceStatus(req.Status), now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to override attendance")
	}
	s.logger.Warn("attendance overridden",
		zap.String("session_id", req.SessionID),
		zap.String("student_id", req.StudentID),
		zap.String("status", req.Status),
	)
	return record, nil
}

// sessionWindow resolves the concrete start/end instants for a session,
// honoring a rescheduled start while preserving the slot's duration.
func sessionWindow(slot *models.TimetableSlot, session *models.Session) (time.Time, time.Time) {
	start := slot.StartOn(session.Date)
	end := slot.EndOn(session.Date)
	if session.StartsAt != nil {
		duration := end.Sub(start)
		start = *session.StartsAt
		end = start.Add(duration)
	}
	return start, end
}
