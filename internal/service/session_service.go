package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classpulse/attendance-core/internal/models"
	"github.com/classpulse/attendance-core/pkg/config"
	appErrors "github.com/classpulse/attendance-core/pkg/errors"
)

type sessionStore interface {
	GetOrCreate(ctx context.Context, slotID string, date time.Time, method models.GenerationMethod) (*models.Session, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Close(ctx context.Context, slotID string, date, now time.Time) error
	IssueToken(ctx context.Context, token *models.CheckInToken) (*models.CheckInToken, error)
	RevokeToken(ctx context.Context, id string) error
}

type slotReader interface {
	FindByID(ctx context.Context, id string) (*models.TimetableSlot, error)
}

// SessionService creates sessions lazily per (slot, date) and manages
// their check-in tokens. Single-active-token is enforced here, not left
// to callers.
type SessionService struct {
	sessions  sessionStore
	slots     slotReader
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cfg       config.AttendanceConfig
}

// NewSessionService constructs the session service.
func NewSessionService(sessions sessionStore, slots slotReader, validate *validator.Validate, logger *zap.Logger, cfg config.AttendanceConfig) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultTokenValidity <= 0 {
		cfg.DefaultTokenValidity = 5 * time.Minute
	}
	if cfg.MaxTokenValidity <= 0 {
		cfg.MaxTokenValidity = time.Hour
	}
	return &SessionService{
		sessions:  sessions,
		slots:     slots,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// IssueTokenRequest describes a token issuance payload.
type IssueTokenRequest struct {
	SlotID          string `json:"slot_id" validate:"required"`
	Date            string `json:"date" validate:"required"`
	ValidityMinutes int    `json:"validity_minutes" validate:"omitempty,min=1"`
}

// IssueToken creates the session for (slot, date) if none exists,
// deactivates any currently-active token for it, and issues a fresh one.
func (s *SessionService) IssueToken(ctx context.Context, req IssueTokenRequest) (*models.CheckInToken, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}

	slot, err := s.slots.FindByID(ctx, req.SlotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "slot lookup failed")
	}
	if models.WeekdayOf(date) != slot.Weekday {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date does not fall on the slot's weekday")
	}

	validity := time.Duration(req.ValidityMinutes) * time.Minute
	if validity <= 0 {
		validity = s.cfg.DefaultTokenValidity
	}
	if validity > s.cfg.MaxTokenValidity {
		validity = s.cfg.MaxTokenValidity
	}

	session, err := s.sessions.GetOrCreate(ctx, slot.ID, date, models.MethodQR)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to resolve session")
	}
	if session.Closed {
		return nil, appErrors.ErrSessionClosed
	}

	issuedAt := s.now()
	token := &models.CheckInToken{
		SessionID: session.ID,
		Nonce:     newNonce(),
		ExpiresAt: issuedAt.Add(validity),
	}
	stored, err := s.sessions.IssueToken(ctx, token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to issue token")
	}
	s.logger.Info("token issued",
		zap.String("session_id", session.ID),
		zap.String("slot_id", slot.ID),
		zap.Time("expires_at", stored.ExpiresAt),
	)
	return stored, nil
}

// RevokeToken deactivates a token immediately, independent of expiry.
func (s *SessionService) RevokeToken(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "token id required")
	}
	if err := s.sessions.RevokeToken(ctx, tokenID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "token not found")
		}
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to revoke token")
	}
	return nil
}

// CreateSessionRequest registers an occurrence without a token, for manual
// marking or for flagging a free period.
type CreateSessionRequest struct {
	SlotID string `json:"slot_id" validate:"required"`
	Date   string `json:"date" validate:"required"`
	Method string `json:"method" validate:"required,oneof=MANUAL FREE_PERIOD"`
}

// CreateSession creates (or returns) the session for (slot, date) with the
// requested generation method.
func (s *SessionService) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	slot, err := s.slots.FindByID(ctx, req.SlotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "slot lookup failed")
	}
	if models.WeekdayOf(date) != slot.Weekday {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date does not fall on the slot's weekday")
	}
	session, err := s.sessions.GetOrCreate(ctx, slot.ID, date, models.GenerationMethod(req.Method))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to create session")
	}
	return session, nil
}

// CloseSession shuts the session for (slot, date) to further check-ins.
func (s *SessionService) CloseSession(ctx context.Context, slotID, dateStr string) error {
	if slotID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "slot id required")
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	if err := s.sessions.Close(ctx, slotID, date, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to close session")
	}
	return nil
}

func newNonce() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte(time.Now().UTC().Format(time.RFC3339Nano)))
	}
	return hex.EncodeToString(buf)
}
