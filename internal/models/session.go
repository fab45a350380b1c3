package models

import "time"

// GenerationMethod records how a session came to exist.
type GenerationMethod string

const (
	MethodQR         GenerationMethod = "QR"
	MethodManual     GenerationMethod = "MANUAL"
	MethodFreePeriod GenerationMethod = "FREE_PERIOD"
)

// Valid returns true when the method is a supported value.
func (m GenerationMethod) Valid() bool {
	switch m {
	case MethodQR, MethodManual, MethodFreePeriod:
		return true
	default:
		return false
	}
}

// Session is one concrete occurrence of a timetable slot on a date.
// A slot has at most one session per date. StartsAt is set only when the
// occurrence was rescheduled away from the slot's own start time.
type Session struct {
	ID        string           `db:"id" json:"id"`
	SlotID    string           `db:"slot_id" json:"slot_id"`
	Date      time.Time        `db:"date" json:"date"`
	Method    GenerationMethod `db:"method" json:"method"`
	Closed    bool             `db:"closed" json:"closed"`
	StartsAt  *time.Time       `db:"starts_at" json:"starts_at,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// CheckInToken is a short-lived credential authorizing attendance marking
// against one session. At most one token is active per session; issuing a
// new one deactivates the previous.
type CheckInToken struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	Nonce     string    `db:"nonce" json:"nonce"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Usable reports whether the token can authorize a check-in at ts.
func (t CheckInToken) Usable(ts time.Time) bool {
	return t.Active && !ts.After(t.ExpiresAt)
}
