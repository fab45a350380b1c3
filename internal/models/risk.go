package models

import "time"

// RiskTier buckets a student's windowed attendance ratio.
type RiskTier string

const (
	TierActive   RiskTier = "active"
	TierAtRisk   RiskTier = "at-risk"
	TierCritical RiskTier = "critical"
)

// RiskThresholds are the percentage cutoffs between tiers.
type RiskThresholds struct {
	Upper int `json:"upper"`
	Lower int `json:"lower"`
}

// Valid requires both cutoffs inside 0..100 with Upper above Lower.
func (t RiskThresholds) Valid() bool {
	return t.Upper > 0 && t.Upper <= 100 && t.Lower >= 0 && t.Lower < t.Upper
}

// RiskProfile is a derived classification, always recomputed from
// attendance aggregates; any stored copy is a cache, never a source of
// truth. Percentage is nil when the window holds no data.
type RiskProfile struct {
	StudentID  string   `json:"student_id"`
	Percentage *int     `json:"percentage,omitempty"`
	Tier       RiskTier `json:"tier"`
}

// TierTransition captures a student crossing into an alert tier between
// two classification runs.
type TierTransition struct {
	StudentID string   `json:"student_id"`
	From      RiskTier `json:"from"`
	To        RiskTier `json:"to"`
}

// TierGroup is a tier bucket within a roster.
type TierGroup struct {
	Tier     RiskTier      `json:"tier"`
	Students []RiskProfile `json:"students"`
}

// RiskRoster is the grouped classification for a class or mentor scope.
type RiskRoster struct {
	Scope       string           `json:"scope"`
	Groups      []TierGroup      `json:"groups"`
	NewlyAtRisk []TierTransition `json:"newly_at_risk,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// RosterStudent is a read-only student directory row.
type RosterStudent struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
	ClassID  string `db:"class_id" json:"class_id"`
	MentorID string `db:"mentor_id" json:"mentor_id"`
}
