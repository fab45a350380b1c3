package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/classpulse/attendance-core/internal/models"
	"github.com/classpulse/attendance-core/pkg/config"
	appErrors "github.com/classpulse/attendance-core/pkg/errors"
)

type windowCounter interface {
	WindowCounts(ctx context.Context, studentID string, from, to time.Time) (*models.AttendanceWindowCounts, error)
}

// RiskService classifies students into tiers from windowed attendance
// ratios. Classification is always a recomputation; nothing here is ever
// read back as an authoritative stored tier.
type RiskService struct {
	records       windowCounter
	slots         scheduleSlotLister
	roster        studentFinder
	projector     *Projector
	thresholds    models.RiskThresholds
	countUnmarked bool
	windowDays    int
	logger        *zap.Logger
	now           func() time.Time
}

// NewRiskService constructs the risk service. Invalid threshold
// configuration falls back to the documented defaults (75/60) with a
// warning instead of failing classification requests.
func NewRiskService(records windowCounter, slots scheduleSlotLister, roster studentFinder, projector *Projector, cfg config.RiskConfig, logger *zap.Logger) *RiskService {
	if projector == nil {
		projector = NewProjector()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	thresholds := models.RiskThresholds{Upper: cfg.UpperThreshold, Lower: cfg.LowerThreshold}
	if !thresholds.Valid() {
		logger.Warn("risk thresholds missing or inconsistent, using defaults",
			zap.Int("upper", cfg.UpperThreshold),
			zap.Int("lower", cfg.LowerThreshold),
		)
		thresholds = models.RiskThresholds{Upper: config.DefaultRiskUpperThreshold, Lower: config.DefaultRiskLowerThreshold}
	}
	windowDays := cfg.WindowDays
	if windowDays <= 0 {
		windowDays = 30
	}
	return &RiskService{
		records:       records,
		slots:         slots,
		roster:        roster,
		projector:     projector,
		thresholds:    thresholds,
		countUnmarked: cfg.CountUnmarked,
		windowDays:    windowDays,
		logger:        logger,
		now:           time.Now,
	}
}

// ClassifyTrailing classifies over the configured trailing window ending
// now.
func (s *RiskService) ClassifyTrailing(ctx context.Context, studentID string) (*models.RiskProfile, error) {
	now := s.now()
	return s.Classify(ctx, studentID, now.AddDate(0, 0, -s.windowDays), now)
}

// Thresholds returns the effective classification thresholds.
func (s *RiskService) Thresholds() models.RiskThresholds {
	return s.thresholds
}

// Classify recomputes one student's tier over [windowStart, windowEnd].
// When the unmarked-as-absent policy is on, past occurrences without a
// record widen the denominator.
func (s *RiskService) Classify(ctx context.Context, studentID string, windowStart, windowEnd time.Time) (*models.RiskProfile, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}
	counts, err := s.records.WindowCounts(ctx, studentID, windowStart, windowEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to aggregate attendance")
	}

	total := counts.Total
	if s.countUnmarked {
		scheduled, err := s.scheduledOccurrences(ctx, studentID, windowStart, windowEnd)
		if err != nil {
			return nil, err
		}
		if scheduled > total {
			total = scheduled
		}
	}

	profile := ClassifyCounts(counts.Present, counts.Late, total, s.thresholds)
	profile.StudentID = studentID
	return &profile, nil
}

// scheduledOccurrences counts the student's projected occurrences inside
// the window that have already ended.
func (s *RiskService) scheduledOccurrences(ctx context.Context, studentID string, windowStart, windowEnd time.Time) (int, error) {
	student, err := s.roster.FindStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "student lookup failed")
	}
	slots, err := s.slots.ListByClass(ctx, student.ClassID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load timetable")
	}
	now := s.now()
	count := 0
	for _, occ := range s.projector.Project(slots, windowStart, windowEnd) {
		if occ.EndsAt.Before(now) {
			count++
		}
	}
	return count, nil
}

// ClassifyCounts is the pure tier computation: identical ratios and
// thresholds always produce identical tiers. A window with no data is
// active with an undefined percentage; absence of data never penalizes.
func ClassifyCounts(present, late, total int, thresholds models.RiskThresholds) models.RiskProfile {
	if !thresholds.Valid() {
		thresholds = models.RiskThresholds{Upper: config.DefaultRiskUpperThreshold, Lower: config.DefaultRiskLowerThreshold}
	}
	if total <= 0 {
		return models.RiskProfile{Tier: models.TierActive}
	}
	percentage := int(math.Round(100 * float64(present+late) / float64(total)))
	profile := models.RiskProfile{Percentage: &percentage}
	switch {
	case percentage >= thresholds.Upper:
		profile.Tier = models.TierActive
	case percentage < thresholds.Lower:
		profile.Tier = models.TierCritical
	default:
		profile.Tier = models.TierAtRisk
	}
	return profile
}
