package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/classpulse/attendance-core/internal/models"
	appErrors "github.com/classpulse/attendance-core/pkg/errors"
)

type studentClassifier interface {
	Classify(ctx context.Context, studentID string, windowStart, windowEnd time.Time) (*models.RiskProfile, error)
}

type rosterLister interface {
	ListByClass(ctx context.Context, classID string) ([]models.RosterStudent, error)
	ListByMentor(ctx context.Context, mentorID string) ([]models.RosterStudent, error)
}

type tierSnapshotStore interface {
	Get(ctx context.Context, scope string) (map[string]models.RiskTier, error)
	Put(ctx context.Context, scope string, tiers map[string]models.RiskTier, ttl time.Duration) error
}

// AlertService groups classifications per scope and detects tier
// crossings against the previous run. It performs no classification of
// its own beyond grouping, sorting, and the snapshot diff; delivery of
// any resulting notification belongs to a downstream consumer.
type AlertService struct {
	risk        studentClassifier
	roster      rosterLister
	snapshots   tierSnapshotStore
	windowDays  int
	snapshotTTL time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewAlertService constructs the alert service.
func NewAlertService(risk studentClassifier, roster rosterLister, snapshots tierSnapshotStore, windowDays int, snapshotTTL time.Duration, logger *zap.Logger) *AlertService {
	if windowDays <= 0 {
		windowDays = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertService{
		risk:        risk,
		roster:      roster,
		snapshots:   snapshots,
		windowDays:  windowDays,
		snapshotTTL: snapshotTTL,
		logger:      logger,
		now:         time.Now,
	}
}

// RosterByTier classifies every student in the scope (a class id or a
// mentor id) over the trailing window and groups the results by tier,
// critical first. Students whose tier crossed from active into an alert
// tier since the previous run are listed in NewlyAtRisk. Snapshot store
// failures degrade to an empty diff; they never fail the roster.
func (s *AlertService) RosterByTier(ctx context.Context, scope string) (*models.RiskRoster, error) {
	if scope == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scope is required")
	}

	students, err := s.roster.ListByClass(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load roster")
	}
	if len(students) == 0 {
		students, err = s.roster.ListByMentor(ctx, scope)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load roster")
		}
	}

	now := s.now()
	windowStart := now.AddDate(0, 0, -s.windowDays)

	profiles := make([]models.RiskProfile, 0, len(students))
	current := make(map[string]models.RiskTier, len(students))
	for _, student := range students {
		profile, err := s.risk.Classify(ctx, student.ID, windowStart, now)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
		current[student.ID] = profile.Tier
	}

	previous := map[string]models.RiskTier{}
	if s.snapshots != nil {
		prev, err := s.snapshots.Get(ctx, scope)
		if err != nil {
			s.logger.Warn("tier snapshot read failed", zap.String("scope", scope), zap.Error(err))
		} else {
			previous = prev
		}
	}

	roster := &models.RiskRoster{
		Scope:       scope,
		Groups:      groupByTier(profiles),
		NewlyAtRisk: detectTransitions(previous, profiles),
		GeneratedAt: now,
	}

	if s.snapshots != nil {
		if err := s.snapshots.Put(ctx, scope, current, s.snapshotTTL); err != nil {
			s.logger.Warn("tier snapshot write failed", zap.String("scope", scope), zap.Error(err))
		}
	}
	return roster, nil
}

func groupByTier(profiles []models.RiskProfile) []models.TierGroup {
	buckets := map[models.RiskTier][]models.RiskProfile{}
	for _, profile := range profiles {
		buckets[profile.Tier] = append(buckets[profile.Tier], profile)
	}
	order := []models.RiskTier{models.TierCritical, models.TierAtRisk, models.TierActive}
	groups := make([]models.TierGroup, 0, len(order))
	for _, tier := range order {
		students := buckets[tier]
		if len(students) == 0 {
			continue
		}
		sort.Slice(students, func(i, j int) bool {
			pi, pj := students[i].Percentage, students[j].Percentage
			switch {
			case pi == nil && pj == nil:
				return students[i].StudentID < students[j].StudentID
			case pi == nil:
				return false
			case pj == nil:
				return true
			case *pi != *pj:
				return *pi < *pj
			default:
				return students[i].StudentID < students[j].StudentID
			}
		})
		groups = append(groups, models.TierGroup{Tier: tier, Students: students})
	}
	return groups
}

// detectTransitions reports students whose tier moved from active into an
// alert tier between the previous and current runs.
func detectTransitions(previous map[string]models.RiskTier, profiles []models.RiskProfile) []models.TierTransition {
	var transitions []models.TierTransition
	for _, profile := range profiles {
		prev, seen := previous[profile.StudentID]
		if !seen || prev != models.TierActive {
			continue
		}
		if profile.Tier == models.TierAtRisk || profile.Tier == models.TierCritical {
			transitions = append(transitions, models.TierTransition{
				StudentID: profile.StudentID,
				From:      prev,
				To:        profile.Tier,
			})
		}
	}
	sort.Slice(transitions, func(i, j int) bool { return transitions[i].StudentID < transitions[j].StudentID })
	return transitions
}
