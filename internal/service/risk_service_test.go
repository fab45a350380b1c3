package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classpulse/attendance-core/internal/models"
	"github.com/classpulse/attendance-core/pkg/config"
)

type mockWindowCounter struct {
	counts map[string]models.AttendanceWindowCounts
	err    error
}

func (m *mockWindowCounter) WindowCounts(ctx context.Context, studentID string, from, to time.Time) (*models.AttendanceWindowCounts, error) {
	if m.err != nil {
		return nil, m.err
	}
	counts := m.counts[studentID]
	return &counts, nil
}

type mockStudentFinder struct {
	students map[string]*models.RosterStudent
}

func (m *mockStudentFinder) FindStudent(ctx context.Context, id string) (*models.RosterStudent, error) {
	if student, ok := m.students[id]; ok {
		cp := *student
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockSlotLister struct {
	slots []models.TimetableSlot
}

func (m *mockSlotLister) ListByClass(ctx context.Context, classID string) ([]models.TimetableSlot, error) {
	return m.slots, nil
}

func (m *mockSlotLister) ListByTeacher(ctx context.Context, teacherID string) ([]models.TimetableSlot, error) {
	return nil, nil
}

func newRiskService(counts *mockWindowCounter, cfg config.RiskConfig) *RiskService {
	finder := &mockStudentFinder{students: map[string]*models.RosterStudent{
		"stu-1": {ID: "stu-1", ClassID: "10A"},
	}}
	return NewRiskService(counts, &mockSlotLister{}, finder, NewProjector(), cfg, zap.NewNop())
}

func intPtr(v int) *int { return &v }

func TestClassifyCountsTiers(t *testing.T) {
	thresholds := models.RiskThresholds{Upper: 75, Lower: 60}

	cases := []struct {
		name       string
		present    int
		late       int
		total      int
		wantTier   models.RiskTier
		percentage *int
	}{
		{"no data is active", 0, 0, 0, models.TierActive, nil},
		{"well attended", 28, 2, 30, models.TierActive, intPtr(100)},
		{"exactly upper", 22, 2, 32, models.TierActive, intPtr(75)},
		{"between thresholds", 20, 2, 30, models.TierAtRisk, intPtr(73)},
		{"exactly lower", 18, 0, 30, models.TierAtRisk, intPtr(60)},
		{"below lower", 17, 0, 30, models.TierCritical, intPtr(57)},
		{"rounds half up", 5, 0, 8, models.TierAtRisk, intPtr(63)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			profile := ClassifyCounts(tc.present, tc.late, tc.total, thresholds)
			assert.Equal(t, tc.wantTier, profile.Tier)
			if tc.percentage == nil {
				assert.Nil(t, profile.Percentage)
			} else {
				require.NotNil(t, profile.Percentage)
				assert.Equal(t, *tc.percentage, *profile.Percentage)
			}
		})
	}
}

func TestClassifyCountsLateCountsAsAttended(t *testing.T) {
	profile := ClassifyCounts(0, 30, 30, models.RiskThresholds{Upper: 75, Lower: 60})
	assert.Equal(t, models.TierActive, profile.Tier)
	require.NotNil(t, profile.Percentage)
	assert.Equal(t, 100, *profile.Percentage)
}

func TestClassifyCountsDeterministic(t *testing.T) {
	thresholds := models.RiskThresholds{Upper: 75, Lower: 60}
	first := ClassifyCounts(22, 0, 30, thresholds)
	second := ClassifyCounts(22, 0, 30, thresholds)
	assert.Equal(t, first.Tier, second.Tier)
	assert.Equal(t, *first.Percentage, *second.Percentage)
}

func TestRiskServiceClassifyWindow(t *testing.T) {
	counts := &mockWindowCounter{counts: map[string]models.AttendanceWindowCounts{
		"stu-1": {Present: 20, Late: 2, Absent: 8, Total: 30},
	}}
	svc := newRiskService(counts, config.RiskConfig{UpperThreshold: 75, LowerThreshold: 60, WindowDays: 30})

	profile, err := svc.Classify(context.Background(), "stu-1", date(2026, time.January, 1), date(2026, time.January, 31))
	require.NoError(t, err)
	assert.Equal(t, "stu-1", profile.StudentID)
	assert.Equal(t, models.TierAtRisk, profile.Tier)
	require.NotNil(t, profile.Percentage)
	assert.Equal(t, 73, *profile.Percentage)
}

func TestRiskServiceCountsUnmarkedOccurrences(t *testing.T) {
	// 9 of 9 marked present, but 12 occurrences already ended inside the
	// window; the three unmarked ones widen the denominator to 12.
	counts := &mockWindowCounter{counts: map[string]models.AttendanceWindowCounts{
		"stu-1": {Present: 9, Total: 9},
	}}
	finder := &mockStudentFinder{students: map[string]*models.RosterStudent{
		"stu-1": {ID: "stu-1", ClassID: "10A"},
	}}
	slots := &mockSlotLister{slots: []models.TimetableSlot{
		{ID: "slot-1", ClassID: "10A", Weekday: models.Monday, StartClock: "10:00", EndClock: "11:00"},
		{ID: "slot-2", ClassID: "10A", Weekday: models.Wednesday, StartClock: "10:00", EndClock: "11:00"},
		{ID: "slot-3", ClassID: "10A", Weekday: models.Friday, StartClock: "10:00", EndClock: "11:00"},
	}}
	svc := NewRiskService(counts, slots, finder, NewProjector(), config.RiskConfig{
		UpperThreshold: 75,
		LowerThreshold: 60,
		WindowDays:     30,
		CountUnmarked:  true,
	}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC) }

	// Mon 2026-01-05 .. Sun 2026-01-30 window holds four Mondays, four
	// Wednesdays, and four Fridays, all ended before now.
	profile, err := svc.Classify(context.Background(), "stu-1", date(2026, time.January, 5), date(2026, time.January, 30))
	require.NoError(t, err)
	require.NotNil(t, profile.Percentage)
	assert.Equal(t, 75, *profile.Percentage)
	assert.Equal(t, models.TierActive, profile.Tier)
}

func TestRiskServiceInvalidThresholdsFallBack(t *testing.T) {
	counts := &mockWindowCounter{counts: map[string]models.AttendanceWindowCounts{
		"stu-1": {Present: 17, Total: 30},
	}}
	svc := newRiskService(counts, config.RiskConfig{UpperThreshold: 40, LowerThreshold: 90, WindowDays: 30})

	assert.Equal(t, models.RiskThresholds{
		Upper: config.DefaultRiskUpperThreshold,
		Lower: config.DefaultRiskLowerThreshold,
	}, svc.Thresholds())

	profile, err := svc.Classify(context.Background(), "stu-1", date(2026, time.January, 1), date(2026, time.January, 31))
	require.NoError(t, err)
	assert.Equal(t, models.TierCritical, profile.Tier)
}

func TestRiskServiceRequiresStudentID(t *testing.T) {
	svc := newRiskService(&mockWindowCounter{}, config.RiskConfig{UpperThreshold: 75, LowerThreshold: 60})

	_, err := svc.Classify(context.Background(), "", date(2026, time.January, 1), date(2026, time.January, 31))
	require.Error(t, err)
}
