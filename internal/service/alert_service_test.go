package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classpulse/attendance-core/internal/models"
)

type mockClassifier struct {
	profiles map[string]models.RiskProfile
}

func (m *mockClassifier) Classify(ctx context.Context, studentID string, windowStart, windowEnd time.Time) (*models.RiskProfile, error) {
	profile, ok := m.profiles[studentID]
	if !ok {
		return nil, errors.New("unknown student")
	}
	profile.StudentID = studentID
	return &profile, nil
}

type mockRosterLister struct {
	byClass  map[string][]models.RosterStudent
	byMentor map[string][]models.RosterStudent
}

func (m *mockRosterLister) ListByClass(ctx context.Context, classID string) ([]models.RosterStudent, error) {
	return m.byClass[classID], nil
}

func (m *mockRosterLister) ListByMentor(ctx context.Context, mentorID string) ([]models.RosterStudent, error) {
	return m.byMentor[mentorID], nil
}

type mockSnapshotStore struct {
	tiers  map[string]map[string]models.RiskTier
	getErr error
	putErr error
	puts   int
}

func (m *mockSnapshotStore) Get(ctx context.Context, scope string) (map[string]models.RiskTier, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.tiers[scope], nil
}

func (m *mockSnapshotStore) Put(ctx context.Context, scope string, tiers map[string]models.RiskTier, ttl time.Duration) error {
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	if m.tiers == nil {
		m.tiers = make(map[string]map[string]models.RiskTier)
	}
	m.tiers[scope] = tiers
	return nil
}

func alertFixture() (*mockClassifier, *mockRosterLister, *mockSnapshotStore) {
	classifier := &mockClassifier{profiles: map[string]models.RiskProfile{
		"stu-ok":       {Percentage: intPtr(92), Tier: models.TierActive},
		"stu-slipping": {Percentage: intPtr(68), Tier: models.TierAtRisk},
		"stu-bad":      {Percentage: intPtr(40), Tier: models.TierCritical},
	}}
	roster := &mockRosterLister{byClass: map[string][]models.RosterStudent{
		"10A": {
			{ID: "stu-ok", ClassID: "10A"},
			{ID: "stu-slipping", ClassID: "10A"},
			{ID: "stu-bad", ClassID: "10A"},
		},
	}}
	return classifier, roster, &mockSnapshotStore{}
}

func TestAlertRosterGroupsByTier(t *testing.T) {
	classifier, roster, snapshots := alertFixture()
	svc := NewAlertService(classifier, roster, snapshots, 30, time.Hour, zap.NewNop())

	result, err := svc.RosterByTier(context.Background(), "10A")
	require.NoError(t, err)
	assert.Equal(t, "10A", result.Scope)
	require.Len(t, result.Groups, 3)
	assert.Equal(t, models.TierCritical, result.Groups[0].Tier)
	assert.Equal(t, "stu-bad", result.Groups[0].Students[0].StudentID)
	assert.Equal(t, models.TierAtRisk, result.Groups[1].Tier)
	assert.Equal(t, models.TierActive, result.Groups[2].Tier)
	assert.Equal(t, 1, snapshots.puts)
}

func TestAlertRosterSortsWithinTier(t *testing.T) {
	classifier := &mockClassifier{profiles: map[string]models.RiskProfile{
		"stu-a": {Percentage: intPtr(50), Tier: models.TierCritical},
		"stu-b": {Percentage: intPtr(30), Tier: models.TierCritical},
		"stu-c": {Tier: models.TierCritical},
	}}
	roster := &mockRosterLister{byClass: map[string][]models.RosterStudent{
		"10A": {{ID: "stu-a"}, {ID: "stu-b"}, {ID: "stu-c"}},
	}}
	svc := NewAlertService(classifier, roster, &mockSnapshotStore{}, 30, time.Hour, zap.NewNop())

	result, err := svc.RosterByTier(context.Background(), "10A")
	require.NoError(t, err)
	require.Len(t, result.Groups, 1)
	students := result.Groups[0].Students
	require.Len(t, students, 3)
	assert.Equal(t, "stu-b", students[0].StudentID)
	assert.Equal(t, "stu-a", students[1].StudentID)
	assert.Equal(t, "stu-c", students[2].StudentID)
}

func TestAlertDetectsActiveToAlertTransition(t *testing.T) {
	classifier, roster, snapshots := alertFixture()
	snapshots.tiers = map[string]map[string]models.RiskTier{
		"10A": {
			"stu-ok":       models.TierActive,
			"stu-slipping": models.TierActive,
			"stu-bad":      models.TierCritical,
		},
	}
	svc := NewAlertService(classifier, roster, snapshots, 30, time.Hour, zap.NewNop())

	result, err := svc.RosterByTier(context.Background(), "10A")
	require.NoError(t, err)
	// stu-slipping crossed active -> at-risk; stu-bad was already
	// critical last run and must not be re-announced.
	require.Len(t, result.NewlyAtRisk, 1)
	assert.Equal(t, models.TierTransition{
		StudentID: "stu-slipping",
		From:      models.TierActive,
		To:        models.TierAtRisk,
	}, result.NewlyAtRisk[0])

	// The very next run starts from the stored snapshot and reports
	// nothing new.
	result, err = svc.RosterByTier(context.Background(), "10A")
	require.NoError(t, err)
	assert.Empty(t, result.NewlyAtRisk)
}

func TestAlertFirstRunReportsNoTransitions(t *testing.T) {
	classifier, roster, snapshots := alertFixture()
	svc := NewAlertService(classifier, roster, snapshots, 30, time.Hour, zap.NewNop())

	result, err := svc.RosterByTier(context.Background(), "10A")
	require.NoError(t, err)
	assert.Empty(t, result.NewlyAtRisk)
}

func TestAlertSnapshotFailuresDegrade(t *testing.T) {
	classifier, roster, snapshots := alertFixture()
	snapshots.getErr = errors.New("redis down")
	snapshots.putErr = errors.New("redis down")
	svc := NewAlertService(classifier, roster, snapshots, 30, time.Hour, zap.NewNop())

	result, err := svc.RosterByTier(context.Background(), "10A")
	require.NoError(t, err)
	assert.Empty(t, result.NewlyAtRisk)
	require.Len(t, result.Groups, 3)
}

func TestAlertMentorScopeFallback(t *testing.T) {
	classifier, _, snapshots := alertFixture()
	roster := &mockRosterLister{byMentor: map[string][]models.RosterStudent{
		"mentor-1": {{ID: "stu-ok"}, {ID: "stu-bad"}},
	}}
	svc := NewAlertService(classifier, roster, snapshots, 30, time.Hour, zap.NewNop())

	result, err := svc.RosterByTier(context.Background(), "mentor-1")
	require.NoError(t, err)
	require.Len(t, result.Groups, 2)
}

func TestAlertRequiresScope(t *testing.T) {
	classifier, roster, snapshots := alertFixture()
	svc := NewAlertService(classifier, roster, snapshots, 30, time.Hour, zap.NewNop())

	_, err := svc.RosterByTier(context.Background(), "")
	require.Error(t, err)
}
