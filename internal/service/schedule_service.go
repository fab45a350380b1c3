package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/classpulse/attendance-core/internal/models"
	appErrors "github.com/classpulse/attendance-core/pkg/errors"
)

type scheduleSlotLister interface {
	ListByClass(ctx context.Context, classID string) ([]models.TimetableSlot, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.TimetableSlot, error)
}

type sessionRangeLister interface {
	ListByDateRange(ctx context.Context, slotIDs []string, from, to time.Time) ([]models.Session, error)
}

type recordRangeLister interface {
	ListForStudentRange(ctx context.Context, studentID string, from, to time.Time) ([]models.AttendanceRecord, error)
}

type studentFinder interface {
	FindStudent(ctx context.Context, id string) (*models.RosterStudent, error)
}

type scheduleCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ScheduleService merges projected occurrences, sessions, and attendance
// records into per-occurrence live statuses. The merge itself is a pure
// function of its inputs and one explicit instant; the service only loads
// the snapshot it runs on.
type ScheduleService struct {
	slots     scheduleSlotLister
	sessions  sessionRangeLister
	records   recordRangeLister
	roster    studentFinder
	projector *Projector
	cache     scheduleCache
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewScheduleService constructs the schedule service. cache may be nil.
func NewScheduleService(slots scheduleSlotLister, sessions sessionRangeLister, records recordRangeLister, roster studentFinder, projector *Projector, cache scheduleCache, cacheTTL time.Duration, logger *zap.Logger) *ScheduleService {
	if projector == nil {
		projector = NewProjector()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		slots:     slots,
		sessions:  sessions,
		records:   records,
		roster:    roster,
		projector: projector,
		cache:     cache,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// Reconcile resolves the subject (a student, class, or teacher id), loads the snapshot
// for [from, to], and merges it against the single instant now. Attendance
// statuses are only populated for student subjects; a class subject gets
// purely session/time information. One bad occurrence never aborts the
// range: ambiguity is annotated on the entry it affects.
func (s *ScheduleService) Reconcile(ctx context.Context, subject string, from, to, now time.Time) ([]models.ScheduleEntry, bool, error) {
	if subject == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "subject is required")
	}
	if to.Before(from) {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "range end precedes start")
	}

	classID := subject
	studentID := ""
	student, err := s.roster.FindStudent(ctx, subject)
	switch {
	case err == nil:
		classID = student.ClassID
		studentID = student.ID
	case errors.Is(err, sql.ErrNoRows):
		// subject is a class id
	default:
		return nil, false, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "subject lookup failed")
	}

	cacheKey := fmt.Sprintf("schedule:%s:%s:%s", subject, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if s.cache != nil {
		var cached []models.ScheduleEntry
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			s.logger.Warn("schedule cache read failed", zap.Error(err))
		} else if hit {
			// The cached snapshot carries statuses computed at write time;
			// an occurrence boundary may have passed since. Only the loaded
			// data is reused, the clock-derived labels are recomputed.
			refreshLiveStatuses(cached, now)
			return cached, true, nil
		}
	}

	slots, err := s.slots.ListByClass(ctx, classID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load timetable")
	}
	if len(slots) == 0 && studentID == "" {
		// Not a class either; the subject may name a teacher.
		slots, err = s.slots.ListByTeacher(ctx, subject)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load timetable")
		}
	}
	occurrences := s.projector.Project(slots, from, to)
	if len(occurrences) == 0 {
		return []models.ScheduleEntry{}, false, nil
	}

	slotIDs := make([]string, 0, len(slots))
	for _, slot := range slots {
		slotIDs = append(slotIDs, slot.ID)
	}
	sessions, err := s.sessions.ListByDateRange(ctx, slotIDs, from, to)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load sessions")
	}

	var records []models.AttendanceRecord
	if studentID != "" {
		records, err = s.records.ListForStudentRange(ctx, studentID, from, to)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "failed to load attendance records")
		}
	}

	entries := reconcile(occurrences, sessions, records, now)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, entries, s.cacheTTL); err != nil {
			s.logger.Warn("schedule cache write failed", zap.Error(err))
		}
	}
	return entries, false, nil
}

// reconcile is the pure merge. It never reads the wall clock: every
// occurrence in the range is judged against the one instant passed in.
func reconcile(occurrences []models.Occurrence, sessions []models.Session, records []models.AttendanceRecord, now time.Time) []models.ScheduleEntry {
	sessionsByKey := make(map[string][]models.Session, len(sessions))
	for _, session := range sessions {
		key := occurrenceKey(session.SlotID, session.Date)
		sessionsByKey[key] = append(sessionsByKey[key], session)
	}
	recordsBySession := make(map[string]models.AttendanceRecord, len(records))
	for _, record := range records {
		recordsBySession[record.SessionID] = record
	}

	entries := make([]models.ScheduleEntry, 0, len(occurrences))
	for _, occ := range occurrences {
		entry := models.ScheduleEntry{
			Slot:             occ.Slot,
			Date:             occ.Date,
			StartsAt:         occ.StartsAt,
			EndsAt:           occ.EndsAt,
			AttendanceStatus: models.MarkNotMarked,
		}

		session, annotation := matchSession(sessionsByKey[occurrenceKey(occ.Slot.ID, occ.Date)], occ)
		entry.Annotation = annotation
		if session != nil {
			sessionCopy := *session
			entry.Session = &sessionCopy
			if session.StartsAt != nil {
				duration := entry.EndsAt.Sub(entry.StartsAt)
				entry.StartsAt = *session.StartsAt
				entry.EndsAt = entry.StartsAt.Add(duration)
			}
			if record, ok := recordsBySession[session.ID]; ok {
				recordCopy := record
				entry.Record = &recordCopy
				entry.AttendanceStatus = models.AttendanceMark(record.Status)
			}
		}

		entry.TimedStatus = timedStatus(entry.StartsAt, entry.EndsAt, now)
		entry.LiveStatus = entry.TimedStatus
		if session != nil && session.Method == models.MethodFreePeriod {
			// The label is overridden; TimedStatus keeps the underlying value
			// for UI affordances.
			entry.LiveStatus = models.LiveFree
		}

		entries = append(entries, entry)
	}
	return entries
}

// refreshLiveStatuses relabels entries against now, preserving the free
// period override the same way the merge does.
func refreshLiveStatuses(entries []models.ScheduleEntry, now time.Time) {
	for i := range entries {
		entries[i].TimedStatus = timedStatus(entries[i].StartsAt, entries[i].EndsAt, now)
		entries[i].LiveStatus = entries[i].TimedStatus
		if entries[i].Session != nil && entries[i].Session.Method == models.MethodFreePeriod {
			entries[i].LiveStatus = models.LiveFree
		}
	}
}

// matchSession resolves session candidates for one occurrence. A single
// candidate wins outright; several candidates are resolved by exact
// start-time equality to the minute, and anything less exact is reported
// as ambiguous rather than guessed.
func matchSession(candidates []models.Session, occ models.Occurrence) (*models.Session, string) {
	switch len(candidates) {
	case 0:
		return nil, ""
	case 1:
		return &candidates[0], ""
	}
	target := occ.StartsAt.Truncate(time.Minute)
	var exact *models.Session
	for i := range candidates {
		starts := occ.StartsAt
		if candidates[i].StartsAt != nil {
			starts = *candidates[i].StartsAt
		}
		if starts.Truncate(time.Minute).Equal(target) {
			if exact != nil {
				return nil, models.AnnotationAmbiguousSession
			}
			exact = &candidates[i]
		}
	}
	if exact == nil {
		return nil, models.AnnotationAmbiguousSession
	}
	return exact, ""
}

// timedStatus labels an occurrence relative to now; now == end counts as
// completed.
func timedStatus(start, end, now time.Time) models.LiveStatus {
	switch {
	case now.Before(start):
		return models.LiveUpcoming
	case now.Before(end):
		return models.LiveOngoing
	default:
		return models.LiveCompleted
	}
}

func occurrenceKey(slotID string, date time.Time) string {
	return slotID + "|" + date.Format("2006-01-02")
}
