package service

import (
	"sort"
	"time"

	"github.com/classpulse/attendance-core/internal/models"
)

// Projector expands recurring weekly timetable slots into concrete
// calendar occurrences. It is a pure function of its inputs and holds no
// state; construction exists only so dependents can take an interface.
type Projector struct{}

// NewProjector constructs the projector.
func NewProjector() *Projector {
	return &Projector{}
}

// Project returns one occurrence per weekday hit of each slot inside
// [from, to] inclusive, ordered by date then start time. Both bounds are
// treated as dates; their clock components are ignored.
func (p *Projector) Project(slots []models.TimetableSlot, from, to time.Time) []models.Occurrence {
	if len(slots) == 0 {
		return nil
	}

	byWeekday := make(map[models.Weekday][]models.TimetableSlot, 7)
	for _, slot := range slots {
		if !slot.Weekday.Valid() {
			continue
		}
		byWeekday[slot.Weekday] = append(byWeekday[slot.Weekday], slot)
	}
	for day := range byWeekday {
		daySlots := byWeekday[day]
		sort.Slice(daySlots, func(i, j int) bool {
			if daySlots[i].StartClock != daySlots[j].StartClock {
				return daySlots[i].StartClock < daySlots[j].StartClock
			}
			return daySlots[i].ID < daySlots[j].ID
		})
	}

	start := truncateToDay(from)
	end := truncateToDay(to)
	if end.Before(start) {
		return nil
	}

	var occurrences []models.Occurrence
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		for _, slot := range byWeekday[models.WeekdayOf(date)] {
			occurrences = append(occurrences, models.Occurrence{
				Slot:     slot,
				Date:     date,
				StartsAt: slot.StartOn(date),
				EndsAt:   slot.EndOn(date),
			})
		}
	}
	return occurrences
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
