package models

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is the internal day-of-week representation, ISO numbered
// Monday=1 through Sunday=7. External conventions (notably Sunday=0
// numeric indices) are translated at the boundary and never carried
// through downstream logic.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Valid reports whether the weekday is within Mon..Sun.
func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("weekday(%d)", int(w))
	}
	return weekdayNames[w-1]
}

// MarshalText makes the enum serialize by name, never by raw index.
func (w Weekday) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(w))
	}
	return []byte(w.String()), nil
}

// UnmarshalText parses a weekday name.
func (w *Weekday) UnmarshalText(text []byte) error {
	parsed, err := ParseWeekday(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// ParseWeekday accepts full names and three-letter abbreviations in any case.
func ParseWeekday(raw string) (Weekday, error) {
	needle := strings.ToLower(strings.TrimSpace(raw))
	for i, name := range weekdayNames {
		if needle == name || (len(needle) == 3 && needle == name[:3]) {
			return Weekday(i + 1), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}

// WeekdayOf normalizes Go's Sunday=0 convention into the internal enum.
func WeekdayOf(t time.Time) Weekday {
	if t.Weekday() == time.Sunday {
		return Sunday
	}
	return Weekday(t.Weekday())
}

// WeekdayFromLegacyIndex translates a Sunday=0 numeric index, the
// convention several upstream timetable feeds still use.
func WeekdayFromLegacyIndex(idx int) (Weekday, error) {
	if idx < 0 || idx > 6 {
		return 0, fmt.Errorf("legacy weekday index %d out of range", idx)
	}
	if idx == 0 {
		return Sunday, nil
	}
	return Weekday(idx), nil
}

// TimetableSlot is a recurring weekly class definition. Slots are owned by
// curriculum administration and are read-only to this service.
type TimetableSlot struct {
	ID         string  `db:"id" json:"id"`
	ClassID    string  `db:"class_id" json:"class_id"`
	CourseID   string  `db:"course_id" json:"course_id"`
	TeacherID  string  `db:"teacher_id" json:"teacher_id"`
	Weekday    Weekday `db:"weekday" json:"weekday"`
	StartClock string  `db:"start_clock" json:"start_clock"`
	EndClock   string  `db:"end_clock" json:"end_clock"`
	Room       string  `db:"room" json:"room"`
}

// StartOn resolves the slot's start instant on a concrete date, in the
// date's location so a whole range shares one frame of reference.
func (s TimetableSlot) StartOn(date time.Time) time.Time {
	return clockOn(date, s.StartClock)
}

// EndOn resolves the slot's end instant on a concrete date.
func (s TimetableSlot) EndOn(date time.Time) time.Time {
	return clockOn(date, s.EndClock)
}

func clockOn(date time.Time, clock string) time.Time {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	}
	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, date.Location())
}

// Occurrence is one projected calendar occurrence of a slot.
type Occurrence struct {
	Slot     TimetableSlot `json:"slot"`
	Date     time.Time     `json:"date"`
	StartsAt time.Time     `json:"starts_at"`
	EndsAt   time.Time     `json:"ends_at"`
}
