package models

import "time"

// LiveStatus is the time-derived label for an occurrence relative to one
// explicit instant.
type LiveStatus string

const (
	LiveUpcoming  LiveStatus = "upcoming"
	LiveOngoing   LiveStatus = "ongoing"
	LiveCompleted LiveStatus = "completed"
	LiveFree      LiveStatus = "free"
)

// AnnotationAmbiguousSession flags an occurrence whose session candidates
// could not be resolved by exact start-time matching.
const AnnotationAmbiguousSession = "ambiguous_session_match"

// ScheduleEntry is one reconciled occurrence in a range query. LiveStatus
// carries the externally reported label; TimedStatus keeps the underlying
// time-based value even when a free period overrides the label.
type ScheduleEntry struct {
	Slot             TimetableSlot     `json:"slot"`
	Date             time.Time         `json:"date"`
	StartsAt         time.Time         `json:"starts_at"`
	EndsAt           time.Time         `json:"ends_at"`
	Session          *Session          `json:"session,omitempty"`
	Record           *AttendanceRecord `json:"record,omitempty"`
	LiveStatus       LiveStatus        `json:"live_status"`
	TimedStatus      LiveStatus        `json:"timed_status"`
	AttendanceStatus AttendanceMark    `json:"attendance_status"`
	Annotation       string            `json:"annotation,omitempty"`
}
