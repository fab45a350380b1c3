package models

import "time"

// AttendanceStatus represents the stored status of an attendance record.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceLate    AttendanceStatus = "LATE"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceLate, AttendanceAbsent:
		return true
	default:
		return false
	}
}

// AttendanceMark is the reconciled per-occurrence attendance label. It
// extends AttendanceStatus with NOT_MARKED: the absence of a record is
// reported as such, never silently promoted to ABSENT.
type AttendanceMark string

const (
	MarkPresent   AttendanceMark = AttendanceMark(AttendancePresent)
	MarkLate      AttendanceMark = AttendanceMark(AttendanceLate)
	MarkAbsent    AttendanceMark = AttendanceMark(AttendanceAbsent)
	MarkNotMarked AttendanceMark = "NOT_MARKED"
)

// AttendanceRecord is one student's outcome for one session. Unique on
// (session_id, student_id); immutable once written except through the
// administrative override path.
type AttendanceRecord struct {
	ID        string           `db:"id" json:"id"`
	SessionID string           `db:"session_id" json:"session_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Status    AttendanceStatus `db:"status" json:"status"`
	MarkedAt  time.Time        `db:"marked_at" json:"marked_at"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// AttendanceWindowCounts aggregates a student's records over a window.
type AttendanceWindowCounts struct {
	Present int `db:"present" json:"present"`
	Late    int `db:"late" json:"late"`
	Absent  int `db:"absent" json:"absent"`
	Total   int `db:"total" json:"total"`
}
