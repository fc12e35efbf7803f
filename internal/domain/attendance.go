package domain

import (
	"time"

	"github.com/google/uuid"
)

// Recognition scopes reported with every mark-attendance response.
const (
	ScopeGlobal         = "GLOBAL"
	ScopeGlobalFallback = "GLOBAL (fallback)"
)

// ClassroomScope labels a response resolved against one classroom.
func ClassroomScope(key string) string {
	return "classroom " + key
}

// AttendanceMark is a recognised student to be written to the attendance log.
type AttendanceMark struct {
	StudentID string
	Name      string
	At        time.Time
}

// AttendanceEntry is a row of the attendance log. At most one entry exists per
// name and day.
type AttendanceEntry struct {
	ID         uuid.UUID `json:"id"`
	StudentID  string    `json:"student_id,omitempty"`
	Name       string    `json:"name"`
	AttendedOn time.Time `json:"attended_on"`
	MarkedAt   time.Time `json:"marked_at"`
}
