package models

import (
	"time"

	"github.com/lib/pq"
)

// Teacher is a member of staff qualified for one or more subjects.
//
// PreferredDays entries must match the configured day names exactly
// (case-sensitive). PreferredModules holds 1-based module indices.
// CommissionedHours of zero means "use the configured default cap".
type Teacher struct {
	ID                int64          `db:"id" json:"id"`
	Name              string         `db:"name" json:"name"`
	PreferredDays     pq.StringArray `db:"preferred_days" json:"preferred_days"`
	PreferredModules  pq.Int64Array  `db:"preferred_modules" json:"preferred_modules"`
	CommissionedHours int            `db:"commissioned_hours" json:"commissioned_hours"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// TeacherFilter describes query params for listing teachers.
type TeacherFilter struct {
	SubjectID int64
	Search    string
	Page      int
	PageSize  int
}

// PrefersDay reports whether day is one of the teacher's preferred days.
func (t Teacher) PrefersDay(day string) bool {
	for _, d := range t.PreferredDays {
		if d == day {
			return true
		}
	}
	return false
}

// PrefersModule reports whether the 1-based module index is preferred.
func (t Teacher) PrefersModule(module int) bool {
	for _, m := range t.PreferredModules {
		if int(m) == module {
			return true
		}
	}
	return false
}
