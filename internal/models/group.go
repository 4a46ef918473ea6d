package models

import "time"

// Group is a cohort of students that follows one shared timetable.
//
// MaxModulesPerDay of zero means "use the configured default cap".
type Group struct {
	ID               int64     `db:"id" json:"id"`
	Grade            int       `db:"grade" json:"grade"`
	Section          string    `db:"section" json:"section"`
	Career           *string   `db:"career" json:"career,omitempty"`
	Students         int       `db:"students" json:"students"`
	MaxModulesPerDay int       `db:"max_modules_per_day" json:"max_modules_per_day"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// GroupWithSubjects pairs a group with the ids of its required subjects.
type GroupWithSubjects struct {
	Group
	SubjectIDs []int64 `json:"subject_ids"`
}

// GroupFilter describes query params for listing groups.
type GroupFilter struct {
	Grade    int
	Search   string
	Page     int
	PageSize int
}
