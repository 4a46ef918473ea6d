package models

import "time"

// Assignment is the atomic scheduling unit: group G meets subject S taught
// by teacher T in room R on day D at module index M. ClassroomID zero means
// the room has not been assigned yet.
type Assignment struct {
	ID           int64     `db:"id" json:"id"`
	GroupID      int64     `db:"group_id" json:"group_id"`
	Day          string    `db:"day" json:"day"`
	ModuleIndex  int       `db:"module_index" json:"module_index"`
	SubjectID    int64     `db:"subject_id" json:"subject_id"`
	TeacherID    int64     `db:"teacher_id" json:"teacher_id"`
	ClassroomID  int64     `db:"classroom_id" json:"classroom_id"`
	SubjectCode  string    `db:"subject_code" json:"subject_code"`
	SubjectColor string    `db:"subject_color" json:"subject_color"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
