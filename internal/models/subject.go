package models

import "time"

// Subject is a taught discipline with its weekly module demand.
type Subject struct {
	ID              int64     `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Shorten         string    `db:"shorten" json:"shorten"`
	Color           string    `db:"color" json:"color"`
	Spec            string    `db:"spec" json:"spec"`
	RequiredModules int       `db:"required_modules" json:"required_modules"`
	Priority        int       `db:"priority" json:"priority"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter describes query params for listing subjects.
type SubjectFilter struct {
	Spec      string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
