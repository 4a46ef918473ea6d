package dto

import (
	"github.com/school-roster/roster-api/internal/models"
	"github.com/school-roster/roster-api/internal/scheduler"
)

// GenerateStats reports what one generation run did.
type GenerateStats struct {
	Assignments     int   `json:"assignments"`
	OptimizerRounds int   `json:"optimizer_rounds"`
	Improvements    int   `json:"improvements"`
	DurationMs      int64 `json:"duration_ms"`
}

// GenerateTimetableResponse is the payload of a successful generation run.
// Unplaced lists non-critical subjects the planner could not fully place;
// the schedule is still valid and persisted.
type GenerateTimetableResponse struct {
	RunID       string                  `json:"run_id"`
	Assignments []models.Assignment     `json:"assignments"`
	Unplaced    []scheduler.SoftFailure `json:"unplaced,omitempty"`
	Stats       GenerateStats           `json:"stats"`
}
