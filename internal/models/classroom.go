package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// AvailabilitySlot is one (day, module) pair in a classroom availability mask.
type AvailabilitySlot struct {
	Day    string `json:"day"`
	Module int    `json:"module"`
}

// Classroom is a physical room. BuildingType carries the specialization
// tags ("lab", "computers", ...) matched against Subject.Spec by substring.
// An empty availability mask means the room is usable at every slot.
type Classroom struct {
	ID             int64          `db:"id" json:"id"`
	BuildingID     string         `db:"building_id" json:"building_id"`
	BuildingNumber int            `db:"building_number" json:"building_number"`
	BuildingType   string         `db:"building_type" json:"building_type"`
	Capacity       int            `db:"capacity" json:"capacity"`
	Availability   types.JSONText `db:"availability" json:"availability"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// AvailabilitySlots decodes the stored availability mask. A missing or
// empty mask decodes to nil.
func (c Classroom) AvailabilitySlots() ([]AvailabilitySlot, error) {
	if len(c.Availability) == 0 {
		return nil, nil
	}
	var slots []AvailabilitySlot
	if err := json.Unmarshal(c.Availability, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// ClassroomFilter describes query params for listing classrooms.
type ClassroomFilter struct {
	BuildingID   string
	BuildingType string
	MinCapacity  int
	Page         int
	PageSize     int
}
