package scheduler

import (
	"strings"

	"github.com/school-roster/roster-api/internal/models"
)

// assignClassrooms gives every placed assignment a room. Assignments are
// processed slot by slot in day/module order; within a slot in schedule
// order, so the outcome is deterministic. A slot with no suitable room
// fails the whole run.
func (p *Planner) assignClassrooms() error {
	buckets := make(map[slotKey][]int, len(p.state.assignments))
	for i, a := range p.state.assignments {
		key := slotKey{Day: a.Day, Module: a.ModuleIndex}
		buckets[key] = append(buckets[key], i)
	}

	// Rooms assigned so far per (group, day), keyed by module. Feeds the
	// same-room and same-building scoring terms.
	groupRooms := make(map[entityDay]map[int]int64)

	for _, day := range p.cfg.Days {
		for module := 1; module <= p.cfg.ModulesPerDay; module++ {
			for _, idx := range buckets[slotKey{Day: day, Module: module}] {
				a := p.state.assignments[idx]
				g := p.groups[a.GroupID]
				s := p.subjects[a.SubjectID]

				room, ok := p.bestClassroom(a, g, s, groupRooms)
				if !ok {
					return &NoSuitableClassroomError{
						GroupID:   a.GroupID,
						SubjectID: a.SubjectID,
						Day:       a.Day,
						Module:    a.ModuleIndex,
					}
				}

				p.state.reassignRoom(idx, room.ID)
				key := entityDay{ID: g.ID, Day: day}
				if groupRooms[key] == nil {
					groupRooms[key] = make(map[int]int64)
				}
				groupRooms[key][module] = room.ID
			}
		}
	}
	return nil
}

func (p *Planner) bestClassroom(a models.Assignment, g models.Group, s models.Subject, groupRooms map[entityDay]map[int]int64) (models.Classroom, bool) {
	var best models.Classroom
	bestScore := 0
	found := false

	for _, room := range p.orderedRooms {
		if !p.roomSuitable(room, a, g, s) {
			continue
		}
		score := p.scoreClassroom(room, a, g, s, groupRooms)
		if !found || score > bestScore {
			best = room
			bestScore = score
			found = true
		}
	}
	return best, found
}

// roomSuitable applies the hard room filters: free at the slot, big enough,
// inside its availability mask, and matching the subject specialization.
func (p *Planner) roomSuitable(room models.Classroom, a models.Assignment, g models.Group, s models.Subject) bool {
	if !p.state.ix.roomFree(room.ID, a.Day, a.ModuleIndex, 1) {
		return false
	}
	if room.Capacity < g.Students {
		return false
	}
	if !p.roomAvailableAt(room.ID, a.Day, a.ModuleIndex) {
		return false
	}
	if s.Spec != "" && !strings.Contains(room.BuildingType, s.Spec) {
		return false
	}
	return true
}

// roomAvailableAt consults the decoded availability mask. Rooms without a
// mask are usable at every slot.
func (p *Planner) roomAvailableAt(roomID int64, day string, module int) bool {
	mask := p.roomAvail[roomID]
	if mask == nil {
		return true
	}
	return mask[slotKey{Day: day, Module: module}]
}
