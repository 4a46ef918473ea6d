package scheduler

import (
	"strings"

	"github.com/school-roster/roster-api/internal/models"
)

// Teacher score terms.
const (
	scorePreferredDay     = 10
	scorePreferredModule  = 5
	scoreSameDayAdjacent  = 20
	scoreSameDayDistant   = 5
	scoreRoomCapacityBase = 100
	scoreRoomSameForGroup = 200
	scoreRoomSameBuilding = 100
	scoreRoomSpecMatch    = 150
)

// scoreTeacher sums the soft-preference terms for a teacher that already
// passed the hard constraints. Higher is better.
func (p *Planner) scoreTeacher(t models.Teacher, pl placement) int {
	score := 0

	if t.PrefersDay(pl.Day) {
		score += scorePreferredDay
	}

	for module := pl.Start; module < pl.Start+pl.Size; module++ {
		if t.PrefersModule(module) {
			score += scorePreferredModule
		}
	}

	if modules := p.state.ix.teacherModulesOnDay(t.ID, pl.Day); len(modules) > 0 {
		if blockAdjacentToRun(modules, pl.Start, pl.Size) {
			score += scoreSameDayAdjacent
		} else {
			score += scoreSameDayDistant
		}
	}

	// Slight preference for less loaded teachers.
	score += (p.teacherLoadCap(t) - p.state.ix.load(t.ID)) / 2

	return score
}

// bestTeacher picks the highest-scoring qualified teacher for the slot.
// Candidates are visited in ascending id order and replaced only on a
// strictly greater score, so ties resolve to the lowest id.
func (p *Planner) bestTeacher(g models.Group, s models.Subject, day string, start, size int) (models.Teacher, bool) {
	var best models.Teacher
	bestScore := 0
	found := false

	for _, t := range p.teachersFor[s.ID] {
		pl := placement{Group: g, Subject: s, Teacher: t, Day: day, Start: start, Size: size}
		if !p.constraintsSatisfied(pl) {
			continue
		}
		score := p.scoreTeacher(t, pl)
		if !found || score > bestScore {
			best = t
			bestScore = score
			found = true
		}
	}
	return best, found
}

// scoreClassroom ranks a room that already passed the suitability filters.
// groupRooms holds the rooms assigned so far per (group, day) keyed by
// module index.
func (p *Planner) scoreClassroom(room models.Classroom, a models.Assignment, g models.Group, s models.Subject, groupRooms map[entityDay]map[int]int64) int {
	// Closest capacity fit wins: big halls for small groups waste space.
	diff := room.Capacity - g.Students
	if diff < 0 {
		diff = -diff
	}
	score := scoreRoomCapacityBase - diff

	assigned := groupRooms[entityDay{ID: g.ID, Day: a.Day}]

	for _, roomID := range assigned {
		if roomID == room.ID {
			score += scoreRoomSameForGroup
			break
		}
	}

	if a.ModuleIndex > 1 {
		if prevID, ok := assigned[a.ModuleIndex-1]; ok {
			if prev, exists := p.rooms[prevID]; exists && prev.BuildingID == room.BuildingID {
				score += scoreRoomSameBuilding
			}
		}
	}

	if s.Spec != "" && strings.Contains(room.BuildingType, s.Spec) {
		score += scoreRoomSpecMatch
	}

	return score
}
