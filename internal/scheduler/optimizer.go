package scheduler

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/school-roster/roster-api/internal/models"
)

// optimize runs the four improving passes until a full round changes
// nothing, bounded by the configured round cap. Every move operates on
// whole blocks, so block contiguity and the uniqueness, coverage, cap and
// room invariants all survive. Returns the number of rounds that made an
// improvement and the total improvements.
func (p *Planner) optimize() (int, int) {
	rounds := 0
	improvements := 0
	for rounds < p.cfg.OptimizerRounds {
		moved := 0
		moved += p.healIsolatedTeacherModules()
		moved += p.spreadGroupSubjects()
		moved += p.compactEarlyModules()
		moved += p.consolidateRooms()
		if moved == 0 {
			break
		}
		improvements += moved
		rounds++
	}
	if improvements > 0 {
		p.log.Debug("optimizer finished", zap.Int("rounds", rounds), zap.Int("improvements", improvements))
	}
	return rounds, improvements
}

// block is a contiguous run of assignments sharing (group, subject, teacher)
// on one day. idxs are positions in the schedule, ascending by module.
type block struct {
	idxs    []int
	day     string
	start   int
	size    int
	subject int64
	teacher int64
	group   int64
}

// teacherBlocksOnDay splits a teacher's assignments on one day into blocks.
func (p *Planner) teacherBlocksOnDay(teacherID int64, day string) []block {
	idxs := p.state.indexesWhere(func(a models.Assignment) bool {
		return a.TeacherID == teacherID && a.Day == day
	})
	sort.Slice(idxs, func(i, j int) bool {
		return p.state.assignments[idxs[i]].ModuleIndex < p.state.assignments[idxs[j]].ModuleIndex
	})

	var blocks []block
	for _, idx := range idxs {
		a := p.state.assignments[idx]
		if n := len(blocks); n > 0 {
			last := &blocks[n-1]
			if last.subject == a.SubjectID && last.group == a.GroupID && last.start+last.size == a.ModuleIndex {
				last.idxs = append(last.idxs, idx)
				last.size++
				continue
			}
		}
		blocks = append(blocks, block{
			idxs:    []int{idx},
			day:     day,
			start:   a.ModuleIndex,
			size:    1,
			subject: a.SubjectID,
			teacher: a.TeacherID,
			group:   a.GroupID,
		})
	}
	return blocks
}

// tryMoveBlock relocates one block to (day, start). The block's own
// occupancy is detached before the feasibility check so a short leftward
// shift on the same day does not collide with itself. Rooms travel with
// their assignments and must be free and available at the target.
func (p *Planner) tryMoveBlock(idxs []int, day string, start int) bool {
	st := p.state
	detached := make([]models.Assignment, len(idxs))
	for i, idx := range idxs {
		detached[i] = st.assignments[idx]
		st.ix.release(detached[i])
		st.decSubjectDay(detached[i])
	}

	feasible := true
	for i, a := range detached {
		module := start + i
		if module < 1 || module > p.cfg.ModulesPerDay {
			feasible = false
			break
		}
		if !st.ix.groupFree(a.GroupID, day, module, 1) || !st.ix.teacherFree(a.TeacherID, day, module, 1) {
			feasible = false
			break
		}
		if a.ClassroomID != 0 {
			if !st.ix.roomFree(a.ClassroomID, day, module, 1) || !p.roomAvailableAt(a.ClassroomID, day, module) {
				feasible = false
				break
			}
		}
	}

	if !feasible {
		for _, a := range detached {
			st.ix.reserve(a)
			st.incSubjectDay(a)
		}
		return false
	}

	for i, idx := range idxs {
		a := detached[i]
		a.Day = day
		a.ModuleIndex = start + i
		st.assignments[idx] = a
		st.ix.reserve(a)
		st.incSubjectDay(a)
	}
	return true
}

// healIsolatedTeacherModules targets (teacher, day) pairs carrying a single
// module. It first tries to hand one of the teacher's blocks on a busier
// day to an alternate qualified teacher, then to move the isolated module
// next to one of the teacher's existing runs on another day.
func (p *Planner) healIsolatedTeacherModules() int {
	moves := 0
	for _, teacherID := range p.scheduledTeacherIDs() {
		for _, day := range p.cfg.Days {
			modules := p.state.ix.teacherModulesOnDay(teacherID, day)
			if len(modules) != 1 {
				continue
			}
			if p.trySwapAwayBlock(teacherID, day) || p.tryMoveIsolated(teacherID, day, modules[0]) {
				moves++
			}
		}
	}
	return moves
}

func (p *Planner) scheduledTeacherIDs() []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, a := range p.state.assignments {
		if !seen[a.TeacherID] {
			seen[a.TeacherID] = true
			ids = append(ids, a.TeacherID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// trySwapAwayBlock reassigns one of the teacher's blocks on a day with at
// least two modules to an alternate qualified teacher who is free there and
// has spare load. Whole blocks only, so the shared-teacher rule inside a
// block holds.
func (p *Planner) trySwapAwayBlock(teacherID int64, isolatedDay string) bool {
	for _, day := range p.cfg.Days {
		if day == isolatedDay {
			continue
		}
		if len(p.state.ix.teacherModulesOnDay(teacherID, day)) < 2 {
			continue
		}
		for _, b := range p.teacherBlocksOnDay(teacherID, day) {
			for _, alt := range p.teachersFor[b.subject] {
				if alt.ID == teacherID {
					continue
				}
				if !p.state.ix.teacherFree(alt.ID, day, b.start, b.size) {
					continue
				}
				if p.state.ix.load(alt.ID)+b.size > p.teacherLoadCap(alt) {
					continue
				}
				for _, idx := range b.idxs {
					p.state.reassignTeacher(idx, alt.ID)
				}
				return true
			}
		}
	}
	return false
}

// tryMoveIsolated relocates the teacher's single module to another day,
// adjacent to one of the teacher's existing runs there.
func (p *Planner) tryMoveIsolated(teacherID int64, day string, module int) bool {
	idxs := p.state.indexesWhere(func(a models.Assignment) bool {
		return a.TeacherID == teacherID && a.Day == day && a.ModuleIndex == module
	})
	if len(idxs) != 1 {
		return false
	}
	idx := idxs[0]
	a := p.state.assignments[idx]
	g := p.groups[a.GroupID]

	for _, target := range p.cfg.Days {
		if target == day {
			continue
		}
		if p.state.subjectOnDay(a.GroupID, a.SubjectID, target) {
			continue
		}
		if p.state.ix.groupCountOnDay(a.GroupID, target)+1 > p.groupDailyCap(g) {
			continue
		}
		existing := p.state.ix.teacherModulesOnDay(teacherID, target)
		if len(existing) == 0 {
			continue
		}
		for m := 1; m <= p.cfg.ModulesPerDay; m++ {
			if !blockAdjacentToRun(existing, m, 1) {
				continue
			}
			if p.tryMoveBlock([]int{idx}, target, m) {
				return true
			}
		}
	}
	return false
}

// spreadGroupSubjects relieves days where a group faces more than three
// distinct subjects by relocating one subject's whole block to a day with
// fewer than two distinct subjects. All of the block moves or none of it.
func (p *Planner) spreadGroupSubjects() int {
	moves := 0
	for _, g := range p.orderedGroups {
		for _, day := range p.cfg.Days {
			subjects := p.distinctSubjectsOnDay(g.ID, day)
			if len(subjects) <= 3 {
				continue
			}
			if p.moveOneSubjectAway(g, day, subjects) {
				moves++
			}
		}
	}
	return moves
}

func (p *Planner) distinctSubjectsOnDay(groupID int64, day string) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, a := range p.state.assignments {
		if a.GroupID == groupID && a.Day == day && !seen[a.SubjectID] {
			seen[a.SubjectID] = true
			ids = append(ids, a.SubjectID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (p *Planner) moveOneSubjectAway(g models.Group, day string, subjects []int64) bool {
	for _, sid := range subjects {
		idxs := p.state.indexesWhere(func(a models.Assignment) bool {
			return a.GroupID == g.ID && a.Day == day && a.SubjectID == sid
		})
		sort.Slice(idxs, func(i, j int) bool {
			return p.state.assignments[idxs[i]].ModuleIndex < p.state.assignments[idxs[j]].ModuleIndex
		})
		size := len(idxs)

		for _, target := range p.cfg.Days {
			if target == day {
				continue
			}
			if len(p.distinctSubjectsOnDay(g.ID, target)) >= 2 {
				continue
			}
			if p.state.subjectOnDay(g.ID, sid, target) {
				continue
			}
			if p.state.ix.groupCountOnDay(g.ID, target)+size > p.groupDailyCap(g) {
				continue
			}
			for start := 1; start+size-1 <= p.cfg.ModulesPerDay; start++ {
				if p.tryMoveBlock(idxs, target, start) {
					return true
				}
			}
		}
	}
	return false
}

// compactEarlyModules closes gaps in a group's day by shifting the first
// block after a gap into the gap's first empty slot.
func (p *Planner) compactEarlyModules() int {
	moves := 0
	for _, g := range p.orderedGroups {
		for _, day := range p.cfg.Days {
			if p.compactGroupDay(g.ID, day) {
				moves++
			}
		}
	}
	return moves
}

func (p *Planner) compactGroupDay(groupID int64, day string) bool {
	modules := p.state.ix.groupModulesOnDay(groupID, day)
	for i := 0; i+1 < len(modules); i++ {
		if modules[i+1]-modules[i] <= 1 {
			continue
		}
		gapStart := modules[i] + 1
		b, ok := p.groupBlockAt(groupID, day, modules[i+1])
		if !ok {
			continue
		}
		if p.tryMoveBlock(b.idxs, day, gapStart) {
			return true
		}
	}
	return false
}

// groupBlockAt finds the block of the group's assignment starting at the
// given module.
func (p *Planner) groupBlockAt(groupID int64, day string, start int) (block, bool) {
	idxs := p.state.indexesWhere(func(a models.Assignment) bool {
		return a.GroupID == groupID && a.Day == day
	})
	sort.Slice(idxs, func(i, j int) bool {
		return p.state.assignments[idxs[i]].ModuleIndex < p.state.assignments[idxs[j]].ModuleIndex
	})
	for _, idx := range idxs {
		a := p.state.assignments[idx]
		if a.ModuleIndex != start {
			continue
		}
		b := block{idxs: []int{idx}, day: day, start: start, size: 1, subject: a.SubjectID, teacher: a.TeacherID, group: groupID}
		for _, next := range idxs {
			n := p.state.assignments[next]
			if n.ModuleIndex == start+b.size && n.SubjectID == a.SubjectID && n.TeacherID == a.TeacherID {
				b.idxs = append(b.idxs, next)
				b.size++
			}
		}
		return b, true
	}
	return block{}, false
}

// consolidateRooms pulls a group's day into its most-used room where the
// room is free, large enough and specialization-compatible.
func (p *Planner) consolidateRooms() int {
	moves := 0
	for _, g := range p.orderedGroups {
		for _, day := range p.cfg.Days {
			moves += p.consolidateGroupDay(g, day)
		}
	}
	return moves
}

func (p *Planner) consolidateGroupDay(g models.Group, day string) int {
	idxs := p.state.indexesWhere(func(a models.Assignment) bool {
		return a.GroupID == g.ID && a.Day == day && a.ClassroomID != 0
	})

	usage := make(map[int64]int)
	for _, idx := range idxs {
		usage[p.state.assignments[idx].ClassroomID]++
	}
	if len(usage) <= 1 {
		return 0
	}

	var mostUsed int64
	best := -1
	for roomID, count := range usage {
		if count > best || (count == best && roomID < mostUsed) {
			mostUsed = roomID
			best = count
		}
	}
	room := p.rooms[mostUsed]

	moves := 0
	for _, idx := range idxs {
		a := p.state.assignments[idx]
		if a.ClassroomID == mostUsed {
			continue
		}
		if !p.state.ix.roomFree(mostUsed, day, a.ModuleIndex, 1) {
			continue
		}
		if !p.roomAvailableAt(mostUsed, day, a.ModuleIndex) {
			continue
		}
		if room.Capacity < g.Students {
			continue
		}
		s := p.subjects[a.SubjectID]
		if s.Spec != "" && !strings.Contains(room.BuildingType, s.Spec) {
			continue
		}
		p.state.reassignRoom(idx, mostUsed)
		moves++
	}
	return moves
}
