package scheduler

import (
	"sort"

	"github.com/school-roster/roster-api/internal/models"
)

type groupSubject struct {
	GroupID   int64
	SubjectID int64
}

// scheduleState is the schedule under construction: the ordered assignment
// list plus the indexes that make constraint checks cheap. Mutations go
// through its methods so every index stays consistent, which is what makes
// stack-style undo safe.
type scheduleState struct {
	assignments []models.Assignment
	ix          *availabilityIndex
	// subjectDays counts assignments per (group, subject, day); a non-zero
	// entry means the subject already has its block on that day.
	subjectDays map[groupSubject]map[string]int
}

func newScheduleState() *scheduleState {
	return &scheduleState{
		ix:          newAvailabilityIndex(),
		subjectDays: make(map[groupSubject]map[string]int),
	}
}

func (st *scheduleState) add(a models.Assignment) {
	st.assignments = append(st.assignments, a)
	st.ix.reserve(a)
	st.incSubjectDay(a)
}

// mark returns an undo point for stack-style backtracking.
func (st *scheduleState) mark() int {
	return len(st.assignments)
}

// undoTo pops every assignment added after the mark.
func (st *scheduleState) undoTo(mark int) {
	for len(st.assignments) > mark {
		last := st.assignments[len(st.assignments)-1]
		st.assignments = st.assignments[:len(st.assignments)-1]
		st.ix.release(last)
		st.decSubjectDay(last)
	}
}

func (st *scheduleState) incSubjectDay(a models.Assignment) {
	key := groupSubject{GroupID: a.GroupID, SubjectID: a.SubjectID}
	if st.subjectDays[key] == nil {
		st.subjectDays[key] = make(map[string]int)
	}
	st.subjectDays[key][a.Day]++
}

func (st *scheduleState) decSubjectDay(a models.Assignment) {
	key := groupSubject{GroupID: a.GroupID, SubjectID: a.SubjectID}
	days := st.subjectDays[key]
	if days == nil {
		return
	}
	days[a.Day]--
	if days[a.Day] <= 0 {
		delete(days, a.Day)
	}
}

func (st *scheduleState) subjectOnDay(groupID, subjectID int64, day string) bool {
	return st.subjectDays[groupSubject{GroupID: groupID, SubjectID: subjectID}][day] > 0
}

// relocate moves one assignment to a new slot, keeping all indexes current.
func (st *scheduleState) relocate(idx int, day string, module int) {
	a := st.assignments[idx]
	st.ix.release(a)
	st.decSubjectDay(a)
	a.Day = day
	a.ModuleIndex = module
	st.assignments[idx] = a
	st.ix.reserve(a)
	st.incSubjectDay(a)
}

// reassignTeacher hands one assignment to a different teacher.
func (st *scheduleState) reassignTeacher(idx int, teacherID int64) {
	a := st.assignments[idx]
	st.ix.release(a)
	st.decSubjectDay(a)
	a.TeacherID = teacherID
	st.assignments[idx] = a
	st.ix.reserve(a)
	st.incSubjectDay(a)
}

// reassignRoom swaps the classroom of one assignment.
func (st *scheduleState) reassignRoom(idx int, roomID int64) {
	a := st.assignments[idx]
	if a.ClassroomID != 0 {
		st.ix.releaseRoom(a.ClassroomID, a.Day, a.ModuleIndex)
	}
	a.ClassroomID = roomID
	st.assignments[idx] = a
	if roomID != 0 {
		st.ix.reserveRoom(roomID, a.Day, a.ModuleIndex)
	}
}

// indexesWhere returns assignment indexes matching the predicate, in
// schedule order.
func (st *scheduleState) indexesWhere(match func(models.Assignment) bool) []int {
	var out []int
	for i, a := range st.assignments {
		if match(a) {
			out = append(out, i)
		}
	}
	return out
}

// sortAssignments fixes the output order: day (configured order), module,
// group. Assignments on unknown days sort last, by name.
func (st *scheduleState) sortAssignments(cfg Config) {
	sort.Slice(st.assignments, func(i, j int) bool {
		a, b := st.assignments[i], st.assignments[j]
		da, db := cfg.dayIndex(a.Day), cfg.dayIndex(b.Day)
		if da != db {
			if da == -1 {
				return false
			}
			if db == -1 {
				return true
			}
			return da < db
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.ModuleIndex != b.ModuleIndex {
			return a.ModuleIndex < b.ModuleIndex
		}
		return a.GroupID < b.GroupID
	})
}
