package scheduler

import (
	"sort"

	"github.com/school-roster/roster-api/internal/models"
)

// slotKey identifies a (day, module) slot.
type slotKey struct {
	Day    string
	Module int
}

// entityDay keys the busy maps: one entity (teacher, group or room) on one day.
type entityDay struct {
	ID  int64
	Day string
}

// availabilityIndex tracks which modules are taken per teacher, group and
// room on each day, plus total teacher load. All operations are amortized
// constant time.
type availabilityIndex struct {
	teacherBusy map[entityDay]map[int]bool
	groupBusy   map[entityDay]map[int]bool
	roomBusy    map[entityDay]map[int]bool
	teacherLoad map[int64]int
}

func newAvailabilityIndex() *availabilityIndex {
	return &availabilityIndex{
		teacherBusy: make(map[entityDay]map[int]bool),
		groupBusy:   make(map[entityDay]map[int]bool),
		roomBusy:    make(map[entityDay]map[int]bool),
		teacherLoad: make(map[int64]int),
	}
}

func busyAdd(m map[entityDay]map[int]bool, id int64, day string, module int) {
	key := entityDay{ID: id, Day: day}
	if m[key] == nil {
		m[key] = make(map[int]bool)
	}
	m[key][module] = true
}

func busyRemove(m map[entityDay]map[int]bool, id int64, day string, module int) {
	key := entityDay{ID: id, Day: day}
	if m[key] != nil {
		delete(m[key], module)
	}
}

func freeBlock(m map[entityDay]map[int]bool, id int64, day string, start, size int) bool {
	used := m[entityDay{ID: id, Day: day}]
	if used == nil {
		return true
	}
	for module := start; module < start+size; module++ {
		if used[module] {
			return false
		}
	}
	return true
}

func (ix *availabilityIndex) teacherFree(id int64, day string, start, size int) bool {
	return freeBlock(ix.teacherBusy, id, day, start, size)
}

func (ix *availabilityIndex) groupFree(id int64, day string, start, size int) bool {
	return freeBlock(ix.groupBusy, id, day, start, size)
}

func (ix *availabilityIndex) roomFree(id int64, day string, start, size int) bool {
	return freeBlock(ix.roomBusy, id, day, start, size)
}

func (ix *availabilityIndex) reserveRoom(id int64, day string, module int) {
	busyAdd(ix.roomBusy, id, day, module)
}

func (ix *availabilityIndex) releaseRoom(id int64, day string, module int) {
	busyRemove(ix.roomBusy, id, day, module)
}

// reserve marks every resource of the assignment as busy.
func (ix *availabilityIndex) reserve(a models.Assignment) {
	busyAdd(ix.teacherBusy, a.TeacherID, a.Day, a.ModuleIndex)
	busyAdd(ix.groupBusy, a.GroupID, a.Day, a.ModuleIndex)
	if a.ClassroomID != 0 {
		busyAdd(ix.roomBusy, a.ClassroomID, a.Day, a.ModuleIndex)
	}
	ix.teacherLoad[a.TeacherID]++
}

// release undoes reserve.
func (ix *availabilityIndex) release(a models.Assignment) {
	busyRemove(ix.teacherBusy, a.TeacherID, a.Day, a.ModuleIndex)
	busyRemove(ix.groupBusy, a.GroupID, a.Day, a.ModuleIndex)
	if a.ClassroomID != 0 {
		busyRemove(ix.roomBusy, a.ClassroomID, a.Day, a.ModuleIndex)
	}
	if ix.teacherLoad[a.TeacherID] > 0 {
		ix.teacherLoad[a.TeacherID]--
	}
}

func sortedModules(m map[entityDay]map[int]bool, id int64, day string) []int {
	used := m[entityDay{ID: id, Day: day}]
	if len(used) == 0 {
		return nil
	}
	modules := make([]int, 0, len(used))
	for module := range used {
		modules = append(modules, module)
	}
	sort.Ints(modules)
	return modules
}

// teacherModulesOnDay returns the teacher's taken modules, ascending.
func (ix *availabilityIndex) teacherModulesOnDay(id int64, day string) []int {
	return sortedModules(ix.teacherBusy, id, day)
}

// groupModulesOnDay returns the group's taken modules, ascending.
func (ix *availabilityIndex) groupModulesOnDay(id int64, day string) []int {
	return sortedModules(ix.groupBusy, id, day)
}

func (ix *availabilityIndex) groupCountOnDay(id int64, day string) int {
	return len(ix.groupBusy[entityDay{ID: id, Day: day}])
}

func (ix *availabilityIndex) load(teacherID int64) int {
	return ix.teacherLoad[teacherID]
}
