package scheduler

import "github.com/school-roster/roster-api/internal/models"

// placement is a candidate block: group G meets subject S with teacher T on
// day D at modules [Start, Start+Size).
type placement struct {
	Group   models.Group
	Subject models.Subject
	Teacher models.Teacher
	Day     string
	Start   int
	Size    int
}

// constraintsSatisfied evaluates the candidate against every hard
// constraint. Soft preferences never reject here; they only rank candidates
// in the scoring pass.
func (p *Planner) constraintsSatisfied(pl placement) bool {
	if pl.Start < 1 || pl.Start+pl.Size-1 > p.cfg.ModulesPerDay {
		return false
	}
	ix := p.state.ix

	// Group daily cap.
	if ix.groupCountOnDay(pl.Group.ID, pl.Day)+pl.Size > p.groupDailyCap(pl.Group) {
		return false
	}

	// One block of a subject per group per day.
	if p.state.subjectOnDay(pl.Group.ID, pl.Subject.ID, pl.Day) {
		return false
	}

	// The group's slots must be open.
	if !ix.groupFree(pl.Group.ID, pl.Day, pl.Start, pl.Size) {
		return false
	}

	// The teacher's slots must be open.
	if !ix.teacherFree(pl.Teacher.ID, pl.Day, pl.Start, pl.Size) {
		return false
	}

	// Weekly teacher load cap.
	if ix.load(pl.Teacher.ID)+pl.Size > p.teacherLoadCap(pl.Teacher) {
		return false
	}

	// No dead modules for the teacher: once the teacher teaches on a day,
	// every further block must extend an existing run. A single empty
	// module left between runs is rejected, and so is any wider gap; the
	// optimizer later heals the isolated single-block days that remain.
	if modules := ix.teacherModulesOnDay(pl.Teacher.ID, pl.Day); len(modules) > 0 {
		if !blockAdjacentToRun(modules, pl.Start, pl.Size) {
			return false
		}
	}

	return true
}

// blockAdjacentToRun reports whether [start, start+size) touches any taken
// module without overlap.
func blockAdjacentToRun(modules []int, start, size int) bool {
	for _, m := range modules {
		if m == start-1 || m == start+size {
			return true
		}
	}
	return false
}
