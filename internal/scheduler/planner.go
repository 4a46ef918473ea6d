package scheduler

import (
	"go.uber.org/zap"

	"github.com/school-roster/roster-api/internal/models"
)

const criticalModules = 4

// blockPlan splits a weekly module requirement into blocks of at most two
// consecutive modules. The split is deterministic: pairs first, a trailing
// single when the count is odd.
func blockPlan(required int) []int {
	switch {
	case required <= 0:
		return nil
	case required <= MaxBlockModules:
		return []int{required}
	case required == 3:
		return []int{2, 1}
	case required == 4:
		return []int{2, 2}
	default:
		var blocks []int
		for remaining := required; remaining > 0; {
			if remaining >= 2 {
				blocks = append(blocks, 2)
				remaining -= 2
			} else {
				blocks = append(blocks, 1)
				remaining--
			}
		}
		return blocks
	}
}

func (p *Planner) requires(g models.Group, subjectID int64) bool {
	for _, sid := range p.snap.GroupSubjects[g.ID] {
		if sid == subjectID {
			return true
		}
	}
	return false
}

func (p *Planner) remainingBlocks(g models.Group, s models.Subject) []int {
	done := p.placed[groupSubject{GroupID: g.ID, SubjectID: s.ID}]
	return blockPlan(s.RequiredModules - done)
}

// phaseReserveCritical places one two-module block for every (group,
// subject) pair whose weekly demand makes it critical, before anything else
// competes for slots. A miss here is not fatal: the completion phase
// retries with backtracking.
func (p *Planner) phaseReserveCritical() {
	for _, s := range p.orderedSubjects {
		if s.RequiredModules < criticalModules {
			continue
		}
		for _, g := range p.orderedGroups {
			if !p.requires(g, s.ID) {
				continue
			}
			if p.placeBlocks(g, s, []int{2}) {
				p.placed[groupSubject{GroupID: g.ID, SubjectID: s.ID}] += 2
			} else {
				p.log.Warn("reservation phase found no slot",
					zap.Int64("group_id", g.ID),
					zap.Int64("subject_id", s.ID),
				)
			}
		}
	}
}

// phaseCompleteCritical finishes every subject with more than two weekly
// modules. Failure here means the domain is over-constrained and aborts the
// run.
func (p *Planner) phaseCompleteCritical() error {
	for _, s := range p.orderedSubjects {
		if s.RequiredModules <= MaxBlockModules {
			continue
		}
		for _, g := range p.orderedGroups {
			if !p.requires(g, s.ID) {
				continue
			}
			key := groupSubject{GroupID: g.ID, SubjectID: s.ID}
			blocks := p.remainingBlocks(g, s)
			if len(blocks) == 0 {
				continue
			}
			if !p.placeBlocks(g, s, blocks) {
				return &NoFeasibleSlotError{GroupID: g.ID, SubjectID: s.ID}
			}
			p.placed[key] = s.RequiredModules
		}
	}
	return nil
}

// phaseRemainder completes all remaining subjects group by group. Shortfalls
// are recorded and reported, never fatal.
func (p *Planner) phaseRemainder() {
	for _, g := range p.orderedGroups {
		for _, s := range p.orderedSubjects {
			if !p.requires(g, s.ID) {
				continue
			}
			key := groupSubject{GroupID: g.ID, SubjectID: s.ID}
			blocks := p.remainingBlocks(g, s)
			if len(blocks) == 0 {
				continue
			}
			if p.placeBlocks(g, s, blocks) {
				p.placed[key] = s.RequiredModules
				continue
			}

			// The joint placement failed; salvage what fits block by
			// block and report the deficit.
			missing := 0
			for _, size := range blocks {
				if p.placeBlocks(g, s, []int{size}) {
					p.placed[key] += size
				} else {
					missing += size
				}
			}
			if missing > 0 {
				p.unplaced = append(p.unplaced, SoftFailure{GroupID: g.ID, SubjectID: s.ID, MissingModules: missing})
				p.log.Warn("subject left partially unscheduled",
					zap.Int64("group_id", g.ID),
					zap.Int64("subject_id", s.ID),
					zap.Int("missing_modules", missing),
				)
			}
		}
	}
}

// placeBlocks commits the given block sizes for (g, s), trying candidate
// slots in day order and start module ascending, with stack-style undo when
// a later block cannot be placed. Recursion depth is bounded by the block
// count and, since each block of a subject takes its own day, by the number
// of configured days.
func (p *Planner) placeBlocks(g models.Group, s models.Subject, blocks []int) bool {
	if len(blocks) == 0 {
		return true
	}
	size := blocks[0]

	for _, day := range p.cfg.Days {
		for start := 1; start+size-1 <= p.cfg.ModulesPerDay; start++ {
			t, ok := p.bestTeacher(g, s, day, start, size)
			if !ok {
				continue
			}
			mark := p.state.mark()
			p.commitBlock(g, s, t, day, start, size)
			if p.placeBlocks(g, s, blocks[1:]) {
				return true
			}
			p.state.undoTo(mark)
		}
	}
	return false
}

func (p *Planner) commitBlock(g models.Group, s models.Subject, t models.Teacher, day string, start, size int) {
	for offset := 0; offset < size; offset++ {
		p.state.add(models.Assignment{
			GroupID:      g.ID,
			Day:          day,
			ModuleIndex:  start + offset,
			SubjectID:    s.ID,
			TeacherID:    t.ID,
			ClassroomID:  0,
			SubjectCode:  s.Shorten,
			SubjectColor: s.Color,
		})
	}
}
