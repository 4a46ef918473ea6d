// Package scheduler implements the constraint-satisfaction timetable engine:
// phased block placement with backtracking, hard-constraint evaluation,
// soft-preference scoring for teachers and classrooms, and a post-placement
// local-search optimizer. The engine is pure CPU-bound work over an immutable
// in-memory snapshot; all I/O belongs to the caller.
package scheduler

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/school-roster/roster-api/internal/models"
)

// MaxBlockModules caps the size of a contiguous teaching block.
const MaxBlockModules = 2

const defaultRequiredModules = 2

// Config carries the planning constants, fixed for the duration of a run.
type Config struct {
	// Days is the ordered working-day set. Day names are opaque,
	// case-sensitive strings; earlier days are preferred.
	Days []string
	// ModulesPerDay is M: module indices run 1..M.
	ModulesPerDay int
	// GroupDailyCap applies to groups with no explicit cap of their own.
	GroupDailyCap int
	// TeacherLoadCap applies to teachers with no commissioned-hours cap.
	TeacherLoadCap int
	// OptimizerRounds bounds the improvement loop.
	OptimizerRounds int
}

func (c Config) normalized() Config {
	if len(c.Days) == 0 {
		c.Days = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	}
	if c.ModulesPerDay <= 0 {
		c.ModulesPerDay = 9
	}
	if c.GroupDailyCap <= 0 {
		c.GroupDailyCap = 4
	}
	if c.TeacherLoadCap <= 0 {
		c.TeacherLoadCap = 40
	}
	if c.OptimizerRounds <= 0 {
		c.OptimizerRounds = 16
	}
	return c
}

func (c Config) dayIndex(day string) int {
	for i, d := range c.Days {
		if d == day {
			return i
		}
	}
	return -1
}

// Snapshot is the read-only domain input for one planning run.
type Snapshot struct {
	Subjects   []models.Subject
	Groups     []models.Group
	Classrooms []models.Classroom
	// GroupSubjects maps a group id to the ids of its required subjects.
	GroupSubjects map[int64][]int64
	// TeachersBySubject maps a subject id to its qualified teachers.
	TeachersBySubject map[int64][]models.Teacher
}

// SoftFailure records a non-critical subject that could not be fully placed.
type SoftFailure struct {
	GroupID        int64 `json:"group_id"`
	SubjectID      int64 `json:"subject_id"`
	MissingModules int   `json:"missing_modules"`
}

// Stats summarises a planning run.
type Stats struct {
	Assignments     int `json:"assignments"`
	OptimizerRounds int `json:"optimizer_rounds"`
	Improvements    int `json:"improvements"`
}

// Result is a complete feasible schedule plus its placement report.
type Result struct {
	Assignments []models.Assignment `json:"assignments"`
	Unplaced    []SoftFailure       `json:"unplaced"`
	Stats       Stats               `json:"stats"`
}

// Planner drives one schedule generation run. Not safe for reuse: build a
// fresh Planner per run.
type Planner struct {
	cfg  Config
	snap Snapshot
	log  *zap.Logger

	subjects map[int64]models.Subject
	groups   map[int64]models.Group
	rooms    map[int64]models.Classroom
	// roomAvail holds decoded availability masks; a nil entry means the
	// room is usable at every slot.
	roomAvail map[int64]map[slotKey]bool

	orderedSubjects []models.Subject
	orderedGroups   []models.Group
	orderedRooms    []models.Classroom
	teachersFor     map[int64][]models.Teacher

	state    *scheduleState
	placed   map[groupSubject]int
	unplaced []SoftFailure
}

// New builds a planner over the given snapshot. The snapshot is treated as
// read-only; defaults (required modules, caps) are resolved here.
func New(cfg Config, snap Snapshot, log *zap.Logger) *Planner {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.normalized()

	p := &Planner{
		cfg:         cfg,
		snap:        snap,
		log:         log,
		subjects:    make(map[int64]models.Subject, len(snap.Subjects)),
		groups:      make(map[int64]models.Group, len(snap.Groups)),
		rooms:       make(map[int64]models.Classroom, len(snap.Classrooms)),
		roomAvail:   make(map[int64]map[slotKey]bool, len(snap.Classrooms)),
		teachersFor: make(map[int64][]models.Teacher, len(snap.TeachersBySubject)),
		state:       newScheduleState(),
		placed:      make(map[groupSubject]int),
	}

	for _, s := range snap.Subjects {
		if s.RequiredModules <= 0 {
			s.RequiredModules = defaultRequiredModules
		}
		p.subjects[s.ID] = s
		p.orderedSubjects = append(p.orderedSubjects, s)
	}
	sortSubjects(p.orderedSubjects)

	for _, g := range snap.Groups {
		p.groups[g.ID] = g
		p.orderedGroups = append(p.orderedGroups, g)
	}
	sortGroups(p.orderedGroups)

	for _, r := range snap.Classrooms {
		p.rooms[r.ID] = r
		p.orderedRooms = append(p.orderedRooms, r)
	}
	sort.Slice(p.orderedRooms, func(i, j int) bool { return p.orderedRooms[i].ID < p.orderedRooms[j].ID })

	for sid, teachers := range snap.TeachersBySubject {
		sorted := make([]models.Teacher, len(teachers))
		copy(sorted, teachers)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
		p.teachersFor[sid] = sorted
	}

	return p
}

// Generate runs the full pipeline: validation, three-phase placement,
// classroom assignment, optimization. The returned assignment list is
// deterministic for identical inputs.
func (p *Planner) Generate() (*Result, error) {
	if err := p.validateSnapshot(); err != nil {
		return nil, err
	}

	p.phaseReserveCritical()
	if err := p.phaseCompleteCritical(); err != nil {
		return nil, err
	}
	p.phaseRemainder()

	if err := p.assignClassrooms(); err != nil {
		return nil, err
	}

	rounds, improvements := p.optimize()

	p.state.sortAssignments(p.cfg)

	res := &Result{
		Assignments: p.state.assignments,
		Unplaced:    p.unplaced,
		Stats: Stats{
			Assignments:     len(p.state.assignments),
			OptimizerRounds: rounds,
			Improvements:    improvements,
		},
	}
	p.log.Info("schedule generated",
		zap.Int("assignments", res.Stats.Assignments),
		zap.Int("unplaced_subjects", len(res.Unplaced)),
		zap.Int("optimizer_rounds", rounds),
	)
	return res, nil
}

// validateSnapshot enforces the load-time invariants: unique ids, resolvable
// subject references, sane counts, and a qualified teacher for every
// required subject.
func (p *Planner) validateSnapshot() error {
	if len(p.subjects) != len(p.snap.Subjects) {
		return &DomainError{Detail: "duplicate subject id"}
	}
	if len(p.groups) != len(p.snap.Groups) {
		return &DomainError{Detail: "duplicate group id"}
	}
	if len(p.rooms) != len(p.snap.Classrooms) {
		return &DomainError{Detail: "duplicate classroom id"}
	}

	for _, g := range p.orderedGroups {
		if g.Students < 0 {
			return &DomainError{Detail: fmt.Sprintf("group %d has negative student count", g.ID)}
		}
		seen := make(map[int64]bool)
		for _, sid := range p.snap.GroupSubjects[g.ID] {
			if seen[sid] {
				return &DomainError{Detail: fmt.Sprintf("group %d requires subject %d twice", g.ID, sid)}
			}
			seen[sid] = true
			if _, ok := p.subjects[sid]; !ok {
				return &DomainError{Detail: fmt.Sprintf("group %d requires unknown subject %d", g.ID, sid)}
			}
		}
	}

	for _, r := range p.orderedRooms {
		mask, err := maskToSet(r)
		if err != nil {
			return &DomainError{Detail: fmt.Sprintf("classroom %d has malformed availability mask", r.ID)}
		}
		p.roomAvail[r.ID] = mask
	}

	// Every subject some group requires must have at least one teacher.
	required := make(map[int64]bool)
	for _, g := range p.orderedGroups {
		for _, sid := range p.snap.GroupSubjects[g.ID] {
			required[sid] = true
		}
	}
	for _, s := range p.orderedSubjects {
		if required[s.ID] && len(p.teachersFor[s.ID]) == 0 {
			return &NoQualifiedTeacherError{SubjectID: s.ID}
		}
	}
	return nil
}

func maskToSet(r models.Classroom) (map[slotKey]bool, error) {
	slots, err := r.AvailabilitySlots()
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, nil
	}
	set := make(map[slotKey]bool, len(slots))
	for _, s := range slots {
		set[slotKey{Day: s.Day, Module: s.Module}] = true
	}
	return set, nil
}

func (p *Planner) groupDailyCap(g models.Group) int {
	if g.MaxModulesPerDay > 0 {
		return g.MaxModulesPerDay
	}
	return p.cfg.GroupDailyCap
}

func (p *Planner) teacherLoadCap(t models.Teacher) int {
	if t.CommissionedHours > 0 {
		return t.CommissionedHours
	}
	return p.cfg.TeacherLoadCap
}

// sortSubjects orders by priority desc, required modules desc, id asc.
func sortSubjects(subjects []models.Subject) {
	sort.Slice(subjects, func(i, j int) bool {
		a, b := subjects[i], subjects[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.RequiredModules != b.RequiredModules {
			return a.RequiredModules > b.RequiredModules
		}
		return a.ID < b.ID
	})
}

// sortGroups orders by grade asc, section asc, id asc.
func sortGroups(groups []models.Group) {
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.Grade != b.Grade {
			return a.Grade < b.Grade
		}
		if a.Section != b.Section {
			return a.Section < b.Section
		}
		return a.ID < b.ID
	})
}
