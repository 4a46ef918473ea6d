package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/school-roster/roster-api/internal/models"
)

// newSeededPlanner builds a planner over a two-subject, two-teacher domain
// and lets tests seed the schedule directly.
func newSeededPlanner(t *testing.T) (*Planner, Snapshot) {
	t.Helper()
	subjects := []models.Subject{testSubject(1, 2, 0, ""), testSubject(2, 2, 0, "")}
	snap := Snapshot{
		Subjects:          subjects,
		Groups:            []models.Group{testGroup(1, 1, "A", 20)},
		Classrooms:        []models.Classroom{testRoom(1, 30, "")},
		GroupSubjects:     map[int64][]int64{1: {1, 2}},
		TeachersBySubject: singleQualification(subjects, testTeacher(1), testTeacher(2)),
	}
	p := New(Config{}, snap, nil)
	require.NoError(t, p.validateSnapshot())
	return p, snap
}

func (p *Planner) seed(t *testing.T, groupID int64, day string, module int, subjectID, teacherID int64) {
	t.Helper()
	p.state.add(models.Assignment{
		GroupID:     groupID,
		Day:         day,
		ModuleIndex: module,
		SubjectID:   subjectID,
		TeacherID:   teacherID,
	})
}

func TestConstraintsRejectOutOfRangeBlock(t *testing.T) {
	p, _ := newSeededPlanner(t)
	pl := placement{Group: p.groups[1], Subject: p.subjects[1], Teacher: testTeacher(1), Day: "Monday", Start: 9, Size: 2}
	assert.False(t, p.constraintsSatisfied(pl))
	pl.Start = 0
	pl.Size = 1
	assert.False(t, p.constraintsSatisfied(pl))
}

func TestConstraintsRejectGroupDailyCap(t *testing.T) {
	p, _ := newSeededPlanner(t)
	// Default cap is four; three modules already used.
	p.seed(t, 1, "Monday", 1, 1, 1)
	p.seed(t, 1, "Monday", 2, 1, 1)
	p.seed(t, 1, "Monday", 3, 2, 1)

	extra := testSubject(3, 2, 0, "")
	pl := placement{Group: p.groups[1], Subject: extra, Teacher: testTeacher(2), Day: "Monday", Start: 5, Size: 2}
	assert.False(t, p.constraintsSatisfied(pl), "cap of four admits no further two-module block")

	pl.Size = 1
	pl.Start = 4
	assert.True(t, p.constraintsSatisfied(pl), "a single module still fits under the cap")
}

func TestConstraintsRejectSubjectTwiceOnDay(t *testing.T) {
	p, _ := newSeededPlanner(t)
	p.seed(t, 1, "Monday", 1, 1, 1)

	pl := placement{Group: p.groups[1], Subject: p.subjects[1], Teacher: testTeacher(2), Day: "Monday", Start: 3, Size: 1}
	assert.False(t, p.constraintsSatisfied(pl))

	pl.Day = "Tuesday"
	pl.Start = 1
	assert.True(t, p.constraintsSatisfied(pl))
}

func TestConstraintsRejectBusyTeacherAndGroup(t *testing.T) {
	p, _ := newSeededPlanner(t)
	p.seed(t, 1, "Monday", 1, 1, 1)

	// Teacher 1 is busy at module 1.
	pl := placement{Group: p.groups[1], Subject: p.subjects[2], Teacher: testTeacher(1), Day: "Monday", Start: 1, Size: 1}
	assert.False(t, p.constraintsSatisfied(pl))

	// The group is busy at module 1 regardless of teacher.
	pl.Teacher = testTeacher(2)
	assert.False(t, p.constraintsSatisfied(pl))
}

func TestConstraintsRejectTeacherOverLoad(t *testing.T) {
	p, _ := newSeededPlanner(t)
	teacher := testTeacher(1)
	teacher.CommissionedHours = 2
	p.seed(t, 1, "Monday", 1, 1, 1)
	p.seed(t, 1, "Monday", 2, 1, 1)

	pl := placement{Group: p.groups[1], Subject: p.subjects[2], Teacher: teacher, Day: "Monday", Start: 3, Size: 1}
	assert.False(t, p.constraintsSatisfied(pl), "two commissioned hours are already spent")
}

func TestConstraintsRejectTeacherGap(t *testing.T) {
	p, _ := newSeededPlanner(t)
	p.seed(t, 1, "Monday", 1, 1, 1)
	p.seed(t, 1, "Monday", 2, 1, 1)

	// Module 4 leaves a one-module hole after the teacher's run.
	pl := placement{Group: p.groups[1], Subject: p.subjects[2], Teacher: testTeacher(1), Day: "Monday", Start: 4, Size: 1}
	assert.False(t, p.constraintsSatisfied(pl))

	// A wider gap is rejected too.
	pl.Start = 6
	assert.False(t, p.constraintsSatisfied(pl))

	// Extending the run is fine.
	pl.Start = 3
	assert.True(t, p.constraintsSatisfied(pl))

	// Prefixing a run is adjacency as well.
	p.seed(t, 1, "Tuesday", 3, 1, 1)
	pl = placement{Group: p.groups[1], Subject: p.subjects[2], Teacher: testTeacher(1), Day: "Tuesday", Start: 2, Size: 1}
	assert.True(t, p.constraintsSatisfied(pl))
}
