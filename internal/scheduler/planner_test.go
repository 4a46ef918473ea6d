package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/school-roster/roster-api/internal/models"
)

func TestGenerateMinimalSchedule(t *testing.T) {
	subjects := []models.Subject{testSubject(1, 2, 0, "")}
	snap := Snapshot{
		Subjects:          subjects,
		Groups:            []models.Group{testGroup(1, 1, "A", 20)},
		Classrooms:        []models.Classroom{testRoom(1, 30, "")},
		GroupSubjects:     map[int64][]int64{1: {1}},
		TeachersBySubject: singleQualification(subjects, testTeacher(1)),
	}

	result, err := New(Config{}, snap, nil).Generate()
	require.NoError(t, err)
	require.Len(t, result.Assignments, 2)
	require.Empty(t, result.Unplaced)

	first, second := result.Assignments[0], result.Assignments[1]
	assert.Equal(t, "Monday", first.Day)
	assert.Equal(t, 1, first.ModuleIndex)
	assert.Equal(t, "Monday", second.Day)
	assert.Equal(t, 2, second.ModuleIndex)
	for _, a := range result.Assignments {
		assert.Equal(t, int64(1), a.TeacherID)
		assert.Equal(t, int64(1), a.ClassroomID)
		assert.Equal(t, int64(1), a.SubjectID)
	}

	verifyInvariants(t, Config{}, snap, result)
}

func TestGenerateSplitsThreeModulesAcrossDays(t *testing.T) {
	subjects := []models.Subject{testSubject(1, 3, 0, "")}
	snap := Snapshot{
		Subjects:          subjects,
		Groups:            []models.Group{testGroup(1, 1, "A", 20)},
		Classrooms:        []models.Classroom{testRoom(1, 30, "")},
		GroupSubjects:     map[int64][]int64{1: {1}},
		TeachersBySubject: singleQualification(subjects, testTeacher(1)),
	}

	result, err := New(Config{}, snap, nil).Generate()
	require.NoError(t, err)
	require.Len(t, result.Assignments, 3)

	perDay := make(map[string]int)
	for _, a := range result.Assignments {
		perDay[a.Day]++
		assert.Equal(t, int64(1), a.TeacherID)
	}
	require.Len(t, perDay, 2, "blocks of a split subject must land on different days")
	counts := make(map[int]int)
	for _, n := range perDay {
		counts[n]++
	}
	assert.Equal(t, 1, counts[2], "expected one block of two modules")
	assert.Equal(t, 1, counts[1], "expected one block of one module")

	verifyInvariants(t, Config{}, snap, result)
}

func TestGenerateHonoursGroupDailyCap(t *testing.T) {
	var subjects []models.Subject
	teachersBySubject := make(map[int64][]models.Teacher)
	var subjectIDs []int64
	for id := int64(1); id <= 5; id++ {
		subjects = append(subjects, testSubject(id, 2, 0, ""))
		teachersBySubject[id] = []models.Teacher{testTeacher(id)}
		subjectIDs = append(subjectIDs, id)
	}
	group := testGroup(1, 1, "A", 20)
	group.MaxModulesPerDay = 4

	snap := Snapshot{
		Subjects:          subjects,
		Groups:            []models.Group{group},
		Classrooms:        []models.Classroom{testRoom(1, 30, ""), testRoom(2, 30, "")},
		GroupSubjects:     map[int64][]int64{1: subjectIDs},
		TeachersBySubject: teachersBySubject,
	}

	result, err := New(Config{}, snap, nil).Generate()
	require.NoError(t, err)
	require.Len(t, result.Assignments, 10)
	require.Empty(t, result.Unplaced)

	perDay := make(map[string]int)
	for _, a := range result.Assignments {
		perDay[a.Day]++
	}
	require.GreaterOrEqual(t, len(perDay), 3, "ten modules at four per day need at least three days")
	for day, count := range perDay {
		assert.LessOrEqual(t, count, 4, "day %s exceeds group cap", day)
	}

	verifyInvariants(t, Config{}, snap, result)
}

func TestGenerateFailsWhenDemandExceedsCapacity(t *testing.T) {
	teacher := testTeacher(1)
	teacher.CommissionedHours = 40
	subjects := []models.Subject{
		testSubject(1, 23, 0, ""),
		testSubject(2, 22, 0, ""),
	}
	snap := Snapshot{
		Subjects:          subjects,
		Groups:            []models.Group{testGroup(1, 1, "A", 20)},
		Classrooms:        []models.Classroom{testRoom(1, 30, "")},
		GroupSubjects:     map[int64][]int64{1: {1, 2}},
		TeachersBySubject: singleQualification(subjects, teacher),
	}

	_, err := New(Config{}, snap, nil).Generate()
	require.Error(t, err)
	var noSlot *NoFeasibleSlotError
	require.ErrorAs(t, err, &noSlot)
}

func TestGenerateCriticalSubjectCompletes(t *testing.T) {
	subjects := []models.Subject{
		testSubject(1, 6, 5, ""),
		testSubject(2, 2, 0, ""),
	}
	teachers := []models.Teacher{testTeacher(1), testTeacher(2)}
	snap := Snapshot{
		Subjects:          subjects,
		Groups:            []models.Group{testGroup(1, 1, "A", 20), testGroup(2, 1, "B", 22)},
		Classrooms:        []models.Classroom{testRoom(1, 30, ""), testRoom(2, 30, "")},
		GroupSubjects:     map[int64][]int64{1: {1, 2}, 2: {1, 2}},
		TeachersBySubject: singleQualification(subjects, teachers...),
	}

	result, err := New(Config{}, snap, nil).Generate()
	require.NoError(t, err)
	require.Empty(t, result.Unplaced)
	// 6 + 2 modules for each of the two groups.
	require.Len(t, result.Assignments, 16)

	verifyInvariants(t, Config{}, snap, result)
}

func TestGenerateIsDeterministic(t *testing.T) {
	subjects := []models.Subject{
		testSubject(1, 4, 1, ""),
		testSubject(2, 3, 0, ""),
		testSubject(3, 2, 0, ""),
	}
	teachers := []models.Teacher{testTeacher(1), testTeacher(2), testTeacher(3)}
	snap := Snapshot{
		Subjects:          subjects,
		Groups:            []models.Group{testGroup(1, 1, "A", 20), testGroup(2, 2, "B", 25)},
		Classrooms:        []models.Classroom{testRoom(1, 30, ""), testRoom(2, 40, "")},
		GroupSubjects:     map[int64][]int64{1: {1, 2, 3}, 2: {1, 3}},
		TeachersBySubject: singleQualification(subjects, teachers...),
	}

	first, err := New(Config{}, snap, nil).Generate()
	require.NoError(t, err)
	second, err := New(Config{}, snap, nil).Generate()
	require.NoError(t, err)

	require.Equal(t, first.Assignments, second.Assignments)
	require.Equal(t, first.Unplaced, second.Unplaced)

	verifyInvariants(t, Config{}, snap, first)
}

func TestGenerateReportsSoftFailures(t *testing.T) {
	// A single teacher with a tiny load cap cannot host both subjects;
	// the second one is non-critical, so the run succeeds with a report.
	teacher := testTeacher(1)
	teacher.CommissionedHours = 2
	subjects := []models.Subject{
		testSubject(1, 2, 5, ""),
		testSubject(2, 2, 0, ""),
	}
	snap := Snapshot{
		Subjects:          subjects,
		Groups:            []models.Group{testGroup(1, 1, "A", 20)},
		Classrooms:        []models.Classroom{testRoom(1, 30, "")},
		GroupSubjects:     map[int64][]int64{1: {1, 2}},
		TeachersBySubject: singleQualification(subjects, teacher),
	}

	result, err := New(Config{}, snap, nil).Generate()
	require.NoError(t, err)
	require.Len(t, result.Assignments, 2)
	require.Len(t, result.Unplaced, 1)
	assert.Equal(t, int64(2), result.Unplaced[0].SubjectID)
	assert.Equal(t, 2, result.Unplaced[0].MissingModules)

	verifyInvariants(t, Config{}, snap, result)
}
