package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/school-roster/roster-api/internal/models"
)

func TestAssignClassroomsMatchesSpecialization(t *testing.T) {
	subjects := []models.Subject{
		testSubject(1, 2, 1, "lab"), // Physics Lab
		testSubject(2, 2, 0, ""),
	}
	lab := testRoom(1, 30, "lab")
	regular := testRoom(2, 30, "regular")
	snap := Snapshot{
		Subjects:          subjects,
		Groups:            []models.Group{testGroup(1, 1, "A", 20)},
		Classrooms:        []models.Classroom{lab, regular},
		GroupSubjects:     map[int64][]int64{1: {1, 2}},
		TeachersBySubject: singleQualification(subjects, testTeacher(1), testTeacher(2)),
	}

	result, err := New(Config{}, snap, nil).Generate()
	require.NoError(t, err)

	for _, a := range result.Assignments {
		if a.SubjectID == 1 {
			assert.Equal(t, lab.ID, a.ClassroomID, "spec subject must land in the lab room")
		}
		assert.NotZero(t, a.ClassroomID)
	}

	verifyInvariants(t, Config{}, snap, result)
}

func TestAssignClassroomsRespectsCapacity(t *testing.T) {
	subjects := []models.Subject{testSubject(1, 2, 0, "")}
	small := testRoom(1, 10, "")
	big := testRoom(2, 35, "")
	snap := Snapshot{
		Subjects:          subjects,
		Groups:            []models.Group{testGroup(1, 1, "A", 30)},
		Classrooms:        []models.Classroom{small, big},
		GroupSubjects:     map[int64][]int64{1: {1}},
		TeachersBySubject: singleQualification(subjects, testTeacher(1)),
	}

	result, err := New(Config{}, snap, nil).Generate()
	require.NoError(t, err)
	for _, a := range result.Assignments {
		assert.Equal(t, big.ID, a.ClassroomID)
	}
}

func TestAssignClassroomsHonoursAvailabilityMask(t *testing.T) {
	subjects := []models.Subject{testSubject(1, 2, 0, "")}
	masked := testRoom(1, 30, "")
	masked.Availability = availabilityMask(t,
		models.AvailabilitySlot{Day: "Friday", Module: 8},
	)
	open := testRoom(2, 30, "")
	snap := Snapshot{
		Subjects:          subjects,
		Groups:            []models.Group{testGroup(1, 1, "A", 20)},
		Classrooms:        []models.Classroom{masked, open},
		GroupSubjects:     map[int64][]int64{1: {1}},
		TeachersBySubject: singleQualification(subjects, testTeacher(1)),
	}

	result, err := New(Config{}, snap, nil).Generate()
	require.NoError(t, err)
	for _, a := range result.Assignments {
		assert.Equal(t, open.ID, a.ClassroomID, "the masked room only opens on Friday module 8")
	}

	verifyInvariants(t, Config{}, snap, result)
}

func TestAssignClassroomsFailsWithoutSuitableRoom(t *testing.T) {
	subjects := []models.Subject{testSubject(1, 2, 0, "")}
	small := testRoom(1, 10, "")
	snap := Snapshot{
		Subjects:          subjects,
		Groups:            []models.Group{testGroup(1, 1, "A", 30)},
		Classrooms:        []models.Classroom{small},
		GroupSubjects:     map[int64][]int64{1: {1}},
		TeachersBySubject: singleQualification(subjects, testTeacher(1)),
	}

	_, err := New(Config{}, snap, nil).Generate()
	require.Error(t, err)
	var noRoom *NoSuitableClassroomError
	require.ErrorAs(t, err, &noRoom)
	assert.Equal(t, int64(1), noRoom.GroupID)
	assert.Equal(t, int64(1), noRoom.SubjectID)
	assert.Equal(t, "Monday", noRoom.Day)
	assert.Equal(t, 1, noRoom.Module)
}

func TestAssignClassroomsKeepsGroupInOneRoom(t *testing.T) {
	subjects := []models.Subject{
		testSubject(1, 2, 1, ""),
		testSubject(2, 2, 0, ""),
	}
	snap := Snapshot{
		Subjects:          subjects,
		Groups:            []models.Group{testGroup(1, 1, "A", 20)},
		Classrooms:        []models.Classroom{testRoom(1, 22, ""), testRoom(2, 22, "")},
		GroupSubjects:     map[int64][]int64{1: {1, 2}},
		TeachersBySubject: singleQualification(subjects, testTeacher(1), testTeacher(2)),
	}

	result, err := New(Config{}, snap, nil).Generate()
	require.NoError(t, err)

	roomsUsed := make(map[int64]bool)
	for _, a := range result.Assignments {
		roomsUsed[a.ClassroomID] = true
	}
	assert.Len(t, roomsUsed, 1, "the same-room bonus should keep the group in one room")
}
