package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/school-roster/roster-api/internal/models"
)

func TestAvailabilityIndexReserveRelease(t *testing.T) {
	ix := newAvailabilityIndex()
	a := models.Assignment{GroupID: 1, TeacherID: 2, ClassroomID: 3, Day: "Monday", ModuleIndex: 4}

	assert.True(t, ix.teacherFree(2, "Monday", 4, 1))
	assert.True(t, ix.groupFree(1, "Monday", 4, 1))
	assert.True(t, ix.roomFree(3, "Monday", 4, 1))

	ix.reserve(a)
	assert.False(t, ix.teacherFree(2, "Monday", 4, 1))
	assert.False(t, ix.groupFree(1, "Monday", 4, 1))
	assert.False(t, ix.roomFree(3, "Monday", 4, 1))
	assert.Equal(t, 1, ix.load(2))

	// Other days and slots stay open.
	assert.True(t, ix.teacherFree(2, "Tuesday", 4, 1))
	assert.True(t, ix.teacherFree(2, "Monday", 5, 1))

	ix.release(a)
	assert.True(t, ix.teacherFree(2, "Monday", 4, 1))
	assert.True(t, ix.groupFree(1, "Monday", 4, 1))
	assert.True(t, ix.roomFree(3, "Monday", 4, 1))
	assert.Equal(t, 0, ix.load(2))
}

func TestAvailabilityIndexBlockQueries(t *testing.T) {
	ix := newAvailabilityIndex()
	ix.reserve(models.Assignment{GroupID: 1, TeacherID: 2, Day: "Monday", ModuleIndex: 3})

	// A block is free only when every module in it is free.
	assert.True(t, ix.teacherFree(2, "Monday", 1, 2))
	assert.False(t, ix.teacherFree(2, "Monday", 2, 2))
	assert.False(t, ix.teacherFree(2, "Monday", 3, 2))
	assert.True(t, ix.teacherFree(2, "Monday", 4, 2))
}

func TestAvailabilityIndexModulesOnDaySorted(t *testing.T) {
	ix := newAvailabilityIndex()
	for _, module := range []int{7, 2, 5} {
		ix.reserve(models.Assignment{GroupID: 1, TeacherID: 2, Day: "Monday", ModuleIndex: module})
	}

	assert.Equal(t, []int{2, 5, 7}, ix.teacherModulesOnDay(2, "Monday"))
	assert.Equal(t, []int{2, 5, 7}, ix.groupModulesOnDay(1, "Monday"))
	assert.Nil(t, ix.teacherModulesOnDay(2, "Tuesday"))
	assert.Equal(t, 3, ix.groupCountOnDay(1, "Monday"))
}

func TestScheduleStateUndo(t *testing.T) {
	st := newScheduleState()
	st.add(models.Assignment{GroupID: 1, TeacherID: 1, SubjectID: 5, Day: "Monday", ModuleIndex: 1})
	mark := st.mark()
	st.add(models.Assignment{GroupID: 1, TeacherID: 1, SubjectID: 6, Day: "Monday", ModuleIndex: 2})
	st.add(models.Assignment{GroupID: 1, TeacherID: 1, SubjectID: 6, Day: "Monday", ModuleIndex: 3})

	assert.True(t, st.subjectOnDay(1, 6, "Monday"))
	st.undoTo(mark)

	assert.Len(t, st.assignments, 1)
	assert.False(t, st.subjectOnDay(1, 6, "Monday"))
	assert.True(t, st.subjectOnDay(1, 5, "Monday"))
	assert.True(t, st.ix.teacherFree(1, "Monday", 2, 2))
	assert.Equal(t, 1, st.ix.load(1))
}
