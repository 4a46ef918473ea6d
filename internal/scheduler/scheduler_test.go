package scheduler

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/require"

	"github.com/school-roster/roster-api/internal/models"
)

// --- Fixture builders ---

func testSubject(id int64, required, priority int, spec string) models.Subject {
	return models.Subject{
		ID:              id,
		Name:            fmt.Sprintf("Subject %d", id),
		Shorten:         fmt.Sprintf("S%d", id),
		Color:           "#4287f5",
		Spec:            spec,
		RequiredModules: required,
		Priority:        priority,
	}
}

func testTeacher(id int64) models.Teacher {
	return models.Teacher{ID: id, Name: fmt.Sprintf("Teacher %d", id)}
}

func testGroup(id int64, grade int, section string, students int) models.Group {
	return models.Group{ID: id, Grade: grade, Section: section, Students: students}
}

func testRoom(id int64, capacity int, buildingType string) models.Classroom {
	return models.Classroom{
		ID:           id,
		BuildingID:   "A",
		BuildingType: buildingType,
		Capacity:     capacity,
	}
}

func availabilityMask(t *testing.T, slots ...models.AvailabilitySlot) types.JSONText {
	t.Helper()
	raw, err := json.Marshal(slots)
	require.NoError(t, err)
	return types.JSONText(raw)
}

// singleQualification maps every subject to the same teacher set.
func singleQualification(subjects []models.Subject, teachers ...models.Teacher) map[int64][]models.Teacher {
	out := make(map[int64][]models.Teacher, len(subjects))
	for _, s := range subjects {
		out[s.ID] = teachers
	}
	return out
}

// --- Invariant sweep ---

// verifyInvariants checks every universal schedule property against the
// snapshot the result was planned from.
func verifyInvariants(t *testing.T, cfg Config, snap Snapshot, result *Result) {
	t.Helper()
	cfg = cfg.normalized()

	subjects := make(map[int64]models.Subject, len(snap.Subjects))
	for _, s := range snap.Subjects {
		if s.RequiredModules <= 0 {
			s.RequiredModules = defaultRequiredModules
		}
		subjects[s.ID] = s
	}
	groups := make(map[int64]models.Group, len(snap.Groups))
	for _, g := range snap.Groups {
		groups[g.ID] = g
	}
	rooms := make(map[int64]models.Classroom, len(snap.Classrooms))
	for _, r := range snap.Classrooms {
		rooms[r.ID] = r
	}

	type slot struct {
		id     int64
		day    string
		module int
	}
	groupSlots := make(map[slot]int)
	teacherSlots := make(map[slot]int)
	roomSlots := make(map[slot]int)
	coverage := make(map[groupSubject]int)
	subjectDayCount := make(map[groupSubject]map[string]int)
	groupDaily := make(map[slot]int)
	teacherTotal := make(map[int64]int)

	for _, a := range result.Assignments {
		groupSlots[slot{a.GroupID, a.Day, a.ModuleIndex}]++
		teacherSlots[slot{a.TeacherID, a.Day, a.ModuleIndex}]++
		if a.ClassroomID != 0 {
			roomSlots[slot{a.ClassroomID, a.Day, a.ModuleIndex}]++
		}
		key := groupSubject{GroupID: a.GroupID, SubjectID: a.SubjectID}
		coverage[key]++
		if subjectDayCount[key] == nil {
			subjectDayCount[key] = make(map[string]int)
		}
		subjectDayCount[key][a.Day]++
		groupDaily[slot{a.GroupID, a.Day, 0}]++
		teacherTotal[a.TeacherID]++

		require.GreaterOrEqual(t, a.ModuleIndex, 1, "module below range")
		require.LessOrEqual(t, a.ModuleIndex, cfg.ModulesPerDay, "module above range")

		// Teacher qualification.
		qualified := false
		for _, candidate := range snap.TeachersBySubject[a.SubjectID] {
			if candidate.ID == a.TeacherID {
				qualified = true
				break
			}
		}
		require.True(t, qualified, "teacher %d not qualified for subject %d", a.TeacherID, a.SubjectID)

		// Room constraints.
		if a.ClassroomID != 0 {
			room, ok := rooms[a.ClassroomID]
			require.True(t, ok, "assignment references unknown room %d", a.ClassroomID)
			g := groups[a.GroupID]
			require.GreaterOrEqual(t, room.Capacity, g.Students, "room %d too small", room.ID)
			s := subjects[a.SubjectID]
			if s.Spec != "" {
				require.True(t, strings.Contains(room.BuildingType, s.Spec), "room %d lacks spec %q", room.ID, s.Spec)
			}
			slots, err := room.AvailabilitySlots()
			require.NoError(t, err)
			if len(slots) > 0 {
				inMask := false
				for _, av := range slots {
					if av.Day == a.Day && av.Module == a.ModuleIndex {
						inMask = true
						break
					}
				}
				require.True(t, inMask, "room %d used outside availability mask", room.ID)
			}
		}
	}

	for key, count := range groupSlots {
		require.Equal(t, 1, count, "group %d double-booked at %s/%d", key.id, key.day, key.module)
	}
	for key, count := range teacherSlots {
		require.Equal(t, 1, count, "teacher %d double-booked at %s/%d", key.id, key.day, key.module)
	}
	for key, count := range roomSlots {
		require.Equal(t, 1, count, "room %d double-booked at %s/%d", key.id, key.day, key.module)
	}

	// Subject coverage, net of reported shortfalls.
	missing := make(map[groupSubject]int)
	for _, u := range result.Unplaced {
		missing[groupSubject{GroupID: u.GroupID, SubjectID: u.SubjectID}] = u.MissingModules
	}
	for _, g := range snap.Groups {
		for _, sid := range snap.GroupSubjects[g.ID] {
			key := groupSubject{GroupID: g.ID, SubjectID: sid}
			want := subjects[sid].RequiredModules - missing[key]
			require.Equal(t, want, coverage[key], "coverage for group %d subject %d", g.ID, sid)
		}
	}

	// One block of a subject per day, contiguous, at most two modules.
	for key, days := range subjectDayCount {
		for day, count := range days {
			require.LessOrEqual(t, count, MaxBlockModules, "block too large for group %d subject %d on %s", key.GroupID, key.SubjectID, day)
			var modules []int
			for _, a := range result.Assignments {
				if a.GroupID == key.GroupID && a.SubjectID == key.SubjectID && a.Day == day {
					modules = append(modules, a.ModuleIndex)
				}
			}
			if len(modules) == 2 {
				diff := modules[0] - modules[1]
				require.True(t, diff == 1 || diff == -1, "block not contiguous for group %d subject %d on %s", key.GroupID, key.SubjectID, day)
			}
		}
	}

	// Group daily cap and teacher load cap.
	for key, count := range groupDaily {
		g := groups[key.id]
		cap := g.MaxModulesPerDay
		if cap <= 0 {
			cap = cfg.GroupDailyCap
		}
		require.LessOrEqual(t, count, cap, "group %d over daily cap on %s", key.id, key.day)
	}
	teacherCaps := make(map[int64]int)
	for _, teachers := range snap.TeachersBySubject {
		for _, teacher := range teachers {
			cap := teacher.CommissionedHours
			if cap <= 0 {
				cap = cfg.TeacherLoadCap
			}
			teacherCaps[teacher.ID] = cap
		}
	}
	for id, total := range teacherTotal {
		require.LessOrEqual(t, total, teacherCaps[id], "teacher %d over load cap", id)
	}
}

// --- Block plan ---

func TestBlockPlan(t *testing.T) {
	cases := []struct {
		required int
		want     []int
	}{
		{1, []int{1}},
		{2, []int{2}},
		{3, []int{2, 1}},
		{4, []int{2, 2}},
		{5, []int{2, 2, 1}},
		{6, []int{2, 2, 2}},
		{7, []int{2, 2, 2, 1}},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, blockPlan(tc.required), "required=%d", tc.required)
	}
	require.Nil(t, blockPlan(0))
}

// --- Snapshot validation ---

func TestValidateSnapshotRejectsUnknownSubject(t *testing.T) {
	snap := Snapshot{
		Subjects:      []models.Subject{testSubject(1, 2, 0, "")},
		Groups:        []models.Group{testGroup(1, 1, "A", 20)},
		GroupSubjects: map[int64][]int64{1: {1, 99}},
		TeachersBySubject: map[int64][]models.Teacher{
			1: {testTeacher(1)},
		},
	}
	_, err := New(Config{}, snap, nil).Generate()
	require.Error(t, err)
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
}

func TestValidateSnapshotRejectsMissingTeacher(t *testing.T) {
	snap := Snapshot{
		Subjects:          []models.Subject{testSubject(1, 2, 0, "")},
		Groups:            []models.Group{testGroup(1, 1, "A", 20)},
		GroupSubjects:     map[int64][]int64{1: {1}},
		TeachersBySubject: map[int64][]models.Teacher{},
	}
	_, err := New(Config{}, snap, nil).Generate()
	require.Error(t, err)
	var noTeacher *NoQualifiedTeacherError
	require.ErrorAs(t, err, &noTeacher)
	require.Equal(t, int64(1), noTeacher.SubjectID)
}

func TestValidateSnapshotRejectsDuplicateGroup(t *testing.T) {
	snap := Snapshot{
		Subjects:          []models.Subject{testSubject(1, 2, 0, "")},
		Groups:            []models.Group{testGroup(1, 1, "A", 20), testGroup(1, 2, "B", 25)},
		GroupSubjects:     map[int64][]int64{1: {1}},
		TeachersBySubject: map[int64][]models.Teacher{1: {testTeacher(1)}},
	}
	_, err := New(Config{}, snap, nil).Generate()
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
}
