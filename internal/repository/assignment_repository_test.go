package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/school-roster/roster-api/internal/models"
)

func TestAssignmentRepositoryReplaceAll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignments")).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO assignments").
		WithArgs(int64(1), "Monday", 1, int64(2), int64(3), int64(4), "MAT", "#ff0000").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO assignments").
		WithArgs(int64(1), "Monday", 2, int64(2), int64(3), int64(4), "MAT", "#ff0000").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	assignments := []models.Assignment{
		{GroupID: 1, Day: "Monday", ModuleIndex: 1, SubjectID: 2, TeacherID: 3, ClassroomID: 4, SubjectCode: "MAT", SubjectColor: "#ff0000"},
		{GroupID: 1, Day: "Monday", ModuleIndex: 2, SubjectID: 2, TeacherID: 3, ClassroomID: 4, SubjectCode: "MAT", SubjectColor: "#ff0000"},
	}
	require.NoError(t, repo.ReplaceAll(context.Background(), assignments))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryReplaceAllRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM assignments")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := repo.ReplaceAll(context.Background(), nil)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryListByGroup(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "group_id", "day", "module_index", "subject_id", "teacher_id", "classroom_id", "subject_code", "subject_color", "created_at"}).
		AddRow(1, 1, "Monday", 1, 2, 3, 4, "MAT", "#ff0000", time.Now()).
		AddRow(2, 1, "Monday", 2, 2, 3, 4, "MAT", "#ff0000", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, group_id, day, module_index, subject_id, teacher_id, classroom_id, subject_code, subject_color, created_at FROM assignments WHERE group_id = $1 ORDER BY day, module_index")).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	assignments, err := repo.ListByGroup(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, assignments, 2)
	assert.Equal(t, "MAT", assignments[0].SubjectCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}
