package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/school-roster/roster-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func subjectRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "shorten", "color", "spec", "required_modules", "priority", "created_at", "updated_at"})
}

func TestSubjectRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	rows := subjectRows().
		AddRow(1, "Mathematics", "MAT", "#ff0000", "", 4, 5, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, shorten, color, spec, required_modules, priority, created_at, updated_at FROM subjects WHERE 1=1 ORDER BY priority DESC, id ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM subjects WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	subjects, total, err := repo.List(context.Background(), models.SubjectFilter{})
	require.NoError(t, err)
	assert.Len(t, subjects, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Mathematics", subjects[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryListFiltersBySpec(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("spec = $1")).
		WithArgs("lab").
		WillReturnRows(subjectRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("lab").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.List(context.Background(), models.SubjectFilter{Spec: "lab"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryCreateReturnsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectQuery("INSERT INTO subjects").
		WithArgs("Physics Lab", "PHL", "#00ff00", "lab", 2, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	subject := &models.Subject{Name: "Physics Lab", Shorten: "PHL", Color: "#00ff00", Spec: "lab", RequiredModules: 2}
	require.NoError(t, repo.Create(context.Background(), subject))
	assert.Equal(t, int64(7), subject.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectExec("UPDATE subjects").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Subject{ID: 99, Name: "Gone", Shorten: "GN"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
