package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/school-roster/roster-api/internal/models"
)

// AssignmentRepository persists generated schedules.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new repository instance.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = "id, group_id, day, module_index, subject_id, teacher_id, classroom_id, subject_code, subject_color, created_at"

// ReplaceAll atomically swaps the stored schedule for the given one. The
// previous schedule is gone once this commits; a failed transaction leaves
// it untouched.
func (r *AssignmentRepository) ReplaceAll(ctx context.Context, assignments []models.Assignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace schedule: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM assignments"); err != nil {
		return fmt.Errorf("clear schedule: %w", err)
	}

	const query = `
		INSERT INTO assignments (group_id, day, module_index, subject_id, teacher_id, classroom_id, subject_code, subject_color, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`
	for _, a := range assignments {
		if _, err := tx.ExecContext(ctx, query,
			a.GroupID, a.Day, a.ModuleIndex, a.SubjectID, a.TeacherID, a.ClassroomID, a.SubjectCode, a.SubjectColor,
		); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace schedule: %w", err)
	}
	return nil
}

// ListAll returns the stored schedule ordered for display.
func (r *AssignmentRepository) ListAll(ctx context.Context) ([]models.Assignment, error) {
	query := fmt.Sprintf("SELECT %s FROM assignments ORDER BY day, module_index, group_id", assignmentColumns)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// ListByGroup returns one group's schedule.
func (r *AssignmentRepository) ListByGroup(ctx context.Context, groupID int64) ([]models.Assignment, error) {
	query := fmt.Sprintf("SELECT %s FROM assignments WHERE group_id = $1 ORDER BY day, module_index", assignmentColumns)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, groupID); err != nil {
		return nil, fmt.Errorf("list assignments by group: %w", err)
	}
	return assignments, nil
}

// ListByTeacher returns one teacher's schedule.
func (r *AssignmentRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.Assignment, error) {
	query := fmt.Sprintf("SELECT %s FROM assignments WHERE teacher_id = $1 ORDER BY day, module_index", assignmentColumns)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, teacherID); err != nil {
		return nil, fmt.Errorf("list assignments by teacher: %w", err)
	}
	return assignments, nil
}
