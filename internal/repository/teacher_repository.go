package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/school-roster/roster-api/internal/models"
)

// TeacherRepository handles persistence for teachers and their subject
// qualifications.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository creates a new repository instance.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

const teacherColumns = "id, name, preferred_days, preferred_modules, commissioned_hours, created_at, updated_at"

// List returns teachers with a total count for pagination.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	base := "FROM teachers WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.SubjectID != 0 {
		conditions = append(conditions, fmt.Sprintf("id IN (SELECT teacher_id FROM teacher_subjects WHERE subject_id = $%d)", len(args)+1))
		args = append(args, filter.SubjectID)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY name ASC, id ASC LIMIT %d OFFSET %d", teacherColumns, base, size, offset)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}

	return teachers, total, nil
}

// FindByID returns a teacher by id.
func (r *TeacherRepository) FindByID(ctx context.Context, id int64) (*models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE id = $1", teacherColumns)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ListForSubject returns the teachers qualified for a subject, ordered by id
// so planning stays deterministic.
func (r *TeacherRepository) ListForSubject(ctx context.Context, subjectID int64) ([]models.Teacher, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM teachers
		WHERE id IN (SELECT teacher_id FROM teacher_subjects WHERE subject_id = $1)
		ORDER BY id`, teacherColumns)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, subjectID); err != nil {
		return nil, fmt.Errorf("list teachers for subject: %w", err)
	}
	return teachers, nil
}

// SubjectIDs returns the ids of the subjects a teacher may teach.
func (r *TeacherRepository) SubjectIDs(ctx context.Context, teacherID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, "SELECT subject_id FROM teacher_subjects WHERE teacher_id = $1 ORDER BY subject_id", teacherID); err != nil {
		return nil, fmt.Errorf("list teacher subjects: %w", err)
	}
	return ids, nil
}

// Create inserts a teacher and its qualification links in one transaction.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher, subjectIDs []int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create teacher: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
		INSERT INTO teachers (name, preferred_days, preferred_modules, commissioned_hours, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id`
	if err := tx.QueryRowxContext(ctx, query,
		teacher.Name, teacher.PreferredDays, teacher.PreferredModules, teacher.CommissionedHours,
	).Scan(&teacher.ID); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}

	if err := insertTeacherSubjects(ctx, tx, teacher.ID, subjectIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create teacher: %w", err)
	}
	return nil
}

// Update persists teacher changes and replaces its qualification links.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher, subjectIDs []int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update teacher: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
		UPDATE teachers
		SET name = $1, preferred_days = $2, preferred_modules = $3, commissioned_hours = $4, updated_at = NOW()
		WHERE id = $5`
	res, err := tx.ExecContext(ctx, query,
		teacher.Name, teacher.PreferredDays, teacher.PreferredModules, teacher.CommissionedHours, teacher.ID,
	)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update teacher %d: no rows", teacher.ID)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM teacher_subjects WHERE teacher_id = $1", teacher.ID); err != nil {
		return fmt.Errorf("clear teacher subjects: %w", err)
	}
	if err := insertTeacherSubjects(ctx, tx, teacher.ID, subjectIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update teacher: %w", err)
	}
	return nil
}

// Delete removes a teacher and its qualification links.
func (r *TeacherRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM teachers WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return nil
}

func insertTeacherSubjects(ctx context.Context, tx *sqlx.Tx, teacherID int64, subjectIDs []int64) error {
	for _, sid := range subjectIDs {
		if _, err := tx.ExecContext(ctx, "INSERT INTO teacher_subjects (teacher_id, subject_id) VALUES ($1, $2)", teacherID, sid); err != nil {
			return fmt.Errorf("link teacher %d subject %d: %w", teacherID, sid, err)
		}
	}
	return nil
}
