package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/school-roster/roster-api/internal/models"
)

// SubjectRepository handles persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

const subjectColumns = "id, name, shorten, color, spec, required_modules, priority, created_at, updated_at"

// List returns subjects matching filters with a total count for pagination.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	base := "FROM subjects WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Spec != "" {
		conditions = append(conditions, fmt.Sprintf("spec = $%d", len(args)+1))
		args = append(args, filter.Spec)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(shorten) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":             true,
		"priority":         true,
		"required_modules": true,
		"created_at":       true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "priority"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, id ASC LIMIT %d OFFSET %d", subjectColumns, base, sortBy, order, size, offset)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}

	return subjects, total, nil
}

// ListAll returns every subject, ordered by id.
func (r *SubjectRepository) ListAll(ctx context.Context) ([]models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects ORDER BY id", subjectColumns)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query); err != nil {
		return nil, fmt.Errorf("list all subjects: %w", err)
	}
	return subjects, nil
}

// FindByID returns a subject by id.
func (r *SubjectRepository) FindByID(ctx context.Context, id int64) (*models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE id = $1", subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// Create inserts a subject and fills the generated id.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	const query = `
		INSERT INTO subjects (name, shorten, color, spec, required_modules, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		subject.Name, subject.Shorten, subject.Color, subject.Spec, subject.RequiredModules, subject.Priority,
	).Scan(&subject.ID); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Update persists subject changes.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	const query = `
		UPDATE subjects
		SET name = $1, shorten = $2, color = $3, spec = $4, required_modules = $5, priority = $6, updated_at = NOW()
		WHERE id = $7`
	res, err := r.db.ExecContext(ctx, query,
		subject.Name, subject.Shorten, subject.Color, subject.Spec, subject.RequiredModules, subject.Priority, subject.ID,
	)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update subject %d: no rows", subject.ID)
	}
	return nil
}

// Delete removes a subject.
func (r *SubjectRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM subjects WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}
