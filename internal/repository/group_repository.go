package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/school-roster/roster-api/internal/models"
)

// GroupRepository handles persistence for groups and their required-subject
// links.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository creates a new repository instance.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

const groupColumns = "id, grade, section, career, students, max_modules_per_day, created_at, updated_at"

// List returns groups with a total count for pagination.
func (r *GroupRepository) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, int, error) {
	base := "FROM groups WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Grade != 0 {
		conditions = append(conditions, fmt.Sprintf("grade = $%d", len(args)+1))
		args = append(args, filter.Grade)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(section) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY grade ASC, section ASC LIMIT %d OFFSET %d", groupColumns, base, size, offset)
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list groups: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count groups: %w", err)
	}

	return groups, total, nil
}

// FindByID returns a group by id.
func (r *GroupRepository) FindByID(ctx context.Context, id int64) (*models.Group, error) {
	query := fmt.Sprintf("SELECT %s FROM groups WHERE id = $1", groupColumns)
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// SubjectIDs returns the ids of the subjects a group requires.
func (r *GroupRepository) SubjectIDs(ctx context.Context, groupID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, "SELECT subject_id FROM group_subjects WHERE group_id = $1 ORDER BY subject_id", groupID); err != nil {
		return nil, fmt.Errorf("list group subjects: %w", err)
	}
	return ids, nil
}

// ListWithSubjectIDs returns every group with its required subject ids, the
// shape the planner snapshot wants.
func (r *GroupRepository) ListWithSubjectIDs(ctx context.Context) ([]models.GroupWithSubjects, error) {
	query := fmt.Sprintf("SELECT %s FROM groups ORDER BY grade, section, id", groupColumns)
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("list all groups: %w", err)
	}

	type link struct {
		GroupID   int64 `db:"group_id"`
		SubjectID int64 `db:"subject_id"`
	}
	var links []link
	if err := r.db.SelectContext(ctx, &links, "SELECT group_id, subject_id FROM group_subjects ORDER BY group_id, subject_id"); err != nil {
		return nil, fmt.Errorf("list group subject links: %w", err)
	}

	bySubject := make(map[int64][]int64, len(groups))
	for _, l := range links {
		bySubject[l.GroupID] = append(bySubject[l.GroupID], l.SubjectID)
	}

	out := make([]models.GroupWithSubjects, 0, len(groups))
	for _, g := range groups {
		out = append(out, models.GroupWithSubjects{Group: g, SubjectIDs: bySubject[g.ID]})
	}
	return out, nil
}

// Create inserts a group and its subject links in one transaction.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group, subjectIDs []int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create group: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertGroup(ctx, tx, group); err != nil {
		return err
	}
	if err := insertGroupSubjects(ctx, tx, group.ID, subjectIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create group: %w", err)
	}
	return nil
}

// BulkCreate inserts several groups atomically, as used by file imports.
func (r *GroupRepository) BulkCreate(ctx context.Context, groups []models.GroupWithSubjects) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create groups: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range groups {
		if err := insertGroup(ctx, tx, &groups[i].Group); err != nil {
			return err
		}
		if err := insertGroupSubjects(ctx, tx, groups[i].ID, groups[i].SubjectIDs); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create groups: %w", err)
	}
	return nil
}

// Update persists group changes and replaces its subject links.
func (r *GroupRepository) Update(ctx context.Context, group *models.Group, subjectIDs []int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update group: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
		UPDATE groups
		SET grade = $1, section = $2, career = $3, students = $4, max_modules_per_day = $5, updated_at = NOW()
		WHERE id = $6`
	res, err := tx.ExecContext(ctx, query,
		group.Grade, group.Section, group.Career, group.Students, group.MaxModulesPerDay, group.ID,
	)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update group %d: no rows", group.ID)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM group_subjects WHERE group_id = $1", group.ID); err != nil {
		return fmt.Errorf("clear group subjects: %w", err)
	}
	if err := insertGroupSubjects(ctx, tx, group.ID, subjectIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update group: %w", err)
	}
	return nil
}

// Delete removes a group and its subject links.
func (r *GroupRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM groups WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

func insertGroup(ctx context.Context, tx *sqlx.Tx, group *models.Group) error {
	const query = `
		INSERT INTO groups (grade, section, career, students, max_modules_per_day, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id`
	if err := tx.QueryRowxContext(ctx, query,
		group.Grade, group.Section, group.Career, group.Students, group.MaxModulesPerDay,
	).Scan(&group.ID); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

func insertGroupSubjects(ctx context.Context, tx *sqlx.Tx, groupID int64, subjectIDs []int64) error {
	for _, sid := range subjectIDs {
		if _, err := tx.ExecContext(ctx, "INSERT INTO group_subjects (group_id, subject_id) VALUES ($1, $2)", groupID, sid); err != nil {
			return fmt.Errorf("link group %d subject %d: %w", groupID, sid, err)
		}
	}
	return nil
}
