package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/school-roster/roster-api/internal/models"
)

// ClassroomRepository handles persistence for classrooms.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository creates a new repository instance.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

const classroomColumns = "id, building_id, building_number, building_type, capacity, availability, created_at, updated_at"

// List returns classrooms with a total count for pagination.
func (r *ClassroomRepository) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error) {
	base := "FROM classrooms WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.BuildingID != "" {
		conditions = append(conditions, fmt.Sprintf("building_id = $%d", len(args)+1))
		args = append(args, filter.BuildingID)
	}
	if filter.BuildingType != "" {
		conditions = append(conditions, fmt.Sprintf("building_type LIKE $%d", len(args)+1))
		args = append(args, "%"+filter.BuildingType+"%")
	}
	if filter.MinCapacity > 0 {
		conditions = append(conditions, fmt.Sprintf("capacity >= $%d", len(args)+1))
		args = append(args, filter.MinCapacity)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY building_id ASC, building_number ASC LIMIT %d OFFSET %d", classroomColumns, base, size, offset)
	var rooms []models.Classroom
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classrooms: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classrooms: %w", err)
	}

	return rooms, total, nil
}

// ListAll returns every classroom, ordered by id.
func (r *ClassroomRepository) ListAll(ctx context.Context) ([]models.Classroom, error) {
	query := fmt.Sprintf("SELECT %s FROM classrooms ORDER BY id", classroomColumns)
	var rooms []models.Classroom
	if err := r.db.SelectContext(ctx, &rooms, query); err != nil {
		return nil, fmt.Errorf("list all classrooms: %w", err)
	}
	return rooms, nil
}

// FindByID returns a classroom by id.
func (r *ClassroomRepository) FindByID(ctx context.Context, id int64) (*models.Classroom, error) {
	query := fmt.Sprintf("SELECT %s FROM classrooms WHERE id = $1", classroomColumns)
	var room models.Classroom
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// Create inserts a classroom and fills the generated id.
func (r *ClassroomRepository) Create(ctx context.Context, room *models.Classroom) error {
	const query = `
		INSERT INTO classrooms (building_id, building_number, building_type, capacity, availability, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		room.BuildingID, room.BuildingNumber, room.BuildingType, room.Capacity, room.Availability,
	).Scan(&room.ID); err != nil {
		return fmt.Errorf("create classroom: %w", err)
	}
	return nil
}

// BulkCreate inserts several classrooms atomically.
func (r *ClassroomRepository) BulkCreate(ctx context.Context, rooms []models.Classroom) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create classrooms: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
		INSERT INTO classrooms (building_id, building_number, building_type, capacity, availability, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`
	for _, room := range rooms {
		if _, err := tx.ExecContext(ctx, query,
			room.BuildingID, room.BuildingNumber, room.BuildingType, room.Capacity, room.Availability,
		); err != nil {
			return fmt.Errorf("bulk create classroom: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create classrooms: %w", err)
	}
	return nil
}

// Update persists classroom changes.
func (r *ClassroomRepository) Update(ctx context.Context, room *models.Classroom) error {
	const query = `
		UPDATE classrooms
		SET building_id = $1, building_number = $2, building_type = $3, capacity = $4, availability = $5, updated_at = NOW()
		WHERE id = $6`
	res, err := r.db.ExecContext(ctx, query,
		room.BuildingID, room.BuildingNumber, room.BuildingType, room.Capacity, room.Availability, room.ID,
	)
	if err != nil {
		return fmt.Errorf("update classroom: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update classroom %d: no rows", room.ID)
	}
	return nil
}

// Delete removes a classroom.
func (r *ClassroomRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM classrooms WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete classroom: %w", err)
	}
	return nil
}
