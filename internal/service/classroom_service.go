package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/school-roster/roster-api/internal/models"
	appErrors "github.com/school-roster/roster-api/pkg/errors"
)

type classroomRepository interface {
	List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error)
	FindByID(ctx context.Context, id int64) (*models.Classroom, error)
	Create(ctx context.Context, room *models.Classroom) error
	BulkCreate(ctx context.Context, rooms []models.Classroom) error
	Update(ctx context.Context, room *models.Classroom) error
	Delete(ctx context.Context, id int64) error
}

// CreateClassroomRequest carries a new classroom payload. Availability is
// the (day, module) mask; empty means the room is always usable.
type CreateClassroomRequest struct {
	BuildingID     string                    `json:"building_id" validate:"required,max=8"`
	BuildingNumber int                       `json:"building_number" validate:"gte=0"`
	BuildingType   string                    `json:"building_type"`
	Capacity       int                       `json:"capacity" validate:"required,gte=1"`
	Availability   []models.AvailabilitySlot `json:"availability" validate:"dive"`
}

// ClassroomService manages classroom CRUD.
type ClassroomService struct {
	repo      classroomRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassroomService constructs a classroom service.
func NewClassroomService(repo classroomRepository, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomService{repo: repo, validator: validate, logger: logger}
}

// List returns classrooms with pagination metadata.
func (s *ClassroomService) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, *models.Pagination, error) {
	rooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
	}
	return rooms, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a classroom by id.
func (s *ClassroomService) Get(ctx context.Context, id int64) (*models.Classroom, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	return room, nil
}

// Create validates and stores a new classroom.
func (s *ClassroomService) Create(ctx context.Context, req CreateClassroomRequest) (*models.Classroom, error) {
	room, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classroom")
	}
	s.logger.Info("classroom created", zap.Int64("classroom_id", room.ID), zap.String("building", room.BuildingID))
	return room, nil
}

// BulkCreate validates and stores several classrooms at once.
func (s *ClassroomService) BulkCreate(ctx context.Context, reqs []CreateClassroomRequest) error {
	if len(reqs) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one classroom is required")
	}
	rooms := make([]models.Classroom, 0, len(reqs))
	for _, req := range reqs {
		room, err := s.fromRequest(req)
		if err != nil {
			return err
		}
		rooms = append(rooms, *room)
	}
	if err := s.repo.BulkCreate(ctx, rooms); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bulk create classrooms")
	}
	return nil
}

// Update validates and stores classroom changes.
func (s *ClassroomService) Update(ctx context.Context, id int64, req CreateClassroomRequest) (*models.Classroom, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	room, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}
	room.ID = id
	if err := s.repo.Update(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update classroom")
	}
	return room, nil
}

// Delete removes a classroom.
func (s *ClassroomService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete classroom")
	}
	return nil
}

func (s *ClassroomService) fromRequest(req CreateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}
	room := &models.Classroom{
		BuildingID:     req.BuildingID,
		BuildingNumber: req.BuildingNumber,
		BuildingType:   req.BuildingType,
		Capacity:       req.Capacity,
	}
	if len(req.Availability) > 0 {
		raw, err := json.Marshal(req.Availability)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability mask")
		}
		room.Availability = types.JSONText(raw)
	}
	return room, nil
}
