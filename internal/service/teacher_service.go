package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/school-roster/roster-api/internal/models"
	appErrors "github.com/school-roster/roster-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id int64) (*models.Teacher, error)
	SubjectIDs(ctx context.Context, teacherID int64) ([]int64, error)
	Create(ctx context.Context, teacher *models.Teacher, subjectIDs []int64) error
	Update(ctx context.Context, teacher *models.Teacher, subjectIDs []int64) error
	Delete(ctx context.Context, id int64) error
}

// CreateTeacherRequest carries a new teacher payload. SubjectIDs are the
// subjects the teacher is qualified for.
type CreateTeacherRequest struct {
	Name              string   `json:"name" validate:"required"`
	PreferredDays     []string `json:"preferred_days"`
	PreferredModules  []int64  `json:"preferred_modules" validate:"dive,gte=1"`
	CommissionedHours int      `json:"commissioned_hours" validate:"gte=0,lte=80"`
	SubjectIDs        []int64  `json:"subject_ids" validate:"min=1"`
}

// TeacherDetail pairs a teacher with its qualification ids.
type TeacherDetail struct {
	models.Teacher
	SubjectIDs []int64 `json:"subject_ids"`
}

// TeacherService manages teacher CRUD.
type TeacherService struct {
	repo      teacherRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a teacher service.
func NewTeacherService(repo teacherRepository, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, validator: validate, logger: logger}
}

// List returns teachers with pagination metadata.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a teacher with its qualifications.
func (s *TeacherService) Get(ctx context.Context, id int64) (*TeacherDetail, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	subjectIDs, err := s.repo.SubjectIDs(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher subjects")
	}
	return &TeacherDetail{Teacher: *teacher, SubjectIDs: subjectIDs}, nil
}

// Create validates and stores a new teacher.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*TeacherDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	teacher := &models.Teacher{
		Name:              req.Name,
		PreferredDays:     req.PreferredDays,
		PreferredModules:  req.PreferredModules,
		CommissionedHours: req.CommissionedHours,
	}
	if err := s.repo.Create(ctx, teacher, req.SubjectIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	s.logger.Info("teacher created", zap.Int64("teacher_id", teacher.ID), zap.String("name", teacher.Name))
	return &TeacherDetail{Teacher: *teacher, SubjectIDs: req.SubjectIDs}, nil
}

// Update validates and stores teacher changes.
func (s *TeacherService) Update(ctx context.Context, id int64, req CreateTeacherRequest) (*TeacherDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	teacher := detail.Teacher
	teacher.Name = req.Name
	teacher.PreferredDays = req.PreferredDays
	teacher.PreferredModules = req.PreferredModules
	teacher.CommissionedHours = req.CommissionedHours
	if err := s.repo.Update(ctx, &teacher, req.SubjectIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return &TeacherDetail{Teacher: teacher, SubjectIDs: req.SubjectIDs}, nil
}

// Delete removes a teacher.
func (s *TeacherService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	return nil
}
