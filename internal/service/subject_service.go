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

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error)
	FindByID(ctx context.Context, id int64) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id int64) error
}

// CreateSubjectRequest carries a new subject payload.
type CreateSubjectRequest struct {
	Name            string `json:"name" validate:"required"`
	Shorten         string `json:"shorten" validate:"required,max=12"`
	Color           string `json:"color"`
	Spec            string `json:"spec"`
	RequiredModules int    `json:"required_modules" validate:"gte=0,lte=45"`
	Priority        int    `json:"priority" validate:"gte=0"`
}

// UpdateSubjectRequest carries subject changes.
type UpdateSubjectRequest struct {
	Name            string `json:"name" validate:"required"`
	Shorten         string `json:"shorten" validate:"required,max=12"`
	Color           string `json:"color"`
	Spec            string `json:"spec"`
	RequiredModules int    `json:"required_modules" validate:"gte=0,lte=45"`
	Priority        int    `json:"priority" validate:"gte=0"`
}

// SubjectService manages subject CRUD.
type SubjectService struct {
	repo      subjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a subject service.
func NewSubjectService(repo subjectRepository, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, validator: validate, logger: logger}
}

// List returns subjects with pagination metadata.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, *models.Pagination, error) {
	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a subject by id.
func (s *SubjectService) Get(ctx context.Context, id int64) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// Create validates and stores a new subject.
func (s *SubjectService) Create(ctx context.Context, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject := &models.Subject{
		Name:            req.Name,
		Shorten:         req.Shorten,
		Color:           req.Color,
		Spec:            req.Spec,
		RequiredModules: req.RequiredModules,
		Priority:        req.Priority,
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	s.logger.Info("subject created", zap.Int64("subject_id", subject.ID), zap.String("name", subject.Name))
	return subject, nil
}

// Update validates and stores subject changes.
func (s *SubjectService) Update(ctx context.Context, id int64, req UpdateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	subject.Name = req.Name
	subject.Shorten = req.Shorten
	subject.Color = req.Color
	subject.Spec = req.Spec
	subject.RequiredModules = req.RequiredModules
	subject.Priority = req.Priority
	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	return subject, nil
}

// Delete removes a subject.
func (s *SubjectService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}
