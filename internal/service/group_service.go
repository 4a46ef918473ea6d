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

type groupRepository interface {
	List(ctx context.Context, filter models.GroupFilter) ([]models.Group, int, error)
	FindByID(ctx context.Context, id int64) (*models.Group, error)
	SubjectIDs(ctx context.Context, groupID int64) ([]int64, error)
	Create(ctx context.Context, group *models.Group, subjectIDs []int64) error
	BulkCreate(ctx context.Context, groups []models.GroupWithSubjects) error
	Update(ctx context.Context, group *models.Group, subjectIDs []int64) error
	Delete(ctx context.Context, id int64) error
}

// CreateGroupRequest carries a new group payload.
type CreateGroupRequest struct {
	Grade            int     `json:"grade" validate:"required,gte=1,lte=12"`
	Section          string  `json:"section" validate:"required,max=8"`
	Career           *string `json:"career"`
	Students         int     `json:"students" validate:"gte=0"`
	MaxModulesPerDay int     `json:"max_modules_per_day" validate:"gte=0,lte=12"`
	SubjectIDs       []int64 `json:"subject_ids"`
}

// GroupService manages group CRUD.
type GroupService struct {
	repo      groupRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGroupService constructs a group service.
func NewGroupService(repo groupRepository, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{repo: repo, validator: validate, logger: logger}
}

// List returns groups with pagination metadata.
func (s *GroupService) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, *models.Pagination, error) {
	groups, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	return groups, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a group with its required subject ids.
func (s *GroupService) Get(ctx context.Context, id int64) (*models.GroupWithSubjects, error) {
	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	subjectIDs, err := s.repo.SubjectIDs(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group subjects")
	}
	return &models.GroupWithSubjects{Group: *group, SubjectIDs: subjectIDs}, nil
}

// Create validates and stores a new group.
func (s *GroupService) Create(ctx context.Context, req CreateGroupRequest) (*models.GroupWithSubjects, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	group := &models.Group{
		Grade:            req.Grade,
		Section:          req.Section,
		Career:           req.Career,
		Students:         req.Students,
		MaxModulesPerDay: req.MaxModulesPerDay,
	}
	if err := s.repo.Create(ctx, group, req.SubjectIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	s.logger.Info("group created", zap.Int64("group_id", group.ID), zap.Int("grade", group.Grade), zap.String("section", group.Section))
	return &models.GroupWithSubjects{Group: *group, SubjectIDs: req.SubjectIDs}, nil
}

// BulkCreate validates and stores several groups at once.
func (s *GroupService) BulkCreate(ctx context.Context, reqs []CreateGroupRequest) error {
	if len(reqs) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one group is required")
	}
	groups := make([]models.GroupWithSubjects, 0, len(reqs))
	for _, req := range reqs {
		if err := s.validator.Struct(req); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
		}
		groups = append(groups, models.GroupWithSubjects{
			Group: models.Group{
				Grade:            req.Grade,
				Section:          req.Section,
				Career:           req.Career,
				Students:         req.Students,
				MaxModulesPerDay: req.MaxModulesPerDay,
			},
			SubjectIDs: req.SubjectIDs,
		})
	}
	if err := s.repo.BulkCreate(ctx, groups); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bulk create groups")
	}
	return nil
}

// Update validates and stores group changes.
func (s *GroupService) Update(ctx context.Context, id int64, req CreateGroupRequest) (*models.GroupWithSubjects, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	group := existing.Group
	group.Grade = req.Grade
	group.Section = req.Section
	group.Career = req.Career
	group.Students = req.Students
	group.MaxModulesPerDay = req.MaxModulesPerDay
	if err := s.repo.Update(ctx, &group, req.SubjectIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update group")
	}
	return &models.GroupWithSubjects{Group: group, SubjectIDs: req.SubjectIDs}, nil
}

// Delete removes a group.
func (s *GroupService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete group")
	}
	return nil
}
