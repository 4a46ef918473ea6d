package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/school-roster/roster-api/internal/dto"
	"github.com/school-roster/roster-api/internal/models"
	"github.com/school-roster/roster-api/internal/scheduler"
	appErrors "github.com/school-roster/roster-api/pkg/errors"
	"github.com/school-roster/roster-api/pkg/export"
)

type subjectSnapshotSource interface {
	ListAll(ctx context.Context) ([]models.Subject, error)
}

type groupSnapshotSource interface {
	ListWithSubjectIDs(ctx context.Context) ([]models.GroupWithSubjects, error)
	FindByID(ctx context.Context, id int64) (*models.Group, error)
}

type teacherSnapshotSource interface {
	ListForSubject(ctx context.Context, subjectID int64) ([]models.Teacher, error)
}

type classroomSnapshotSource interface {
	ListAll(ctx context.Context) ([]models.Classroom, error)
}

type assignmentStore interface {
	ReplaceAll(ctx context.Context, assignments []models.Assignment) error
	ListAll(ctx context.Context) ([]models.Assignment, error)
	ListByGroup(ctx context.Context, groupID int64) ([]models.Assignment, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.Assignment, error)
}

type timetableCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// TimetableService orchestrates schedule generation: it loads the domain
// snapshot, runs the engine, persists the result and serves the read side
// through a cache.
type TimetableService struct {
	cfg        scheduler.Config
	subjects   subjectSnapshotSource
	groups     groupSnapshotSource
	teachers   teacherSnapshotSource
	classrooms classroomSnapshotSource
	store      assignmentStore
	cache      timetableCache
	cacheTTL   time.Duration
	metrics    *MetricsService
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
}

// NewTimetableService wires the timetable dependencies. cache and metrics
// may be nil.
func NewTimetableService(
	cfg scheduler.Config,
	subjects subjectSnapshotSource,
	groups groupSnapshotSource,
	teachers teacherSnapshotSource,
	classrooms classroomSnapshotSource,
	store assignmentStore,
	cache timetableCache,
	cacheTTL time.Duration,
	metrics *MetricsService,
	logger *zap.Logger,
) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &TimetableService{
		cfg:        cfg,
		subjects:   subjects,
		groups:     groups,
		teachers:   teachers,
		classrooms: classrooms,
		store:      store,
		cache:      cache,
		cacheTTL:   cacheTTL,
		metrics:    metrics,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
	}
}

// Generate runs the whole pipeline once and atomically replaces the stored
// schedule. The snapshot is loaded before planning starts and assignments
// are written after it ends; the engine itself never touches I/O.
func (s *TimetableService) Generate(ctx context.Context) (*dto.GenerateTimetableResponse, error) {
	runID := uuid.NewString()
	start := time.Now()
	log := s.logger.With(zap.String("run_id", runID))

	snap, groupIDs, teacherIDs, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	planner := scheduler.New(s.cfg, *snap, log)
	result, err := planner.Generate()
	if err != nil {
		s.metrics.ObserveGeneration("failure", time.Since(start))
		log.Warn("schedule generation failed", zap.Error(err))
		return nil, mapPlanningError(err)
	}

	if err := s.store.ReplaceAll(ctx, result.Assignments); err != nil {
		s.metrics.ObserveGeneration("failure", time.Since(start))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule")
	}

	s.invalidateCache(ctx, groupIDs, teacherIDs)

	duration := time.Since(start)
	s.metrics.ObserveGeneration("success", duration)
	s.metrics.SetScheduleSize(len(result.Assignments))
	log.Info("schedule persisted",
		zap.Int("assignments", len(result.Assignments)),
		zap.Int("unplaced_subjects", len(result.Unplaced)),
		zap.Duration("duration", duration),
	)

	return &dto.GenerateTimetableResponse{
		RunID:       runID,
		Assignments: result.Assignments,
		Unplaced:    result.Unplaced,
		Stats: dto.GenerateStats{
			Assignments:     result.Stats.Assignments,
			OptimizerRounds: result.Stats.OptimizerRounds,
			Improvements:    result.Stats.Improvements,
			DurationMs:      duration.Milliseconds(),
		},
	}, nil
}

// List returns the whole stored schedule.
func (s *TimetableService) List(ctx context.Context) ([]models.Assignment, error) {
	assignments, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule")
	}
	return assignments, nil
}

// ForGroup returns one group's schedule, cache first.
func (s *TimetableService) ForGroup(ctx context.Context, groupID int64) ([]models.Assignment, error) {
	return s.cachedList(ctx, groupCacheKey(groupID), func() ([]models.Assignment, error) {
		return s.store.ListByGroup(ctx, groupID)
	})
}

// ForTeacher returns one teacher's schedule, cache first.
func (s *TimetableService) ForTeacher(ctx context.Context, teacherID int64) ([]models.Assignment, error) {
	return s.cachedList(ctx, teacherCacheKey(teacherID), func() ([]models.Assignment, error) {
		return s.store.ListByTeacher(ctx, teacherID)
	})
}

// ExportFile holds a rendered timetable ready for download.
type ExportFile struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportGroup renders one group's weekly timetable as CSV or PDF.
func (s *TimetableService) ExportGroup(ctx context.Context, groupID int64, format string) (*ExportFile, error) {
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	assignments, err := s.ForGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	grid := s.buildGrid(fmt.Sprintf("Grade %d%s", group.Grade, group.Section), assignments)
	base := fmt.Sprintf("timetable-%d%s", group.Grade, group.Section)

	switch format {
	case "csv", "":
		content, err := s.csv.Render(grid)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Content: content, ContentType: "text/csv", Filename: base + ".csv"}, nil
	case "pdf":
		content, err := s.pdf.Render(grid)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Content: content, ContentType: "application/pdf", Filename: base + ".pdf"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

// buildGrid lays assignments out as modules by days.
func (s *TimetableService) buildGrid(title string, assignments []models.Assignment) export.Grid {
	days := s.cfg.Days
	if len(days) == 0 {
		days = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	}
	modules := s.cfg.ModulesPerDay
	if modules <= 0 {
		modules = 9
	}

	cells := make(map[string]map[int]string)
	for _, a := range assignments {
		if cells[a.Day] == nil {
			cells[a.Day] = make(map[int]string)
		}
		label := a.SubjectCode
		if a.ClassroomID != 0 {
			label = fmt.Sprintf("%s (%d)", a.SubjectCode, a.ClassroomID)
		}
		cells[a.Day][a.ModuleIndex] = label
	}

	grid := export.Grid{
		Title:   title,
		Headers: append([]string{"Module"}, days...),
	}
	for module := 1; module <= modules; module++ {
		row := make([]string, 0, len(days)+1)
		row = append(row, fmt.Sprintf("%d", module))
		for _, day := range days {
			row = append(row, cells[day][module])
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid
}

func (s *TimetableService) cachedList(ctx context.Context, key string, load func() ([]models.Assignment, error)) ([]models.Assignment, error) {
	if s.cache != nil {
		var cached []models.Assignment
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
		}
		s.metrics.RecordCacheOperation(hit)
		if hit {
			return cached, nil
		}
	}

	assignments, err := load()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule")
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, assignments, s.cacheTTL); err != nil {
			s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return assignments, nil
}

func (s *TimetableService) invalidateCache(ctx context.Context, groupIDs, teacherIDs []int64) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(groupIDs)+len(teacherIDs))
	for _, id := range groupIDs {
		keys = append(keys, groupCacheKey(id))
	}
	for _, id := range teacherIDs {
		keys = append(keys, teacherCacheKey(id))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Error(err))
	}
}

func groupCacheKey(id int64) string   { return fmt.Sprintf("timetable:group:%d", id) }
func teacherCacheKey(id int64) string { return fmt.Sprintf("timetable:teacher:%d", id) }

// loadSnapshot assembles the read-only planning input. Also returns the
// group and teacher ids touched, for cache invalidation.
func (s *TimetableService) loadSnapshot(ctx context.Context) (*scheduler.Snapshot, []int64, []int64, error) {
	subjects, err := s.subjects.ListAll(ctx)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	groups, err := s.groups.ListWithSubjectIDs(ctx)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load groups")
	}
	classrooms, err := s.classrooms.ListAll(ctx)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classrooms")
	}

	snap := &scheduler.Snapshot{
		Subjects:          subjects,
		Classrooms:        classrooms,
		GroupSubjects:     make(map[int64][]int64, len(groups)),
		TeachersBySubject: make(map[int64][]models.Teacher),
	}

	required := make(map[int64]bool)
	groupIDs := make([]int64, 0, len(groups))
	for _, g := range groups {
		snap.Groups = append(snap.Groups, g.Group)
		snap.GroupSubjects[g.ID] = g.SubjectIDs
		groupIDs = append(groupIDs, g.ID)
		for _, sid := range g.SubjectIDs {
			required[sid] = true
		}
	}

	teacherSeen := make(map[int64]bool)
	var teacherIDs []int64
	for _, subject := range subjects {
		if !required[subject.ID] {
			continue
		}
		teachers, err := s.teachers.ListForSubject(ctx, subject.ID)
		if err != nil {
			return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
		}
		snap.TeachersBySubject[subject.ID] = teachers
		for _, t := range teachers {
			if !teacherSeen[t.ID] {
				teacherSeen[t.ID] = true
				teacherIDs = append(teacherIDs, t.ID)
			}
		}
	}

	return snap, groupIDs, teacherIDs, nil
}

// mapPlanningError translates engine errors into the API error taxonomy.
func mapPlanningError(err error) error {
	var noTeacher *scheduler.NoQualifiedTeacherError
	if errors.As(err, &noTeacher) {
		return appErrors.Wrap(err, appErrors.ErrNoQualifiedTeacher.Code, appErrors.ErrNoQualifiedTeacher.Status,
			fmt.Sprintf("subject %d has no qualified teacher", noTeacher.SubjectID))
	}
	var noSlot *scheduler.NoFeasibleSlotError
	if errors.As(err, &noSlot) {
		return appErrors.Wrap(err, appErrors.ErrNoFeasibleSlot.Code, appErrors.ErrNoFeasibleSlot.Status,
			fmt.Sprintf("no feasible slot for subject %d in group %d", noSlot.SubjectID, noSlot.GroupID))
	}
	var noRoom *scheduler.NoSuitableClassroomError
	if errors.As(err, &noRoom) {
		return appErrors.Wrap(err, appErrors.ErrNoSuitableClassroom.Code, appErrors.ErrNoSuitableClassroom.Status,
			fmt.Sprintf("no suitable classroom for group %d subject %d on %s module %d", noRoom.GroupID, noRoom.SubjectID, noRoom.Day, noRoom.Module))
	}
	var domain *scheduler.DomainError
	if errors.As(err, &domain) {
		return appErrors.Wrap(err, appErrors.ErrDomainInconsistent.Code, appErrors.ErrDomainInconsistent.Status, domain.Detail)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "schedule generation failed")
}
