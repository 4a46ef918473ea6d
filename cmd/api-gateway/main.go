package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	internalhandler "github.com/school-roster/roster-api/internal/handler"
	internalmiddleware "github.com/school-roster/roster-api/internal/middleware"
	"github.com/school-roster/roster-api/internal/repository"
	"github.com/school-roster/roster-api/internal/scheduler"
	"github.com/school-roster/roster-api/internal/service"
	"github.com/school-roster/roster-api/pkg/cache"
	"github.com/school-roster/roster-api/pkg/config"
	"github.com/school-roster/roster-api/pkg/database"
	"github.com/school-roster/roster-api/pkg/logger"
	corsmiddleware "github.com/school-roster/roster-api/pkg/middleware/cors"
	reqidmiddleware "github.com/school-roster/roster-api/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to initialise database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, timetable cache disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metricsSvc := service.NewMetricsService()
	metricsHandler := internalhandler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	validate := validator.New()

	subjectRepo := repository.NewSubjectRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	schedulerCfg := scheduler.Config{
		Days:            cfg.Scheduler.Days,
		ModulesPerDay:   cfg.Scheduler.ModulesPerDay,
		GroupDailyCap:   cfg.Scheduler.GroupDailyCap,
		TeacherLoadCap:  cfg.Scheduler.TeacherLoadCap,
		OptimizerRounds: cfg.Scheduler.OptimizerRounds,
	}

	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	groupSvc := service.NewGroupService(groupRepo, validate, logr)
	classroomSvc := service.NewClassroomService(classroomRepo, validate, logr)
	timetableSvc := service.NewTimetableService(
		schedulerCfg,
		subjectRepo,
		groupRepo,
		teacherRepo,
		classroomRepo,
		assignmentRepo,
		cacheRepo,
		cfg.Timetable.CacheTTL,
		metricsSvc,
		logr,
	)

	subjectHandler := internalhandler.NewSubjectHandler(subjectSvc)
	teacherHandler := internalhandler.NewTeacherHandler(teacherSvc)
	groupHandler := internalhandler.NewGroupHandler(groupSvc)
	classroomHandler := internalhandler.NewClassroomHandler(classroomSvc)
	timetableHandler := internalhandler.NewTimetableHandler(timetableSvc)

	api := r.Group(cfg.APIPrefix)

	subjects := api.Group("/subjects")
	subjects.GET("", subjectHandler.List)
	subjects.GET("/:id", subjectHandler.Get)
	subjects.POST("", subjectHandler.Create)
	subjects.PUT("/:id", subjectHandler.Update)
	subjects.DELETE("/:id", subjectHandler.Delete)

	teachers := api.Group("/teachers")
	teachers.GET("", teacherHandler.List)
	teachers.GET("/:id", teacherHandler.Get)
	teachers.POST("", teacherHandler.Create)
	teachers.PUT("/:id", teacherHandler.Update)
	teachers.DELETE("/:id", teacherHandler.Delete)

	groups := api.Group("/groups")
	groups.GET("", groupHandler.List)
	groups.GET("/:id", groupHandler.Get)
	groups.POST("", groupHandler.Create)
	groups.POST("/bulk", groupHandler.BulkCreate)
	groups.PUT("/:id", groupHandler.Update)
	groups.DELETE("/:id", groupHandler.Delete)

	classrooms := api.Group("/classrooms")
	classrooms.GET("", classroomHandler.List)
	classrooms.GET("/:id", classroomHandler.Get)
	classrooms.POST("", classroomHandler.Create)
	classrooms.POST("/bulk", classroomHandler.BulkCreate)
	classrooms.PUT("/:id", classroomHandler.Update)
	classrooms.DELETE("/:id", classroomHandler.Delete)

	timetable := api.Group("/timetable")
	timetable.POST("/generate", timetableHandler.Generate)
	timetable.GET("", timetableHandler.List)
	timetable.GET("/groups/:id", timetableHandler.ForGroup)
	timetable.GET("/groups/:id/export", timetableHandler.ExportGroup)
	timetable.GET("/teachers/:id", timetableHandler.ForTeacher)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("starting server", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server stopped", "error", err)
	}
}
