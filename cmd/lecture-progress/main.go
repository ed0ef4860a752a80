package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lecture-progress-api/api/swagger"
	"github.com/noah-isme/lecture-progress-api/internal/backend"
	"github.com/noah-isme/lecture-progress-api/internal/dto"
	"github.com/noah-isme/lecture-progress-api/internal/handler"
	"github.com/noah-isme/lecture-progress-api/internal/middleware"
	"github.com/noah-isme/lecture-progress-api/internal/models"
	"github.com/noah-isme/lecture-progress-api/internal/progress"
	"github.com/noah-isme/lecture-progress-api/internal/repository"
	"github.com/noah-isme/lecture-progress-api/internal/service"
	"github.com/noah-isme/lecture-progress-api/pkg/cache"
	"github.com/noah-isme/lecture-progress-api/pkg/config"
	"github.com/noah-isme/lecture-progress-api/pkg/database"
	"github.com/noah-isme/lecture-progress-api/pkg/jobs"
	"github.com/noah-isme/lecture-progress-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lecture-progress-api/pkg/middleware/cors"
	"github.com/noah-isme/lecture-progress-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/lecture-progress-api/pkg/middleware/requestid"
	"github.com/noah-isme/lecture-progress-api/pkg/tracing"
)

// @title Lecture Progress API
// @version 1.0.0
// @description Faculty workspace and business dashboards over the institution backend, with optimistic lecture completion and live updates.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		tp, err := tracing.Init(cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
		if err != nil {
			logr.Warn("tracing disabled", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(shutdownCtx)
			}()
		}
	}

	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	client := backend.New(backend.Config{
		BaseURL:  cfg.Backend.BaseURL,
		Timeout:  cfg.Backend.Timeout,
		Logger:   logr,
		Observer: metrics,
	})
	checks["backend"] = client.Ping

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		rdb, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, report caching disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(rdb, "lecture-progress", logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
			checks["redis"] = repo.Ping
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cacheRepo != nil)

	var ledger *repository.MutationRepository
	if cfg.Ledger.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect mutation ledger", zap.Error(err))
		}
		defer db.Close() //nolint:errcheck
		ledger = repository.NewMutationRepository(db)
		if err := ledger.EnsureSchema(ctx); err != nil {
			logr.Fatal("failed to prepare mutation ledger", zap.Error(err))
		}
		checks["postgres"] = db.PingContext
	}

	validate := validator.New()
	bus := progress.NewBus()

	var facultySvc *service.FacultyService
	queue := jobs.NewQueue("lecture-completion", func(jobCtx context.Context, job jobs.Job) error {
		return facultySvc.HandleJob(jobCtx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Progress.Workers,
		BufferSize: cfg.Progress.QueueBuffer,
		Logger:     logr,
	})

	facultyParams := service.FacultyServiceParams{
		Backend:   client,
		Tracker:   progress.NewTracker(nil),
		Bus:       bus,
		Queue:     queue,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
		Config: service.FacultyServiceConfig{
			ReconcileDelay:  cfg.Progress.ReconcileDelay,
			RecentLimit:     cfg.Progress.RecentLimit,
			CleanupInterval: time.Minute,
			RecordRetention: cfg.Progress.MutationRetention,
		},
	}
	businessParams := service.BusinessServiceParams{
		Backend:     client,
		Cache:       cacheSvc,
		CacheTTL:    cfg.Cache.TTL,
		Bus:         bus,
		Metrics:     metrics,
		RecentLimit: cfg.Progress.RecentLimit,
		Logger:      logr,
	}
	if ledger != nil {
		facultyParams.Ledger = ledger
		businessParams.Ledger = ledger
	}

	facultySvc = service.NewFacultyService(facultyParams)
	defer facultySvc.Close()
	businessSvc := service.NewBusinessService(businessParams)
	defer businessSvc.Close()
	catalogSvc := service.NewCatalogService(client, validate, logr)
	tokens := service.NewTokenService(cfg.JWT.Secret)

	queue.Start(context.Background())
	facultySvc.StartCleanup(ctx)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metrics))
	if cfg.Tracing.Enabled {
		r.Use(tracing.GinMiddleware())
	}

	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	rateLimit := func(c *gin.Context) { c.Next() }
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		rateLimit = limiter.Middleware(func(c *gin.Context) string {
			if principal := middleware.PrincipalFrom(c); principal != nil {
				return principal.UserID
			}
			return c.ClientIP()
		})
	}

	registerRoutes(r.Group(cfg.APIPrefix), routes{
		auth:      tokens,
		rateLimit: rateLimit,
		faculty:   handler.NewFacultyHandler(facultySvc),
		business:  handler.NewBusinessHandler(businessSvc),
		catalog:   handler.NewCatalogHandler(catalogSvc),
		events:    handler.NewEventsHandler(bus, facultySvc, metrics, cfg.Progress.LiveHeartbeat, logr),
		metrics:   metricsHandler,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// Live event streams end when the process is told to stop.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	queue.Stop()
}

type routes struct {
	auth      middleware.Authenticator
	rateLimit gin.HandlerFunc
	faculty   *handler.FacultyHandler
	business  *handler.BusinessHandler
	catalog   *handler.CatalogHandler
	events    *handler.EventsHandler
	metrics   *handler.MetricsHandler
}

func registerRoutes(api *gin.RouterGroup, h routes) {
	api.Use(middleware.JWT(h.auth))

	api.GET("/events", middleware.RequireRoles(models.RoleFaculty, models.RoleBusiness), h.events.Stream)
	api.GET("/users/:id/mutations", middleware.RBAC(string(models.RoleBusiness), "SELF"), h.business.Mutations)

	faculty := api.Group("/faculty", middleware.RequireRoles(models.RoleFaculty))
	faculty.GET("/batches", h.faculty.Batches)
	faculty.POST("/batches/refresh", h.rateLimit, h.faculty.Refresh)
	faculty.POST("/lectures/complete", h.rateLimit, h.faculty.CompleteLecture)
	faculty.GET("/mutations/:lectureId", h.faculty.Mutation)
	faculty.GET("/progress", h.faculty.Progress)
	faculty.GET("/overview", h.faculty.Overview)

	business := api.Group("/business", middleware.RequireRoles(models.RoleBusiness))
	business.GET("/overview", h.business.Overview)
	business.GET("/analytics", h.business.Analytics)
	business.GET("/lecture-tracking", h.business.LectureTracking)
	business.GET("/faculty-lectures/:batchId/:subjectId", h.business.FacultyLectures)
	business.GET("/reports/lecture-tracking", h.rateLimit, h.business.ExportLectureTracking)
	business.GET("/mutations", h.business.Mutations)

	api.GET("/system/metrics", middleware.RequireRoles(models.RoleBusiness), h.metrics.Snapshot)

	catalog := api.Group("/catalog", middleware.RequireRoles(models.RoleBusiness))
	catalog.GET("/courses", h.catalog.ListCourses)
	catalog.POST("/courses", h.rateLimit, h.catalog.CreateCourse)
	catalog.GET("/courses/:id", h.catalog.GetCourse)
	catalog.PUT("/courses/:id", h.rateLimit, h.catalog.UpdateCourse)
	registerCourseEdits(catalog.Group("/courses/:id", h.rateLimit), h.catalog)
	catalog.GET("/batches", h.catalog.ListBatches)
	catalog.POST("/batches", h.rateLimit, h.catalog.CreateBatch)
	catalog.GET("/batches/:id", h.catalog.GetBatch)
	catalog.GET("/faculty", h.catalog.ListFaculty)
	catalog.POST("/faculty", h.rateLimit, h.catalog.CreateFaculty)
}

func registerCourseEdits(course *gin.RouterGroup, h *handler.CatalogHandler) {
	course.POST("/subjects", h.EditCourse(backend.AddSubject, func() dto.CourseScoped { return &dto.AddSubjectRequest{} }))
	course.PUT("/subjects", h.EditCourse(backend.UpdateSubject, func() dto.CourseScoped { return &dto.UpdateSubjectRequest{} }))
	course.DELETE("/subjects", h.EditCourse(backend.DeleteSubject, func() dto.CourseScoped { return &dto.DeleteSubjectRequest{} }))
	course.POST("/topics", h.EditCourse(backend.AddTopic, func() dto.CourseScoped { return &dto.AddTopicRequest{} }))
	course.PUT("/topics", h.EditCourse(backend.UpdateTopic, func() dto.CourseScoped { return &dto.UpdateTopicRequest{} }))
	course.DELETE("/topics", h.EditCourse(backend.DeleteTopic, func() dto.CourseScoped { return &dto.DeleteTopicRequest{} }))
	course.POST("/lectures", h.EditCourse(backend.AddLecture, func() dto.CourseScoped { return &dto.AddLectureRequest{} }))
	course.PUT("/lectures", h.EditCourse(backend.UpdateLecture, func() dto.CourseScoped { return &dto.UpdateLectureRequest{} }))
	course.DELETE("/lectures", h.EditCourse(backend.DeleteLecture, func() dto.CourseScoped { return &dto.DeleteLectureRequest{} }))
}
