package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/exam-scheduler-api/api/swagger"
	"github.com/noah-isme/exam-scheduler-api/internal/handler"
	internalmiddleware "github.com/noah-isme/exam-scheduler-api/internal/middleware"
	"github.com/noah-isme/exam-scheduler-api/internal/models"
	"github.com/noah-isme/exam-scheduler-api/internal/repository"
	"github.com/noah-isme/exam-scheduler-api/internal/scheduler"
	"github.com/noah-isme/exam-scheduler-api/internal/service"
	"github.com/noah-isme/exam-scheduler-api/pkg/cache"
	"github.com/noah-isme/exam-scheduler-api/pkg/config"
	"github.com/noah-isme/exam-scheduler-api/pkg/database"
	"github.com/noah-isme/exam-scheduler-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/exam-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/exam-scheduler-api/pkg/middleware/requestid"
	"github.com/noah-isme/exam-scheduler-api/pkg/storage"
)

// @title Exam Scheduler API
// @version 1.0.0
// @description Conflict-free exam timetabling with room allocation and seat distribution.
// @BasePath /
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *sqlx.DB
	if cfg.Persistence.Enabled {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer db.Close()
	}

	var redisClient *redis.Client
	if cfg.ResultCache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, result cache disabled", zap.Error(err))
			redisClient = nil
		}
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, "exam-scheduler")
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.ResultCache.TTL, logr, redisClient != nil)

	var (
		datasetSvc   *service.DatasetService
		schedulerSvc *service.ExamSchedulerService
	)
	schedulerCfg := service.ExamSchedulerConfig{
		Defaults: scheduler.Params{
			NumDays:             cfg.Scheduler.NumDays,
			SlotsPerDay:         cfg.Scheduler.SlotsPerDay,
			SlotDurationMinutes: cfg.Scheduler.SlotMinutes,
			MaxIterations:       cfg.Scheduler.MaxIterations,
			PollEvery:           cfg.Scheduler.PollEvery,
		},
		TimeLimit: cfg.Scheduler.TimeLimit,
		Workers:   cfg.Scheduler.Workers,
		JobTTL:    cfg.Scheduler.JobTTL,
	}
	if db != nil {
		datasetSvc = service.NewDatasetService(repository.NewDatasetRepository(db), db, cacheSvc, validate, logr)
		schedulerSvc = service.NewExamSchedulerService(validate, datasetSvc, repository.NewExamScheduleRepository(db), db, cacheSvc, metricsSvc, schedulerCfg, logr)
	} else {
		schedulerSvc = service.NewExamSchedulerService(validate, nil, nil, nil, cacheSvc, metricsSvc, schedulerCfg, logr)
	}
	schedulerSvc.Start(ctx)
	defer schedulerSvc.Shutdown()

	exportStore, err := storage.NewLocalStorage(cfg.Export.Dir)
	if err != nil {
		logr.Fatal("failed to prepare export directory", zap.Error(err))
	}
	exportSvc := service.NewExportService(
		exportStore,
		storage.NewSignedURLSigner(cfg.Export.SigningSecret, cfg.Export.LinkTTL),
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Export.LinkTTL},
		logr, nil, nil,
	)
	go cleanupExports(ctx, exportSvc, cfg.Export.LinkTTL, logr)

	checks := map[string]handler.ReadinessCheck{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	tokens := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiration)
	registerRoutes(r.Group(cfg.APIPrefix), tokens, routeHandlers{
		exams:    handler.NewExamHandler(schedulerSvc, exportSvc),
		datasets: datasetHandler(datasetSvc),
		exports:  handler.NewExportHandler(exportSvc),
		metrics:  metricsHandler,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type routeHandlers struct {
	exams    *handler.ExamHandler
	datasets *handler.DatasetHandler
	exports  *handler.ExportHandler
	metrics  *handler.MetricsHandler
}

func registerRoutes(api *gin.RouterGroup, tokens *service.TokenService, h routeHandlers) {
	writers := internalmiddleware.RequireRoles(models.RoleScheduler, models.RoleAdmin)

	// Signed download links carry their own authorisation.
	api.GET("/exports/:token", h.exports.Download)

	secured := api.Group("", internalmiddleware.JWT(tokens))
	secured.GET("/metrics/summary", internalmiddleware.RequireRoles(models.RoleAdmin), h.metrics.Summary)

	exams := secured.Group("/exams")
	exams.POST("/solve", writers, h.exams.Solve)
	exams.POST("/jobs", writers, h.exams.SubmitJob)
	exams.GET("/jobs/:id", h.exams.JobStatus)
	exams.POST("/jobs/:id/stop", writers, h.exams.StopJob)
	exams.GET("/jobs/:id/export", h.exams.ExportJob)
	exams.GET("/schedules", h.exams.ListSchedules)
	exams.GET("/schedules/:id", h.exams.GetSchedule)
	exams.DELETE("/schedules/:id", internalmiddleware.RequireRoles(models.RoleAdmin), h.exams.DeleteSchedule)
	exams.GET("/schedules/:id/export", h.exams.ExportSchedule)
	exams.POST("/schedules/:id/publish", writers, h.exams.PublishSchedule)

	if h.datasets == nil {
		return
	}
	datasets := secured.Group("/datasets")
	datasets.PUT("/:slot", writers, h.datasets.Save)
	datasets.GET("/:slot", h.datasets.Get)
	datasets.DELETE("/:slot", writers, h.datasets.Clear)
	datasets.POST("/:slot/diff", h.datasets.Diff)
}

func datasetHandler(svc *service.DatasetService) *handler.DatasetHandler {
	if svc == nil {
		return nil
	}
	return handler.NewDatasetHandler(svc)
}

func cleanupExports(ctx context.Context, exports *service.ExportService, ttl time.Duration, logr *zap.Logger) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := exports.Cleanup(ttl)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("expired exports removed", zap.Int("files", len(removed)))
			}
		}
	}
}
