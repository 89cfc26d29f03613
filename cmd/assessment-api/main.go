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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-assessment-api/api/swagger"
	"github.com/noah-isme/sma-assessment-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-assessment-api/internal/middleware"
	"github.com/noah-isme/sma-assessment-api/internal/models"
	"github.com/noah-isme/sma-assessment-api/internal/repository"
	"github.com/noah-isme/sma-assessment-api/internal/service"
	"github.com/noah-isme/sma-assessment-api/pkg/cache"
	"github.com/noah-isme/sma-assessment-api/pkg/config"
	"github.com/noah-isme/sma-assessment-api/pkg/database"
	"github.com/noah-isme/sma-assessment-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-assessment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-assessment-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-assessment-api/pkg/observability"
)

// @title Assessment Status API
// @version 0.1.0
// @description Per-student assessment status statistics backed by a cache-aside store
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitTracing(ctx, cfg.Tracing, cfg.Env, logr)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logr.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to moodle database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.StatsCache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, statistics will be computed on every request", zap.Error(err))
			redisClient = nil
		}
	}

	metricsSvc := service.NewMetricsService()

	var statsStore service.CacheRepository
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
		statsStore = cacheRepo
	}
	cacheSvc := service.NewCacheService(statsStore, metricsSvc, logr, service.CacheServiceConfig{
		Enabled:      cfg.StatsCache.Enabled,
		Singleflight: cfg.StatsCache.Singleflight,
		Retention:    cfg.StatsCache.Retention,
		Prefixes: map[models.StatKind]string{
			models.StatDueSoon:       cfg.StatsCache.DueSoon.KeyPrefix,
			models.StatSummary:       cfg.StatsCache.Summary.KeyPrefix,
			models.StatSummaryByType: cfg.StatsCache.SummaryByType.KeyPrefix,
		},
	})

	prefix := cfg.Moodle.TablePrefix
	assessmentSvc := service.NewAssessmentService(service.AssessmentServiceParams{
		Enrollments: repository.NewEnrollmentRepository(db, prefix),
		Visibility:  repository.NewVisibilityRepository(db, prefix),
		Items:       repository.NewGradeItemRepository(db, prefix),
		Grades:      repository.NewGradeStatusRepository(db, prefix),
		Cache:       cacheSvc,
		Metrics:     metricsSvc,
		Validator:   validator.New(),
		Logger:      logr,
		Config: service.AssessmentServiceConfig{
			DueSoonStaleAfter:       cfg.StatsCache.DueSoon.StaleAfter,
			SummaryStaleAfter:       cfg.StatsCache.Summary.StaleAfter,
			SummaryByTypeStaleAfter: cfg.StatsCache.SummaryByType.StaleAfter,
		},
	})

	assessmentHandler := handler.NewAssessmentHandler(assessmentSvc)
	checks := []handler.ReadinessCheck{{Name: "postgres", Check: db.PingContext}}
	if redisClient != nil {
		checks = append(checks, handler.ReadinessCheck{
			Name:     "redis",
			Optional: true,
			Check:    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks...)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics", "/health"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/system", metricsHandler.System)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.WithResponseMeta())
	assessments := api.Group("/assessments")
	assessments.GET("/due-soon", assessmentHandler.DueSoon)
	assessments.GET("/summary", assessmentHandler.Summary)
	assessments.GET("/summary-by-type", assessmentHandler.SummaryByType)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
