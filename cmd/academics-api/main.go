package main

import (
	"context"
	"errors"
	"fmt"
	"log"
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

	_ "github.com/noah-isme/sma-academics-api/api/swagger"
	"github.com/noah-isme/sma-academics-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-academics-api/internal/middleware"
	"github.com/noah-isme/sma-academics-api/internal/repository"
	"github.com/noah-isme/sma-academics-api/internal/service"
	"github.com/noah-isme/sma-academics-api/pkg/cache"
	"github.com/noah-isme/sma-academics-api/pkg/clock"
	"github.com/noah-isme/sma-academics-api/pkg/config"
	"github.com/noah-isme/sma-academics-api/pkg/database"
	"github.com/noah-isme/sma-academics-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-academics-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-academics-api/pkg/middleware/requestid"
)

// @title SMA Academics API
// @version 1.0.0
// @description Academic records, exams and year-end promotion
// @BasePath /api/v1
// @schemes http
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}

	var cacheSvc *service.CacheService
	if cfg.Grades.CacheEnabled {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, grade cache disabled", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Grades.CacheTTL, logr, true)
			checks["redis"] = cacheRepo.Ping
		}
	}

	clk := clock.New(cfg.Location())
	validate := validator.New()

	yearRepo := repository.NewAcademicYearRepository(db)
	levelRepo := repository.NewClassLevelRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	offeringRepo := repository.NewClassOfferingRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	userRepo := repository.NewUserRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	assignmentRepo := repository.NewTeacherAssignmentRepository(db)
	examRepo := repository.NewExamRepository(db)
	markRepo := repository.NewExamMarkRepository(db)
	promotionRepo := repository.NewPromotionRepository(db)

	rules := service.NewRuleValidator(clk, yearRepo, enrollmentRepo, examRepo)
	policy := service.NewAccessPolicy(assignmentRepo)

	catalogSvc := service.NewCatalogService(yearRepo, levelRepo, subjectRepo, offeringRepo, logr)
	enrollmentSvc := service.NewEnrollmentService(db, enrollmentRepo, studentRepo, offeringRepo, assignmentRepo, rules, policy, cacheSvc, validate, logr)
	gradeSvc := service.NewGradeService(markRepo, enrollmentRepo, cacheSvc, logr)
	assignmentSvc := service.NewTeacherAssignmentService(assignmentRepo, userRepo, subjectRepo, offeringRepo, rules, policy, validate, logr)
	examSvc := service.NewExamService(service.ExamServiceDeps{
		Tx:          db,
		Exams:       examRepo,
		Marks:       markRepo,
		Enrollments: enrollmentRepo,
		Offerings:   offeringRepo,
		Years:       yearRepo,
		Rules:       rules,
		Policy:      policy,
		Cache:       cacheSvc,
		Metrics:     metricsSvc,
		Clock:       clk,
		Validator:   validate,
		Logger:      logr,
	})
	promotionSvc := service.NewPromotionService(service.PromotionServiceDeps{
		Tx:          db,
		Offerings:   offeringRepo,
		Years:       yearRepo,
		Levels:      levelRepo,
		Enrollments: enrollmentRepo,
		Saver:       enrollmentSvc,
		Scores:      markRepo,
		Repo:        promotionRepo,
		Rules:       rules,
		Policy:      policy,
		Cache:       cacheSvc,
		Metrics:     metricsSvc,
		Clock:       clk,
		Validator:   validate,
		Logger:      logr,
	})
	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	if metricsSvc != nil {
		r.Use(internalmiddleware.Metrics(metricsSvc, "/health", "/ready", "/metrics"))
	}

	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), tokenSvc, handler.Handlers{
		Catalog:     handler.NewCatalogHandler(catalogSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc),
		Grades:      handler.NewGradeHandler(gradeSvc),
		Assignments: handler.NewTeacherAssignmentHandler(assignmentSvc),
		Exams:       handler.NewExamHandler(examSvc),
		Promotions:  handler.NewPromotionHandler(promotionSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
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
