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

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/summercamp-api/api/swagger"
	"github.com/noah-isme/summercamp-api/internal/handler"
	"github.com/noah-isme/summercamp-api/internal/repository"
	"github.com/noah-isme/summercamp-api/internal/router"
	"github.com/noah-isme/summercamp-api/internal/service"
	"github.com/noah-isme/summercamp-api/pkg/cache"
	"github.com/noah-isme/summercamp-api/pkg/config"
	"github.com/noah-isme/summercamp-api/pkg/database"
	"github.com/noah-isme/summercamp-api/pkg/export"
	"github.com/noah-isme/summercamp-api/pkg/jobs"
	"github.com/noah-isme/summercamp-api/pkg/logger"
)

// @title Summer Camp API
// @version 1.0.0
// @description Class booking backend: catalog, reservations, enrollment settlement and roles.
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.ClassCache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, class cache disabled", zap.Error(err))
			redisClient = nil
		}
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	var auditQueue *jobs.Queue
	if cfg.Audit.Workers > 0 {
		auditQueue = jobs.NewQueue("audit", jobs.Config{
			Workers:    cfg.Audit.Workers,
			BufferSize: cfg.Audit.BufferSize,
			MaxRetries: 3,
			Logger:     logr,
		})
		auditQueue.Start(context.Background())
		defer auditQueue.Drain()
	}
	auditSvc := service.NewAuditService(userRepo, auditQueue, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.ClassCache.TTL, logr, redisClient != nil)
	authz := service.NewAuthorizationService(userRepo, logr)
	verifier := service.NewTokenVerifier(service.TokenVerifierConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	classSvc := service.NewClassService(classRepo, cacheSvc, metrics, validate, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	reservationSvc := service.NewReservationService(reservationRepo, classRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo)
	paymentSvc := service.NewPaymentService(paymentRepo, cfg.Exports.Enabled, logr, export.NewCSVExporter(), export.NewPDFExporter())
	settlementSvc := service.NewSettlementService(service.SettlementDeps{
		Payments:     paymentRepo,
		Enrollments:  enrollmentRepo,
		Reservations: reservationRepo,
		Seats:        classRepo,
		Instructors:  userRepo,
		Tx:           database.NewTxRunner(db),
	}, service.SettlementConfig{Atomic: cfg.Settlement.Atomic, Timeout: cfg.Settlement.Timeout}, cacheSvc, metrics, validate, logr)

	checks := []handler.ReadinessCheck{{Name: "postgres", Ping: db.PingContext}}
	if redisClient != nil {
		checks = append(checks, handler.ReadinessCheck{Name: "redis", Ping: cacheRepo.Ping})
	}

	engine := router.New(router.Deps{
		Config:   cfg,
		Logger:   logr,
		Verifier: verifier,
		Gate:     authz,
		Audit:    auditSvc,
		Metrics:  metrics,
	}, router.Handlers{
		Classes:      handler.NewClassHandler(classSvc),
		Users:        handler.NewUserHandler(userSvc),
		Reservations: handler.NewReservationHandler(reservationSvc),
		Enrollments:  handler.NewEnrollmentHandler(enrollmentSvc),
		Payments:     handler.NewPaymentHandler(paymentSvc),
		Settlements:  handler.NewSettlementHandler(settlementSvc),
		Metrics:      handler.NewMetricsHandler(metrics, logr, checks...),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "settlement_atomic", cfg.Settlement.Atomic)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
