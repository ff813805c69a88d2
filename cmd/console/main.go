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
	"go.uber.org/zap"

	_ "github.com/noah-isme/course-console/api/swagger"
	"github.com/noah-isme/course-console/internal/dto"
	"github.com/noah-isme/course-console/internal/handler"
	"github.com/noah-isme/course-console/internal/middleware"
	"github.com/noah-isme/course-console/internal/repository"
	"github.com/noah-isme/course-console/internal/router"
	"github.com/noah-isme/course-console/internal/service"
	"github.com/noah-isme/course-console/internal/state"
	"github.com/noah-isme/course-console/internal/views"
	"github.com/noah-isme/course-console/pkg/backend"
	"github.com/noah-isme/course-console/pkg/cache"
	"github.com/noah-isme/course-console/pkg/config"
	"github.com/noah-isme/course-console/pkg/logger"
)

// @title Course Console
// @version 0.1.0
// @description Admin console for the course-management API
// @BasePath /
// @schemes http

type sessionStore interface {
	GetToken(ctx context.Context, sessionID string) (string, error)
	SetToken(ctx context.Context, sessionID, token string, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
}

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

	var tokens sessionStore
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		redisRepo := repository.NewRedisSessionRepository(client, logr)
		defer redisRepo.Close() //nolint:errcheck
		tokens = redisRepo
	default:
		tokens = repository.NewMemorySessionRepository()
	}

	registry := state.NewRegistry(cfg.State.IdleTTL, logr).WithSessionTTL(cfg.Session.TTL)
	if cfg.State.SweepSpec != "" {
		stopJanitor, err := registry.StartJanitor(cfg.State.SweepSpec)
		if err != nil {
			logr.Fatal("invalid state sweep spec", zap.String("spec", cfg.State.SweepSpec), zap.Error(err))
		}
		defer stopJanitor()
	}

	sessions := service.NewSessionService(tokens, registry, service.SessionConfig{
		TTL:               cfg.Session.TTL,
		DecodeTokenClaims: cfg.Session.DecodeTokenClaims,
	}, logr)

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService(registry.Len)
		unsubscribe := sessions.Subscribe(metrics.ObserveSessionEvent)
		defer unsubscribe()
	}

	apiClient, err := backend.New(backend.Config{
		BaseURL:        cfg.Backend.BaseURL,
		Timeout:        cfg.Backend.Timeout,
		Token:          sessions.Token,
		OnUnauthorized: sessions.HandleUnauthorized,
		Observer:       observer(metrics),
		Logger:         logr,
	})
	if err != nil {
		logr.Fatal("failed to init backend client", zap.Error(err))
	}
	// The auth endpoints carry no token, and a 401 there is a rejected
	// credential rather than an expired session.
	authClient, err := backend.New(backend.Config{
		BaseURL:  cfg.Backend.BaseURL,
		Timeout:  cfg.Backend.Timeout,
		Observer: observer(metrics),
		Logger:   logr,
	})
	if err != nil {
		logr.Fatal("failed to init auth client", zap.Error(err))
	}

	validate := dto.NewValidator()
	authSvc := service.NewAuthService(repository.NewAuthRepository(authClient), sessions, validate, logr)
	courseSvc := service.NewCourseService(repository.NewCourseRepository(apiClient), cfg.Views.PageSize, validate, logr)
	studentSvc := service.NewStudentService(repository.NewStudentRepository(apiClient), cfg.Views.PageSize, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(repository.NewEnrollmentRepository(apiClient), validate, logr)
	healthSvc := service.NewHealthService(cfg.Backend.BaseURL, cfg.Backend.HealthURL, cfg.Backend.Timeout, sessions, metrics)

	engine := router.New(router.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Session: middleware.SessionOptions{
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
			Secure:     cfg.Session.SecureCookie,
		},
		EnableMetrics: cfg.Metrics.Enabled,
		EnableDocs:    cfg.Env != config.EnvProduction,
		HTML:          views.MustNew(),
	}, router.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Courses:     handler.NewCourseHandler(courseSvc, enrollmentSvc, cfg.Views.PageSize),
		Students:    handler.NewStudentHandler(studentSvc, cfg.Views.PageSize),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc, studentSvc, courseSvc, cfg.Views.LookupPageSize),
		Ops:         handler.NewMetricsHandler(metrics, healthSvc),
	}, sessions, metrics, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("console starting", "addr", srv.Addr, "env", cfg.Env, "backend", cfg.Backend.BaseURL, "session_store", cfg.Session.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// observer avoids handing the backend client a typed nil interface.
func observer(metrics *service.MetricsService) backend.Observer {
	if metrics == nil {
		return nil
	}
	return metrics
}
