package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/medifast/claims-api/internal/config"
	analyticsHandler "github.com/medifast/claims-api/internal/handler/analytics"
	auditHandler "github.com/medifast/claims-api/internal/handler/audit"
	authHandler "github.com/medifast/claims-api/internal/handler/auth"
	claimHandler "github.com/medifast/claims-api/internal/handler/claim"
	healthHandler "github.com/medifast/claims-api/internal/handler/health"
	notificationHandler "github.com/medifast/claims-api/internal/handler/notification"
	prometheusHandler "github.com/medifast/claims-api/internal/handler/prometheus"
	"github.com/medifast/claims-api/internal/middleware"
	"github.com/medifast/claims-api/internal/repository/postgres"
	"github.com/medifast/claims-api/internal/router"
	analyticsService "github.com/medifast/claims-api/internal/service/analytics"
	auditService "github.com/medifast/claims-api/internal/service/audit"
	authService "github.com/medifast/claims-api/internal/service/auth"
	claimService "github.com/medifast/claims-api/internal/service/claim"
	extractionService "github.com/medifast/claims-api/internal/service/extraction"
	notificationService "github.com/medifast/claims-api/internal/service/notification"
	"github.com/medifast/claims-api/pkg/auth"
	"github.com/medifast/claims-api/pkg/logger"
	"github.com/medifast/claims-api/pkg/messaging"
	"github.com/medifast/claims-api/pkg/messaging/redis"
	"github.com/medifast/claims-api/pkg/metrics"
	"github.com/medifast/claims-api/pkg/security"
	"github.com/medifast/claims-api/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	log.Logger = appLogger.ZL

	if err := validator.RegisterCustom(); err != nil {
		log.Fatal().Err(err).Msg("failed to register request validators")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	claimRepo := postgres.NewClaimRepository(base)
	userRepo := postgres.NewUserRepository(base)
	notificationRepo := postgres.NewNotificationRepository(base)
	auditRepo := postgres.NewAuditRepository(base)
	outboxRepo := postgres.NewOutboxRepository(base)

	m := metrics.NewMetrics("claims", "api")

	accessExpiry, refreshExpiry := cfg.JWT.ToJWTExpiry()
	tokens := auth.NewJWTService(auth.Config{
		Secret:        cfg.JWT.Secret,
		Issuer:        cfg.JWT.Issuer,
		AccessExpiry:  accessExpiry,
		RefreshExpiry: refreshExpiry,
	})

	// The broker is optional here. Without Redis the API still accepts
	// claims; events queue in the outbox until a worker drains them.
	var broker messaging.Broker
	if b, err := redis.NewRedisBroker(cfg.ToBrokerConfig(), &appLogger.ZL); err != nil {
		appLogger.Error(err, "redis unavailable, continuing without broker")
	} else {
		broker = b
		defer broker.Close()
	}

	auditSvc := auditService.NewService(auditRepo)
	dispatcher := claimService.NewDispatcher(notificationRepo, outboxRepo, m, appLogger)
	machine := claimService.NewStateMachine(claimService.NewPermissionMatrix())
	claimSvc := claimService.NewService(claimRepo, outboxRepo, machine, auditSvc, dispatcher, m, appLogger)
	authSvc := authService.NewService(userRepo, tokens, security.NewBcryptHasher(0), appLogger)
	notificationSvc := notificationService.NewService(notificationRepo)
	analyticsSvc := analyticsService.NewService(claimRepo, userRepo)
	extractionSvc := extractionService.NewService(appLogger)

	authn := middleware.NewAuthMiddleware(tokens)

	handlers := router.Handlers{
		Auth:          authHandler.NewHandler(authSvc),
		Claims:        claimHandler.NewHandler(claimSvc, extractionSvc),
		Notifications: notificationHandler.NewHandler(notificationSvc),
		Analytics:     analyticsHandler.NewHandler(analyticsSvc),
		Audit:         auditHandler.NewHandler(auditSvc),
		Health:        healthHandler.NewHandler(db, broker),
		Prometheus:    prometheusHandler.New(m),
	}

	r := router.New(authn, handlers, router.Config{
		RateLimit: middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.RPS),
			Burst: cfg.RateLimit.Burst,
		},
		CORS:      middleware.DefaultCORSConfig(),
		Security:  middleware.DefaultSecurityConfig(),
		SizeLimit: middleware.DefaultSizeLimitConfig(),
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		appLogger.Info("claims API listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info("server exited")
}
