package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/medifast/claims-api/internal/config"
	"github.com/medifast/claims-api/internal/email"
	"github.com/medifast/claims-api/internal/repository/postgres"
	cleanup "github.com/medifast/claims-api/internal/worker"
	"github.com/medifast/claims-api/pkg/logger"
	"github.com/medifast/claims-api/pkg/messaging"
	"github.com/medifast/claims-api/pkg/messaging/redis"
	"github.com/medifast/claims-api/pkg/metrics"
	"github.com/medifast/claims-api/pkg/worker"
)

// workerEnv holds knobs specific to this binary, read from
// CLAIMS_WORKER_* environment variables. Shared settings such as the
// database, Redis and outbox cadence come from the regular config file.
type workerEnv struct {
	HealthPort      int           `split_words:"true" default:"8081"`
	CleanupInterval time.Duration `split_words:"true" default:"1h"`
	RetentionDays   int           `split_words:"true" default:"7"`
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	var env workerEnv
	if err := envconfig.Process("claims_worker", &env); err != nil {
		log.Fatal().Err(err).Msg("failed to parse worker environment")
	}

	appLogger := logger.NewLogger(nil)
	log.Logger = appLogger.ZL

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Unlike the API, the worker exists to move outbox rows onto the
	// broker. Without Redis there is nothing useful it can do.
	broker, err := redis.NewRedisBroker(cfg.ToBrokerConfig(), &appLogger.ZL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer broker.Close()

	base := postgres.NewBaseRepository(db)
	outboxRepo := postgres.NewOutboxRepository(base)
	userRepo := postgres.NewUserRepository(base)

	var emails email.Sender = email.NoopSender{}
	if cfg.SMTP.Enabled {
		emails = email.NewSMTPSender(email.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, appLogger)
	}

	processor := worker.NewOutboxProcessor(
		outboxRepo,
		userRepo,
		broker,
		emails,
		cfg.Outbox.ToWorkerConfig(),
		appLogger,
		metrics.NewMetrics("claims", "worker"),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		appLogger.Info("shutdown signal received")
		cancel()
	}()

	go cleanup.NewOutboxCleanupWorker(outboxRepo, env.RetentionDays, env.CleanupInterval, appLogger).Start(ctx)
	go serveHealth(env.HealthPort, broker, appLogger)

	appLogger.Info("outbox worker started",
		"batch_size", cfg.Outbox.BatchSize,
		"poll_interval_seconds", cfg.Outbox.PollIntervalSeconds,
		"smtp_enabled", cfg.SMTP.Enabled)
	processor.Start(ctx)
	appLogger.Info("outbox worker stopped")
}

// serveHealth exposes liveness, readiness and metrics for the worker.
// Readiness follows the broker: a worker that cannot publish is not ready.
func serveHealth(port int, broker messaging.Broker, l *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := broker.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	l.Info("worker health endpoint listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		l.Error(err, "health endpoint failed")
		os.Exit(1)
	}
}
