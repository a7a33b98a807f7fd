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
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/streamledger/vms-api/internal/config"
	"github.com/streamledger/vms-api/internal/email"
	"github.com/streamledger/vms-api/internal/model"
	"github.com/streamledger/vms-api/internal/repository/postgres"
	subscriptionService "github.com/streamledger/vms-api/internal/service/subscription"
	"github.com/streamledger/vms-api/internal/storage"
	internalWorker "github.com/streamledger/vms-api/internal/worker"
	"github.com/streamledger/vms-api/pkg/logger"
	messagingRedis "github.com/streamledger/vms-api/pkg/messaging/redis"
	"github.com/streamledger/vms-api/pkg/metrics"
	"github.com/streamledger/vms-api/pkg/security"
	"github.com/streamledger/vms-api/pkg/worker"
)

// workerEnv holds the worker-local settings that are overridden per
// deployment without touching the shared config file.
type workerEnv struct {
	HealthPort    int    `envconfig:"WORKER_HEALTH_PORT" default:"8081"`
	SweepSchedule string `envconfig:"WORKER_SWEEP_SCHEDULE"`
	SweepDisabled bool   `envconfig:"WORKER_SWEEP_DISABLED" default:"false"`
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	var env workerEnv
	if err := envconfig.Process("", &env); err != nil {
		log.Fatal().Err(err).Msg("failed to process worker environment")
	}
	schedule := cfg.Sweep.Schedule
	if env.SweepSchedule != "" {
		schedule = env.SweepSchedule
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	appLogger := logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Pretty:     cfg.Logging.Pretty,
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	store, err := storage.NewStore(storage.Config{
		TempDir:   cfg.Storage.TempDir,
		UploadDir: cfg.Storage.UploadDir,
		ChunkSize: cfg.Storage.ChunkSize,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}

	broker, err := messagingRedis.NewRedisBroker(messagingRedis.Config{URL: cfg.Redis.QueueURL}, &appLogger.ZL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to task broker")
	}
	defer broker.Close()

	appMetrics := metrics.New("vms_worker")

	base := postgres.NewBaseRepository(db)
	orgRepo := postgres.NewOrganizationRepository(base)
	subRepo := postgres.NewSubscriptionRepository(base)
	videoRepo := postgres.NewVideoRepository(base)

	subSvc := subscriptionService.NewService(subRepo, orgRepo, security.NewBcryptHasher(12), email.Noop{}, appLogger)
	videoTasks := internalWorker.NewVideoTaskHandler(videoRepo, store, appLogger)
	sweeper := internalWorker.NewSubscriptionSweeper(subSvc, appMetrics, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := worker.NewRunner(broker, appLogger, appMetrics)
	runner.Register(model.QueueVideoUpload, videoTasks.HandleUpload)
	runner.Register(model.QueueVideoUpdate, videoTasks.HandleUpdate)

	runnerDone := make(chan error, 1)
	go func() {
		runnerDone <- runner.Start(ctx)
	}()

	var scheduler *cron.Cron
	if !env.SweepDisabled {
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(schedule, sweeper.Run); err != nil {
			log.Fatal().Err(err).Str("schedule", schedule).Msg("invalid sweep schedule")
		}
		scheduler.Start()
		log.Info().Str("schedule", schedule).Msg("subscription sweep scheduled")
	}

	setupHealthCheck(env.HealthPort, appLogger)
	log.Info().Msg("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("shutting down worker...")
	case err := <-runnerDone:
		if err != nil {
			log.Error().Err(err).Msg("task runner stopped")
		}
	}

	cancel()
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	log.Info().Msg("worker exited properly")
}

func setupHealthCheck(port int, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			appLogger.ZL.Error().Err(err).Msg("Health check server failed")
			os.Exit(1)
		}
	}()
}
