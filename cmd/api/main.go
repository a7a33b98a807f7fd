package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/streamledger/vms-api/internal/config"
	"github.com/streamledger/vms-api/internal/email"
	authHandler "github.com/streamledger/vms-api/internal/handler/auth"
	healthHandler "github.com/streamledger/vms-api/internal/handler/health"
	organizationHandler "github.com/streamledger/vms-api/internal/handler/organization"
	userHandler "github.com/streamledger/vms-api/internal/handler/user"
	videoHandler "github.com/streamledger/vms-api/internal/handler/video"
	"github.com/streamledger/vms-api/internal/middleware"
	"github.com/streamledger/vms-api/internal/repository/postgres"
	"github.com/streamledger/vms-api/internal/router"
	authService "github.com/streamledger/vms-api/internal/service/auth"
	pointService "github.com/streamledger/vms-api/internal/service/point"
	subscriptionService "github.com/streamledger/vms-api/internal/service/subscription"
	userService "github.com/streamledger/vms-api/internal/service/user"
	videoService "github.com/streamledger/vms-api/internal/service/video"
	"github.com/streamledger/vms-api/internal/storage"
	"github.com/streamledger/vms-api/pkg/auth"
	"github.com/streamledger/vms-api/pkg/logger"
	messagingRedis "github.com/streamledger/vms-api/pkg/messaging/redis"
	"github.com/streamledger/vms-api/pkg/metrics"
	"github.com/streamledger/vms-api/pkg/redlock"
	"github.com/streamledger/vms-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
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

	lockConns := make([]redlock.Conn, 0, len(cfg.Redis.LockEndpoints))
	for _, endpoint := range cfg.Redis.LockEndpoints {
		opts, err := redis.ParseURL(endpoint)
		if err != nil {
			log.Fatal().Err(err).Str("endpoint", endpoint).Msg("invalid lock endpoint")
		}
		lockConns = append(lockConns, redis.NewClient(opts))
	}
	lockManager, err := redlock.NewManager(lockConns, redlock.Config{
		TTL:     cfg.Redis.LockTTL,
		Retries: cfg.Redis.LockRetries,
	}, appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize lock manager")
	}

	appMetrics := metrics.New("vms")

	// Repositories
	base := postgres.NewBaseRepository(db)
	orgRepo := postgres.NewOrganizationRepository(base)
	subRepo := postgres.NewSubscriptionRepository(base)
	userRepo := postgres.NewUserRepository(base)
	videoRepo := postgres.NewVideoRepository(base)
	pointRepo := postgres.NewPointRepository(base)

	// Services
	hasher := security.NewBcryptHasher(12)
	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:        cfg.JWT.Secret,
		AccessExpiry:  time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
		RefreshExpiry: time.Duration(cfg.JWT.RefreshExpiryHours) * time.Hour,
	})

	var emailSvc email.Service = email.Noop{}
	if cfg.SMTP.Host != "" {
		emailSvc = email.NewSMTPService(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}

	subSvc := subscriptionService.NewService(subRepo, orgRepo, hasher, emailSvc, appLogger)
	userSvc := userService.NewService(userRepo, hasher)
	authSvc := authService.NewService(userRepo, subRepo, jwtSvc, hasher)
	videoSvc := videoService.NewService(videoRepo, store, broker, appLogger)
	pointSvc := pointService.NewService(pointRepo, lockManager, appMetrics, appLogger)

	// Handlers
	authMiddleware := middleware.NewAuthMiddleware(authSvc)
	authH := authHandler.NewHandler(authSvc)
	orgH := organizationHandler.NewHandler(subSvc)
	userH := userHandler.NewHandler(userSvc)
	videoH := videoHandler.NewHandler(videoSvc, pointSvc)
	healthH := healthHandler.NewHandler(db)

	r := router.NewRouter(authMiddleware, authH, orgH, userH, videoH, healthH, router.Config{
		RateLimit:  rate.Limit(cfg.RateLimit.RPS),
		RateBurst:  cfg.RateLimit.Burst,
		CORSConfig: middleware.DefaultCORSConfig(),
		SizeLimit: middleware.SizeLimitConfig{
			MaxBodySize:   1 << 20,
			MaxUploadSize: cfg.Storage.MaxUploadSize,
			UploadPaths:   []string{"/api/v1/admin/videos"},
		},
		MetricsPrefix: "vms_http",
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
