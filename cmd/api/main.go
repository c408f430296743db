package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"jobboard/internal/api"
	"jobboard/internal/auth"
	"jobboard/internal/config"
	"jobboard/internal/database"
	"jobboard/internal/storage"
	"jobboard/internal/tasks"
	"jobboard/internal/workflow"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	logger.Info("database ready", slog.String("driver", cfg.Database.Driver))

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	storageClient, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	var scanner api.VirusScanner
	if s := storage.NewClamdScanner(cfg.Clamd.Addr); s != nil {
		scanner = s
	} else {
		logger.Warn("clamd address not configured, resume uploads are not scanned")
	}

	authService, err := auth.NewAuthService([]byte(cfg.Auth.Secret), cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	svc := workflow.NewService(db, tasks.NewDispatcher(asynqClient), logger)

	router := api.NewRouter(cfg.API, logger)
	api.RegisterRoutes(router, api.Deps{
		DB:                    db,
		AuthService:           authService,
		Revocations:           auth.NewRevocationStore(redisClient),
		RateCounter:           redisClient,
		LoginRateLimitPerHour: cfg.Auth.LoginRateLimitPerHour,
		CookieDomain:          cfg.API.CookieDomain,
		AllowedOrigins:        cfg.API.Origins(),
		Workflow:              svc,
		Storage:               storageClient,
		Scanner:               scanner,
		Subscriber:            redisClient,
		Logger:                logger,
	})

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("addr", address))
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
