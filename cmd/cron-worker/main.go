package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/pos-backend/internal/cron"
	"github.com/angelmondragon/pos-backend/internal/items"
	"github.com/angelmondragon/pos-backend/internal/users"
	"github.com/angelmondragon/pos-backend/pkg/config"
	"github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/instance"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"github.com/angelmondragon/pos-backend/pkg/metrics"
	"github.com/angelmondragon/pos-backend/pkg/migrate"
	"github.com/angelmondragon/pos-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.LogConsole,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing connections", err)
		}
	}()

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+lockScope(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	costRatio, err := cfg.Analytics.EstimateRatio()
	if err != nil {
		logg.Error(context.Background(), "invalid analytics config", err)
		os.Exit(1)
	}

	stockJob, err := cron.NewStockSnapshotJob(cron.StockSnapshotJobParams{
		Logger:       logg,
		Catalog:      items.NewRepository(dbClient.DB()),
		Metrics:      metrics.NewStockMetrics(prometheus.DefaultRegisterer),
		CostRatio:    costRatio,
		LowThreshold: cfg.Analytics.LowStockThreshold,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stock snapshot job", err)
		os.Exit(1)
	}
	otpJob, err := cron.NewOTPSweepJob(cron.OTPSweepJobParams{
		Logger:     logg,
		Repository: users.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create otp sweep job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(stockJob, otpJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(),
		"interval":    cfg.Cron.Interval.String(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockScope(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
