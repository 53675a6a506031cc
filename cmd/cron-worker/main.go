package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agendfy/agendfy-backend/internal/accounts"
	"github.com/agendfy/agendfy-backend/internal/appointments"
	"github.com/agendfy/agendfy-backend/internal/cron"
	"github.com/agendfy/agendfy-backend/internal/downgrade"
	"github.com/agendfy/agendfy-backend/internal/services"
	"github.com/agendfy/agendfy-backend/pkg/config"
	"github.com/agendfy/agendfy-backend/pkg/db"
	"github.com/agendfy/agendfy-backend/pkg/logger"
	"github.com/agendfy/agendfy-backend/pkg/metrics"
	"github.com/agendfy/agendfy-backend/pkg/migrate"
	"github.com/agendfy/agendfy-backend/pkg/redis"
)

const lockKeyFormat = "af:cron-worker:lock:%s"

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
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

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
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	accountsRepo := accounts.NewRepository(dbClient.DB())
	servicesRepo := services.NewRepository(dbClient.DB())
	appointmentsRepo := appointments.NewRepository(dbClient.DB())

	enforcer, err := downgrade.NewEnforcer(servicesRepo, appointmentsRepo, accountsRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create downgrade enforcer", err)
		os.Exit(1)
	}

	reconciler, err := accounts.NewReconciler(accountsRepo, enforcer, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create trial reconciler", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewTrialExpirySweepJob(cron.TrialExpirySweepParams{
		Accounts:   accountsRepo,
		Reconciler: reconciler,
		Logger:     logg,
		Limit:      cfg.Cron.SweepLimit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create trial expiry sweep job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(sweepJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
