package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agendfy/agendfy-backend/api/routes"
	"github.com/agendfy/agendfy-backend/internal/accounts"
	adminsvc "github.com/agendfy/agendfy-backend/internal/admin"
	"github.com/agendfy/agendfy-backend/internal/appointments"
	checkoutsvc "github.com/agendfy/agendfy-backend/internal/checkout"
	"github.com/agendfy/agendfy-backend/internal/downgrade"
	"github.com/agendfy/agendfy-backend/internal/services"
	stripewebhook "github.com/agendfy/agendfy-backend/internal/webhooks/stripe"
	"github.com/agendfy/agendfy-backend/pkg/config"
	"github.com/agendfy/agendfy-backend/pkg/db"
	"github.com/agendfy/agendfy-backend/pkg/logger"
	"github.com/agendfy/agendfy-backend/pkg/metrics"
	"github.com/agendfy/agendfy-backend/pkg/migrate"
	"github.com/agendfy/agendfy-backend/pkg/redis"
	pkgstripe "github.com/agendfy/agendfy-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe client", err)
		os.Exit(1)
	}

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

	accountsService, err := accounts.NewService(accountsRepo, reconciler, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create account service", err)
		os.Exit(1)
	}

	servicesService, err := services.NewService(servicesRepo, accountsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create service catalog", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Accounts:     accountsRepo,
		StripeClient: stripewebhook.NewStripeClient(stripeClient),
		Logger:       logg,
		FetchTimeout: cfg.Stripe.FetchTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Stripe.IdempotencyTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		StripeClient: checkoutsvc.NewStripeClient(stripeClient),
		PriceID:      cfg.Stripe.SubscriptionPriceID,
		SuccessURL:   cfg.Stripe.SuccessURL,
		CancelURL:    cfg.Stripe.CancelURL,
		Logger:       logg,
		Timeout:      cfg.Stripe.FetchTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	adminService, err := adminsvc.NewService(adminsvc.ServiceParams{
		StripeClient: stripewebhook.NewStripeClient(stripeClient),
		Syncer:       webhookService,
		Logger:       logg,
		FetchTimeout: cfg.Stripe.FetchTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create admin service", err)
		os.Exit(1)
	}

	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:          cfg,
			Logger:          logg,
			DB:              dbClient,
			Redis:           redisClient,
			AccountsService: accountsService,
			AccountsRepo:    accountsRepo,
			ServicesService: servicesService,
			CheckoutService: checkoutService,
			AdminService:    adminService,
			StripeClient:    stripeClient,
			WebhookService:  webhookService,
			WebhookGuard:    webhookGuard,
			WebhookMetrics:  webhookMetrics,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
