package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agendfy/agendfy-backend/api/controllers"
	admincontrollers "github.com/agendfy/agendfy-backend/api/controllers/admin"
	billingcontrollers "github.com/agendfy/agendfy-backend/api/controllers/billing"
	webhookcontrollers "github.com/agendfy/agendfy-backend/api/controllers/webhooks"
	"github.com/agendfy/agendfy-backend/api/middleware"
	"github.com/agendfy/agendfy-backend/internal/accounts"
	adminsvc "github.com/agendfy/agendfy-backend/internal/admin"
	checkoutsvc "github.com/agendfy/agendfy-backend/internal/checkout"
	"github.com/agendfy/agendfy-backend/internal/services"
	stripewebhook "github.com/agendfy/agendfy-backend/internal/webhooks/stripe"
	"github.com/agendfy/agendfy-backend/pkg/config"
	"github.com/agendfy/agendfy-backend/pkg/db"
	"github.com/agendfy/agendfy-backend/pkg/logger"
	"github.com/agendfy/agendfy-backend/pkg/metrics"
	"github.com/agendfy/agendfy-backend/pkg/redis"
	"github.com/agendfy/agendfy-backend/pkg/stripe"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              db.Pinger
	Redis           redis.Pinger
	AccountsService accounts.Service
	AccountsRepo    accounts.Repository
	ServicesService services.Service
	CheckoutService checkoutsvc.Service
	AdminService    adminsvc.Service
	StripeClient    *stripe.Client
	WebhookService  *stripewebhook.Service
	WebhookGuard    *stripewebhook.IdempotencyGuard
	WebhookMetrics  *metrics.WebhookMetrics
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.WebhookService, p.StripeClient, p.WebhookGuard, p.WebhookMetrics, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", controllers.AccountProvision(p.AccountsService, logg))
			r.Get("/me", controllers.AccountSession(p.AccountsService, logg))
		})

		r.Route("/services", func(r chi.Router) {
			r.Get("/", controllers.ServiceList(p.ServicesService, logg))
			r.Post("/", controllers.ServiceCreate(p.ServicesService, logg))
			r.Post("/{serviceId}/deactivate", controllers.ServiceDeactivate(p.ServicesService, logg))
		})

		r.Route("/billing", func(r chi.Router) {
			r.Post("/checkout", billingcontrollers.Checkout(p.CheckoutService, p.AccountsRepo, logg))
			r.Post("/cancel", billingcontrollers.Cancel(p.CheckoutService, p.AccountsRepo, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("ceo", logg))

		r.Route("/billing", func(r chi.Router) {
			r.Post("/sync-by-email", admincontrollers.BillingSyncByEmail(p.AdminService, logg))
			r.Post("/recover", admincontrollers.BillingRecover(p.AdminService, logg))
		})
	})

	return r
}
