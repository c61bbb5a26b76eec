package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/orderflow-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/orderflow-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/orderflow-backend/api/controllers/webhooks"
	"github.com/angelmondragon/orderflow-backend/api/middleware"
	"github.com/angelmondragon/orderflow-backend/internal/orders"
	"github.com/angelmondragon/orderflow-backend/pkg/config"
	"github.com/angelmondragon/orderflow-backend/pkg/enums"
	"github.com/angelmondragon/orderflow-backend/pkg/logger"
	"github.com/angelmondragon/orderflow-backend/pkg/metrics"
	"github.com/angelmondragon/orderflow-backend/pkg/redis"
)

type signingClient interface {
	SigningSecret() string
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// Deps is everything the HTTP surface is wired from.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB    controllers.Pinger
	Redis controllers.Pinger

	Idempotency redis.IdempotencyStore
	Orders      orders.Service

	StripeClient  signingClient
	StripeWebhook webhookcontrollers.StripeWebhookService
	WebhookGuard  webhookGuard

	// Gatherer backs /metrics; defaults to the global registry
	Gatherer       prometheus.Gatherer
	HTTPMetrics    *metrics.HTTPMetrics
	WebhookMetrics *metrics.WebhookMetrics
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"postgres": deps.DB,
			"redis":    deps.Redis,
		}))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.StripeClient, deps.WebhookGuard, deps.WebhookMetrics, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RequireRole(enums.UserRoleClient, logg))
			r.Use(middleware.Idempotency(deps.Idempotency, logg))

			// flat registration keeps full route patterns visible to the idempotency rules
			r.Post("/orders", ordercontrollers.Create(deps.Orders, logg))
			r.Get("/orders", ordercontrollers.List(deps.Orders, logg))
			r.Get("/orders/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.Post("/orders/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
			r.Post("/orders/{orderId}/cancel-paid", ordercontrollers.CancelPaid(deps.Orders, logg))
			r.Post("/orders/{orderId}/retry-payment", ordercontrollers.RetryPayment(deps.Orders, logg))
			r.Get("/refunds", ordercontrollers.Refunds(deps.Orders, logg))
		})
	})

	return r
}
