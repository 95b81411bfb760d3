package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkbridge/inkbridge-backend/api/controllers"
	webhookcontrollers "github.com/inkbridge/inkbridge-backend/api/controllers/webhooks"
	"github.com/inkbridge/inkbridge-backend/api/middleware"
	"github.com/inkbridge/inkbridge-backend/pkg/config"
	"github.com/inkbridge/inkbridge-backend/pkg/logger"
)

// RouterParams bundles everything the HTTP surface needs.
type RouterParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	DBPinger     Pinger
	RedisPinger  Pinger
	OrderService controllers.OrderSubmitter
	Forwarder    webhookcontrollers.PaymentForwarder
	WebhookGuard webhookcontrollers.PaymentGuard
	Metrics      http.Handler
}

// Pinger exposes the health check surface of a backing service.
type Pinger = controllers.Pinger

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DBPinger, params.RedisPinger))
	})

	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/orders", controllers.SubmitOrder(params.OrderService, logg))
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/payment", webhookcontrollers.PaymentWebhook(params.Forwarder, params.WebhookGuard, logg))
		})
	})

	return r
}
