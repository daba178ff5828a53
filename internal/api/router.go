package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/radugrosu/zero2prod/internal/api/handler"
	apimw "github.com/radugrosu/zero2prod/internal/api/middleware"
	"github.com/radugrosu/zero2prod/internal/repository"
	"github.com/radugrosu/zero2prod/internal/service"
)

// AdminAuth carries the credentials and principal for the publish endpoint.
type AdminAuth struct {
	Username string
	Password string
	OwnerID  uuid.UUID
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	publishSvc *service.PublishService,
	subscriptionSvc *service.SubscriptionService,
	deliveryRepo repository.DeliveryRepository,
	auth AdminAuth,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	nh := handler.NewNewsletterHandler(publishSvc, logger)
	sh := handler.NewSubscriptionHandler(subscriptionSvc, logger)
	mh := handler.NewMetricsHandler(deliveryRepo)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Post("/subscriptions", sh.Subscribe)
	r.Get("/subscriptions/confirm", sh.Confirm)

	r.Route("/admin", func(r chi.Router) {
		r.Use(apimw.BasicAuth(auth.Username, auth.Password, auth.OwnerID))
		r.Post("/newsletters", nh.Publish)
	})

	// JSON metrics snapshot
	r.Get("/api/v1/metrics", mh.GetMetrics)

	return r
}
