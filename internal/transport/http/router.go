// Package httptransport is the thin HTTP layer. Handlers decode,
// delegate to domain services, and encode; business rules stay out.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"siterisk/internal/platform/metrics"
	"siterisk/internal/platform/middleware"
)

// RouterDeps bundles everything the router mounts.
type RouterDeps struct {
	Assessments   *AssessmentHandler
	Studies       *StudyHandler
	Notifications *NotificationHandler
	Audits        *AuditHandler
	Validator     middleware.TokenValidator
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

// NewRouter wires all endpoints. Every API route lives flat under
// /api/v1 behind bearer auth; health and metrics stay open.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(deps.Logger, deps.Metrics))
	r.Use(middleware.Recovery(deps.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		// Mounted in the legacy service's router order.
		deps.Studies.Register(api)
		deps.Assessments.Register(api)
		deps.Notifications.Register(api)
		deps.Audits.Register(api)
	})

	return r
}
