// Package httptransport assembles the node's HTTP surface: the middleware
// pipeline, the entity and moderation routes, health and metrics.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminhandler "agora/internal/admin/handler"
	markethandler "agora/internal/market/handler"
	"agora/internal/platform/metrics"
	"agora/internal/platform/middleware"
	"agora/pkg/platform/httputil"
)

// requestTimeout bounds every request end to end.
const requestTimeout = 30 * time.Second

// Handlers collects the route providers mounted under /v1.
type Handlers struct {
	Market *markethandler.Handler
	Admin  *adminhandler.Handler
}

// NewRouter builds the request pipeline. Health and metrics stay outside
// the acting-agent gate so probes and scrapers need no identity.
func NewRouter(h Handlers, log *slog.Logger, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Latency(m))

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ActingAgent(log))
		h.Market.Register(r)
		h.Admin.Register(r)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
