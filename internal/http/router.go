// Package httpapi assembles the public HTTP surface: shared middleware,
// the gated ingest routes, operator routes and health endpoints.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ingestgate/internal/gate"
	platformmetrics "ingestgate/internal/platform/metrics"
	"ingestgate/internal/ratelimit/models"
	"ingestgate/pkg/platform/httputil"
	adminmw "ingestgate/pkg/platform/middleware/admin"
	metadata "ingestgate/pkg/platform/middleware/metadata"
	request "ingestgate/pkg/platform/middleware/request"
	"ingestgate/pkg/platform/middleware/secure"
)

const healthTimeout = 2 * time.Second

// IngestRoutes serves the partner-facing endpoints.
type IngestRoutes interface {
	HandleIngest(w http.ResponseWriter, r *http.Request)
	HandleGetEvent(w http.ResponseWriter, r *http.Request)
}

// AdminRoutes mounts operator endpoints under the admin group.
type AdminRoutes interface {
	RegisterAdmin(r chi.Router)
}

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

type Deps struct {
	Logger         *slog.Logger
	Gate           *gate.Gate
	Ingest         IngestRoutes
	Admin          AdminRoutes
	AdminToken     string
	TrustProxy     bool
	AllowedOrigins []string

	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer    prometheus.Gatherer
	HTTPMetrics *platformmetrics.HTTP
	Checks      map[string]Check
}

func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(request.Middleware)
	r.Use(secure.Headers)
	r.Use(secure.CORS(d.AllowedOrigins))
	r.Use(metadata.ClientMetadata(d.TrustProxy))
	if d.HTTPMetrics != nil {
		r.Use(d.HTTPMetrics.Middleware)
	}

	r.Get("/health", healthHandler(d.Checks, logger))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.With(d.Gate.Require(models.ClassIngest)).Post("/ingest", d.Ingest.HandleIngest)
	r.With(d.Gate.Require(models.ClassRead)).Get("/ingest/events/{eventID}", d.Ingest.HandleGetEvent)

	if d.Admin != nil {
		r.Group(func(r chi.Router) {
			r.Use(d.Gate.LimitIP(models.ClassAdmin))
			r.Use(adminmw.RequireAdminToken(d.AdminToken, logger))
			d.Admin.RegisterAdmin(r)
		})
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]Check, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
