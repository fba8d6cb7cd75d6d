package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	internalauth "github.com/shareguard/shareguard/internal/controlplane/api/auth"
	"github.com/shareguard/shareguard/internal/controlplane/api/handlers"
	apiMiddleware "github.com/shareguard/shareguard/internal/controlplane/api/middleware"
	"github.com/shareguard/shareguard/internal/logger"
	"github.com/shareguard/shareguard/pkg/acl"
	"github.com/shareguard/shareguard/pkg/controlplane/store"
	"github.com/shareguard/shareguard/pkg/health"
	"github.com/shareguard/shareguard/pkg/monitor"
	"github.com/shareguard/shareguard/pkg/notify"
)

// RouterDeps bundles the dependencies NewRouter wires into handlers.
type RouterDeps struct {
	Store     store.Store
	Scanner   handlers.Scanner
	ScanOpts  acl.Options
	Analyzer  *health.Analyzer
	Monitor   *monitor.Loop
	Notifier  *notify.Service
	Validator *internalauth.Validator // nil disables authentication
}

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Routes:
//   - GET /health{,/ready,/stores} - liveness/readiness probes
//   - GET /metrics - Prometheus scrape endpoint
//   - POST /api/v1/scan - on-demand ACL scan of one path
//   - GET/PUT /api/v1/snapshots{,/{path...}} - durable snapshot recovery
//   - POST /api/v1/health/runs - trigger a Health Analyzer run
//   - GET /api/v1/health/score - current aggregate score + trend
//   - GET/PATCH /api/v1/issues{,/{id}} - hygiene issue lifecycle
//   - POST/DELETE /api/v1/monitor, GET /api/v1/monitor/status - watch set control
//   - GET /api/v1/ws - websocket upgrade for live change/issue notifications
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	healthHandler := handlers.NewSystemHealthHandler(deps.Store)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Live)
		r.Get("/ready", healthHandler.Ready)
		r.Get("/stores", healthHandler.Stores)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	authenticate := func(r chi.Router) {
		if deps.Validator != nil {
			r.Use(apiMiddleware.JWTAuth(deps.Validator))
		}
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			authenticate(r)

			scanHandler := handlers.NewScanHandler(deps.Scanner, deps.ScanOpts)
			r.Post("/scan", scanHandler.Create)

			snapshotHandler := handlers.NewSnapshotHandler(deps.Store)
			r.Route("/snapshots", func(r chi.Router) {
				r.Get("/", snapshotHandler.List)
				r.Get("/*", snapshotHandler.Get)
				r.Put("/*", snapshotHandler.Put)
			})

			healthRunHandler := handlers.NewHealthRunHandler(deps.Analyzer)
			r.Post("/health/runs", healthRunHandler.Create)

			scoreHandler := handlers.NewHealthScoreHandler(deps.Store)
			r.Get("/health/score", scoreHandler.Get)

			issueHandler := handlers.NewIssueHandler(deps.Store)
			r.Route("/issues", func(r chi.Router) {
				r.Get("/", issueHandler.List)
				r.Get("/{id}", issueHandler.Get)
				r.Get("/{id}/history", issueHandler.ListStatusChanges)

				r.Group(func(r chi.Router) {
					r.Use(apiMiddleware.RequireAdmin())
					r.Patch("/{id}", issueHandler.SetStatus)
				})
			})

			r.Group(func(r chi.Router) {
				r.Use(apiMiddleware.RequireAdmin())
				monitorHandler := handlers.NewMonitorHandler(deps.Monitor)
				r.Post("/monitor", monitorHandler.Start)
				r.Delete("/monitor", monitorHandler.Stop)
				r.Get("/monitor/status", monitorHandler.Status)
			})

			wsHandler := handlers.NewWSHandler(deps.Notifier)
			r.Get("/ws", wsHandler.Connect)
		})
	})

	return r
}

// isHealthPath returns true if the request path is a healthcheck endpoint.
func isHealthPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/")
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
//   - Healthcheck requests are logged at DEBUG level to reduce noise
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		}

		if isHealthPath(r.URL.Path) {
			logger.Debug("API request completed", logArgs...)
		} else {
			logger.Info("API request completed", logArgs...)
		}
	})
}
