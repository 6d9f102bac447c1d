package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/asad/azurefs/internal/core"
	"github.com/asad/azurefs/internal/logging"
)

// EdgeRouter is the gateway's single entry point. It applies the shared
// middleware stack and dispatches to the registered services.
type EdgeRouter struct {
	router  chi.Router
	logger  logging.Logger
	metrics *Metrics
}

// NewEdgeRouter mounts every service in services under "/"+Name(), plus
// /health and /metrics.
func NewEdgeRouter(services *core.Registry, metrics *Metrics, logger logging.Logger) *EdgeRouter {
	if metrics == nil {
		metrics = NewMetrics()
	}
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLoggingMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"azurefs"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	for _, service := range services.Services() {
		logger.Info("registering service routes",
			logging.String("service", service.Name()),
		)
		r.Route("/"+service.Name(), func(r chi.Router) {
			service.RegisterRoutes(r)
		})
	}

	return &EdgeRouter{
		router:  r,
		logger:  logger,
		metrics: metrics,
	}
}

// ServeHTTP implements http.Handler interface.
func (er *EdgeRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	er.router.ServeHTTP(w, r)
}

// requestLoggingMiddleware logs method, path, status and latency of every
// request.
func requestLoggingMiddleware(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.String("query", r.URL.RawQuery),
				logging.Int("status", ww.Status()),
				logging.Duration("latency_ms", time.Since(start)),
				logging.String("remote_addr", r.RemoteAddr),
				logging.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
