// Package httpapi exposes the identity service over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/talenthub/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Auth   AuthAPI
	Logger logging.Logger

	// Gatherer backs /metrics. Nil means the default registry.
	Gatherer prometheus.Gatherer

	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error

	AllowedOrigins     []string
	RateLimitPerMinute int
	ServiceName        string
}

// NewRouter builds the chi router with health, readiness, metrics and the
// /api/v1/auth endpoints.
func NewRouter(opts RouterOptions) http.Handler {
	h := &handlers{auth: opts.Auth, logger: opts.Logger.With("module", "httpapi")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	allowed := opts.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if opts.Ready != nil {
			if err := opts.Ready(req.Context()); err != nil {
				h.logger.Warn(req.Context(), "readiness check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("not ready"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/auth", func(r chi.Router) {
		if opts.RateLimitPerMinute > 0 {
			r.Use(httprate.LimitByIP(opts.RateLimitPerMinute, time.Minute))
		}

		r.Post("/register", h.register)
		r.Get("/verify-email", h.verifyEmail)
		r.Post("/login", h.login)
		r.Post("/verify-2fa", h.verify2FA)
		r.Post("/refresh", h.refresh)

		r.Group(func(pr chi.Router) {
			pr.Use(h.authenticate)
			pr.Post("/logout", h.logout)
			pr.Get("/me", h.me)
		})
	})

	service := opts.ServiceName
	if service == "" {
		service = "talenthub-auth"
	}
	return otelhttp.NewHandler(r, service)
}
