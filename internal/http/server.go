// Package http exposes the expense store and the analytics engine as a JSON
// API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"spendlens/internal/log"
	"spendlens/internal/middleware/ratelimit"
	"spendlens/internal/middleware/security"
	"spendlens/internal/middleware/trace"
	"spendlens/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the routes.
type Deps struct {
	Expenses  *services.ExpenseService
	Analytics *services.AnalyticsService
	Insights  *services.InsightService
	Store     Pinger
}

// Options tune the middleware chain. Zero values fall back to defaults.
type Options struct {
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	Logger             *log.Logger
}

type Server struct {
	http.Server
	expenses  *services.ExpenseService
	analytics *services.AnalyticsService
	insights  *services.InsightService
	store     Pinger

	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	logger   *log.Logger
}

// NewServer builds the router and its middleware chain. Writes are rate
// limited per client IP; reads are not.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}

	s := &Server{
		expenses:  deps.Expenses,
		analytics: deps.Analytics,
		insights:  deps.Insights,
		store:     deps.Store,
		detector:  security.NewDetector(),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		logger: logger.WithComponent(log.ComponentHTTP),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	s.Addr = addr
	s.Handler = s.routes(opts.CORSAllowedOrigins)
	s.ReadTimeout = 10 * time.Second
	s.WriteTimeout = 30 * time.Second
	s.IdleTimeout = 60 * time.Second
	s.MaxHeaderBytes = 1 << 16
	return s
}

func (s *Server) routes(origins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(newCORS(origins).Handler)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		NewJSONResponse().Status(http.StatusTooManyRequests).
			Error("rate limit exceeded, try again later").Write(w)
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limited)
			r.Post("/expenses", s.handleCreateExpense)
			r.Put("/expenses/{id}", s.handleUpdateExpense)
			r.Delete("/expenses/{id}", s.handleDeleteExpense)
			r.Post("/users/{userID}/insights", s.handleGenerateInsights)
		})

		r.Get("/users/{userID}/expenses", s.handleListExpenses)
		r.Get("/users/{userID}/analytics", s.handleAnalytics)
		r.Get("/users/{userID}/insights", s.handleListInsights)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewJSONResponse().Status(http.StatusNotFound).Error("route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewJSONResponse().Status(http.StatusMethodNotAllowed).Error("method not allowed").Write(w)
	})
	return r
}

func newCORS(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization", trace.RequestIDHeader},
		ExposedHeaders: []string{trace.RequestIDHeader, "Retry-After"},
		MaxAge:         300,
	})
}

// Shutdown stops accepting requests, drains in-flight ones and stops the
// limiter's cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	metrics := s.tracer.GetMetrics()
	s.logger.InfoContext(ctx, "HTTP server shutting down",
		"total_requests", metrics.TotalRequests,
		"server_errors", metrics.ServerErrors,
		"rate_limited", s.limiter.Rejected(),
		"suspicious_requests", s.detector.SuspiciousRequests())
	return s.Server.Shutdown(ctx)
}
