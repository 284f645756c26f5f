// Package http exposes the budget and points services as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	applog "spendpoints/internal/log"
	"spendpoints/internal/middleware/ratelimit"
	"spendpoints/internal/middleware/security"
	"spendpoints/internal/middleware/trace"
	"spendpoints/internal/services"
)

// Services are the use cases the API serves.
type Services struct {
	Accounts     *services.AccountService
	Categories   *services.CategoryService
	Expenditures *services.ExpenditureService
	Logins       *services.LoginService
	Reports      *services.ReportService
}

// Pinger reports whether a dependency can serve requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the middleware stack.
type Options struct {
	RateLimitPerMinute int
	TrustedProxies     []string
	Logger             *applog.Logger
	// Ready is checked by /readyz; nil means always ready.
	Ready Pinger
}

type Server struct {
	http.Server
	services Services
	ready    Pinger
	now      func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	metrics  *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, svc Services, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Default(applog.ComponentHTTP)
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	limitCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	s := &Server{
		services: svc,
		ready:    opts.Ready,
		now:      time.Now,
		limiter:  ratelimit.NewLimiter(limitCfg),
		detector: detector,
		tracer:   trace.NewMiddleware(logger.WithComponent(applog.ComponentHTTP), detector.ExtractClientIP),
		metrics:  newAppMetrics(),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.rejectRateLimited))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/convert", s.handleConvert)

		r.Post("/houses", s.handleCreateHouse)
		r.Get("/houses", s.handleListHouses)

		r.Post("/users", s.handleCreateUser)
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/", s.handleGetUser)
			r.Get("/overview", s.handleOverview)
			r.Post("/logins", s.handleRecordLogin)

			r.Get("/notifications", s.handleListNotifications)
			r.Post("/notifications/seen", s.handleMarkNotificationsSeen)

			r.Post("/categories", s.handleCreateCategory)
			r.Get("/categories", s.handleListCategories)
			r.Route("/categories/{categoryID}", func(r chi.Router) {
				r.Put("/limit", s.handleUpdateLimit)
				r.Post("/expenditures", s.handleCreateExpenditure)
				r.Get("/progress", s.handleProgress)
				r.Get("/history", s.handleHistory)
			})

			r.Delete("/expenditures/{expenditureID}", s.handleDeleteExpenditure)
		})
	})
	return r
}

func (s *Server) rejectRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).Warn("Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			writeError(w, r, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
