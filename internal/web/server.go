// Package web provides the HTTP server and handlers for the gradebook API.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/gradebook/internal/config"
	"github.com/JonMunkholm/gradebook/internal/core"
	"github.com/JonMunkholm/gradebook/internal/grading"
	"github.com/JonMunkholm/gradebook/internal/history"
	"github.com/JonMunkholm/gradebook/internal/metrics"
	mw "github.com/JonMunkholm/gradebook/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Dependencies are the collaborators a Server serves from.
type Dependencies struct {
	Loader  *core.Loader
	Grading *grading.Store
	History history.Store
	Limiter *core.ImportLimiter

	// Metrics is optional; nil disables /metrics and request metrics.
	Metrics *metrics.Manager

	// Now defaults to time.Now.
	Now func() time.Time
}

// Server is the HTTP server for the gradebook API.
type Server struct {
	cfg     *config.Config
	loader  *core.Loader
	grading *grading.Store
	history history.Store
	limiter *core.ImportLimiter
	metrics *metrics.Manager
	now     func() time.Time

	router *chi.Mux
	server *http.Server
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, deps Dependencies) *Server {
	s := &Server{
		cfg:     cfg,
		loader:  deps.Loader,
		grading: deps.Grading,
		history: deps.History,
		limiter: deps.Limiter,
		metrics: deps.Metrics,
		now:     deps.Now,
		router:  chi.NewRouter(),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.history == nil {
		s.history = history.NewMemoryStore(cfg.Database.HistoryLimit)
	}
	if s.grading == nil {
		s.grading = grading.NewStore(cfg.Data.CacheDir)
	}
	if s.limiter == nil {
		s.limiter = core.NewImportLimiter(cfg.Ingest.MaxConcurrent, cfg.Ingest.MaxWaitTime)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Server.TrustedProxies))
	s.router.Use(mw.Logger)
	if s.metrics != nil {
		s.router.Use(mw.Metrics(s.metrics))
	}
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.CORS(s.cfg.Server.AllowedOrigins))
	s.router.Use(middleware.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}

	// Security hardening
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(mw.RateLimit(s.cfg.Rate.RequestsPerMinute, time.Minute))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)

	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.router.Method(http.MethodGet, s.cfg.Metrics.Path, s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/data-status", s.handleDataStatus)

		// Grading system
		r.Get("/grading-system", s.handleGetGradingSystem)
		r.Post("/grading-system", s.handleSetGradingSystem)

		// Charts
		r.Get("/plot-data", s.handlePlotData)

		// Data and statistics
		r.Get("/students", s.handleStudents)
		r.Get("/students/{studentID}/statistics", s.handleStudentStatistics)
		r.Get("/grades", s.handleGrades)
		r.Get("/statistics", s.handleStatistics)
		r.Get("/subjects", s.handleSubjects)
		r.Get("/new-grades", s.handleNewGrades)

		// Imports
		importRoute := r
		if s.cfg.Rate.Enabled {
			importRoute = r.With(mw.RateLimit(s.cfg.Rate.ImportLimit, time.Minute))
		}
		importRoute.Post("/import", s.handleImport)
		r.Get("/imports", s.handleImports)

		// Export
		r.Get("/export/csv", s.handleExport(exportCSV))
		r.Get("/export/xlsx", s.handleExport(exportXLSX))
		r.Get("/export/html", s.handleExport(exportHTML))
	})
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
