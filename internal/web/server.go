// Package web provides the HTTP shell for running matches: an upload page,
// a JSON API and result downloads.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/icumatch/internal/config"
	"github.com/JonMunkholm/icumatch/internal/store"
	"github.com/JonMunkholm/icumatch/internal/web/middleware"
	"github.com/JonMunkholm/icumatch/internal/web/templates"
)

// Server is the HTTP server for the match shell.
type Server struct {
	cfg      *config.Config
	store    store.Store
	profile  *config.Profile // nil when no profile is configured
	limiter  *RunLimiter
	metrics  *metrics
	validate *validator.Validate
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a Server. profile may be nil, in which case every run
// must send its own column config.
func NewServer(cfg *config.Config, st store.Store, profile *config.Profile) *Server {
	limiter := NewRunLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	s := &Server{
		cfg:      cfg,
		store:    st,
		profile:  profile,
		limiter:  limiter,
		metrics:  newMetrics(limiter),
		validate: newValidator(),
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(s.metrics.instrument)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", templ.Handler(templates.IndexPage(s.indexView())).ServeHTTP)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.handler())

	var readLimit, uploadLimit func(http.Handler) http.Handler
	if s.cfg.Rate.Enabled {
		read := newRateLimiter(s.cfg.Rate.RequestsPerMinute)
		read.onReject = s.metrics.rateLimited.Inc
		readLimit = read.middleware(s)

		upload := newRateLimiter(s.cfg.Rate.UploadLimit)
		upload.onReject = s.metrics.rateLimited.Inc
		uploadLimit = upload.middleware(s)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))
		r.Use(render.SetContentType(render.ContentTypeJSON))
		if readLimit != nil {
			r.Use(readLimit)
		}

		// Stored runs
		r.Get("/runs/latest", s.handleLatestRun)
		r.Get("/runs/{runID}", s.handleGetRun)
		r.Get("/runs/{runID}/export", s.handleExportRun)

		// Uploads
		r.Group(func(r chi.Router) {
			if uploadLimit != nil {
				r.Use(uploadLimit)
			}
			r.Post("/inspect", s.handleInspect)
			r.Post("/match", s.handleMatch)
			r.Post("/episodes/derive", s.handleDeriveEpisodes)
			r.Post("/cases/lookup", s.handleCaseLookup)
		})
	})
}

func (s *Server) indexView() templates.IndexView {
	v := templates.IndexView{
		Variant:     s.cfg.Matching.Variant,
		Strategy:    s.cfg.Matching.Strategy,
		WardPattern: s.cfg.Matching.WardPattern,
		MaxUploadMB: s.cfg.Upload.MaxFileSize >> 20,
	}
	if s.profile != nil {
		v.ProfileName = s.profile.Name
		if s.profile.WardPattern != "" {
			v.WardPattern = s.profile.WardPattern
		}
	}
	return v
}

// Start begins listening for HTTP requests.
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

// Shutdown lets runs in progress finish, then stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if active := s.limiter.ActiveCount(); active > 0 {
		slog.Info("waiting for runs to complete", "active", active)
		if err := s.limiter.WaitForDrain(ctx); err != nil {
			slog.Warn("runs did not complete in time", "error", err)
		}
	}
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
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// The upload page carries its script and styles inline.
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}

			next.ServeHTTP(w, r)
		})
	}
}
