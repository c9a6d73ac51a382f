// Package server is the reference shape store: the HTTP/JSON API the canvas
// client synchronises with, backed by internal/storage.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"canvas/internal/config"
	"canvas/internal/domain"
	"canvas/internal/metrics"
)

const maxBodyBytes = 8 << 20

type pinger interface {
	Ping() error
}

type Deps struct {
	DB      pinger
	Shapes  domain.ShapeStore
	Paths   domain.PathStore
	Logger  *zap.Logger
	Metrics *metrics.Collector
	Config  config.ServerConfig
}

type Server struct {
	db       pinger
	shapes   domain.ShapeStore
	paths    domain.PathStore
	log      *zap.Logger
	metrics  *metrics.Collector
	cfg      config.ServerConfig
	validate *validator.Validate
	cron     *cron.Cron
	http     *http.Client
	router   http.Handler
}

func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCollector("canvas")
	}
	s := &Server{
		db:       deps.DB,
		shapes:   deps.Shapes,
		paths:    deps.Paths,
		log:      deps.Logger,
		metrics:  deps.Metrics,
		cfg:      deps.Config,
		validate: validator.New(),
		cron:     cron.New(),
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	s.router = s.routes()
	return s
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.log))
	r.Use(s.metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.health)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v0/shapes", func(r chi.Router) {
		r.Get("/", s.listShapes)
		r.Post("/create", s.createShape)
		r.Post("/batch-update", s.batchUpdate)
		r.Post("/batch-delete", s.batchDelete)
		r.Post("/copy", s.copyShapes)
		r.Post("/{id}/update", s.updateShape)
		r.Post("/{id}/delete", s.deleteShape)
	})

	r.Route("/api/v0/multipage-paths", func(r chi.Router) {
		r.Get("/", s.listPaths)
		r.Post("/create", s.createPath)
		r.Get("/{id}", s.getPath)
		r.Get("/{id}/route", s.routePath)
		r.Post("/{id}/update", s.updatePath)
		r.Post("/{id}/delete", s.deletePath)
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			respondError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Run serves on the configured address until ctx ends, then shuts down
// gracefully. The keepalive job runs alongside when a URL is configured.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.KeepaliveURL != "" {
		if _, err := s.cron.AddFunc(s.cfg.KeepaliveSpec, func() { s.keepalive(ctx) }); err != nil {
			return fmt.Errorf("schedule keepalive %q: %w", s.cfg.KeepaliveSpec, err)
		}
		s.cron.Start()
		defer s.cron.Stop()
	}

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("shape store listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info("shutting down shape store")
	return srv.Shutdown(shutdownCtx)
}

// keepalive pings the configured URL so hosted instances are not idled.
func (s *Server) keepalive(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.KeepaliveURL, nil)
	if err != nil {
		s.log.Error("keepalive request", zap.Error(err))
		return
	}
	resp, err := s.http.Do(req)
	if err != nil {
		s.log.Warn("keepalive ping failed", zap.String("url", s.cfg.KeepaliveURL), zap.Error(err))
		return
	}
	resp.Body.Close()
	s.log.Debug("keepalive ping", zap.Int("status", resp.StatusCode))
}
