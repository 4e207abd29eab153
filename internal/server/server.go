// Package server is the preview HTTP API: run history, on-demand frame
// renders and Prometheus metrics.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/me/mandelzoom/internal/config"
	"github.com/me/mandelzoom/internal/export"
	"github.com/me/mandelzoom/internal/logging"
	"github.com/me/mandelzoom/internal/scheduler"
	"github.com/me/mandelzoom/internal/store"
	"github.com/me/mandelzoom/internal/ui"
	"github.com/me/mandelzoom/pkg/fractal"
)

// Server is the preview REST API server.
type Server struct {
	router    chi.Router
	base      *slog.Logger
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time

	zoom      fractal.FrameOptions
	frames    int
	palette   export.Palette
	scheduler *scheduler.Scheduler
	slots     *Semaphore
	previews  *lru.Cache // encoded PNGs by frameKey; nil disables caching

	store    store.Store         // optional; nil serves an empty history
	gatherer prometheus.Gatherer // optional; nil disables /metrics
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithStore sets the run history served under /api/v1/runs.
func WithStore(st store.Store) Option {
	return func(s *Server) {
		s.store = st
	}
}

// WithGatherer exposes g at /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithPalette sets the palette of rendered previews (default grayscale).
func WithPalette(p export.Palette) Option {
	return func(s *Server) {
		s.palette = p
	}
}

// New creates a Server previewing the zoom described by zoom. Frames are
// computed on sched, at most cfg.MaxConcurrentFrames at a time.
func New(cfg config.ServerConfig, zoom fractal.FrameOptions, sched *scheduler.Scheduler, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		base:      logger,
		logger:    logging.Component(logger, "server"),
		config:    cfg,
		startTime: time.Now(),
		zoom:      zoom,
		frames:    zoom.FrameCount(),
		palette:   export.Grayscale{},
		scheduler: sched,
		slots:     NewSemaphore(cfg.MaxConcurrentFrames),
	}
	if cfg.FrameCacheSize > 0 {
		cache, err := lru.New(cfg.FrameCacheSize)
		if err != nil {
			panic(fmt.Sprintf("server: frame cache: %v", err))
		}
		s.previews = cache
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusFound)
	})
	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)
		r.Get("/zoom", s.handleZoom)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Get("/{id}", s.handleGetRun)
		})

		r.Get("/frames/{index}.png", s.handleFramePNG)
	})

	dashboard := ui.New(s.store, s.base, ui.Config{
		Base:      "/ui",
		Zoom:      s.zoom,
		Scheduler: s.scheduler.Strategy().String(),
		Workers:   s.scheduler.Workers(),
	})
	r.Route("/ui", dashboard.RegisterRoutes)
}
