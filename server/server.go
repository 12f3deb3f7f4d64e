// Package server exposes a record registry over HTTP: tool descriptors,
// schemas, payload decoding and agent-backed extraction.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	instruct "github.com/ourstudio-se/ai-instruct-sdk"
)

// Server is an HTTP server for a record registry.
type Server struct {
	router   *chi.Mux
	registry *instruct.Registry
	client   *instruct.Client // Optional
	logger   *slog.Logger
}

// Config for the server.
type Config struct {
	// CORSOrigins defaults to allowing all origins.
	CORSOrigins []string

	// RequestTimeout defaults to 60 seconds.
	RequestTimeout time.Duration

	// MaxBodyBytes limits request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Option configures the server.
type Option func(*Server)

// WithClient enables the extract endpoint.
func WithClient(client *instruct.Client) Option {
	return func(s *Server) {
		s.client = client
	}
}

// New creates a new HTTP server.
func New(registry *instruct.Registry, cfg Config, opts ...Option) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	s := &Server{
		router:   chi.NewRouter(),
		registry: registry,
		logger:   cfg.Logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.setupMiddleware(cfg)
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware(cfg Config) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(loggingMiddleware(s.logger))
	s.router.Use(recoveryMiddleware(s.logger))
	s.router.Use(middleware.Timeout(cfg.RequestTimeout))
	s.router.Use(bodySizeLimitMiddleware(cfg.MaxBodyBytes))

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.healthHandler)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/records", s.listRecordsHandler)
		r.Get("/records/{name}", s.getRecordHandler)
		r.Get("/records/{name}/schema", s.schemaHandler)
		r.Post("/records/{name}/decode", s.decodeHandler)
		r.Post("/records/{name}/extract", s.extractHandler)
	})
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the server.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", slog.String("address", addr))
	return http.ListenAndServe(addr, s.router)
}
