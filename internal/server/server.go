// Package server exposes the propform HTTP API: saved configurations, the
// properties codec, form rendering, reachability probes and live editing
// sessions over a websocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-propform/internal/telemetry"
	"github.com/goliatone/go-propform/pkg/configs"
	"github.com/goliatone/go-propform/pkg/orchestrator"
	"github.com/goliatone/go-propform/pkg/probe"
	"github.com/goliatone/go-propform/pkg/renderers/vanilla"
	"github.com/goliatone/go-propform/pkg/schema"
)

// Config holds the listener settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
	OwnerHeader     string
	DefaultOwner    string
}

// Pinger reports database health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics records request metrics and serves /metrics.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(s *Server) { s.metrics = metrics }
}

// WithConfigs enables the save API.
func WithConfigs(service *configs.Service) Option {
	return func(s *Server) { s.configs = service }
}

// WithOrchestrator replaces the render pipeline.
func WithOrchestrator(orch *orchestrator.Orchestrator) Option {
	return func(s *Server) { s.orch = orch }
}

// WithProber replaces the reachability prober. The default prober only
// reaches public addresses.
func WithProber(p *probe.Prober) Option {
	return func(s *Server) { s.prober = p }
}

// WithHealthCheck adds a dependency to /healthz.
func WithHealthCheck(p Pinger) Option {
	return func(s *Server) { s.health = p }
}

// WithDefaultSchema sets the document used by requests and websocket
// sessions that do not carry their own schema.
func WithDefaultSchema(doc schema.Document) Option {
	return func(s *Server) { s.defaultSchema = &doc }
}

// Server is the HTTP surface.
type Server struct {
	cfg           Config
	logger        zerolog.Logger
	metrics       *telemetry.Metrics
	configs       *configs.Service
	orch          *orchestrator.Orchestrator
	prober        *probe.Prober
	health        Pinger
	defaultSchema *schema.Document
	openapi       *openapi3.T
	router        chi.Router
}

// New builds the router. It fails when the embedded API description does not
// validate.
func New(cfg Config, opts ...Option) (*Server, error) {
	if cfg.OwnerHeader == "" {
		cfg.OwnerHeader = "X-Propform-Owner"
	}
	if cfg.DefaultOwner == "" {
		cfg.DefaultOwner = "default"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{cfg: cfg, logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.orch == nil {
		s.orch = orchestrator.New(orchestrator.WithLogger(s.logger))
	}
	if s.prober == nil {
		popts := []probe.Option{probe.WithPublicOnly()}
		if s.metrics != nil {
			popts = append(popts, probe.WithObserver(s.metrics.ObserveProbe))
		}
		s.prober = probe.New(popts...)
	}

	doc, err := LoadOpenAPI(context.Background())
	if err != nil {
		return nil, err
	}
	s.openapi = doc
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestID, s.accessLog, middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/openapi.json", s.handleOpenAPI)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServerFS(vanilla.AssetsFS())))

	r.Route("/api", func(r chi.Router) {
		if s.configs != nil {
			r.Route("/configs", func(r chi.Router) {
				r.Get("/", s.listConfigurations)
				r.Post("/", s.createConfiguration)
				r.Get("/with-categories", s.listWithCategories)
				r.Get("/{id}", s.getConfiguration)
				r.Put("/{id}", s.updateConfiguration)
				r.Delete("/{id}", s.deleteConfiguration)
			})
			r.Route("/categories", func(r chi.Router) {
				r.Get("/", s.listCategories)
				r.Post("/", s.createCategory)
				r.Delete("/{id}", s.deleteCategory)
			})
		}
		r.Post("/properties/decode", s.decodeProperties)
		r.Post("/properties/encode", s.encodeProperties)
		r.Post("/forms/render", s.renderForm)
		r.Post("/forms/submit", s.submitForm)
		r.Get("/probe", s.probeURL)
		r.Post("/probe", s.probeURL)
	})

	r.Get("/ws/session", s.handleLiveSession)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info().Msg("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			writeError(w, s.logger, http.StatusServiceUnavailable, "UNAVAILABLE", "database unavailable")
			return
		}
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, s.openapi)
}
