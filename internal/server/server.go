// Package server exposes health, Prometheus metrics and a small read-only
// JSON API over stored comments and activity.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thinkscotty/outreach/internal/auth"
	"github.com/thinkscotty/outreach/internal/config"
	"github.com/thinkscotty/outreach/internal/logger"
	"github.com/thinkscotty/outreach/internal/models"
)

// Store is the read side of the database the API serves.
type Store interface {
	ListComments(ctx context.Context, p models.Platform, limit int) ([]models.Comment, error)
	RecentGenerations(ctx context.Context, limit int) ([]models.GenerationLog, error)
	ListDomainChecks(ctx context.Context, status models.DomainStatus, limit int) ([]models.DomainCheck, error)
	GetStats(ctx context.Context) (models.Stats, error)
}

type Server struct {
	cfg      config.ServerConfig
	store    Store
	gatherer prometheus.Gatherer
	verifier *auth.Verifier
	log      logger.Logger
	version  string
	started  time.Time
	httpSrv  *http.Server
}

func New(cfg config.ServerConfig, store Store, gatherer prometheus.Gatherer, log logger.Logger, version string) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.NewRegistry()
	}
	s := &Server{
		cfg:      cfg,
		store:    store,
		gatherer: gatherer,
		verifier: auth.NewVerifier(cfg.APIKeyHash),
		log:      log,
		version:  version,
		started:  time.Now(),
	}
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)
	return s.recoverer(s.requestLogger(mux))
}

// Start listens until Shutdown is called. Shutdown before Start makes
// Start return immediately.
func (s *Server) Start() error {
	s.log.Info("Starting server", logger.String("addr", s.httpSrv.Addr), logger.Bool("api_enabled", s.verifier.Enabled()))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	mux.Handle("GET /api/v1/comments", s.requireAPIKey(http.HandlerFunc(s.handleAPIComments)))
	mux.Handle("GET /api/v1/generations", s.requireAPIKey(http.HandlerFunc(s.handleAPIGenerations)))
	mux.Handle("GET /api/v1/domains", s.requireAPIKey(http.HandlerFunc(s.handleAPIDomains)))
	mux.Handle("GET /api/v1/stats", s.requireAPIKey(http.HandlerFunc(s.handleAPIStats)))
}
