// Package server provides the HTTP API for rollcall.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/rollcall/internal/catalog"
	"github.com/hyperjump/rollcall/internal/config"
	"github.com/hyperjump/rollcall/internal/enroll"
	"github.com/hyperjump/rollcall/internal/match"
	"github.com/hyperjump/rollcall/internal/recognition"
	"github.com/hyperjump/rollcall/internal/storage"
)

// WatchService manages the enrollment inbox directories. *watcher.Watcher implements it.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Deps are the components the handlers call into.
type Deps struct {
	Store       storage.Storage
	Pipeline    *enroll.Pipeline
	Matcher     *match.Matcher
	Recognition *recognition.Service
	// Catalog is optional; without it GET /api/v1/records ignores q.
	Catalog catalog.Catalog
	// Watch is optional; without it the inbox routes return 501.
	Watch WatchService
}

// Server is the HTTP server for the rollcall API.
type Server struct {
	deps       Deps
	cfg        *config.Config
	configPath string
	configMu   sync.Mutex
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server. configPath, when set, is where inbox directory
// changes are persisted.
func NewServer(deps Deps, cfg *config.Config, configPath string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	}
	return &Server{
		deps:       deps,
		cfg:        cfg,
		configPath: configPath,
		logger:     logger,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout()))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/enroll", s.handleEnroll)
		r.Post("/compare", s.handleCompare)
		r.Post("/compare/stored", s.handleCompareStored)
		r.Post("/search", s.handleSearch)
		r.Post("/resolve", s.handleResolve)

		r.Get("/records", s.handleListRecords)
		r.Get("/records/{sourceType}/{sourceId}", s.handleGetRecord)
		r.Delete("/records/{sourceType}/{sourceId}", s.handleDeleteRecord)

		r.Get("/status", s.handleStatus)

		r.Get("/inbox/directories", s.handleInboxList)
		r.Post("/inbox/directories", s.handleInboxAdd)
		r.Delete("/inbox/directories", s.handleInboxRemove)
	})
	return r
}

func (s *Server) requestTimeout() time.Duration {
	if s.cfg.Server.RequestTimeout > 0 {
		return s.cfg.Server.RequestTimeout
	}
	return 60 * time.Second
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
