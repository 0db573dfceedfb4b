// Package server exposes parsing, binding, saved queries and connection
// testing over HTTP.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"sqlviz/internal/graph"
	"sqlviz/internal/logger"
	"sqlviz/internal/store"
	"sqlviz/pkg/config"
)

// Config holds what the server needs at startup.
type Config struct {
	Port       int
	TimeoutSec int
	WebDir     string
	Layout     graph.Layout
	Store      *store.Store
	Database   config.DBConfig
}

// Server serves the JSON API and, optionally, a static UI.
type Server struct {
	port       int
	timeoutSec int
	webDir     string
	builder    graph.Builder
	store      *store.Store
	validate   *validator.Validate

	activeMu sync.RWMutex
	active   config.DBConfig
}

func init() {
	middleware.DefaultLogger = middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  log.New(logger.Writer{Level: logger.LevelInfo}, "", 0),
		NoColor: true,
	})
}

// New creates a server. cfg.Database becomes the active connection when set.
// A zero cfg.Layout means graph.DefaultLayout.
func New(cfg Config) *Server {
	var builder graph.Builder
	if cfg.Layout != (graph.Layout{}) {
		layout := cfg.Layout
		builder.Layout = &layout
	}
	return &Server{
		port:       cfg.Port,
		timeoutSec: cfg.TimeoutSec,
		webDir:     cfg.WebDir,
		builder:    builder,
		store:      cfg.Store,
		validate:   validator.New(),
		active:     cfg.Database,
	}
}

// setActive sets the active database connection
func (s *Server) setActive(db config.DBConfig) {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	s.active = db
}

// getActive returns the active database connection
func (s *Server) getActive() config.DBConfig {
	s.activeMu.RLock()
	defer s.activeMu.RUnlock()
	return s.active
}

// Routes returns the router with all middleware and endpoints.
func (s *Server) Routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Route("/api", func(r chi.Router) {
		r.Post("/parse", s.handleParse)
		r.Post("/bind", s.handleBind)

		r.Post("/connect", s.handleConnect)
		r.Get("/connection", s.handleGetConnection)
		r.Put("/connection", s.handlePutConnection)
		r.Get("/schema", s.handleScanSchema)
		r.Get("/schema/latest", s.handleLatestSchema)

		r.Route("/queries", func(r chi.Router) {
			r.Get("/", s.handleListQueries)
			r.Post("/", s.handleCreateQuery)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetQuery)
				r.Put("/", s.handleUpdateQuery)
				r.Delete("/", s.handleDeleteQuery)
				r.Post("/restore", s.handleRestoreQuery)
				r.Get("/graph", s.handleQueryGraph)
			})
		})
	})

	if s.webDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.webDir)))
	}
	return r
}

// Serve listens on the configured port until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	eg.Go(func() error {
		logger.Info("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logger.Debug("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
