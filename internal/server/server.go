// Package server exposes the mosaic pipeline over HTTP.
//
// Routes:
//
//	POST /v1/mosaics                    build a mosaic from a JSON request
//	GET  /v1/mosaics                    list recent mosaics
//	GET  /v1/mosaics/{id}               describe one mosaic
//	GET  /v1/mosaics/{id}/{artifact}    download one artifact
//	GET  /healthz                       liveness
//
// Errors are JSON bodies of the form {"code": "...", "message": "..."} with
// the status derived from the error code.
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/textmosaic/pkg/observability"
	"github.com/matzehuels/textmosaic/pkg/pipeline"
	"github.com/matzehuels/textmosaic/pkg/store"
)

// Request limits.
const (
	MaxBodyBytes   = 32 << 20
	MaxTextBytes   = 1 << 20
	MaxTexts       = 16
	DefaultListLen = 20
	MaxListLen     = 100

	requestTimeout  = 2 * time.Minute
	shutdownTimeout = 10 * time.Second
)

// Server serves mosaics built by a pipeline runner and kept in a store.
type Server struct {
	runner  *pipeline.Runner
	store   store.Store
	logger  *log.Logger
	fontDir string
	apply   func(*pipeline.Options)
}

// Option configures a Server.
type Option func(*Server)

// WithFontDir lets requests name font files from dir.
func WithFontDir(dir string) Option {
	return func(s *Server) { s.fontDir = dir }
}

// WithDefaults sets a function that fills unset request options, usually
// from the config file.
func WithDefaults(apply func(*pipeline.Options)) Option {
	return func(s *Server) { s.apply = apply }
}

// New creates a server. A nil logger logs nowhere.
func New(runner *pipeline.Runner, st store.Store, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{runner: runner, store: st, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router with all routes and middleware installed.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1/mosaics", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/", s.handleList)
		r.Get("/{id}", s.handleGet)
		r.Get("/{id}/{artifact}", s.handleArtifact)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// observe reports every request to the HTTP hooks.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
