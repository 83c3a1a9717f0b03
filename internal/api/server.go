// Package api serves the HTTP query surface over the store.
//
// The server handles CORS, request logging, parameter validation, and
// dispatches to the discovery, query, summary, and export handlers.
package api

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vigil-sys/vigil/config"
	"github.com/vigil-sys/vigil/internal/logging"
	"github.com/vigil-sys/vigil/internal/metrics"
	"github.com/vigil-sys/vigil/internal/store"
)

var log = logging.Component("api")

// =============================================================================
// Server Configuration
// =============================================================================

// Config holds the HTTP API settings.
type Config struct {
	// Listen is the address to serve on (e.g. "0.0.0.0:8080").
	Listen string

	// ReadTimeout bounds how long a request may take to arrive,
	// WriteTimeout how long a response may take to drain.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// HostLabel fills the host label on queries that do not pin one.
	HostLabel string

	// Version is reported by /api/status.
	Version string

	// SketchAccuracy is the DDSketch relative accuracy for /api/summary.
	SketchAccuracy float64
}

// =============================================================================
// Server
// =============================================================================

// Server is the HTTP API over a store and its metric registry.
type Server struct {
	cfg      Config
	store    *store.Store
	registry *metrics.Registry

	httpSrv   *http.Server
	startedAt time.Time

	requestID atomic.Uint64
	stored    singleflight.Group
}

// New creates a server. Zero config fields fall back to the package
// defaults.
func New(cfg Config, st *store.Store, reg *metrics.Registry) *Server {
	// Apply defaults
	if cfg.Listen == "" {
		cfg.Listen = config.DefaultListenAddress
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = config.DefaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = config.DefaultWriteTimeout
	}
	if cfg.SketchAccuracy <= 0 {
		cfg.SketchAccuracy = config.DefaultSketchAccuracy
	}

	s := &Server{
		cfg:       cfg,
		store:     st,
		registry:  reg,
		startedAt: time.Now(),
	}
	s.httpSrv = &http.Server{
		Addr:         cfg.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the routed handler with CORS and request logging
// applied. Exposed so tests can drive the API without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/info", s.handleInfo)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/api/stored", s.handleStored)
	mux.HandleFunc("/api/query", s.handleQuery)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/export", s.handleExport)
	mux.HandleFunc("/api/processes", s.handleProcesses)
	mux.HandleFunc("/", s.handleNotFound)
	return s.withLogging(s.withCORS(mux))
}

// Run starts serving and blocks until Stop is called.
func (s *Server) Run() error {
	log.Info("listening", "address", s.cfg.Listen)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains in-flight requests and tears the listener down.
func (s *Server) Stop(ctx context.Context) error {
	log.Info("shutting down")
	err := s.httpSrv.Shutdown(ctx)
	log.Info("shutdown complete")
	return err
}

// =============================================================================
// Middleware
// =============================================================================

// statusRecorder captures the status code a handler writes.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withCORS answers preflight requests and stamps the CORS headers on
// every response. The API is read-only, so all origins are allowed.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging assigns each request an id, threads it through the context
// for downstream log lines, and logs the outcome.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := s.requestID.Add(1)
		ctx := logging.ContextWithRequestID(r.Context(), id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		logging.WithContext(ctx).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}
