// Package httpapi exposes the analyzer over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"lapfinder/internal/httputil"
	"lapfinder/internal/monitoring"
	"lapfinder/internal/service"
)

// DefaultMaxUploadBytes bounds multipart uploads when no limit is configured
const DefaultMaxUploadBytes = 64 << 20

var logf = monitoring.Prefixed("http")

// Server handles the HTTP interface of the analyzer
type Server struct {
	address        string
	service        *service.AnalysisService
	maxUploadBytes int64
	metrics        *Metrics
	server         *http.Server
}

// ServerConfig contains configuration options for the server
type ServerConfig struct {
	Address        string
	Service        *service.AnalysisService
	MaxUploadBytes int64
}

// NewServer creates a new server with the provided configuration
func NewServer(config ServerConfig) *Server {
	s := &Server{
		address:        config.Address,
		service:        config.Service,
		maxUploadBytes: config.MaxUploadBytes,
		metrics:        NewMetrics(),
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = DefaultMaxUploadBytes
	}

	s.server = &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler wrapped in CORS and request logging
func (s *Server) Handler() http.Handler {
	return withCORS(s.setupRoutes())
}

// setupRoutes configures the HTTP routes and handlers
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("POST /analyze", s.instrument("analyze", s.handleAnalyze))
	mux.Handle("GET /runs", s.instrument("runs", s.handleRuns))
	mux.Handle("GET /runs/{id}", s.instrument("run", s.handleRun))
	mux.Handle("DELETE /runs/{id}", s.instrument("run_delete", s.handleDeleteRun))
	mux.Handle("GET /runs/{id}/chart", s.instrument("run_chart", s.handleRunChart))
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logf("Starting HTTP server on %s", s.address)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logf("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		logf("HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		return s.server.Close()
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{"status": "ok"})
}

// withCORS allows any origin, answering preflight requests directly
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Expose-Headers", "X-Run-ID, X-Total-Count")
		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response code for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.observeRequest(route, rec.status, time.Since(start))
		if rec.status >= 400 {
			logf("%s %s -> %d", r.Method, r.URL.Path, rec.status)
		}
	})
}
