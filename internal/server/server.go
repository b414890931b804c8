// Package server exposes the meeting assistant over a small JSON HTTP API.
//
// Routes:
//
//	GET    /api/meetings[?q=]         list or search meetings
//	POST   /api/meetings              upload audio (multipart field "audio") and process it
//	GET    /api/meetings/{id}         fetch one meeting
//	PATCH  /api/meetings/{id}         rename ({"title": ...})
//	DELETE /api/meetings/{id}         delete (?remove_audio=true also removes the recording)
//	POST   /api/meetings/{id}/ask     answer a question ({"question": ...})
//	GET    /healthz, /readyz          liveness and readiness
//	GET    /metrics                   Prometheus scrape endpoint
//
// Every request passes through [observe.Middleware].
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/B-Dastan/ai-meeting-assistant/internal/health"
	"github.com/B-Dastan/ai-meeting-assistant/internal/observe"
	"github.com/B-Dastan/ai-meeting-assistant/pkg/meeting"
)

const (
	// DefaultMaxUploadBytes caps the size of an uploaded recording.
	DefaultMaxUploadBytes = 512 << 20

	shutdownTimeout = 15 * time.Second
)

// Service is the subset of the application the API serves.
type Service interface {
	ProcessAudio(ctx context.Context, path string) (*meeting.Record, error)
	List(ctx context.Context) ([]meeting.Record, error)
	Get(ctx context.Context, id int64) (*meeting.Record, error)
	Search(ctx context.Context, query string) ([]meeting.Record, error)
	Ask(ctx context.Context, id int64, question string) (string, error)
	Rename(ctx context.Context, id int64, title string) (*meeting.Record, error)
	Delete(ctx context.Context, id int64, removeAudio bool) error
}

// Option is a functional option for configuring a [Server].
type Option func(*Server)

// WithHealth mounts h on /healthz and /readyz.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithMetrics records request metrics on m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMetricsHandler serves h on /metrics instead of [promhttp.Handler].
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithMaxUploadBytes caps the request body of an upload. Default: 512 MiB.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) { s.maxUpload = n }
}

// WithClock overrides the time source used to name unnamed uploads.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// Server is the HTTP front end. Create with [New].
type Server struct {
	svc            Service
	uploadsDir     string
	health         *health.Handler
	metrics        *observe.Metrics
	metricsHandler http.Handler
	maxUpload      int64
	now            func() time.Time
	handler        http.Handler
}

// New builds a Server that stores uploads in uploadsDir.
func New(svc Service, uploadsDir string, opts ...Option) *Server {
	s := &Server{
		svc:        svc,
		uploadsDir: uploadsDir,
		maxUpload:  DefaultMaxUploadBytes,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.metricsHandler == nil {
		s.metricsHandler = promhttp.Handler()
	}
	if s.health == nil {
		s.health = health.New()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/meetings", s.handleList)
	mux.HandleFunc("POST /api/meetings", s.handleUpload)
	mux.HandleFunc("GET /api/meetings/{id}", s.handleGet)
	mux.HandleFunc("PATCH /api/meetings/{id}", s.handleRename)
	mux.HandleFunc("DELETE /api/meetings/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/meetings/{id}/ask", s.handleAsk)
	s.health.Register(mux)
	mux.Handle("GET /metrics", s.metricsHandler)

	s.handler = observe.Middleware(s.metrics)(mux)
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is like [Server.ListenAndServe] but uses an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("http server stopped")
	return nil
}
