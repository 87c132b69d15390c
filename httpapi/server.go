// Package httpapi serves the item API over plain HTTP for local development.
//
// The caller subject is trusted from a request header instead of an upstream
// authorizer, so this server must never be exposed publicly.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jacentio/lakitu/router"
	"github.com/jacentio/lakitu/store"
)

// MetricsPath serves the prometheus metrics.
const MetricsPath = "/metrics"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// Options configures a Server.
type Options struct {
	// Addr is the listen address. Default: ":8080"
	Addr string

	// SubjectHeader carries the caller subject. Default: "X-Lakitu-Subject"
	SubjectHeader string
}

// Server is the development HTTP server.
type Server struct {
	httpServer *http.Server
	router     *router.Router
	options    Options
	logger     *zap.Logger
	registry   *prometheus.Registry
	metrics    *Metrics
}

// New creates a new Server around r.
func New(r *router.Router, opts Options, logger *zap.Logger) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.SubjectHeader == "" {
		opts.SubjectHeader = "X-Lakitu-Subject"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		router:   r,
		options:  opts,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	s.metrics = NewMetrics(s.registry)

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

// Handler returns the full middleware-wrapped handler. Handlers returned by
// repeated calls share the server's metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.Handle("/", http.HandlerFunc(s.serveAPI))

	chain := Chain(
		Recovery(s.logger),
		RequestID(),
		s.metrics.Middleware(s.routeOf),
		Logging(s.logger),
	)
	return chain(mux)
}

func (s *Server) routeOf(r *http.Request) string {
	if r.URL.Path == MetricsPath {
		return "metrics"
	}
	if name := s.router.RouteOf(router.Request{Method: r.Method, Path: r.URL.Path}); name != "" {
		return name
	}
	return "unmatched"
}

// serveAPI translates an HTTP request into a router call.
func (s *Server) serveAPI(w http.ResponseWriter, r *http.Request) {
	req := router.Request{
		Method:    r.Method,
		Path:      r.URL.Path,
		Origin:    r.Header.Get("Origin"),
		RequestID: requestIDFrom(r.Context()),
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		message := "request body could not be read"
		if errors.As(err, &maxErr) {
			message = "request body too large"
		} else {
			s.logger.Warn("read request body",
				zap.String("request_id", req.RequestID),
				zap.Error(err),
			)
		}
		writeResponse(w, s.router.Formatter().Error(req.Origin, &store.ValidationError{
			Field:   "body",
			Message: message,
		}))
		return
	}
	req.Body = string(body)

	var caller *router.Identity
	if sub := r.Header.Get(s.options.SubjectHeader); sub != "" {
		caller = &router.Identity{Subject: sub}
	}

	writeResponse(w, s.router.Handle(r.Context(), req, caller))
}

func writeResponse(w http.ResponseWriter, resp router.Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.Status)
	if resp.Body != "" {
		_, _ = io.WriteString(w, resp.Body)
	}
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("address", s.options.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server listen and serve: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server shutdown complete")
	return nil
}
