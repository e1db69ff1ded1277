package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Server is the HTTP server for the Core War API and the worker's health endpoint.
type Server struct {
	cfg    Config
	logger *otelzap.Logger
	srv    *http.Server

	mu       sync.Mutex
	listener net.Listener
	errCh    chan error
}

// Config holds server configuration.
type Config struct {
	// Port is the TCP port to listen on. Zero picks a free port.
	Port int
	// Playground serves the GraphQL playground at / when an API is mounted.
	Playground bool
	// Gatherer backs /metrics. Defaults to the Prometheus default registry.
	Gatherer prometheus.Gatherer
}

// New creates a server. api is mounted at /graphql when non-nil.
func New(cfg Config, api http.Handler, logger *otelzap.Logger) *Server {
	s := &Server{cfg: cfg, logger: logger}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if api != nil {
		mux.Handle("/graphql", api)
		if cfg.Playground {
			mux.Handle("/", playground.Handler("Core War", "/graphql"))
		}
	}

	s.srv = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler returns the server's routes, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start binds the port and serves in the background. It returns the GraphQL URL once the
// listener is accepting connections.
func (s *Server) Start() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return "", errors.New("server already started")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return "", fmt.Errorf("listening on port %d: %w", s.cfg.Port, err)
	}
	s.listener = ln
	s.errCh = make(chan error, 1)

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
		close(s.errCh)
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	url := fmt.Sprintf("http://localhost:%d/graphql", port)
	s.logger.Info("Server ready", zap.String("url", url), zap.Int("port", port))
	return url, nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	return s.srv.Shutdown(ctx)
}

// Run starts the server and blocks until ctx is cancelled or serving fails.
func (s *Server) Run(ctx context.Context) error {
	if _, err := s.Start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-s.errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
