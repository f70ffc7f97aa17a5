package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/autopeer-io/assistcart/internal/pkg/metrics"
	"github.com/autopeer-io/assistcart/pkg/log"
	"github.com/autopeer-io/assistcart/pkg/options"
)

// Server exposes the command and status API.
type Server struct {
	server  *http.Server
	options *options.HttpOptions
}

// NewServer builds the router for svc.
func NewServer(opts *options.HttpOptions, svc CommandService) *Server {
	return &Server{
		server: &http.Server{
			Addr:         opts.Addr,
			Handler:      NewHandler(opts, svc),
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
		},
		options: opts,
	}
}

// NewHandler returns the API handler with CORS and request middleware applied.
func NewHandler(opts *options.HttpOptions, svc CommandService) http.Handler {
	h := &handler{svc: svc}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware, loggingMiddleware)

	r.HandleFunc("/command", h.handleCommand).Methods(http.MethodPost)
	r.HandleFunc("/status", h.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/fuel", h.handleFuel).Methods(http.MethodPost)
	r.HandleFunc("/emergency", h.handleEmergency).Methods(http.MethodPost)
	r.HandleFunc("/reset", h.handleReset).Methods(http.MethodPost)

	// Basic Liveness Probe
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	// Readiness Probe: ready once the serial link accepts writes.
	r.HandleFunc("/readyz", h.handleReady).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	log.Info("Starting HTTP Server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("Shutting down HTTP Server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
