// Package httpapi serves the read-only sensor query surface over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/huangsam/sensorium/core"
	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/internal/metrics"
)

// Server owns the HTTP listener of serve mode.
type Server struct {
	http    *http.Server
	log     *slog.Logger
	started time.Time
	depth   func() int
}

// Option configures a Server.
type Option func(*Server)

// WithQueueDepth reports the worker queue depth on /healthz.
func WithQueueDepth(depth func() int) Option {
	return func(s *Server) { s.depth = depth }
}

// NewServer builds the router for queries on addr.
// A nil collector disables /metrics.
func NewServer(addr string, queries *core.QueryService, collector *metrics.Collector, log *slog.Logger, opts ...Option) *Server {
	if log == nil {
		log = contract.DiscardLogger()
	}
	s := &Server{log: log.With(slog.String("component", "http")), started: time.Now()}
	for _, opt := range opts {
		opt(s)
	}

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.routes(queries, collector),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(queries *core.QueryService, collector *metrics.Collector) *mux.Router {
	h := &handlers{queries: queries, log: s.log}
	router := mux.NewRouter()

	// Routes sit on the root router so a method mismatch answers 405.
	route := func(path, name string, fn http.HandlerFunc) {
		router.Handle(path, collector.WrapHandler(name, fn)).Methods(http.MethodGet)
	}

	route("/healthz", "healthz", s.handleHealth)
	if collector != nil {
		router.Handle("/metrics", collector.Handler()).Methods(http.MethodGet)
	}

	const api = "/api/v1/{kind}"
	route(api+"/raw", "raw", h.handleReadings)
	route(api+"/minutes", "minutes", h.handleMinutes)
	route(api+"/hours", "hours", h.handleHours)
	route(api+"/days", "days", h.handleDays)
	route(api+"/latest", "latest", h.handleLatest)
	route(api+"/stats", "stats", h.handleStats)
	route(api+"/variations", "variations", h.handleVariations)
	route(api+"/compare", "compare", h.handleCompare)
	return router
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server starting", slog.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("http server stopping")
		return s.http.Shutdown(shutdownCtx)
	}
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	QueueDepth int    `json:"queue_depth"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status: "healthy",
		Uptime: time.Since(s.started).Round(time.Second).String(),
	}
	if s.depth != nil {
		resp.QueueDepth = s.depth()
	}
	respondJSON(w, s.log, http.StatusOK, resp)
}
