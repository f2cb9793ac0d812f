// Package server hosts graph documents and live views over HTTP.
//
// Documents are stored in memory under a generated id. A document can be
// rendered headlessly in one request, or mounted as a live view that keeps
// simulating on its own event loop and accepts pointer and resize events.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/TFMV/forcegraph/config"
	"github.com/TFMV/forcegraph/eventloop"
	"github.com/TFMV/forcegraph/metrics"
	"github.com/TFMV/forcegraph/models"
	"github.com/TFMV/forcegraph/view"
)

// Server is the HTTP host.
type Server struct {
	cfg     *config.Config
	logger  *log.Logger
	metrics *metrics.Registry
	router  *mux.Router

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	graphs map[string]*models.GraphDocument
	views  map[string]*hostedView
}

// hostedView is a live view and the loop that owns it. Every access to view
// goes through loop.Do.
type hostedView struct {
	id      string
	graphID string
	loop    *eventloop.Loop
	view    *view.View
	created time.Time
}

// New creates a server. A nil registry uses the process-wide one.
func New(cfg *config.Config, logger *log.Logger, reg *metrics.Registry) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:     cfg,
		logger:  logger.WithPrefix("server"),
		metrics: reg,
		ctx:     ctx,
		cancel:  cancel,
		graphs:  make(map[string]*models.GraphDocument),
		views:   make(map[string]*hostedView),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/graphs", s.createGraph).Methods("POST")
	api.HandleFunc("/graphs", s.listGraphs).Methods("GET")
	api.HandleFunc("/graphs/{id}", s.getGraph).Methods("GET")
	api.HandleFunc("/graphs/{id}", s.deleteGraph).Methods("DELETE")
	api.HandleFunc("/graphs/{id}/render", s.renderGraph).Methods("GET")
	api.HandleFunc("/graphs/{id}/layout", s.layoutGraph).Methods("GET")
	api.HandleFunc("/graphs/{id}/views", s.createView).Methods("POST")

	api.HandleFunc("/views/{id}", s.getView).Methods("GET")
	api.HandleFunc("/views/{id}", s.deleteView).Methods("DELETE")
	api.HandleFunc("/views/{id}/events", s.postEvent).Methods("POST")
	api.HandleFunc("/views/{id}/frame", s.getFrame).Methods("GET")

	router.HandleFunc("/health", s.health).Methods("GET")
	router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	router.Use(s.recoveryMiddleware)
	router.Use(s.loggingMiddleware)
	router.Use(s.metricsMiddleware)
	return router
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully and closes every live view.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close stops every live view.
func (s *Server) Close() {
	s.mu.Lock()
	views := s.views
	s.views = make(map[string]*hostedView)
	s.mu.Unlock()

	for _, hv := range views {
		s.stopView(hv)
	}
	s.cancel()
}

func (s *Server) stopView(hv *hostedView) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := hv.loop.Do(ctx, hv.view.Close); err != nil {
		s.logger.Warn("view did not close cleanly", "view", hv.id, "err", err)
	}
	hv.loop.Close()
}

// abandonView tears down a view whose setup callback may still be queued.
// The teardown is posted behind it, so it only touches hv.view on the loop.
func (s *Server) abandonView(hv *hostedView) {
	if !hv.loop.Post(func() {
		if hv.view != nil {
			hv.view.Close()
		}
		hv.loop.Close()
	}) {
		hv.loop.Close()
	}
}

func (s *Server) graph(id string) (*models.GraphDocument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.graphs[id]
	return doc, ok
}

func (s *Server) hosted(id string) (*hostedView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hv, ok := s.views[id]
	return hv, ok
}
