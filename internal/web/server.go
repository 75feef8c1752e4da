package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/referral-labels/internal/audit"
	"github.com/referral-labels/internal/config"
	"github.com/referral-labels/internal/export"
	"github.com/referral-labels/internal/labels"
	"github.com/referral-labels/internal/store"
	"github.com/referral-labels/internal/telemetry"
	"github.com/referral-labels/internal/web/handlers"
	"github.com/referral-labels/internal/web/middleware"
)

// Deps are the services the server routes to.
type Deps struct {
	Store      store.Store
	Builder    *labels.Builder
	Correction handlers.CorrectionBackend
	Exporter   handlers.Exporter
	Audit      *audit.Tracker
	Logger     *zap.Logger
	Metrics    *telemetry.Metrics
}

// Server represents the web server
type Server struct {
	config     *config.Config
	deps       Deps
	registry   *handlers.Registry
	httpServer *http.Server
	router     *mux.Router
}

// NewServer creates a new web server instance
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("web server needs a store")
	}
	if deps.Builder == nil {
		deps.Builder = labels.NewBuilder(deps.Logger, deps.Metrics)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	server := &Server{
		config:   cfg,
		deps:     deps,
		registry: handlers.NewRegistry(12 * time.Hour),
	}
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // progress streams stay open
		IdleTimeout:  60 * time.Second,
	}
	return server, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	handlerConfig := &handlers.Config{}
	handlerConfig.Features.ExportEnabled = s.config.Features.ExportEnabled && s.deps.Exporter != nil
	handlerConfig.Features.CorrectionEnabled = s.config.Features.CorrectionEnabled && s.deps.Correction != nil
	handlerConfig.Export = export.Options{
		NameFormat: export.NameFormat(s.config.Export.NameFormat),
		Template:   s.config.Export.Template,
		ShowTo:     s.config.Export.ShowTo,
	}

	labelsHandler := &handlers.LabelsHandler{
		Store:   s.deps.Store,
		Builder: s.deps.Builder,
		Audit:   s.deps.Audit,
		Config:  handlerConfig,
	}
	workspacesHandler := &handlers.WorkspacesHandler{
		Store:      s.deps.Store,
		Builder:    s.deps.Builder,
		Correction: s.deps.Correction,
		Exporter:   s.deps.Exporter,
		Registry:   s.registry,
		Config:     handlerConfig,
		Logger:     s.deps.Logger,
		Metrics:    s.deps.Metrics,
	}
	correctionsHandler := &handlers.CorrectionsHandler{Backend: s.deps.Correction, Logger: s.deps.Logger}

	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Stateless label views
	api.HandleFunc("/labels", labelsHandler.ListLabels).Methods("GET")
	api.HandleFunc("/labels/preview", labelsHandler.Preview).Methods("GET")
	api.HandleFunc("/templates", labelsHandler.Templates).Methods("GET")
	api.HandleFunc("/offices/{id}/history", labelsHandler.History).Methods("GET")

	// Edit sessions
	ws := api.PathPrefix("/workspaces").Subrouter()
	ws.HandleFunc("", workspacesHandler.Create).Methods("POST")
	ws.HandleFunc("/{id}", workspacesHandler.Get).Methods("GET")
	ws.HandleFunc("/{id}/refresh", workspacesHandler.Refresh).Methods("POST")
	ws.HandleFunc("/{id}/edit", workspacesHandler.Edit).Methods("POST")
	ws.HandleFunc("/{id}/cells", workspacesHandler.UpdateCells).Methods("PUT")
	ws.HandleFunc("/{id}/save", workspacesHandler.Save).Methods("POST")
	ws.HandleFunc("/{id}/cancel", workspacesHandler.Cancel).Methods("POST")
	ws.HandleFunc("/{id}/reset", workspacesHandler.Reset).Methods("POST")

	if handlerConfig.Features.ExportEnabled {
		ws.HandleFunc("/{id}/export.xlsx", workspacesHandler.ExportExcel).Methods("GET")
		ws.HandleFunc("/{id}/export.pdf", workspacesHandler.ExportPDF).Methods("GET")
	}

	if handlerConfig.Features.CorrectionEnabled {
		ws.HandleFunc("/{id}/corrections", workspacesHandler.StartCorrections).Methods("POST")
		ws.HandleFunc("/{id}/corrections", workspacesHandler.DismissCorrections).Methods("DELETE")
		ws.HandleFunc("/{id}/corrections/apply", workspacesHandler.ApplyCorrections).Methods("POST")
		ws.HandleFunc("/{id}/corrections/progress", workspacesHandler.CorrectionProgress).Methods("GET")

		api.HandleFunc("/corrections/request", correctionsHandler.Request).Methods("POST")
		api.HandleFunc("/corrections/apply", correctionsHandler.Apply).Methods("POST")
	}

	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RequestLogging(s.deps.Logger))
	api.Use(middleware.Authentication(s.config.Server.AuthToken))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("Starting server", zap.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.deps.Logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.deps.Logger.Info("Server stopped")
	return nil
}
