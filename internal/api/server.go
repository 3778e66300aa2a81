package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/apiliability/site/internal/config"
	"github.com/apiliability/site/internal/layout"
	"github.com/apiliability/site/internal/notify"
	"github.com/apiliability/site/internal/proposal"
	"github.com/apiliability/site/internal/store"
)

// Notifier accepts events for background delivery.
type Notifier interface {
	Submit(ev notify.Event) error
	Counts() notify.Counts
}

// Deps are the services the API serves. Notifier and Layout may be nil.
type Deps struct {
	Store    *store.Store
	Proposal *proposal.Service
	Notifier Notifier
	Layout   *layout.Instrumented
}

// Server is the HTTP API server for the site.
type Server struct {
	router   chi.Router
	store    *store.Store
	proposal *proposal.Service
	notifier Notifier
	layout   *layout.Instrumented
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store:    deps.Store,
		proposal: deps.Proposal,
		notifier: deps.Notifier,
		layout:   deps.Layout,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/subscribe", s.handleSubscribe)
		r.Post("/contact", s.handleContact)
		r.Get("/news", s.handleListNews)
		r.Get("/scenarios", s.handleListScenarios)
		r.Get("/scenarios/{slug}", s.handleGetScenario)

		r.Get("/proposal", s.handleProposal)
		r.Get("/proposal/pages", s.handleProposalPages)
		r.Get("/proposal/pages/{n}", s.handleProposalPage)
		r.Get("/proposal/export.docx", s.handleProposalExport)

		r.Get("/stats/layout", s.handleLayoutStats)

		// Authenticated endpoints.
		r.Route("/admin", func(r chi.Router) {
			r.Use(AuthMiddleware(s.cfg.AdminPassword, s.log))

			r.Get("/scenarios", s.handleAdminListScenarios)
			r.Post("/scenarios", s.handleAdminCreateScenario)
			r.Put("/scenarios", s.handleAdminUpdateScenario)
			r.Delete("/scenarios", s.handleAdminDeleteScenario)

			r.Post("/news", s.handleAdminCreateNews)
			r.Delete("/news/{id}", s.handleAdminDeleteNews)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.log.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
