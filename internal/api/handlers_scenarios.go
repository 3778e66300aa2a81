package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/apiliability/site/internal/scenarios"
	"github.com/apiliability/site/internal/store"
)

type scenarioRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Today       string `json:"today"`
	Breakdown   string `json:"breakdown"`
	Solution    string `json:"solution"`
	Slug        string `json:"slug"`
}

var errAllFields = validation.NewError("scenario_fields_required", "All fields are required")

func (req scenarioRequest) Validate() error {
	required := validation.Required.ErrorObject(errAllFields)
	return validation.ValidateStruct(&req,
		validation.Field(&req.Title, required, validation.Length(0, 500)),
		validation.Field(&req.Description, required),
		validation.Field(&req.Today, required),
		validation.Field(&req.Breakdown, required),
		validation.Field(&req.Solution, required),
		validation.Field(&req.Slug, required, validation.Length(0, 255)),
	)
}

func (req scenarioRequest) record() *store.Scenario {
	return &store.Scenario{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Today:       req.Today,
		Breakdown:   req.Breakdown,
		Solution:    req.Solution,
		Slug:        strings.TrimSpace(req.Slug),
	}
}

var scenarioFields = []string{"slug", "title", "description", "today", "breakdown", "solution"}

// scenarioView carries each section as Markdown and rendered HTML.
type scenarioView struct {
	Slug        string  `json:"slug"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Today       section `json:"today"`
	Breakdown   section `json:"breakdown"`
	Solution    section `json:"solution"`
}

type section struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

func newScenarioView(sc *store.Scenario) (*scenarioView, error) {
	v := &scenarioView{Slug: sc.Slug, Title: sc.Title, Description: sc.Description}
	for _, part := range []struct {
		dst *section
		md  string
	}{
		{&v.Today, sc.Today},
		{&v.Breakdown, sc.Breakdown},
		{&v.Solution, sc.Solution},
	} {
		html, err := scenarios.RenderHTML(part.md)
		if err != nil {
			return nil, err
		}
		*part.dst = section{Markdown: part.md, HTML: html}
	}
	return v, nil
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListScenarios(r.Context())
	if err != nil {
		s.log.Error("list scenarios failed", "error", err)
		jsonError(w, "Failed to fetch scenarios", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenarios": list})
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := s.store.ScenarioBySlug(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "Scenario not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("get scenario failed", "error", err)
		jsonError(w, "Failed to fetch scenario", http.StatusInternalServerError)
		return
	}
	view, err := newScenarioView(sc)
	if err != nil {
		s.log.Error("render scenario failed", "slug", sc.Slug, "error", err)
		jsonError(w, "Failed to render scenario", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAdminListScenarios(w http.ResponseWriter, r *http.Request) {
	s.handleListScenarios(w, r)
}

func (s *Server) handleAdminCreateScenario(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		jsonError(w, firstError(err, scenarioFields...), http.StatusBadRequest)
		return
	}

	sc := req.record()
	if err := s.store.CreateScenario(r.Context(), sc); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			jsonError(w, "A scenario with this slug already exists", http.StatusConflict)
			return
		}
		s.log.Error("create scenario failed", "slug", sc.Slug, "error", err)
		jsonError(w, "Failed to create scenario", http.StatusInternalServerError)
		return
	}
	s.log.Info("scenario created", "slug", sc.Slug)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Scenario created successfully", "scenario": sc})
}

func (s *Server) handleAdminUpdateScenario(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		jsonError(w, firstError(err, scenarioFields...), http.StatusBadRequest)
		return
	}

	sc := req.record()
	if err := s.store.UpdateScenario(r.Context(), sc.Slug, sc); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "Scenario not found", http.StatusNotFound)
			return
		}
		s.log.Error("update scenario failed", "slug", sc.Slug, "error", err)
		jsonError(w, "Failed to update scenario", http.StatusInternalServerError)
		return
	}
	s.log.Info("scenario updated", "slug", sc.Slug)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Scenario updated successfully"})
}

func (s *Server) handleAdminDeleteScenario(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(r.URL.Query().Get("slug"))
	if slug == "" {
		jsonError(w, "Slug is required", http.StatusBadRequest)
		return
	}
	if err := s.store.DeleteScenario(r.Context(), slug); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "Scenario not found", http.StatusNotFound)
			return
		}
		s.log.Error("delete scenario failed", "slug", slug, "error", err)
		jsonError(w, "Failed to delete scenario", http.StatusInternalServerError)
		return
	}
	s.log.Info("scenario deleted", "slug", slug)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Scenario deleted successfully"})
}
