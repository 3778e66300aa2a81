package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goliatone/go-slug"

	"github.com/apiliability/site/internal/paginate"
	"github.com/apiliability/site/internal/proposal"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

type pageSummary struct {
	Number    int     `json:"number"`
	Height    float64 `json:"height"`
	Oversized bool    `json:"oversized"`
	Blocks    int     `json:"blocks"`
	Content   string  `json:"content"`
}

func (s *Server) handleProposal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"title":  s.proposal.Title(),
		"markup": s.proposal.Markup(),
		"blocks": s.proposal.BlockCount(),
	})
}

func (s *Server) handleProposalPages(w http.ResponseWriter, r *http.Request) {
	width, ok := queryWidth(w, r)
	if !ok {
		return
	}
	pages, err := s.proposal.Pages(r.Context(), width)
	if err != nil {
		s.paginationError(w, err)
		return
	}
	out := make([]pageSummary, 0, len(pages))
	for _, p := range pages {
		out = append(out, pageSummary{
			Number:    p.Number,
			Height:    p.Height,
			Oversized: p.Oversized(),
			Blocks:    len(p.Blocks),
			Content:   p.Content(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"width": width,
		"total": len(out),
		"pages": out,
	})
}

// handleProposalPage serves one page. A number that does not parse reads as
// page 1 and any number is clamped into range.
func (s *Server) handleProposalPage(w http.ResponseWriter, r *http.Request) {
	width, ok := queryWidth(w, r)
	if !ok {
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		n = 1
	}
	view, err := s.proposal.Page(r.Context(), width, n)
	if err != nil {
		s.paginationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleProposalExport(w http.ResponseWriter, r *http.Request) {
	width, ok := queryWidth(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := s.proposal.ExportDOCX(r.Context(), width, &buf); err != nil {
		s.paginationError(w, err)
		return
	}

	name, err := slug.Normalize(s.proposal.Title())
	if err != nil || name == "" {
		name = "proposal"
	}
	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.docx"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) paginationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, proposal.ErrInvalidWidth):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, paginate.ErrMeasurementUnavailable):
		w.Header().Set("Retry-After", "5")
		jsonError(w, "Layout measurement unavailable", http.StatusServiceUnavailable)
	default:
		s.log.Error("pagination failed", "error", err)
		jsonError(w, "Failed to paginate proposal", http.StatusInternalServerError)
	}
}

// queryWidth reads ?width=, defaulting to the print sheet width.
func queryWidth(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("width")
	if v == "" {
		return proposal.DefaultWidth, true
	}
	width, err := strconv.Atoi(v)
	if err != nil {
		jsonError(w, "width must be an integer", http.StatusBadRequest)
		return 0, false
	}
	return width, true
}
