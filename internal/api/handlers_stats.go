package api

import (
	"net/http"
)

func (s *Server) handleLayoutStats(w http.ResponseWriter, r *http.Request) {
	if s.layout == nil || s.layout.Stats == nil {
		jsonError(w, "layout stats unavailable", http.StatusServiceUnavailable)
		return
	}

	body := map[string]any{
		"backend":       s.layout.Name(),
		"stats":         s.layout.Stats.Snapshot(),
		"cached_widths": s.proposal.CachedWidths(),
	}
	if s.notifier != nil {
		body["notify"] = s.notifier.Counts()
	}
	writeJSON(w, http.StatusOK, body)
}
