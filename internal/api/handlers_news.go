package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/apiliability/site/internal/store"
)

const dateLayout = "2006-01-02"

type newsRequest struct {
	Date    string `json:"date"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Type    string `json:"type"`
	URL     string `json:"url"`
}

func (req newsRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Date,
			validation.Required.Error("Date is required"),
			validation.Date(dateLayout).Error("Date must be YYYY-MM-DD"),
		),
		validation.Field(&req.Title,
			validation.Required.Error("Title is required"),
			validation.Length(0, 500).Error("Title must be at most 500 characters"),
		),
		validation.Field(&req.Summary, validation.Required.Error("Summary is required")),
		validation.Field(&req.Type,
			validation.In(store.NewsUpdate, store.NewsEvent, store.NewsPress).Error("Type must be update, event or press"),
		),
		validation.Field(&req.URL,
			validation.Length(0, 500).Error("URL must be at most 500 characters"),
			validation.By(func(value any) error {
				v, _ := value.(string)
				if v == "" {
					return nil
				}
				u, err := url.ParseRequestURI(v)
				if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
					return validation.NewError("news_url_invalid", "URL must be an http or https address")
				}
				return nil
			}),
		),
	)
}

// item validates req and converts it to a storable news item. The error
// is the message of the first failing field.
func (req newsRequest) item() (*store.NewsItem, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.New(firstError(err, "date", "title", "summary", "type", "url"))
	}
	date, _ := time.Parse(dateLayout, req.Date)
	return &store.NewsItem{
		Date:    date,
		Title:   strings.TrimSpace(req.Title),
		Summary: req.Summary,
		Type:    req.Type,
		URL:     req.URL,
	}, nil
}

// NewsFromRecord builds a news item from an import row keyed by the JSON
// field names of the admin route, applying the same validation.
func NewsFromRecord(rec map[string]string) (*store.NewsItem, error) {
	return newsRequest{
		Date:    rec["date"],
		Title:   rec["title"],
		Summary: rec["summary"],
		Type:    rec["type"],
		URL:     rec["url"],
	}.item()
}

func (s *Server) handleAdminCreateNews(w http.ResponseWriter, r *http.Request) {
	var req newsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	item, err := req.item()
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.store.CreateNews(r.Context(), item); err != nil {
		s.log.Error("create news failed", "error", err)
		jsonError(w, "Failed to create news item", http.StatusInternalServerError)
		return
	}
	s.log.Info("news created", "id", item.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"news": newsViews([]store.NewsItem{*item})[0]})
}

func (s *Server) handleAdminDeleteNews(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, "Invalid news id", http.StatusBadRequest)
		return
	}
	if err := s.store.DeleteNews(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "News item not found", http.StatusNotFound)
			return
		}
		s.log.Error("delete news failed", "id", id, "error", err)
		jsonError(w, "Failed to delete news item", http.StatusInternalServerError)
		return
	}
	s.log.Info("news deleted", "id", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "News item deleted successfully"})
}
