package api

import (
	"net/http"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/apiliability/site/internal/notify"
	"github.com/apiliability/site/internal/store"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func emailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("Email is required"),
		validation.Length(0, 255).Error("Email must be at most 255 characters"),
		validation.Match(emailPattern).Error("Invalid email format"),
	}
}

type subscribeRequest struct {
	Email string `json:"email"`
}

func (req subscribeRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Email, emailRules()...),
	)
}

type contactRequest struct {
	Email string `json:"email"`
	Body  string `json:"body"`
}

func (req contactRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Email, emailRules()...),
		validation.Field(&req.Body,
			validation.Required.Error("Message body is required"),
			validation.By(func(value any) error {
				if len([]rune(strings.TrimSpace(value.(string)))) < 10 {
					return validation.NewError("contact_body_short", "Message must be at least 10 characters")
				}
				return nil
			}),
		),
	)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		jsonError(w, firstError(err, "email"), http.StatusBadRequest)
		return
	}

	created, err := s.store.AddSubscriber(r.Context(), req.Email)
	if err != nil {
		s.log.Error("subscribe failed", "error", err)
		jsonError(w, "Failed to subscribe", http.StatusInternalServerError)
		return
	}
	s.log.Info("subscriber added", "new", created)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully subscribed"})
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		jsonError(w, firstError(err, "email", "body"), http.StatusBadRequest)
		return
	}

	c, err := s.store.AddContact(r.Context(), req.Email, req.Body)
	if err != nil {
		s.log.Error("contact failed", "error", err)
		jsonError(w, "Failed to send message", http.StatusInternalServerError)
		return
	}
	log := s.log.With("reference", c.Reference)
	log.Info("contact submission stored")

	if s.notifier != nil {
		if err := s.notifier.Submit(notify.ContactCreated(c)); err != nil {
			log.Warn("contact notification not queued", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Message sent successfully",
		"reference": c.Reference,
	})
}

func (s *Server) handleListNews(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListNews(r.Context())
	if err != nil {
		s.log.Error("list news failed", "error", err)
		jsonError(w, "Failed to fetch news", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"news": newsViews(items)})
}

// newsView renders the date without a time component.
type newsView struct {
	ID      int64  `json:"id"`
	Date    string `json:"date"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Type    string `json:"type"`
	URL     string `json:"url,omitempty"`
}

func newsViews(items []store.NewsItem) []newsView {
	out := make([]newsView, 0, len(items))
	for _, n := range items {
		out = append(out, newsView{
			ID:      n.ID,
			Date:    n.Date.Format(dateLayout),
			Title:   n.Title,
			Summary: n.Summary,
			Type:    n.Type,
			URL:     n.URL,
		})
	}
	return out
}
