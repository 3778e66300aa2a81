package notify

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/apiliability/site/internal/store"
)

const (
	KindContactCreated = "contact.created"

	excerptRunes = 100
)

// Event is the JSON payload delivered to the webhook.
type Event struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Reference string    `json:"reference"`
	Email     string    `json:"email"`
	Excerpt   string    `json:"excerpt"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactCreated builds the announcement for a new contact submission.
func ContactCreated(c *store.Contact) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      KindContactCreated,
		Reference: c.Reference,
		Email:     c.Email,
		Excerpt:   Excerpt(c.Body, excerptRunes),
		CreatedAt: c.CreatedAt,
	}
}

// Excerpt returns the first n runes of s, marked with "..." when cut.
func Excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
