package store

import (
	"time"

	"github.com/uptrace/bun"
)

// Subscriber is an email sign-up.
type Subscriber struct {
	bun.BaseModel `bun:"table:email_subscribers"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Email     string    `bun:"email,type:varchar(255),notnull,unique" json:"email"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Contact is a contact form submission.
type Contact struct {
	bun.BaseModel `bun:"table:contact_submissions"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Reference string    `bun:"reference,type:varchar(36),notnull,unique" json:"reference"`
	Email     string    `bun:"email,type:varchar(255),notnull" json:"email"`
	Body      string    `bun:"body,type:text,notnull" json:"body"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// NewsType values used by the site. Other values are stored as given.
const (
	NewsUpdate = "update"
	NewsEvent  = "event"
	NewsPress  = "press"
)

// NewsItem is an entry in the news list.
type NewsItem struct {
	bun.BaseModel `bun:"table:news_items"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Date      time.Time `bun:"date,type:date,notnull" json:"date"`
	Title     string    `bun:"title,type:varchar(500),notnull" json:"title"`
	Summary   string    `bun:"summary,type:text,notnull" json:"summary"`
	Type      string    `bun:"type,type:varchar(50),notnull,default:'update'" json:"type"`
	URL       string    `bun:"url,type:varchar(500),nullzero" json:"url,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Scenario is an illustrative case study with three fixed sections.
type Scenario struct {
	bun.BaseModel `bun:"table:scenarios"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Title       string    `bun:"title,type:varchar(500),notnull" json:"title"`
	Description string    `bun:"description,type:text,notnull" json:"description"`
	Today       string    `bun:"today,type:text,notnull" json:"today"`
	Breakdown   string    `bun:"breakdown,type:text,notnull" json:"breakdown"`
	Solution    string    `bun:"solution,type:text,notnull" json:"solution"`
	Slug        string    `bun:"slug,type:varchar(255),notnull,unique" json:"slug"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updated_at"`
}
