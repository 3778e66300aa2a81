// Package store persists site content: email subscribers, contact
// submissions, news items and scenarios.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Store is a bun-backed repository over PostgreSQL or SQLite.
type Store struct {
	db *bun.DB
}

// New wraps an existing bun database.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// Open connects using the scheme of dsn: postgres:// or postgresql:// for
// PostgreSQL, sqlite:// or file: or :memory: for SQLite.
func Open(dsn string) (*Store, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return New(bun.NewDB(sqldb, pgdialect.New())), nil

	case strings.HasPrefix(dsn, "sqlite://"), strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		sqldb, err := sql.Open("sqlite3", strings.TrimPrefix(dsn, "sqlite://"))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// SQLite allows one writer; a single connection also keeps an
		// in-memory database alive across calls.
		sqldb.SetMaxOpenConns(1)
		return New(bun.NewDB(sqldb, sqlitedialect.New())), nil

	default:
		return nil, fmt.Errorf("unsupported database url %q", redact(dsn))
	}
}

// DB exposes the underlying bun handle.
func (s *Store) DB() *bun.DB { return s.db }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates any missing table. It is safe to run repeatedly.
func (s *Store) EnsureSchema(ctx context.Context) error {
	models := []any{
		(*Subscriber)(nil),
		(*Contact)(nil),
		(*NewsItem)(nil),
		(*Scenario)(nil),
	}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}
	return nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AddSubscriber records an email sign-up. Signing up twice is not an
// error; created reports whether a new row was written.
func (s *Store) AddSubscriber(ctx context.Context, email string) (created bool, err error) {
	sub := &Subscriber{Email: NormalizeEmail(email), CreatedAt: time.Now().UTC()}
	res, err := s.db.NewInsert().
		Model(sub).
		On("CONFLICT (email) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert subscriber: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountSubscribers returns the number of sign-ups.
func (s *Store) CountSubscribers(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*Subscriber)(nil)).Count(ctx)
}

// AddContact stores a contact submission under a fresh reference.
func (s *Store) AddContact(ctx context.Context, email, body string) (*Contact, error) {
	c := &Contact{
		Reference: uuid.NewString(),
		Email:     NormalizeEmail(email),
		Body:      strings.TrimSpace(body),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(c).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert contact: %w", err)
	}
	return c, nil
}

// ListNews returns news items, newest date first.
func (s *Store) ListNews(ctx context.Context) ([]NewsItem, error) {
	items := make([]NewsItem, 0)
	err := s.db.NewSelect().
		Model(&items).
		OrderExpr("date DESC").
		OrderExpr("id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}
	return items, nil
}

// CreateNews inserts a news item. An empty type defaults to "update".
func (s *Store) CreateNews(ctx context.Context, item *NewsItem) error {
	if item.Type == "" {
		item.Type = NewsUpdate
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if _, err := s.db.NewInsert().Model(item).Exec(ctx); err != nil {
		return fmt.Errorf("insert news: %w", err)
	}
	return nil
}

// DeleteNews removes a news item by id.
func (s *Store) DeleteNews(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*NewsItem)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete news: %w", err)
	}
	return requireRow(res)
}

// ListScenarios returns scenarios in creation order.
func (s *Store) ListScenarios(ctx context.Context) ([]Scenario, error) {
	items := make([]Scenario, 0)
	err := s.db.NewSelect().
		Model(&items).
		OrderExpr("created_at ASC").
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	return items, nil
}

// ScenarioBySlug returns one scenario or ErrNotFound.
func (s *Store) ScenarioBySlug(ctx context.Context, slug string) (*Scenario, error) {
	sc := new(Scenario)
	err := s.db.NewSelect().Model(sc).Where("slug = ?", slug).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get scenario: %w", err)
	}
	return sc, nil
}

// CreateScenario inserts a scenario. A taken slug yields ErrDuplicate.
func (s *Store) CreateScenario(ctx context.Context, sc *Scenario) error {
	now := time.Now().UTC()
	sc.CreatedAt, sc.UpdatedAt = now, now
	if _, err := s.db.NewInsert().Model(sc).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("scenario %q: %w", sc.Slug, ErrDuplicate)
		}
		return fmt.Errorf("insert scenario: %w", err)
	}
	return nil
}

// UpdateScenario replaces the content of the scenario stored under slug.
// The slug itself does not change.
func (s *Store) UpdateScenario(ctx context.Context, slug string, sc *Scenario) error {
	sc.Slug = slug
	sc.UpdatedAt = time.Now().UTC()
	res, err := s.db.NewUpdate().
		Model(sc).
		Column("title", "description", "today", "breakdown", "solution", "updated_at").
		Where("slug = ?", slug).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update scenario: %w", err)
	}
	return requireRow(res)
}

// DeleteScenario removes the scenario stored under slug.
func (s *Store) DeleteScenario(ctx context.Context, slug string) error {
	res, err := s.db.NewDelete().Model((*Scenario)(nil)).Where("slug = ?", slug).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete scenario: %w", err)
	}
	return requireRow(res)
}

// UpsertScenario inserts a scenario or overwrites the content of the one
// with the same slug, keeping its creation time.
func (s *Store) UpsertScenario(ctx context.Context, sc *Scenario) error {
	now := time.Now().UTC()
	sc.CreatedAt, sc.UpdatedAt = now, now
	_, err := s.db.NewInsert().
		Model(sc).
		On("CONFLICT (slug) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("description = EXCLUDED.description").
		Set("today = EXCLUDED.today").
		Set("breakdown = EXCLUDED.breakdown").
		Set("solution = EXCLUDED.solution").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert scenario %q: %w", sc.Slug, err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrConstraint &&
			(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
	}
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}

// redact hides any password in a connection string.
func redact(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}
