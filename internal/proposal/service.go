// Package proposal serves the site's proposal Document: its markup, its
// pages at a given width, and a DOCX export of those pages.
package proposal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/apiliability/site/internal/markup"
	"github.com/apiliability/site/internal/paginate"
	"github.com/apiliability/site/internal/source"
	"github.com/apiliability/site/internal/viewer"
)

// Widths accepted by Pages. The upper bound keeps a single request from
// asking for an absurd layout.
const (
	DefaultWidth = 612
	MinWidth     = 100
	MaxWidth     = 4096
)

var ErrInvalidWidth = fmt.Errorf("width must be between %d and %d", MinWidth, MaxWidth)

// PageView is one page plus the navigation state around it.
type PageView struct {
	Number    int     `json:"number"`
	Total     int     `json:"total"`
	HasPrev   bool    `json:"has_prev"`
	HasNext   bool    `json:"has_next"`
	Width     int     `json:"width"`
	Height    float64 `json:"height"`
	Oversized bool    `json:"oversized"`
	Blocks    int     `json:"blocks"`
	Content   string  `json:"content"`
}

// Service holds one Document loaded at startup.
type Service struct {
	doc       *source.Document
	markup    string
	blocks    int
	paginator *paginate.Paginator
	cache     *pageCache
	flight    singleflight.Group
	log       *slog.Logger

	startOnce sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New converts doc once. A non-positive ttl disables the page cache.
func New(doc *source.Document, p *paginate.Paginator, ttl time.Duration, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	m := markup.Convert(doc.Text)
	blocks, err := paginate.SplitBlocks(m)
	if err != nil {
		return nil, fmt.Errorf("split proposal: %w", err)
	}
	return &Service{
		doc:       doc,
		markup:    m,
		blocks:    len(blocks),
		paginator: p,
		cache:     newPageCache(ttl),
		log:       log.With("component", "proposal"),
	}, nil
}

// Load reads the proposal from path with the loader matching its extension.
func Load(path string, opts source.Options, p *paginate.Paginator, ttl time.Duration, log *slog.Logger) (*Service, error) {
	doc, err := source.LoadFile(path, opts)
	if err != nil {
		return nil, fmt.Errorf("load proposal: %w", err)
	}
	return New(doc, p, ttl, log)
}

// Start sweeps expired cache entries until ctx ends or Stop is called.
// Only the first call starts a sweeper.
func (s *Service) Start(ctx context.Context) {
	s.startOnce.Do(func() { s.start(ctx) })
}

func (s *Service) start(ctx context.Context) {
	if s.cache.ttl <= 0 {
		return
	}
	sweepCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cache.ttl)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n := s.cache.cleanup(); n > 0 {
					s.log.Debug("page cache swept", "removed", n)
				}
			}
		}
	}()
}

func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Service) Title() string    { return s.doc.Title }
func (s *Service) Document() string { return s.doc.Text }
func (s *Service) Markup() string   { return s.markup }

// BlockCount returns the number of top-level blocks in the markup.
func (s *Service) BlockCount() int { return s.blocks }

// Pages returns the page sequence at width. Results are cached per width
// and concurrent misses for one width share a single pagination pass.
func (s *Service) Pages(ctx context.Context, width int) ([]paginate.Page, error) {
	if width < MinWidth || width > MaxWidth {
		return nil, ErrInvalidWidth
	}
	if pages, ok := s.cache.get(width); ok {
		return clonePages(pages), nil
	}

	// The shared pass outlives any one caller, so it must not inherit a
	// single caller's cancellation.
	passCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(strconv.Itoa(width), func() (any, error) {
		return s.paginate(passCtx, width)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return clonePages(res.Val.([]paginate.Page)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) paginate(ctx context.Context, width int) ([]paginate.Page, error) {
	if pages, ok := s.cache.get(width); ok {
		return pages, nil
	}
	start := time.Now()
	pages, err := s.paginator.Paginate(ctx, s.markup, width)
	if err != nil {
		if errors.Is(err, paginate.ErrMeasurementUnavailable) {
			s.log.Warn("pagination unavailable", "width", width, "error", err)
		}
		return nil, err
	}
	s.log.Info("paginated proposal",
		"width", width,
		"pages", len(pages),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	s.cache.put(width, pages)
	return pages, nil
}

// Page returns page n at width. Out-of-range n is clamped, as typed input
// in the viewer is.
func (s *Service) Page(ctx context.Context, width, n int) (*PageView, error) {
	pages, err := s.Pages(ctx, width)
	if err != nil {
		return nil, err
	}
	v := viewer.FromMarkup(s.markup, s.paginator, s.log)
	v.Apply(width, pages)
	v.GoTo(n)

	page := v.Page()
	return &PageView{
		Number:    v.Current(),
		Total:     v.Total(),
		HasPrev:   v.CanPrev(),
		HasNext:   v.CanNext(),
		Width:     width,
		Height:    page.Height,
		Oversized: page.Oversized(),
		Blocks:    len(page.Blocks),
		Content:   page.Content(),
	}, nil
}

// CachedWidths reports how many widths currently have cached pages.
func (s *Service) CachedWidths() int { return s.cache.len() }

func clonePages(pages []paginate.Page) []paginate.Page {
	out := make([]paginate.Page, len(pages))
	for i, p := range pages {
		p.Blocks = append([]paginate.Block(nil), p.Blocks...)
		out[i] = p
	}
	return out
}
