package paginate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// PageHeight is the page-height budget in layout pixels.
const PageHeight = 800

// Block is one measured unit of page content.
type Block struct {
	Markup string
	Height float64
}

// Page is a contiguous run of blocks. Pages are numbered from 1.
type Page struct {
	Number int
	Blocks []Block
	Height float64 // Sum of block heights.
}

// Content returns the concatenated markup of the page's blocks.
func (p Page) Content() string {
	var sb strings.Builder
	for _, b := range p.Blocks {
		sb.WriteString(b.Markup)
	}
	return sb.String()
}

// Oversized reports whether the page exceeds the budget. Only a page holding
// a single block taller than the budget can be oversized.
func (p Page) Oversized() bool {
	return p.Height > PageHeight
}

// Paginator splits markup into pages using a measurement surface.
type Paginator struct {
	surface Surface
}

// New creates a Paginator that measures with surface.
func New(surface Surface) *Paginator {
	return &Paginator{surface: surface}
}

// Paginate measures every top-level block of markup at width and groups the
// blocks into pages in document order. A new page starts when the next
// block would push the running height past PageHeight and the current page
// already holds something. A block taller than the budget therefore always
// sits alone on its own page.
//
// Empty markup produces one empty page. Measurement failures return
// ErrMeasurementUnavailable and no pages.
func (p *Paginator) Paginate(ctx context.Context, markup string, width int) ([]Page, error) {
	blocks, err := SplitBlocks(markup)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return []Page{{Number: 1}}, nil
	}

	measured, err := p.measure(ctx, blocks, width)
	if err != nil {
		return nil, err
	}
	return Assign(measured), nil
}

// measure acquires a probe for width, measures each block, and releases the
// probe on every return path.
func (p *Paginator) measure(ctx context.Context, blocks []string, width int) (_ []Block, err error) {
	if p.surface == nil {
		return nil, fmt.Errorf("%w: no surface configured", ErrMeasurementUnavailable)
	}

	probe, err := p.surface.Acquire(ctx, width)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire: %v", ErrMeasurementUnavailable, err)
	}
	defer func() {
		if rerr := probe.Release(); rerr != nil && err == nil {
			err = fmt.Errorf("release probe: %w", rerr)
		}
	}()

	out := make([]Block, 0, len(blocks))
	for i, b := range blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h, err := probe.Height(ctx, b)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: block %d: %v", ErrMeasurementUnavailable, i, err)
		}
		if math.IsNaN(h) || math.IsInf(h, 0) || h < 0 {
			return nil, fmt.Errorf("%w: block %d: invalid height %v", ErrMeasurementUnavailable, i, h)
		}
		out = append(out, Block{Markup: b, Height: h})
	}
	return out, nil
}

// Assign groups measured blocks into pages against PageHeight. It never
// returns zero pages.
func Assign(blocks []Block) []Page {
	var pages []Page
	current := Page{Number: 1}

	for _, b := range blocks {
		if current.Height+b.Height > PageHeight && len(current.Blocks) > 0 {
			pages = append(pages, current)
			current = Page{Number: current.Number + 1}
		}
		current.Blocks = append(current.Blocks, b)
		current.Height += b.Height
	}

	if len(current.Blocks) > 0 || len(pages) == 0 {
		pages = append(pages, current)
	}
	return pages
}
