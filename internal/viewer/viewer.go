// Package viewer holds the navigation state of a paginated Document: the
// page sequence for the current width and a cursor bounded to it.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/apiliability/site/internal/markup"
	"github.com/apiliability/site/internal/paginate"
)

// Key is a navigation key.
type Key string

const (
	ArrowLeft  Key = "ArrowLeft"
	ArrowUp    Key = "ArrowUp"
	ArrowRight Key = "ArrowRight"
	ArrowDown  Key = "ArrowDown"
)

// Viewer tracks the current page of one Document. A Viewer is not safe for
// concurrent use; separate instances share no state.
type Viewer struct {
	markup    string
	paginator *paginate.Paginator
	log       *slog.Logger

	pages   []paginate.Page
	current int
	width   int
	pending bool
}

// New creates a Viewer for a Markdown-subset document. The document is
// converted once and never changes for the lifetime of the Viewer.
func New(document string, p *paginate.Paginator, log *slog.Logger) *Viewer {
	return FromMarkup(markup.Convert(document), p, log)
}

// FromMarkup creates a Viewer for a document that has already been
// converted to markup.
func FromMarkup(converted string, p *paginate.Paginator, log *slog.Logger) *Viewer {
	if log == nil {
		log = slog.Default()
	}
	return &Viewer{
		markup:    converted,
		paginator: p,
		log:       log,
		pages:     []paginate.Page{{Number: 1}},
		current:   1,
	}
}

// Mount performs the first pagination pass at width.
func (v *Viewer) Mount(ctx context.Context, width int) error {
	return v.repaginate(ctx, width, "mount")
}

// Resize recomputes pages for a new width and clamps the cursor down when
// the page count shrinks below it.
func (v *Viewer) Resize(ctx context.Context, width int) error {
	return v.repaginate(ctx, width, "resize")
}

func (v *Viewer) repaginate(ctx context.Context, width int, trigger string) error {
	var (
		pages []paginate.Page
		err   error
	)
	if v.paginator == nil {
		err = fmt.Errorf("no paginator: %w", paginate.ErrMeasurementUnavailable)
	} else {
		pages, err = v.paginator.Paginate(ctx, v.markup, width)
	}
	if err != nil {
		// Keep what is on screen; the next trigger retries.
		v.pending = true
		v.width = width
		if errors.Is(err, paginate.ErrMeasurementUnavailable) {
			v.log.Warn("pagination deferred", "trigger", trigger, "width", width, "error", err)
		}
		return fmt.Errorf("%s at width %d: %w", trigger, width, err)
	}

	before := v.current
	v.Apply(width, pages)

	v.log.Debug("paginated",
		"trigger", trigger,
		"width", width,
		"pages", len(pages),
		"cursor", v.current,
		"clamped", before != v.current,
	)
	return nil
}

// Apply installs a page sequence computed elsewhere for width, exactly as a
// successful pass would.
func (v *Viewer) Apply(width int, pages []paginate.Page) {
	if len(pages) == 0 {
		pages = []paginate.Page{{Number: 1}}
	}
	v.pages = pages
	v.width = width
	v.pending = false
	v.current = v.clamp(v.current)
}

// Prev moves back one page. It is a no-op on the first page.
func (v *Viewer) Prev() {
	if v.CanPrev() {
		v.current--
	}
}

// Next moves forward one page. It is a no-op on the last page.
func (v *Viewer) Next() {
	if v.CanNext() {
		v.current++
	}
}

// CanPrev reports whether "previous" is enabled.
func (v *Viewer) CanPrev() bool { return v.current > 1 }

// CanNext reports whether "next" is enabled.
func (v *Viewer) CanNext() bool { return v.current < v.Total() }

// GoTo jumps to page n, clamped into [1, Total()].
func (v *Viewer) GoTo(n int) {
	v.current = v.clamp(n)
}

// GoToInput applies a typed page number. Input that is not a number counts
// as page 1.
func (v *Viewer) GoToInput(s string) {
	n, err := strconv.Atoi(leadingInt(strings.TrimSpace(s)))
	if err != nil || n == 0 {
		n = 1
	}
	v.GoTo(n)
}

// leadingInt returns the optional sign and digits at the start of s, so
// "12abc" reads as 12.
func leadingInt(s string) string {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}

// HandleKey maps arrow keys to navigation. Other keys are ignored and
// HandleKey reports false.
func (v *Viewer) HandleKey(k Key) bool {
	switch k {
	case ArrowLeft, ArrowUp:
		v.Prev()
	case ArrowRight, ArrowDown:
		v.Next()
	default:
		return false
	}
	return true
}

// Current returns the 1-based cursor.
func (v *Viewer) Current() int { return v.current }

// Total returns the page count, never less than 1.
func (v *Viewer) Total() int {
	return max(len(v.pages), 1)
}

// Page returns the active page.
func (v *Viewer) Page() paginate.Page {
	if len(v.pages) == 0 {
		return paginate.Page{Number: 1}
	}
	return v.pages[v.current-1]
}

// Pages returns a copy of the page sequence.
func (v *Viewer) Pages() []paginate.Page {
	out := make([]paginate.Page, len(v.pages))
	copy(out, v.pages)
	return out
}

// Width returns the width of the most recent pagination request.
func (v *Viewer) Width() int { return v.width }

// Pending reports whether the last pagination pass was deferred because
// measurement was unavailable.
func (v *Viewer) Pending() bool { return v.pending }

// Markup returns the converted Document.
func (v *Viewer) Markup() string { return v.markup }

func (v *Viewer) clamp(n int) int {
	return min(max(n, 1), v.Total())
}
