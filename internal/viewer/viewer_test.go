package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/apiliability/site/internal/markup"
	"github.com/apiliability/site/internal/paginate"
)

// widthSurface gives every block the same height, chosen by width.
type widthSurface struct {
	heights map[int]float64
	fail    bool
}

type widthProbe struct{ h float64 }

func (s *widthSurface) Acquire(_ context.Context, width int) (paginate.Probe, error) {
	if s.fail {
		return nil, errors.New("surface detached")
	}
	return widthProbe{h: s.heights[width]}, nil
}

func (p widthProbe) Height(context.Context, string) (float64, error) { return p.h, nil }
func (widthProbe) Release() error                                  { return nil }

func nineParagraphs() string {
	var lines []string
	for i := 1; i <= 9; i++ {
		lines = append(lines, fmt.Sprintf("Paragraph %d.", i))
	}
	return strings.Join(lines, "\n")
}

// At 612 three blocks fit per page (3 pages); at 300 only two (5 pages).
func newTestViewer(t *testing.T, s *widthSurface) *Viewer {
	t.Helper()
	if s.heights == nil {
		s.heights = map[int]float64{612: 250, 300: 400}
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(nineParagraphs(), paginate.New(s), log)
}

func TestViewer_MountPaginates(t *testing.T) {
	v := newTestViewer(t, &widthSurface{})
	if err := v.Mount(context.Background(), 612); err != nil {
		t.Fatalf("mount: %v", err)
	}
	if v.Total() != 3 || v.Current() != 1 || v.Width() != 612 {
		t.Errorf("got total=%d current=%d width=%d", v.Total(), v.Current(), v.Width())
	}
	if v.Pending() {
		t.Error("expected no pending pass after successful mount")
	}
	if !strings.Contains(v.Page().Content(), "Paragraph 1.") {
		t.Errorf("page 1 content missing first paragraph: %q", v.Page().Content())
	}
}

func TestViewer_PrevNextBounds(t *testing.T) {
	v := newTestViewer(t, &widthSurface{})
	if err := v.Mount(context.Background(), 612); err != nil {
		t.Fatalf("mount: %v", err)
	}

	if v.CanPrev() {
		t.Error("previous should be disabled on page 1")
	}
	v.Prev()
	if v.Current() != 1 {
		t.Errorf("prev from page 1 moved to %d", v.Current())
	}

	v.Next()
	v.Next()
	if v.Current() != 3 {
		t.Fatalf("expected page 3, got %d", v.Current())
	}
	if v.CanNext() {
		t.Error("next should be disabled on the last page")
	}
	v.Next()
	if v.Current() != 3 {
		t.Errorf("next from last page moved to %d", v.Current())
	}
	v.Prev()
	if v.Current() != 2 {
		t.Errorf("expected page 2, got %d", v.Current())
	}
}

func TestViewer_GoToClamps(t *testing.T) {
	v := newTestViewer(t, &widthSurface{})
	if err := v.Mount(context.Background(), 612); err != nil {
		t.Fatalf("mount: %v", err)
	}

	tests := []struct {
		n    int
		want int
	}{
		{-5, 1},
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 3},
		{99, 3},
	}
	for _, tt := range tests {
		v.GoTo(tt.n)
		if v.Current() != tt.want {
			t.Errorf("GoTo(%d) = %d, want %d", tt.n, v.Current(), tt.want)
		}
	}
}

func TestViewer_GoToInput(t *testing.T) {
	v := newTestViewer(t, &widthSurface{})
	if err := v.Mount(context.Background(), 612); err != nil {
		t.Fatalf("mount: %v", err)
	}

	tests := []struct {
		input string
		want  int
	}{
		{"2", 2},
		{" 3 ", 3},
		{"12", 3},
		{"2abc", 2},
		{"abc", 1},
		{"", 1},
		{"0", 1},
		{"-4", 1},
	}
	for _, tt := range tests {
		v.GoTo(2)
		v.GoToInput(tt.input)
		if v.Current() != tt.want {
			t.Errorf("GoToInput(%q) = %d, want %d", tt.input, v.Current(), tt.want)
		}
	}
}

func TestViewer_HandleKey(t *testing.T) {
	v := newTestViewer(t, &widthSurface{})
	if err := v.Mount(context.Background(), 612); err != nil {
		t.Fatalf("mount: %v", err)
	}

	steps := []struct {
		key     Key
		handled bool
		want    int
	}{
		{ArrowRight, true, 2},
		{ArrowDown, true, 3},
		{ArrowDown, true, 3},
		{ArrowLeft, true, 2},
		{ArrowUp, true, 1},
		{ArrowUp, true, 1},
		{Key("Enter"), false, 1},
	}
	for i, s := range steps {
		if got := v.HandleKey(s.key); got != s.handled {
			t.Errorf("step %d: HandleKey(%s) handled=%v, want %v", i, s.key, got, s.handled)
		}
		if v.Current() != s.want {
			t.Errorf("step %d: after %s current=%d, want %d", i, s.key, v.Current(), s.want)
		}
	}
}

func TestViewer_ResizeKeepsCursorInRange(t *testing.T) {
	v := newTestViewer(t, &widthSurface{})
	if err := v.Mount(context.Background(), 612); err != nil {
		t.Fatalf("mount: %v", err)
	}
	v.GoTo(3)

	if err := v.Resize(context.Background(), 300); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if v.Total() != 5 {
		t.Fatalf("expected 5 pages at width 300, got %d", v.Total())
	}
	if v.Current() != 3 {
		t.Errorf("expected cursor to stay on 3, got %d", v.Current())
	}
}

func TestViewer_ResizeClampsDown(t *testing.T) {
	v := newTestViewer(t, &widthSurface{})
	if err := v.Mount(context.Background(), 300); err != nil {
		t.Fatalf("mount: %v", err)
	}
	v.GoTo(5)

	if err := v.Resize(context.Background(), 612); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if v.Total() != 3 || v.Current() != 3 {
		t.Errorf("expected cursor clamped to 3 of 3, got %d of %d", v.Current(), v.Total())
	}
}

func TestViewer_EmptyDocument(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := New("", paginate.New(&widthSurface{fail: true}), log)
	if err := v.Mount(context.Background(), 612); err != nil {
		t.Fatalf("mount: %v", err)
	}
	if v.Total() != 1 || v.Page().Content() != "" {
		t.Errorf("expected one empty page, got %d pages", v.Total())
	}
	if v.CanPrev() || v.CanNext() {
		t.Error("navigation should be disabled on a single page")
	}
}

func TestViewer_DeferredWhenMeasurementUnavailable(t *testing.T) {
	s := &widthSurface{}
	v := newTestViewer(t, s)
	if err := v.Mount(context.Background(), 612); err != nil {
		t.Fatalf("mount: %v", err)
	}
	v.GoTo(2)
	before := v.Pages()

	s.fail = true
	err := v.Resize(context.Background(), 300)
	if !errors.Is(err, paginate.ErrMeasurementUnavailable) {
		t.Fatalf("expected ErrMeasurementUnavailable, got %v", err)
	}
	if !v.Pending() {
		t.Error("expected pending pass")
	}
	if v.Total() != len(before) || v.Current() != 2 {
		t.Errorf("previous pages not kept: total=%d current=%d", v.Total(), v.Current())
	}

	s.fail = false
	if err := v.Resize(context.Background(), 300); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if v.Pending() || v.Total() != 5 {
		t.Errorf("expected retry to complete with 5 pages, got pending=%v total=%d", v.Pending(), v.Total())
	}
}

func TestViewer_IndependentInstances(t *testing.T) {
	a := newTestViewer(t, &widthSurface{})
	b := newTestViewer(t, &widthSurface{})
	if err := a.Mount(context.Background(), 612); err != nil {
		t.Fatal(err)
	}
	if err := b.Mount(context.Background(), 300); err != nil {
		t.Fatal(err)
	}
	a.Next()
	if b.Current() != 1 || a.Current() != 2 {
		t.Errorf("instances share state: a=%d b=%d", a.Current(), b.Current())
	}
	if a.Total() == b.Total() {
		t.Errorf("expected different totals, both %d", a.Total())
	}
}

func TestViewer_NilPaginatorDefers(t *testing.T) {
	v := New(nineParagraphs(), nil, nil)
	err := v.Mount(context.Background(), 612)
	if !errors.Is(err, paginate.ErrMeasurementUnavailable) {
		t.Fatalf("expected ErrMeasurementUnavailable, got %v", err)
	}
	if !v.Pending() || v.Width() != 612 {
		t.Errorf("got pending=%v width=%d", v.Pending(), v.Width())
	}
	if v.Total() != 1 || v.Current() != 1 {
		t.Errorf("expected the single placeholder page, got total=%d current=%d", v.Total(), v.Current())
	}
	if err := v.Resize(context.Background(), 300); !errors.Is(err, paginate.ErrMeasurementUnavailable) {
		t.Errorf("resize: expected ErrMeasurementUnavailable, got %v", err)
	}
}

func TestFromMarkup_UsesMarkupAsIs(t *testing.T) {
	converted := markup.Convert(nineParagraphs())
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := FromMarkup(converted, paginate.New(&widthSurface{heights: map[int]float64{612: 250}}), log)
	if v.Markup() != converted {
		t.Fatalf("markup was rewritten:\n%s", v.Markup())
	}
	if err := v.Mount(context.Background(), 612); err != nil {
		t.Fatalf("mount: %v", err)
	}

	w := newTestViewer(t, &widthSurface{})
	if err := w.Mount(context.Background(), 612); err != nil {
		t.Fatal(err)
	}
	if v.Total() != w.Total() || v.Page().Content() != w.Page().Content() {
		t.Errorf("FromMarkup and New disagree: %d vs %d pages", v.Total(), w.Total())
	}
}
