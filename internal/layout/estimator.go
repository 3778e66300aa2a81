// Package layout provides measurement surfaces for the pagination engine.
package layout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/apiliability/site/internal/paginate"
	"github.com/mattn/go-runewidth"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SheetPadding is the padding on each side of a page sheet, in pixels.
const SheetPadding = 40

// Advance of a one-cell rune and of a space, as fractions of the font size.
const (
	glyphRatio = 0.5
	spaceRatio = 0.28
)

var errProbeReleased = errors.New("probe already released")

// blockStyle holds the box metrics of one element type.
type blockStyle struct {
	fontSize     float64
	lineHeight   float64
	marginTop    float64
	marginBottom float64
	indent       float64
}

// Metrics mirror the viewer stylesheet: text-sm body, leading-relaxed
// paragraphs and the heading, list and margin utility classes.
var (
	styleBody    = blockStyle{fontSize: 14, lineHeight: 20}
	styleH1      = blockStyle{fontSize: 24, lineHeight: 32, marginTop: 24, marginBottom: 16}
	styleH2      = blockStyle{fontSize: 20, lineHeight: 28, marginTop: 20, marginBottom: 12}
	styleH3      = blockStyle{fontSize: 18, lineHeight: 28, marginTop: 16, marginBottom: 8}
	stylePara    = blockStyle{fontSize: 14, lineHeight: 22.75, marginBottom: 12}
	styleList    = blockStyle{fontSize: 14, lineHeight: 20, marginBottom: 16}
	styleItem    = blockStyle{fontSize: 14, lineHeight: 20, marginBottom: 8, indent: 24}
	styleSubItem = blockStyle{fontSize: 14, lineHeight: 20, marginBottom: 4, indent: 40}
)

// Estimator is a deterministic surface that computes block heights from
// text metrics instead of a rendering engine. Vertical margins are counted
// as part of a block's height.
type Estimator struct {
	live atomic.Int64
}

// NewEstimator returns an Estimator.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Acquire returns a probe for a sheet of the given width. The text column
// is the width less the sheet padding.
func (e *Estimator) Acquire(ctx context.Context, width int) (paginate.Probe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	column := float64(width) - 2*SheetPadding
	if column <= 0 {
		return nil, fmt.Errorf("width %d leaves no room inside %dpx padding", width, SheetPadding)
	}
	e.live.Add(1)
	return &estimateProbe{owner: e, column: column}, nil
}

// Live reports how many probes are acquired and not yet released.
func (e *Estimator) Live() int {
	return int(e.live.Load())
}

type estimateProbe struct {
	owner    *Estimator
	column   float64
	released atomic.Bool
}

func (p *estimateProbe) Height(ctx context.Context, fragment string) (float64, error) {
	if p.released.Load() {
		return 0, errProbeReleased
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	parent := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return 0, fmt.Errorf("parse fragment: %w", err)
	}
	var h float64
	for _, n := range nodes {
		h += nodeHeight(n, p.column)
	}
	return h, nil
}

func (p *estimateProbe) Release() error {
	if p.released.CompareAndSwap(false, true) {
		p.owner.live.Add(-1)
	}
	return nil
}

func nodeHeight(n *html.Node, width float64) float64 {
	switch n.Type {
	case html.TextNode:
		return textHeight(n.Data, styleBody, width)
	case html.ElementNode:
	default:
		return 0
	}

	switch n.DataAtom {
	case atom.Ol, atom.Ul:
		h := styleList.marginTop + styleList.marginBottom
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			h += nodeHeight(c, width)
		}
		return h
	case atom.Li:
		st := styleItem
		if strings.Contains(attr(n, "class"), "ml-10") {
			st = styleSubItem
		}
		return boxHeight(textContent(n), st, width)
	case atom.H1:
		return boxHeight(textContent(n), styleH1, width)
	case atom.H2:
		return boxHeight(textContent(n), styleH2, width)
	case atom.H3:
		return boxHeight(textContent(n), styleH3, width)
	case atom.P:
		return boxHeight(textContent(n), stylePara, width)
	default:
		return boxHeight(textContent(n), styleBody, width)
	}
}

func boxHeight(text string, st blockStyle, width float64) float64 {
	return st.marginTop + textHeight(text, st, width-st.indent) + st.marginBottom
}

// textHeight wraps words greedily into lines of the given width. A word
// wider than a line breaks across as many lines as it needs.
func textHeight(text string, st blockStyle, width float64) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}
	if width < st.fontSize {
		width = st.fontSize
	}
	space := spaceRatio * st.fontSize

	lines := 1
	used := 0.0
	for _, w := range words {
		ww := wordWidth(w, st.fontSize)
		if used > 0 && used+space+ww <= width {
			used += space + ww
			continue
		}
		if used > 0 {
			lines++
		}
		for ww > width {
			lines++
			ww -= width
		}
		used = ww
	}
	return float64(lines) * st.lineHeight
}

func wordWidth(w string, fontSize float64) float64 {
	return float64(runewidth.StringWidth(w)) * glyphRatio * fontSize
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
