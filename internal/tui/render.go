package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Styles used to draw blocks and chrome.
type Styles struct {
	H1, H2, H3 lipgloss.Style
	Bold       lipgloss.Style
	Italic     lipgloss.Style
	BoldItalic lipgloss.Style
	Plain      lipgloss.Style
	Marker     lipgloss.Style
	Title      lipgloss.Style
	Status     lipgloss.Style
	Enabled    lipgloss.Style
	Disabled   lipgloss.Style
	Warning    lipgloss.Style
}

func DefaultStyles() Styles {
	accent := lipgloss.Color("#2563EB")
	muted := lipgloss.Color("#6B7280")
	return Styles{
		H1:         lipgloss.NewStyle().Bold(true).Underline(true),
		H2:         lipgloss.NewStyle().Bold(true),
		H3:         lipgloss.NewStyle().Bold(true).Foreground(muted),
		Bold:       lipgloss.NewStyle().Bold(true),
		Italic:     lipgloss.NewStyle().Italic(true),
		BoldItalic: lipgloss.NewStyle().Bold(true).Italic(true),
		Plain:      lipgloss.NewStyle(),
		Marker:     lipgloss.NewStyle().Foreground(accent),
		Title:      lipgloss.NewStyle().Bold(true).Foreground(accent),
		Status:     lipgloss.NewStyle().Foreground(muted),
		Enabled:    lipgloss.NewStyle().Bold(true).Foreground(accent),
		Disabled:   lipgloss.NewStyle().Faint(true).Foreground(muted),
		Warning:    lipgloss.NewStyle().Foreground(lipgloss.Color("#B45309")),
	}
}

type word struct {
	text         string
	bold, italic bool
}

// RenderBlock draws one block of viewer markup as terminal lines no wider
// than cols.
func RenderBlock(fragment string, cols int, st Styles) ([]string, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse block: %w", err)
	}

	var lines []string
	for _, n := range nodes {
		switch {
		case n.Type == html.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				wrapper := &html.Node{Type: html.ElementNode, Data: "p", DataAtom: atom.P}
				wrapper.AppendChild(&html.Node{Type: html.TextNode, Data: n.Data})
				lines = append(lines, wrap(splitWords(wrapper, false, false), cols, "", "", st, st.Plain)...)
			}
		case n.Type != html.ElementNode:
		case n.DataAtom == atom.H1:
			lines = append(lines, wrap(splitWords(n, false, false), cols, "", "", st, st.H1)...)
		case n.DataAtom == atom.H2:
			lines = append(lines, wrap(splitWords(n, false, false), cols, "", "", st, st.H2)...)
		case n.DataAtom == atom.H3:
			lines = append(lines, wrap(splitWords(n, false, false), cols, "", "", st, st.H3)...)
		case n.DataAtom == atom.Ol:
			lines = append(lines, renderList(n, cols, st)...)
		default:
			lines = append(lines, wrap(splitWords(n, false, false), cols, "", "", st, st.Plain)...)
		}
	}
	return lines, nil
}

func renderList(ol *html.Node, cols int, st Styles) []string {
	var lines []string
	number, letter := 0, 0
	for li := ol.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}
		var marker, indent string
		if strings.Contains(attr(li, "class"), "ml-10") {
			marker = fmt.Sprintf("   %c. ", 'a'+rune(letter%26))
			indent = "      "
			letter++
		} else {
			number++
			letter = 0
			marker = fmt.Sprintf("%d. ", number)
			indent = strings.Repeat(" ", len(marker))
		}
		lines = append(lines, wrap(splitWords(li, false, false), cols, marker, indent, st, st.Plain)...)
	}
	return lines
}

// splitWords flattens the text under n into styled words.
func splitWords(n *html.Node, bold, italic bool) []word {
	var out []word
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			for _, f := range strings.Fields(c.Data) {
				out = append(out, word{text: f, bold: bold, italic: italic})
			}
		case html.ElementNode:
			switch c.DataAtom {
			case atom.Strong, atom.B:
				out = append(out, splitWords(c, true, italic)...)
			case atom.Em, atom.I:
				out = append(out, splitWords(c, bold, true)...)
			default:
				out = append(out, splitWords(c, bold, italic)...)
			}
		}
	}
	return out
}

// wrap lays words out greedily. The first line starts with marker and
// continuation lines with indent. A word wider than the line gets a line
// of its own.
func wrap(words []word, cols int, marker, indent string, st Styles, base lipgloss.Style) []string {
	if len(words) == 0 {
		return []string{st.Marker.Render(marker)}
	}

	var lines []string
	var line strings.Builder
	prefix := st.Marker.Render(marker)
	used := runewidth.StringWidth(marker)
	start := used
	for _, w := range words {
		ww := runewidth.StringWidth(w.text)
		if used > start && used+1+ww > cols {
			lines = append(lines, prefix+line.String())
			line.Reset()
			prefix = indent
			used = runewidth.StringWidth(indent)
			start = used
		}
		if used > start {
			line.WriteString(" ")
			used++
		}
		line.WriteString(styleFor(w, st, base).Render(w.text))
		used += ww
	}
	return append(lines, prefix+line.String())
}

func styleFor(w word, st Styles, base lipgloss.Style) lipgloss.Style {
	switch {
	case w.bold && w.italic:
		return st.BoldItalic
	case w.bold:
		return st.Bold
	case w.italic:
		return st.Italic
	default:
		return base
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
