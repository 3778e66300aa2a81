package source

import (
	"fmt"
	"strings"
)

// NodeKind is the structural type of a Draft node.
type NodeKind int

const (
	NodeParagraph NodeKind = iota
	NodeHeading
	NodeItem
)

// Node is one structural unit extracted from a source file. Text carries
// inline emphasis already written as ** and * markers.
type Node struct {
	Kind  NodeKind
	Level int // Heading level 1-3, or item level 1-2.
	Text  string
}

// Draft is the format-neutral outline every loader builds before it is
// written out as a Document.
type Draft struct {
	Title string
	Nodes []Node
}

// Heading appends a heading. Levels deeper than 3 are flattened to 3.
func (d *Draft) Heading(level int, text string) {
	d.add(NodeHeading, min(max(level, 1), 3), text)
}

// Item appends an ordered-list item. Anything nested deeper than one
// sub-level is flattened to the sub-level.
func (d *Draft) Item(level int, text string) {
	d.add(NodeItem, min(max(level, 1), 2), text)
}

// Paragraph appends a paragraph.
func (d *Draft) Paragraph(text string) {
	d.add(NodeParagraph, 0, text)
}

func (d *Draft) add(kind NodeKind, level int, text string) {
	text = collapseSpace(text)
	if text == "" {
		return
	}
	d.Nodes = append(d.Nodes, Node{Kind: kind, Level: level, Text: text})
}

// Markdown writes the draft in the constrained Markdown subset. Numbering
// restarts with each list; sub-items are lettered from a under each item.
func (d *Draft) Markdown() string {
	var sb strings.Builder
	number, letter := 0, 0
	prevItem := false

	for i, n := range d.Nodes {
		isItem := n.Kind == NodeItem
		if i > 0 {
			sb.WriteString("\n")
			if !isItem || !prevItem {
				sb.WriteString("\n")
			}
		}
		if !isItem {
			number, letter = 0, 0
		}

		switch n.Kind {
		case NodeHeading:
			sb.WriteString(strings.Repeat("#", n.Level) + " " + n.Text)
		case NodeItem:
			if n.Level == 1 {
				number++
				letter = 0
				fmt.Fprintf(&sb, "%d. %s", number, n.Text)
			} else {
				fmt.Fprintf(&sb, "   %c. %s", 'a'+rune(letter%26), n.Text)
				letter++
			}
		default:
			sb.WriteString(n.Text)
		}
		prevItem = isItem
	}
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// emphasize wraps text in emphasis markers, keeping surrounding spaces
// outside them. Bold wins when both apply since the subset does not nest.
func emphasize(text string, bold, italic bool) string {
	if !bold && !italic {
		return text
	}
	core := strings.TrimSpace(text)
	if core == "" {
		return text
	}
	lead := text[:strings.Index(text, core)]
	trail := text[len(lead)+len(core):]
	marker := "*"
	if bold {
		marker = "**"
	}
	return lead + marker + core + marker + trail
}
