package paginate

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SplitBlocks returns the top-level elements of markup, in order, each
// serialized back to markup. Whitespace between elements is dropped; stray
// non-blank text is kept as its own block so nothing is lost.
func SplitBlocks(markup string) ([]string, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, nil
	}

	parent := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), parent)
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	var blocks []string
	for _, n := range nodes {
		switch n.Type {
		case html.ElementNode:
			var sb strings.Builder
			if err := html.Render(&sb, n); err != nil {
				return nil, fmt.Errorf("render block: %w", err)
			}
			blocks = append(blocks, sb.String())
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				blocks = append(blocks, html.EscapeString(t))
			}
		}
	}
	return blocks, nil
}
