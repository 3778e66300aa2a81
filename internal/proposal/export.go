package proposal

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/apiliability/site/internal/paginate"
)

// Run sizes in half-points.
var headingSizes = map[atom.Atom]string{
	atom.H1: "48",
	atom.H2: "40",
	atom.H3: "36",
}

var headingStyles = map[atom.Atom]string{
	atom.H1: "Heading1",
	atom.H2: "Heading2",
	atom.H3: "Heading3",
}

// numbering id shared by every exported list.
const listNumID = "1"

// ExportDOCX writes the pages at width as a Word document with a page
// break between consecutive pages.
func (s *Service) ExportDOCX(ctx context.Context, width int, w io.Writer) error {
	pages, err := s.Pages(ctx, width)
	if err != nil {
		return err
	}
	doc, err := buildDOCX(pages)
	if err != nil {
		return err
	}
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("write docx: %w", err)
	}
	return nil
}

func buildDOCX(pages []paginate.Page) (*docx.Docx, error) {
	doc := docx.New().WithDefaultTheme()
	for i, page := range pages {
		if i > 0 {
			doc.AddParagraph().AddPageBreaks()
		}
		for _, b := range page.Blocks {
			if err := addBlock(doc, b.Markup); err != nil {
				return nil, fmt.Errorf("page %d: %w", page.Number, err)
			}
		}
	}
	return doc, nil
}

func addBlock(doc *docx.Docx, fragment string) error {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return fmt.Errorf("parse block: %w", err)
	}
	for _, n := range nodes {
		switch {
		case n.Type == html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				doc.AddParagraph().AddText(t)
			}
		case n.Type != html.ElementNode:
		case headingStyles[n.DataAtom] != "":
			para := doc.AddParagraph().Style(headingStyles[n.DataAtom])
			addRuns(para, n, true, false, headingSizes[n.DataAtom])
		case n.DataAtom == atom.Ol:
			for li := n.FirstChild; li != nil; li = li.NextSibling {
				if li.Type != html.ElementNode || li.DataAtom != atom.Li {
					continue
				}
				level := "0"
				if strings.Contains(attr(li, "class"), "ml-10") {
					level = "1"
				}
				addRuns(doc.AddParagraph().NumPr(listNumID, level), li, false, false, "")
			}
		default:
			addRuns(doc.AddParagraph(), n, false, false, "")
		}
	}
	return nil
}

// addRuns appends one run per text node under n, carrying emphasis from
// enclosing strong and em elements.
func addRuns(para *docx.Paragraph, n *html.Node, bold, italic bool, size string) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if c.Data == "" {
				continue
			}
			run := para.AddText(c.Data)
			if bold {
				run.Bold()
			}
			if italic {
				run.Italic()
			}
			if size != "" {
				run.Size(size)
			}
		case html.ElementNode:
			switch c.DataAtom {
			case atom.Strong, atom.B:
				addRuns(para, c, true, italic, size)
			case atom.Em, atom.I:
				addRuns(para, c, bold, true, size)
			default:
				addRuns(para, c, bold, italic, size)
			}
		}
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
