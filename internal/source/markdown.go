package source

import (
	"bufio"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownLoader handles Markdown files. By default the file is taken as
// already written in the subset; with Normalize set, general Markdown is
// parsed with goldmark and rewritten into it.
type MarkdownLoader struct {
	Normalize bool
}

func (l *MarkdownLoader) Load(r io.Reader, filename string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	body := strings.ReplaceAll(string(src), "\r\n", "\n")

	if !l.Normalize {
		return &Document{Title: markdownTitle(body, filename), Text: body}, nil
	}

	d := &Draft{Title: stem(filename)}
	source := []byte(body)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		walkMarkdownBlock(d, n, source)
	}
	out := d.Markdown()
	return &Document{Title: markdownTitle(out, filename), Text: out}, nil
}

// markdownTitle is the first level-1 heading, or the file stem.
func markdownTitle(body, filename string) string {
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		if t, ok := strings.CutPrefix(sc.Text(), "# "); ok && strings.TrimSpace(t) != "" {
			return strings.TrimSpace(t)
		}
	}
	return stem(filename)
}

func walkMarkdownBlock(d *Draft, n ast.Node, src []byte) {
	switch node := n.(type) {
	case *ast.Heading:
		d.Heading(node.Level, inlineMarkdown(node, src))
	case *ast.Paragraph, *ast.TextBlock:
		d.Paragraph(inlineMarkdown(node, src))
	case *ast.List:
		walkMarkdownList(d, node, src, 1)
	case *ast.Blockquote:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			walkMarkdownBlock(d, c, src)
		}
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			d.Paragraph(string(seg.Value(src)))
		}
	}
}

func walkMarkdownList(d *Draft, list *ast.List, src []byte, level int) {
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch child := c.(type) {
			case *ast.List:
				walkMarkdownList(d, child, src, level+1)
			case *ast.Paragraph, *ast.TextBlock:
				d.Item(level, inlineMarkdown(child, src))
			}
		}
	}
}

// inlineMarkdown flattens a node's inline children, keeping emphasis as
// subset markers.
func inlineMarkdown(n ast.Node, src []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(node.Value)
		case *ast.Emphasis:
			sb.WriteString(emphasize(inlineMarkdown(node, src), node.Level >= 2, node.Level == 1))
		default:
			sb.WriteString(inlineMarkdown(c, src))
		}
	}
	return sb.String()
}
