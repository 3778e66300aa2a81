package source

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXLoader handles Word drafts. Heading1-3 styles become headings,
// numbered paragraphs become list items by indent level and bold or
// italic runs keep their emphasis.
type DOCXLoader struct{}

func (l *DOCXLoader) Load(r io.Reader, filename string) (*Document, error) {
	// go-docx needs a ReaderAt and size, so spool to a temp file.
	tmp, size, cleanup, err := spool(r, "proposal-docx-*.docx")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	doc, err := docx.Parse(tmp, size)
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	d := &Draft{Title: stem(filename)}
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		if level := docxHeadingLevel(para); level > 0 {
			d.Heading(level, docxParagraphText(para, false))
			continue
		}
		text := docxParagraphText(para, true)
		if level, ok := docxListLevel(para); ok {
			d.Item(level, text)
			continue
		}
		d.Paragraph(text)
	}
	return &Document{Title: d.Title, Text: d.Markdown()}, nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if rest, ok := strings.CutPrefix(style, "heading"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n > 0 {
			return n
		}
	}
	if style == "title" {
		return 1
	}
	return 0
}

// docxListLevel reports the 1-based list level of a numbered paragraph.
func docxListLevel(para *docx.Paragraph) (int, bool) {
	if para.Properties == nil || para.Properties.NumProperties == nil {
		return 0, false
	}
	level := 1
	if ilvl := para.Properties.NumProperties.Ilvl; ilvl != nil {
		if n, err := strconv.Atoi(ilvl.Val); err == nil {
			level = n + 1
		}
	}
	return level, true
}

// docxParagraphText joins the paragraph's runs. Headings pass emphasis
// false since their runs are usually bold for looks.
func docxParagraphText(para *docx.Paragraph, emphasis bool) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		var text strings.Builder
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				text.WriteString(t.Text)
			}
		}
		bold, italic := false, false
		if rp := run.RunProperties; rp != nil && emphasis {
			bold, italic = rp.Bold != nil, rp.Italic != nil
		}
		buf.WriteString(emphasize(text.String(), bold, italic))
	}
	return strings.TrimSpace(buf.String())
}
