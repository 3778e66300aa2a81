package source

import (
	"bufio"
	"io"
	"strings"
)

// TextLoader handles plain text. Blank lines separate paragraphs; the
// lines of one paragraph are joined.
type TextLoader struct{}

func (l *TextLoader) Load(r io.Reader, filename string) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	d := &Draft{Title: stem(filename)}
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			d.Paragraph(current.String())
			current.Reset()
			continue
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	d.Paragraph(current.String())

	return &Document{Title: d.Title, Text: d.Markdown()}, nil
}
