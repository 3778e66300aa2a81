// Package scenarios reads scenario case studies from Markdown files with
// YAML front matter.
package scenarios

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/goccy/go-yaml"
	"github.com/goliatone/go-slug"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/apiliability/site/internal/store"
)

// Section headings recognised in a scenario body.
const (
	HeadingToday     = "What happens today"
	HeadingBreakdown = "Where accountability breaks down"
	HeadingSolution  = "How human-mapped liability would change incentives"
)

var ErrNoFrontMatter = errors.New("scenario has no front matter")

// Scenario is a parsed scenario file. Section fields hold Markdown.
type Scenario struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
	Today       string `yaml:"-"`
	Breakdown   string `yaml:"-"`
	Solution    string `yaml:"-"`
}

var yamlFormat = frontmatter.NewFormat("---", "---", func(data []byte, v interface{}) error {
	return yaml.Unmarshal(data, v)
})

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// Parse reads one scenario. filename supplies the slug when the front
// matter has none.
func Parse(src []byte, filename string) (*Scenario, error) {
	sc := new(Scenario)
	body, err := frontmatter.MustParse(bytes.NewReader(src), sc, yamlFormat)
	if err != nil {
		if errors.Is(err, frontmatter.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", filename, ErrNoFrontMatter)
		}
		return nil, fmt.Errorf("%s: parse front matter: %w", filename, err)
	}

	sc.Title = strings.TrimSpace(sc.Title)
	sc.Description = strings.TrimSpace(sc.Description)

	raw := strings.TrimSpace(sc.Slug)
	if raw == "" {
		raw = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	if normalized, err := slug.Normalize(raw); err == nil && normalized != "" {
		raw = normalized
	}
	sc.Slug = raw

	sections := Sections(body)
	sc.Today = sections[HeadingToday]
	sc.Breakdown = sections[HeadingBreakdown]
	sc.Solution = sections[HeadingSolution]
	return sc, nil
}

// Sections splits a Markdown body on its level-2 headings and returns the
// trimmed source under each one, keyed by heading text.
func Sections(body []byte) map[string]string {
	doc := md.Parser().Parse(text.NewReader(body))

	type mark struct {
		title      string
		lineStart  int
		contentPos int
	}
	var marks []mark
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 2 || h.Lines().Len() == 0 {
			continue
		}
		first := h.Lines().At(0)
		last := h.Lines().At(h.Lines().Len() - 1)
		start := lineStart(body, first.Start)
		atx := strings.HasPrefix(strings.TrimLeft(string(body[start:first.Start]), " "), "#")
		marks = append(marks, mark{
			title:      strings.TrimSpace(plainText(h, body)),
			lineStart:  start,
			contentPos: headingEnd(body, last.Stop, atx),
		})
	}

	out := make(map[string]string, len(marks))
	for i, m := range marks {
		end := len(body)
		if i+1 < len(marks) {
			end = marks[i+1].lineStart
		}
		if m.contentPos > end {
			continue
		}
		if _, seen := out[m.title]; seen {
			continue
		}
		out[m.title] = strings.TrimSpace(string(body[m.contentPos:end]))
	}
	return out
}

// LoadDir parses every .md file in dir, ordered by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenarios dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]*Scenario, 0, len(names))
	for _, name := range names {
		src, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		sc, err := Parse(src, name)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

// RenderHTML renders scenario Markdown. Raw HTML in the source is omitted.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// Record converts the scenario to its stored form.
func (s *Scenario) Record() *store.Scenario {
	return &store.Scenario{
		Title:       s.Title,
		Description: s.Description,
		Today:       s.Today,
		Breakdown:   s.Breakdown,
		Solution:    s.Solution,
		Slug:        s.Slug,
	}
}

func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func lineStart(src []byte, pos int) int {
	if i := bytes.LastIndexByte(src[:pos], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}

// headingEnd returns the offset just past the heading's line. For a setext
// heading the underline is skipped as well.
func headingEnd(src []byte, pos int, atx bool) int {
	// pos may sit on or just past the line's newline.
	end := nextLine(src, max(pos-1, 0))
	if atx {
		return end
	}
	under := strings.TrimSpace(string(src[end:nextLine(src, end)]))
	if under != "" && strings.Trim(under, "-=") == "" {
		end = nextLine(src, end)
	}
	return end
}

func nextLine(src []byte, pos int) int {
	if pos >= len(src) {
		return len(src)
	}
	if i := bytes.IndexByte(src[pos:], '\n'); i >= 0 {
		return pos + i + 1
	}
	return len(src)
}
