package source

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apiliability/site/internal/markup"
	"github.com/fumiama/go-docx"
	"github.com/google/go-cmp/cmp"
)

func TestDraft_Markdown(t *testing.T) {
	d := &Draft{}
	d.Heading(1, "Proposal")
	d.Paragraph("Intro  text\nwrapped.")
	d.Item(1, "First")
	d.Item(2, "Sub one")
	d.Item(2, "Sub two")
	d.Item(1, "Second")
	d.Item(3, "Deep")
	d.Heading(5, "Small")
	d.Paragraph("   ")
	d.Item(1, "Restart")

	want := strings.Join([]string{
		"# Proposal",
		"",
		"Intro text wrapped.",
		"",
		"1. First",
		"   a. Sub one",
		"   b. Sub two",
		"2. Second",
		"   a. Deep",
		"",
		"### Small",
		"",
		"1. Restart",
	}, "\n")
	if diff := cmp.Diff(want, d.Markdown()); diff != "" {
		t.Errorf("markdown mismatch (-want +got):\n%s", diff)
	}

	blocks := markup.Parse(d.Markdown())
	kinds := make([]markup.Kind, len(blocks))
	for i, b := range blocks {
		kinds[i] = b.Kind
	}
	wantKinds := []markup.Kind{
		markup.KindHeading, markup.KindParagraph, markup.KindList,
		markup.KindHeading, markup.KindList,
	}
	if diff := cmp.Diff(wantKinds, kinds); diff != "" {
		t.Errorf("converted structure mismatch (-want +got):\n%s", diff)
	}
}

func TestEmphasize(t *testing.T) {
	tests := []struct {
		text         string
		bold, italic bool
		want         string
	}{
		{"plain", false, false, "plain"},
		{"strong", true, false, "**strong**"},
		{"slanted", false, true, "*slanted*"},
		{"both", true, true, "**both**"},
		{" padded ", true, false, " **padded** "},
		{"  ", true, false, "  "},
	}
	for _, tt := range tests {
		if got := emphasize(tt.text, tt.bold, tt.italic); got != tt.want {
			t.Errorf("emphasize(%q, %v, %v) = %q, want %q", tt.text, tt.bold, tt.italic, got, tt.want)
		}
	}
}

func TestMarkdownLoader_Verbatim(t *testing.T) {
	in := "# Title\r\n\r\n1. First\r\n   a. Sub\r\n"
	doc, err := (&MarkdownLoader{}).Load(strings.NewReader(in), "proposal.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Title" {
		t.Errorf("expected title %q, got %q", "Title", doc.Title)
	}
	if doc.Text != "# Title\n\n1. First\n   a. Sub\n" {
		t.Errorf("unexpected text %q", doc.Text)
	}
}

func TestMarkdownLoader_TitleFallsBackToFilename(t *testing.T) {
	doc, err := (&MarkdownLoader{}).Load(strings.NewReader("## Only a section\n"), "drafts/liability.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "liability" {
		t.Errorf("expected title from filename, got %q", doc.Title)
	}
}

func TestMarkdownLoader_Normalize(t *testing.T) {
	in := `# Human-Mapped Liability

Some *context* with **weight**
over two lines.

- first point
- second point
  - nested detail

#### Deep heading

> quoted remark
`
	doc, err := (&MarkdownLoader{Normalize: true}).Load(strings.NewReader(in), "draft.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := strings.Join([]string{
		"# Human-Mapped Liability",
		"",
		"Some *context* with **weight** over two lines.",
		"",
		"1. first point",
		"2. second point",
		"   a. nested detail",
		"",
		"### Deep heading",
		"",
		"quoted remark",
	}, "\n")
	if diff := cmp.Diff(want, doc.Text); diff != "" {
		t.Errorf("normalized text mismatch (-want +got):\n%s", diff)
	}
	if doc.Title != "Human-Mapped Liability" {
		t.Errorf("unexpected title %q", doc.Title)
	}
}

func TestTextLoader(t *testing.T) {
	in := "First paragraph\ncontinues here.\n\n\nSecond paragraph.\n"
	doc, err := (&TextLoader{}).Load(strings.NewReader(in), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "First paragraph continues here.\n\nSecond paragraph."
	if doc.Text != want {
		t.Errorf("got %q, want %q", doc.Text, want)
	}
	if doc.Title != "notes" {
		t.Errorf("unexpected title %q", doc.Title)
	}
}

func TestHTMLLoader(t *testing.T) {
	in := `<html><head><title>Proposal Draft</title><style>p{}</style></head>
<body>
<nav>Skip me</nav>
<h1>Overview</h1>
<p>Text with <strong>bold</strong> and <em>italic</em> parts.</p>
<ol>
  <li>First
    <ol><li>Sub <b>item</b></li></ol>
  </li>
  <li>Second</li>
</ol>
<h4>Detail</h4>
<script>var x = 1;</script>
</body></html>`

	doc, err := (&HTMLLoader{}).Load(strings.NewReader(in), "draft.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Proposal Draft" {
		t.Errorf("unexpected title %q", doc.Title)
	}

	want := strings.Join([]string{
		"# Overview",
		"",
		"Text with **bold** and *italic* parts.",
		"",
		"1. First",
		"   a. Sub **item**",
		"2. Second",
		"",
		"### Detail",
	}, "\n")
	if diff := cmp.Diff(want, doc.Text); diff != "" {
		t.Errorf("text mismatch (-want +got):\n%s", diff)
	}
}

func TestDOCXLoader(t *testing.T) {
	w := docx.New().WithDefaultTheme()
	w.AddParagraph().Style("Heading1").AddText("Proposal")
	intro := w.AddParagraph()
	intro.AddText("Plain ")
	intro.AddText("bold").Bold()
	w.AddParagraph().NumPr("1", "0").AddText("First")
	w.AddParagraph().NumPr("1", "1").AddText("Sub")
	w.AddParagraph().Style("Heading2").AddText("Section")

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatalf("write docx: %v", err)
	}

	doc, err := (&DOCXLoader{}).Load(bytes.NewReader(buf.Bytes()), "draft.docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := strings.Join([]string{
		"# Proposal",
		"",
		"Plain **bold**",
		"",
		"1. First",
		"   a. Sub",
		"",
		"## Section",
	}, "\n")
	if diff := cmp.Diff(want, doc.Text); diff != "" {
		t.Errorf("text mismatch (-want +got):\n%s", diff)
	}
}

func TestDOCXLoader_RejectsGarbage(t *testing.T) {
	_, err := (&DOCXLoader{}).Load(strings.NewReader("not a zip"), "broken.docx")
	if err == nil {
		t.Fatal("expected error for invalid docx")
	}
}

func TestSplitParagraphs(t *testing.T) {
	got := splitParagraphs("  Line one\nline two  \n\n\nLine three\r\n")
	want := []string{"Line one line two", "Line three"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("paragraphs mismatch (-want +got):\n%s", diff)
	}
}

func TestReadRecords(t *testing.T) {
	in := "Date, Title ,Summary,Type\n2025-01-02,Launch,We launched,event\n2025-02-03,Short row\n"
	recs, err := ReadRecords(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Record{
		{"date": "2025-01-02", "title": "Launch", "summary": "We launched", "type": "event"},
		{"date": "2025-02-03", "title": "Short row", "summary": "", "type": ""},
	}
	if diff := cmp.Diff(want, recs); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		wantType string
	}{
		{"a.md", "*source.MarkdownLoader"},
		{"a.MARKDOWN", "*source.MarkdownLoader"},
		{"a.txt", "*source.TextLoader"},
		{"a.htm", "*source.HTMLLoader"},
		{"a.docx", "*source.DOCXLoader"},
		{"a.pdf", "*source.PDFLoader"},
	}
	for _, tt := range tests {
		l, err := ForFile(tt.filename, Options{})
		if err != nil {
			t.Errorf("ForFile(%q): %v", tt.filename, err)
			continue
		}
		if got := typeName(l); got != tt.wantType {
			t.Errorf("ForFile(%q) = %s, want %s", tt.filename, got, tt.wantType)
		}
		if !IsSupported(tt.filename) {
			t.Errorf("IsSupported(%q) = false", tt.filename)
		}
	}

	if _, err := ForFile("data.csv", Options{}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for csv, got %v", err)
	}
	if IsSupported("image.png") {
		t.Error("png should not be supported")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "proposal.txt")
	if err := os.WriteFile(path, []byte("Hello there."), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := LoadFile(path, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Text != "Hello there." || doc.Title != "proposal" {
		t.Errorf("unexpected document %+v", doc)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.md"), Options{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func typeName(v any) string { return fmt.Sprintf("%T", v) }
