package markup

import (
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse_HeadingListParagraph(t *testing.T) {
	input := "# Title\n\n1. First\n2. Second\n\nSome paragraph."

	got := Parse(input)
	want := []Block{
		{Kind: KindHeading, Level: 1, Text: "Title"},
		{Kind: KindList, Items: []Item{{Level: 1, Text: "First"}, {Level: 1, Text: "Second"}}},
		{Kind: KindParagraph, Text: "Some paragraph."},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_HeadingLevels(t *testing.T) {
	tests := []struct {
		line  string
		kind  Kind
		level int
		text  string
	}{
		{"# One", KindHeading, 1, "One"},
		{"## Two", KindHeading, 2, "Two"},
		{"### Three", KindHeading, 3, "Three"},
		{"#### Four", KindParagraph, 0, "#### Four"},
		{"#NoSpace", KindParagraph, 0, "#NoSpace"},
		{"#", KindParagraph, 0, "#"},
	}
	for _, tt := range tests {
		blocks := Parse(tt.line)
		if len(blocks) != 1 {
			t.Fatalf("%q: expected 1 block, got %d", tt.line, len(blocks))
		}
		b := blocks[0]
		if b.Kind != tt.kind || b.Level != tt.level || b.Text != tt.text {
			t.Errorf("%q: got kind=%s level=%d text=%q, want kind=%s level=%d text=%q",
				tt.line, b.Kind, b.Level, b.Text, tt.kind, tt.level, tt.text)
		}
	}
}

func TestParse_LetteredSubItems(t *testing.T) {
	input := "1. Parent\n   a. Child one\n   b. Child two\n2. Next"

	blocks := Parse(input)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 list container, got %d blocks", len(blocks))
	}
	want := []Item{
		{Level: 1, Text: "Parent"},
		{Level: 2, Text: "Child one"},
		{Level: 2, Text: "Child two"},
		{Level: 1, Text: "Next"},
	}
	if diff := cmp.Diff(want, blocks[0].Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_SubItemIndentMustBeThreeSpaces(t *testing.T) {
	for _, line := range []string{"  a. two spaces", "    a. four spaces", "   A. upper", "   1. digit"} {
		blocks := Parse(line)
		if len(blocks) != 1 || blocks[0].Kind != KindParagraph {
			t.Errorf("%q: expected a paragraph, got %+v", line, blocks)
		}
	}
}

func TestParse_BlankLineClosesList(t *testing.T) {
	blocks := Parse("1. a\n\n2. b")
	if len(blocks) != 2 {
		t.Fatalf("expected 2 list containers, got %d", len(blocks))
	}
	for i, b := range blocks {
		if b.Kind != KindList || len(b.Items) != 1 {
			t.Errorf("block %d: expected single-item list, got %+v", i, b)
		}
	}
}

func TestParse_ListClosedByParagraphAndAtEnd(t *testing.T) {
	blocks := Parse("Intro\n1. a\nAfter\n2. b")
	kinds := make([]Kind, len(blocks))
	for i, b := range blocks {
		kinds[i] = b.Kind
	}
	want := []Kind{KindParagraph, KindList, KindParagraph, KindList}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_BlankLinesDropped(t *testing.T) {
	if blocks := Parse("\n\n   \n\t\n"); len(blocks) != 0 {
		t.Errorf("expected no blocks, got %+v", blocks)
	}
	if blocks := Parse(""); len(blocks) != 0 {
		t.Errorf("expected no blocks for empty input, got %+v", blocks)
	}
}

func TestInline_Emphasis(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"**bold**", "<strong>bold</strong>"},
		{"*it*", "<em>it</em>"},
		{"a **b** and *c*", "a <strong>b</strong> and <em>c</em>"},
		{"**one** **two**", "<strong>one</strong> <strong>two</strong>"},
		{"* not closed", "* not closed"},
		{"x < y & z", "x &lt; y &amp; z"},
		{"**a *b* c**", "<strong>a <em>b</em> c</strong>"},
		// Markers that would overlap stay literal rather than cross tags.
		{"***x***", "<strong>*x</strong>*"},
		{"**a *b** c*", "<strong>a *b</strong> c*"},
		{"*a **b** c*", "*a <strong>b</strong> c*"},
	}
	for _, tt := range tests {
		if got := inline(tt.in); got != tt.want {
			t.Errorf("inline(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

var emphasisTagRe = regexp.MustCompile(`</?(strong|em)>`)

func TestConvert_OverlappingEmphasisStaysWellFormed(t *testing.T) {
	for _, in := range []string{"***x***", "**a *b** c*", "*a **b** c*", "***", "** * ** *", "**a *b* c**"} {
		out := Convert(in)
		var open []string
		for _, m := range emphasisTagRe.FindAllStringSubmatch(out, -1) {
			if !strings.HasPrefix(m[0], "</") {
				open = append(open, m[1])
				continue
			}
			if len(open) == 0 || open[len(open)-1] != m[1] {
				t.Fatalf("Convert(%q) closes %s out of order: %q", in, m[1], out)
			}
			open = open[:len(open)-1]
		}
		if len(open) != 0 {
			t.Errorf("Convert(%q) leaves %v open: %q", in, open, out)
		}
	}
}

func TestConvert_Markup(t *testing.T) {
	input := "# Title\n\n1. First\n   a. **Sub**\n\nSome *paragraph*."
	want := strings.Join([]string{
		`<h1 class="text-2xl font-bold mb-4 mt-6">Title</h1>`,
		`<ol class="mb-4">`,
		`<li class="ml-6 mb-2 list-decimal">First</li>`,
		`<li class="ml-10 mb-1 list-[lower-alpha]"><strong>Sub</strong></li>`,
		`</ol>`,
		`<p class="mb-3 leading-relaxed">Some <em>paragraph</em>.</p>`,
	}, "\n")

	if got := Convert(input); got != want {
		t.Errorf("Convert() mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestConvert_Deterministic(t *testing.T) {
	inputs := []string{
		"",
		"# A\n## B\n### C",
		"1. x\n   a. y\n2. z\n\ntext **b** *i*",
		"garbage ``` <tag> ** *\r\nmore",
	}
	for _, in := range inputs {
		if a, b := Convert(in), Convert(in); a != b {
			t.Errorf("Convert(%q) not deterministic: %q vs %q", in, a, b)
		}
	}
}

func TestParse_CRLF(t *testing.T) {
	blocks := Parse("# Title\r\n\r\nBody\r\n")
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Text != "Title" || blocks[1].Text != "Body" {
		t.Errorf("unexpected texts: %q, %q", blocks[0].Text, blocks[1].Text)
	}
}
