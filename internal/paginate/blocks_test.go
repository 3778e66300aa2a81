package paginate

import (
	"testing"

	"github.com/apiliability/site/internal/markup"
	"github.com/google/go-cmp/cmp"
)

func TestSplitBlocks_TopLevelElements(t *testing.T) {
	doc := "# Title\n\n1. First\n2. Second\n\nSome paragraph."
	blocks, err := SplitBlocks(markup.Convert(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		`<h1 class="text-2xl font-bold mb-4 mt-6">Title</h1>`,
		"<ol class=\"mb-4\">\n<li class=\"ml-6 mb-2 list-decimal\">First</li>\n<li class=\"ml-6 mb-2 list-decimal\">Second</li>\n</ol>",
		`<p class="mb-3 leading-relaxed">Some paragraph.</p>`,
	}
	if diff := cmp.Diff(want, blocks); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitBlocks_RoundTripsConverterOutput(t *testing.T) {
	doc := "## A & B\n\nQuote \"this\" <now> and it's **fine**\n1. one\n   a. sub"
	parsed := markup.Parse(doc)
	blocks, err := SplitBlocks(markup.Render(parsed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != len(parsed) {
		t.Fatalf("expected %d blocks, got %d", len(parsed), len(blocks))
	}
	for i, b := range parsed {
		if blocks[i] != b.Markup() {
			t.Errorf("block %d:\n got %s\nwant %s", i, blocks[i], b.Markup())
		}
	}
}

func TestSplitBlocks_StrayText(t *testing.T) {
	blocks, err := SplitBlocks("loose text<p>para</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"loose text", "<p>para</p>"}
	if diff := cmp.Diff(want, blocks); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitBlocks_Empty(t *testing.T) {
	blocks, err := SplitBlocks(" \n ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("expected no blocks, got %v", blocks)
	}
}
