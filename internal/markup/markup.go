package markup

import (
	"html"
	"regexp"
	"strings"
)

// Kind identifies the structural type of a Block.
type Kind int

const (
	KindParagraph Kind = iota
	KindHeading
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindList:
		return "list"
	default:
		return "paragraph"
	}
}

// Block is one top-level structural unit of a document: a heading, a
// paragraph, or an ordered-list container holding its items.
type Block struct {
	Kind  Kind
	Level int    // Heading level 1-3; zero for other kinds.
	Text  string // Inline markup for headings and paragraphs.
	Items []Item // List items, only for KindList.
}

// Item is a single ordered-list entry. Level 1 is a numbered item,
// level 2 a lettered sub-item.
type Item struct {
	Level int
	Text  string
}

// Class attributes applied to each rendered element.
const (
	classH1        = "text-2xl font-bold mb-4 mt-6"
	classH2        = "text-xl font-semibold mb-3 mt-5"
	classH3        = "text-lg font-semibold mb-2 mt-4"
	classList      = "mb-4"
	classItem      = "ml-6 mb-2 list-decimal"
	classSubItem   = "ml-10 mb-1 list-[lower-alpha]"
	classParagraph = "mb-3 leading-relaxed"
)

var (
	headingRe  = regexp.MustCompile(`^(#{1,3}) (.+)$`)
	numberedRe = regexp.MustCompile(`^\d+\.\s+(.+)$`)
	letteredRe = regexp.MustCompile(`^   [a-z]\.\s+(.+)$`)
	boldRe     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe   = regexp.MustCompile(`\*(.+?)\*`)
)

// Convert renders a Markdown-subset document to markup. The same input
// always yields the same output.
func Convert(markdown string) string {
	return Render(Parse(markdown))
}

// Parse splits a Markdown-subset document into blocks. Lines that match no
// rule become paragraphs; blank lines are dropped and close any open list.
func Parse(markdown string) []Block {
	markdown = strings.ReplaceAll(markdown, "\r\n", "\n")

	var blocks []Block
	var list *Block

	closeList := func() {
		if list != nil {
			blocks = append(blocks, *list)
			list = nil
		}
	}

	for _, line := range strings.Split(markdown, "\n") {
		if item, ok := parseItem(line); ok {
			if list == nil {
				list = &Block{Kind: KindList}
			}
			list.Items = append(list.Items, item)
			continue
		}
		closeList()

		if strings.TrimSpace(line) == "" {
			continue
		}
		if m := headingRe.FindStringSubmatch(line); m != nil {
			blocks = append(blocks, Block{
				Kind:  KindHeading,
				Level: len(m[1]),
				Text:  inline(m[2]),
			})
			continue
		}
		blocks = append(blocks, Block{Kind: KindParagraph, Text: inline(line)})
	}
	closeList()

	return blocks
}

func parseItem(line string) (Item, bool) {
	if m := numberedRe.FindStringSubmatch(line); m != nil {
		return Item{Level: 1, Text: inline(m[1])}, true
	}
	if m := letteredRe.FindStringSubmatch(line); m != nil {
		return Item{Level: 2, Text: inline(m[1])}, true
	}
	return Item{}, false
}

// inline escapes text and applies bold then italic emphasis. Italic runs
// are matched separately inside and between bold runs, so an <em> never
// straddles a <strong> boundary.
func inline(text string) string {
	text = html.EscapeString(text)
	var b strings.Builder
	last := 0
	for _, m := range boldRe.FindAllStringSubmatchIndex(text, -1) {
		b.WriteString(italic(text[last:m[0]]))
		b.WriteString("<strong>")
		b.WriteString(italic(text[m[2]:m[3]]))
		b.WriteString("</strong>")
		last = m[1]
	}
	b.WriteString(italic(text[last:]))
	return b.String()
}

func italic(text string) string {
	return italicRe.ReplaceAllString(text, "<em>$1</em>")
}

// Render joins the markup of each block with newlines.
func Render(blocks []Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.Markup())
	}
	return strings.Join(parts, "\n")
}

// Markup returns the markup of a single block.
func (b Block) Markup() string {
	switch b.Kind {
	case KindHeading:
		tag, class := "h1", classH1
		switch b.Level {
		case 2:
			tag, class = "h2", classH2
		case 3:
			tag, class = "h3", classH3
		}
		return `<` + tag + ` class="` + class + `">` + b.Text + `</` + tag + `>`
	case KindList:
		var sb strings.Builder
		sb.WriteString(`<ol class="` + classList + `">`)
		for _, it := range b.Items {
			class := classItem
			if it.Level == 2 {
				class = classSubItem
			}
			sb.WriteString("\n")
			sb.WriteString(`<li class="` + class + `">` + it.Text + `</li>`)
		}
		sb.WriteString("\n</ol>")
		return sb.String()
	default:
		return `<p class="` + classParagraph + `">` + b.Text + `</p>`
	}
}
