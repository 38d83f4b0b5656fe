package parser

import (
	"strings"

	"github.com/dgallion1/docrank/internal/doctree"
)

// Synthetic font sizes for formats that carry structure instead of geometry.
// Heading levels map onto sizes so the outline heuristics see them the way
// they would see a typeset PDF.
const (
	bodySize  = 11.0
	titleSize = 28.0
)

var headingSizes = [...]float64{1: 24, 2: 18, 3: 15, 4: 13, 5: 12.5, 6: 12}

func headingSize(level int) float64 {
	if level < 1 {
		return bodySize
	}
	if level >= len(headingSizes) {
		return headingSizes[len(headingSizes)-1]
	}
	return headingSizes[level]
}

// fontFlags derives style bits from a PDF font name such as "ABCDEF+Helvetica-BoldOblique".
func fontFlags(fontName string) doctree.StyleFlags {
	name := strings.ToLower(fontName)
	var flags doctree.StyleFlags
	for _, marker := range []string{"bold", "black", "heavy", "semibold", "demibold"} {
		if strings.Contains(name, marker) {
			flags |= doctree.FlagBold
			break
		}
	}
	if strings.Contains(name, "italic") || strings.Contains(name, "oblique") {
		flags |= doctree.FlagItalic
	}
	return flags
}

// spanBuilder accumulates spans and page text for line-oriented formats.
// Each added span sits one unit below the previous one on the current page.
type spanBuilder struct {
	spans []doctree.Span
	pages map[int]*strings.Builder
	page  int
	y     float64
}

func newSpanBuilder() *spanBuilder {
	return &spanBuilder{pages: make(map[int]*strings.Builder), page: 1}
}

func (b *spanBuilder) add(text string, size float64, flags doctree.StyleFlags) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	b.spans = append(b.spans, doctree.Span{
		Text:     text,
		Page:     b.page,
		FontSize: size,
		Flags:    flags,
		Y:        b.y,
	})
	b.y++

	pb, ok := b.pages[b.page]
	if !ok {
		pb = &strings.Builder{}
		b.pages[b.page] = pb
	}
	if pb.Len() > 0 {
		pb.WriteString("\n")
	}
	pb.WriteString(text)
}

// nextPage starts a new page unless the current one is still empty.
func (b *spanBuilder) nextPage() {
	if _, ok := b.pages[b.page]; !ok {
		return
	}
	b.page++
	b.y = 0
}

func (b *spanBuilder) document(name string) *doctree.Document {
	doc := &doctree.Document{
		Name:  name,
		Spans: b.spans,
		Pages: make(map[int]string, len(b.pages)),
	}
	for page, pb := range b.pages {
		doc.Pages[page] = pb.String()
		if page > doc.PageCount {
			doc.PageCount = page
		}
	}
	return doc
}

// documentFromPlainPages builds a document from text with no font data: every
// non-empty line is a body-sized span.
func documentFromPlainPages(name string, pages []string) *doctree.Document {
	doc := &doctree.Document{
		Name:      name,
		Pages:     make(map[int]string, len(pages)),
		PageCount: len(pages),
	}
	for i, text := range pages {
		pageNo := i + 1
		doc.Pages[pageNo] = text
		line := 0
		for _, raw := range strings.Split(text, "\n") {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			doc.Spans = append(doc.Spans, doctree.Span{
				Text:     raw,
				Page:     pageNo,
				FontSize: bodySize,
				Y:        float64(line),
			})
			line++
		}
	}
	return doc
}
