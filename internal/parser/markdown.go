package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docrank/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser decodes Markdown with goldmark. ATX and setext headings
// become bold spans sized by level, a paragraph that is entirely strong
// emphasis becomes a bold body span, and thematic breaks start a new page.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	root := goldmark.DefaultParser().Parse(text.NewReader(src))

	b := newSpanBuilder()
	for block := root.FirstChild(); block != nil; block = block.NextSibling() {
		switch node := block.(type) {
		case *ast.ThematicBreak:
			b.nextPage()
		case *ast.Heading:
			b.add(inlineText(node, src), headingSize(node.Level), doctree.FlagBold)
		case *ast.Paragraph:
			var flags doctree.StyleFlags
			if isStrongOnly(node) {
				flags = doctree.FlagBold
			}
			b.add(inlineText(node, src), bodySize, flags)
		default:
			// Lists, quotes and code: one body span per leaf block.
			for _, t := range leafTexts(block, src) {
				b.add(t, bodySize, 0)
			}
		}
	}

	return b.document(filename), nil
}

// inlineText flattens the inline content of a block, dropping markup.
func inlineText(block ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(block, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return collapseSpace(sb.String())
}

// leafTexts returns the text of every paragraph-like leaf under block.
func leafTexts(block ast.Node, src []byte) []string {
	if block.Type() != ast.TypeBlock {
		return nil
	}
	if isCodeBlock(block) {
		var sb strings.Builder
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(src))
		}
		return []string{strings.TrimSpace(sb.String())}
	}
	switch block.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return []string{inlineText(block, src)}
	}
	var out []string
	for c := block.FirstChild(); c != nil; c = c.NextSibling() {
		out = append(out, leafTexts(c, src)...)
	}
	return out
}

func isCodeBlock(n ast.Node) bool {
	switch n.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock:
		return true
	}
	return false
}

// isStrongOnly reports whether a paragraph is a single **strong** run, the
// usual way plain Markdown fakes a run-in heading.
func isStrongOnly(p *ast.Paragraph) bool {
	if p.ChildCount() != 1 {
		return false
	}
	em, ok := p.FirstChild().(*ast.Emphasis)
	return ok && em.Level == 2
}
