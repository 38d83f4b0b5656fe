package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docrank/internal/doctree"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLParser decodes HTML. The <title> is read from the raw markup; the body
// is sanitized with bluemonday before headings and text blocks become spans.
// Loose text inside containers such as <div> or <section> becomes a body span
// per run between blocks. Navigation chrome is skipped and <hr> starts a new
// page.
type HTMLParser struct{}

// Block elements whose whole text becomes one body span.
var htmlTextBlocks = map[atom.Atom]bool{
	atom.P:          true,
	atom.Li:         true,
	atom.Td:         true,
	atom.Th:         true,
	atom.Dd:         true,
	atom.Dt:         true,
	atom.Blockquote: true,
	atom.Pre:        true,
	atom.Figcaption: true,
}

// Containers walked block by block.
var htmlContainers = map[atom.Atom]bool{
	atom.Body:     true,
	atom.Div:      true,
	atom.Section:  true,
	atom.Article:  true,
	atom.Main:     true,
	atom.Ul:       true,
	atom.Ol:       true,
	atom.Dl:       true,
	atom.Table:    true,
	atom.Thead:    true,
	atom.Tbody:    true,
	atom.Tfoot:    true,
	atom.Tr:       true,
	atom.Figure:   true,
	atom.Details:  true,
	atom.Fieldset: true,
	atom.Address:  true,
	atom.Form:     true,
}

// Elements skipped along with their subtree.
var htmlChrome = map[atom.Atom]bool{
	atom.Nav:    true,
	atom.Header: true,
	atom.Footer: true,
	atom.Aside:  true,
}

// sanitizePolicy is UGC plus the layout elements emitHTML needs to see in
// order to skip them.
var sanitizePolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("nav", "header", "footer", "aside", "hr")
	return p
}()

var htmlHeadingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	rawDoc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	cleanDoc, err := html.Parse(bytes.NewReader(sanitizePolicy.SanitizeBytes(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse sanitized html: %w", err)
	}

	b := newSpanBuilder()
	if t := findElement(rawDoc, atom.Title); t != nil {
		b.add(nodeText(t), titleSize, doctree.FlagBold)
	}

	root := findElement(cleanDoc, atom.Body)
	if root == nil {
		root = cleanDoc
	}
	emitChildren(b, root)

	return b.document(filename), nil
}

func isBlock(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	a := n.DataAtom
	return htmlChrome[a] || htmlContainers[a] || htmlTextBlocks[a] || htmlHeadingLevels[a] > 0 || a == atom.Hr
}

// emitChildren emits the block children of n in order. Text and inline
// elements between two blocks are joined into one body span.
func emitChildren(b *spanBuilder, n *html.Node) {
	var run inlineRun
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !isBlock(c) {
			run.add(c)
			continue
		}
		run.flush(b)
		emitHTML(b, c)
	}
	run.flush(b)
}

func emitHTML(b *spanBuilder, n *html.Node) {
	switch {
	case htmlChrome[n.DataAtom]:
		return
	case n.DataAtom == atom.Hr:
		b.nextPage()
		return
	case htmlHeadingLevels[n.DataAtom] > 0:
		b.add(nodeText(n), headingSize(htmlHeadingLevels[n.DataAtom]), doctree.FlagBold)
		return
	case htmlTextBlocks[n.DataAtom]:
		var flags doctree.StyleFlags
		if strongOnly(n) {
			flags = doctree.FlagBold
		}
		b.add(nodeText(n), bodySize, flags)
		return
	}
	emitChildren(b, n)
}

// inlineRun gathers loose text and inline elements that sit between blocks.
type inlineRun struct {
	text   strings.Builder
	strong bool
	plain  bool
}

func (r *inlineRun) add(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		if strings.TrimSpace(n.Data) != "" {
			r.plain = true
		}
		r.text.WriteString(n.Data)
	case html.ElementNode:
		if n.DataAtom == atom.Br {
			r.text.WriteByte(' ')
			return
		}
		raw := rawText(n)
		if strings.TrimSpace(raw) != "" {
			if n.DataAtom == atom.Strong || n.DataAtom == atom.B {
				r.strong = true
			} else {
				r.plain = true
			}
		}
		r.text.WriteString(raw)
	}
}

// flush emits the run as a body span, bold when it held only strong text.
func (r *inlineRun) flush(b *spanBuilder) {
	var flags doctree.StyleFlags
	if r.strong && !r.plain {
		flags = doctree.FlagBold
	}
	b.add(collapseSpace(r.text.String()), bodySize, flags)
	*r = inlineRun{}
}

// rawText concatenates the text beneath n.
func rawText(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Br {
			sb.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}

// nodeText is rawText with whitespace collapsed.
func nodeText(n *html.Node) string {
	return collapseSpace(rawText(n))
}

// strongOnly reports whether every non-blank child of n is a <b> or <strong>.
func strongOnly(n *html.Node) bool {
	found := false
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode && strings.TrimSpace(c.Data) == "":
		case c.Type == html.ElementNode && (c.DataAtom == atom.Strong || c.DataAtom == atom.B):
			found = true
		default:
			return false
		}
	}
	return found
}

// findElement returns the first element of type a in document order.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
