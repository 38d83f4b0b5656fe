// Package section picks the anchors of a document's sections and builds the
// text blob each anchor is ranked by.
package section

import (
	"github.com/dgallion1/docrank/internal/doctree"
)

// SnippetChars caps how much page text follows the anchor text in a snippet.
const SnippetChars = 800

// Section is an anchor plus the snippet fed to the embedder for it.
type Section struct {
	Anchor  doctree.Anchor
	Snippet string
}

// Anchors returns the H1 headings of an outline in emission order, or the
// title on page 1 when there are none.
func Anchors(o doctree.Outline) []doctree.Anchor {
	var anchors []doctree.Anchor
	for _, h := range o.Headings {
		if h.Level == doctree.H1 {
			anchors = append(anchors, doctree.Anchor{Text: h.Text, Page: h.Page})
		}
	}
	if len(anchors) == 0 {
		anchors = append(anchors, doctree.Anchor{Text: o.Title, Page: 1})
	}
	return anchors
}

// Collect builds one section per anchor. pages maps a 1-based page number to
// its raw text; a missing page contributes nothing after the separator.
func Collect(o doctree.Outline, pages map[int]string) []Section {
	anchors := Anchors(o)
	sections := make([]Section, len(anchors))
	for i, a := range anchors {
		sections[i] = Section{
			Anchor:  a,
			Snippet: a.Text + "\n" + firstChars(pages[a.Page], SnippetChars),
		}
	}
	return sections
}

func firstChars(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
