// Package outline infers a document title and leveled heading list from
// typographic signals alone: font size, boldness, capitalization, numbering
// and vertical position.
package outline

import (
	"sort"
	"strings"
	"unicode"

	"github.com/dgallion1/docrank/internal/doctree"
)

// Spans whose whole text is one of these words are never titles or headings.
var falsePositives = map[string]bool{
	"abstract":     true,
	"keywords":     true,
	"references":   true,
	"bibliography": true,
	"index":        true,
	"appendix":     true,
}

// titleSizeRatio is how close to the largest page-1 size a span must be to
// compete for the title.
const titleSizeRatio = 0.95

// Infer derives the outline of one document from its span sequence. It never
// fails: a document with no usable text gets the UntitledDocument title and an
// empty heading list.
func Infer(spans []doctree.Span) doctree.Outline {
	kept := filterSpans(spans)
	if len(kept) == 0 {
		return doctree.Outline{Title: doctree.UntitledDocument, Headings: []doctree.Heading{}}
	}

	title := selectTitle(kept)
	body := BodyFontSize(kept)

	titleKey := strings.ToLower(title)
	var candidates []doctree.Span
	for _, s := range kept {
		// The chosen title is not repeated as a heading.
		if strings.ToLower(s.Text) == titleKey {
			continue
		}
		if Score(s, body) >= MinScore {
			candidates = append(candidates, s)
		}
	}

	levels := NewLevelTable(candidates)

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Page != candidates[j].Page {
			return candidates[i].Page < candidates[j].Page
		}
		return candidates[i].Y < candidates[j].Y
	})

	headings := make([]doctree.Heading, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		key := strings.ToLower(c.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		headings = append(headings, doctree.Heading{
			Level: levels.Level(c.FontSize),
			Text:  c.Text,
			Page:  c.Page,
		})
	}

	return doctree.Outline{Title: title, Headings: headings}
}

// filterSpans drops empty, false-positive and digits-only spans and collapses
// whitespace in the text of the rest.
func filterSpans(spans []doctree.Span) []doctree.Span {
	kept := make([]doctree.Span, 0, len(spans))
	for _, s := range spans {
		trimmed := strings.TrimSpace(s.Text)
		if trimmed == "" || falsePositives[strings.ToLower(trimmed)] || isDigits(trimmed) {
			continue
		}
		s.Text = strings.Join(strings.Fields(trimmed), " ")
		kept = append(kept, s)
	}
	return kept
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// selectTitle picks the topmost of the largest page-1 spans, preferring longer
// text at equal height. Without page-1 spans the first span wins.
func selectTitle(spans []doctree.Span) string {
	var first []doctree.Span
	maxSize := 0.0
	for _, s := range spans {
		if s.Page != 1 {
			continue
		}
		first = append(first, s)
		if s.FontSize > maxSize {
			maxSize = s.FontSize
		}
	}
	if len(first) == 0 {
		return spans[0].Text
	}

	var large []doctree.Span
	for _, s := range first {
		if s.FontSize >= titleSizeRatio*maxSize {
			large = append(large, s)
		}
	}
	sort.SliceStable(large, func(i, j int) bool {
		if large[i].Y != large[j].Y {
			return large[i].Y < large[j].Y
		}
		return len([]rune(large[i].Text)) > len([]rune(large[j].Text))
	})
	return large[0].Text
}

// BodyFontSize returns the most frequent font size. Equally frequent sizes
// resolve to the smallest.
func BodyFontSize(spans []doctree.Span) float64 {
	counts := make(map[float64]int)
	for _, s := range spans {
		counts[s.FontSize]++
	}
	var body float64
	best := 0
	for size, n := range counts {
		if n > best || (n == best && size < body) {
			body, best = size, n
		}
	}
	return body
}
