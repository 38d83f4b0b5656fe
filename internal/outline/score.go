package outline

import (
	"regexp"
	"unicode"

	"github.com/dgallion1/docrank/internal/doctree"
)

// MinScore is the lowest heuristic score that makes a span a heading candidate.
const MinScore = 3

// Score weights.
const (
	weightLarger    = 3
	weightBold      = 2
	weightCase      = 1
	weightNumbering = 2
)

// largerRatio is the factor over body size at which a span counts as larger.
const largerRatio = 1.1

var numbering = regexp.MustCompile(`^(\d+[.)]?)+(\s+|$)`)

// Score rates how much a span looks like a heading given the document's body
// font size.
func Score(s doctree.Span, bodySize float64) int {
	score := 0
	if s.FontSize > largerRatio*bodySize {
		score += weightLarger
	}
	if s.Flags.Bold() {
		score += weightBold
	}
	if isTitleCase(s.Text) || isUpperCase(s.Text) {
		score += weightCase
	}
	if numbering.MatchString(s.Text) {
		score += weightNumbering
	}
	return score
}

// isTitleCase reports whether uppercase letters only follow uncased characters
// and lowercase letters only follow cased ones, with at least one cased letter.
func isTitleCase(s string) bool {
	cased, prevCased := false, false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			if prevCased {
				return false
			}
			prevCased, cased = true, true
		case unicode.IsLower(r):
			if !prevCased {
				return false
			}
			prevCased, cased = true, true
		default:
			prevCased = false
		}
	}
	return cased
}

// isUpperCase reports whether s has a cased letter and no lowercase or
// titlecase ones.
func isUpperCase(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r) || unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}
