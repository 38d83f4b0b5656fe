// Package summary produces the extractive text shown for a ranked section.
package summary

import (
	"strings"
)

// MaxSentences is how many leading sentences a summary keeps.
const MaxSentences = 3

// Fallback is returned when the page has no sentence text.
const Fallback = "Summary not available."

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// Summarize returns the first MaxSentences sentences of pageText joined with
// ". " and closed with a period.
func Summarize(pageText string) string {
	var sentences []string
	for _, frag := range strings.FieldsFunc(pageText, isTerminal) {
		frag = strings.TrimSpace(frag)
		if frag == "" {
			continue
		}
		sentences = append(sentences, frag)
		if len(sentences) == MaxSentences {
			break
		}
	}
	if len(sentences) == 0 {
		return Fallback
	}
	return strings.Join(sentences, ". ") + "."
}
