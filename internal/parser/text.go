package parser

import (
	"io"
	"strings"

	"github.com/dgallion1/docrank/internal/doctree"
)

// TextParser handles plain text files. Blank-line separated paragraphs become
// body spans and form feeds separate pages.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	b := newSpanBuilder()
	for i, page := range strings.Split(string(data), "\f") {
		if i > 0 {
			b.nextPage()
		}
		for _, para := range splitParagraphs(page) {
			b.add(para, bodySize, 0)
		}
	}
	return b.document(filename), nil
}

// splitParagraphs groups consecutive non-blank lines. Lines holding only
// whitespace count as blank.
func splitParagraphs(text string) []string {
	var paragraphs []string
	var current strings.Builder

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	return paragraphs
}
