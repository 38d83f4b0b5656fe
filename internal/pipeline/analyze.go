package pipeline

import (
	"bytes"
	"fmt"
	"os"

	"github.com/dgallion1/docrank/internal/doctree"
	"github.com/dgallion1/docrank/internal/outline"
	"github.com/dgallion1/docrank/internal/parser"
	"github.com/dgallion1/docrank/internal/section"
)

// Analysis is one decoded document with its outline and ranked-to-be sections.
type Analysis struct {
	Name     string
	Document *doctree.Document
	Outline  doctree.Outline
	Sections []section.Section
}

// Decode parses raw document bytes using the parser for name's extension.
func Decode(data []byte, name string, opts parser.Options) (*doctree.Document, error) {
	p, err := parser.ForFile(name, opts)
	if err != nil {
		return nil, err
	}
	doc, err := p.Parse(bytes.NewReader(data), name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return doc, nil
}

// DecodeFile reads and decodes the document at path.
func DecodeFile(path, name string, opts parser.Options) (*doctree.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return Decode(data, name, opts)
}

// Analyze infers the outline of a decoded document and collects its sections.
// A nil document is treated as one with no spans.
func Analyze(name string, doc *doctree.Document) Analysis {
	if doc == nil {
		doc = &doctree.Document{Name: name}
	}
	o := outline.Infer(doc.Spans)
	return Analysis{
		Name:     name,
		Document: doc,
		Outline:  o,
		Sections: section.Collect(o, doc.Pages),
	}
}
