// Package parser decodes input documents into typographic spans: text runs
// with a page, font size, style bits and vertical position. PDFs carry real
// geometry; structured formats map their markup onto synthetic sizes.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dgallion1/docrank/internal/doctree"
)

// Parser decodes raw document bytes into a span sequence with per-page text.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Document, error)
}

// Options tunes parser behavior.
type Options struct {
	// FallbackPdftotext lets the PDF parser shell out to pdftotext when
	// neither Go extractor finds any text.
	FallbackPdftotext bool
}

var registry = map[string]func(Options) Parser{
	".pdf":      func(o Options) Parser { return &PDFParser{FallbackPdftotext: o.FallbackPdftotext} },
	".md":       func(Options) Parser { return &MarkdownParser{} },
	".markdown": func(Options) Parser { return &MarkdownParser{} },
	".html":     func(Options) Parser { return &HTMLParser{} },
	".htm":      func(Options) Parser { return &HTMLParser{} },
	".docx":     func(Options) Parser { return &DOCXParser{} },
	".txt":      func(Options) Parser { return &TextParser{} },
}

// ForFile picks the parser for filename by its extension.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	newParser, ok := registry[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
	return newParser(opts), nil
}

// IsSupportedExtension reports whether filename has a decodable extension.
func IsSupportedExtension(filename string) bool {
	_, ok := registry[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Extensions lists the supported extensions in sorted order.
func Extensions() []string {
	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
