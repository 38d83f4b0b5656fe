package parser

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/dgallion1/docrank/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles PDF files. It reads glyph geometry with the Go library and
// falls back to text-only extraction (pdfcpu, then pdftotext if enabled) when
// the library cannot open the file or finds no sized glyphs in it.
type PDFParser struct {
	FallbackPdftotext bool
}

const defaultPageHeight = 792.0

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docrank-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	doc, err := extractPDFSpans(tmpPath)
	if err == nil && len(doc.Spans) > 0 {
		doc.Name = filename
		return doc, nil
	}

	pages, fbErr := extractPdfcpuPages(tmpPath)
	if fbErr != nil && p.FallbackPdftotext {
		pages, fbErr = extractPdftotext(tmpPath)
	}
	switch {
	case fbErr == nil:
		return documentFromPlainPages(filename, pages), nil
	case err == nil:
		// Opened cleanly but holds no text anywhere.
		doc.Name = filename
		return doc, nil
	}
	return nil, fmt.Errorf("extract pdf text: %w", errors.Join(err, fbErr))
}

func extractPDFSpans(path string) (doc *doctree.Document, err error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// The decoder panics on some malformed content streams.
	defer func() {
		if rec := recover(); rec != nil {
			doc, err = nil, fmt.Errorf("pdf decoder: %v", rec)
		}
	}()

	numPages := reader.NumPage()
	doc = &doctree.Document{
		Pages:     make(map[int]string, numPages),
		PageCount: numPages,
	}
	fonts := make(map[string]*pdflib.Font)

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}

		spans := mergeGlyphs(page.Content().Text, i, pageHeight(page))
		doc.Spans = append(doc.Spans, spans...)

		text, err := page.GetPlainText(fonts)
		if err != nil {
			text = joinSpanLines(spans)
		}
		doc.Pages[i] = text
	}
	return doc, nil
}

// pageHeight reads the MediaBox height, walking up the page tree for inherited boxes.
func pageHeight(page pdflib.Page) float64 {
	v := page.V
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			if h := box.Index(3).Float64() - box.Index(1).Float64(); h > 0 {
				return h
			}
		}
		v = v.Key("Parent")
	}
	return defaultPageHeight
}

type glyphRun struct {
	font     string
	size     float64
	baseline float64
	end      float64
	text     strings.Builder
}

// mergeGlyphs joins consecutive glyphs that share font, size and baseline into spans.
func mergeGlyphs(glyphs []pdflib.Text, page int, height float64) []doctree.Span {
	var spans []doctree.Span
	var cur *glyphRun

	flush := func() {
		if cur == nil {
			return
		}
		if strings.TrimSpace(cur.text.String()) != "" {
			spans = append(spans, doctree.Span{
				Text:     cur.text.String(),
				Page:     page,
				FontSize: cur.size,
				Flags:    fontFlags(cur.font),
				Y:        height - (cur.baseline + cur.size),
			})
		}
		cur = nil
	}

	for _, g := range glyphs {
		if g.S == "" || g.FontSize <= 0 {
			continue
		}
		if cur != nil && !sameRun(cur, g) {
			flush()
		}
		if cur == nil {
			cur = &glyphRun{font: g.Font, size: g.FontSize, baseline: g.Y, end: g.X}
		} else if g.X-cur.end > 0.25*cur.size && !endsWithSpace(&cur.text) && !strings.HasPrefix(g.S, " ") {
			cur.text.WriteByte(' ')
		}
		cur.text.WriteString(g.S)
		if e := g.X + g.W; e > cur.end {
			cur.end = e
		}
	}
	flush()
	return spans
}

func sameRun(cur *glyphRun, g pdflib.Text) bool {
	if g.Font != cur.font || math.Abs(g.FontSize-cur.size) > 0.01 {
		return false
	}
	if math.Abs(g.Y-cur.baseline) > 0.5*cur.size {
		return false
	}
	// A jump back to the left margin is a new line even at the same baseline.
	return g.X >= cur.end-cur.size
}

func endsWithSpace(sb *strings.Builder) bool {
	s := sb.String()
	return s != "" && s[len(s)-1] == ' '
}

// joinSpanLines rebuilds page text from spans, one line per distinct vertical position.
func joinSpanLines(spans []doctree.Span) string {
	if len(spans) == 0 {
		return ""
	}
	sorted := make([]doctree.Span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y < sorted[j].Y })

	var sb strings.Builder
	lastY := sorted[0].Y
	for i, s := range sorted {
		if i > 0 {
			if math.Abs(s.Y-lastY) > 0.5*s.FontSize {
				sb.WriteString("\n")
			} else {
				sb.WriteString(" ")
			}
		}
		sb.WriteString(strings.TrimSpace(s.Text))
		lastY = s.Y
	}
	return sb.String()
}

func extractPdftotext(path string) ([]string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	pages := strings.Split(string(out), "\f")
	// pdftotext terminates the last page with a form feed.
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages, nil
}
