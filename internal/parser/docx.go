package parser

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/docrank/internal/doctree"
	"github.com/fumiama/go-docx"
)

// DOCXParser decodes .docx files. Word has no page geometry until it is
// laid out, so paragraph styles stand in for font sizes and only explicit page
// breaks advance the page.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	b := newSpanBuilder()
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		style := ""
		if para.Properties != nil && para.Properties.Style != nil {
			style = para.Properties.Style.Val
		}
		size, flags := styleGeometry(style)
		for i, text := range paragraphPages(para) {
			if i > 0 {
				b.nextPage()
			}
			b.add(text, size, flags)
		}
	}

	return b.document(filename), nil
}

// styleGeometry maps a paragraph style id ("Title", "Heading2", "heading 2")
// onto a synthetic size and style bits.
func styleGeometry(style string) (float64, doctree.StyleFlags) {
	key := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	switch key {
	case "title":
		return titleSize, doctree.FlagBold
	case "subtitle":
		return headingSize(2), 0
	}
	if rest, ok := strings.CutPrefix(key, "heading"); ok {
		if level, err := strconv.Atoi(rest); err == nil && level >= 1 && level <= 6 {
			return headingSize(level), doctree.FlagBold
		}
	}
	return bodySize, 0
}

// paragraphPages joins the run text of a paragraph, split at page breaks.
// Line breaks and tabs become spaces.
func paragraphPages(para *docx.Paragraph) []string {
	var pages []string
	var sb strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			switch v := rc.(type) {
			case *docx.Text:
				sb.WriteString(v.Text)
			case *docx.Tab:
				sb.WriteByte(' ')
			case *docx.BarterRabbet:
				if v.Type != "page" {
					sb.WriteByte(' ')
					continue
				}
				pages = append(pages, sb.String())
				sb.Reset()
			}
		}
	}
	return append(pages, sb.String())
}
