package doctree

import (
	"encoding/json"
	"fmt"
)

// StyleFlags is the style bitmask reported for a span.
type StyleFlags int

const (
	FlagItalic StyleFlags = 1 << 1
	FlagBold   StyleFlags = 1 << 4
)

// Bold reports whether the bold bit is set.
func (f StyleFlags) Bold() bool { return f&FlagBold != 0 }

// Span is a run of text sharing one font size and style, as reported by a layout decoder.
type Span struct {
	Text     string     // Raw span text
	Page     int        // 1-based page number
	FontSize float64    // Font size in points
	Flags    StyleFlags // Style bitmask
	Y        float64    // Top-down vertical position on the page
}

// Document is a decoded input document: the span sequence plus raw text per page.
type Document struct {
	Name      string         // Filename as listed in the request
	Spans     []Span         // Spans in reading order
	Pages     map[int]string // Raw text keyed by 1-based page number
	PageCount int
}

// PageText returns the raw text of a page, or "" when the page is unknown.
func (d *Document) PageText(page int) string {
	if d == nil || d.Pages == nil {
		return ""
	}
	return d.Pages[page]
}

// Level is a heading level.
type Level int

const (
	H1 Level = iota + 1
	H2
	H3
)

func (l Level) String() string {
	switch l {
	case H1:
		return "H1"
	case H2:
		return "H2"
	case H3:
		return "H3"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "H1":
		*l = H1
	case "H2":
		*l = H2
	case "H3":
		*l = H3
	default:
		return fmt.Errorf("unknown heading level %q", s)
	}
	return nil
}

// UntitledDocument is the title of a document with no usable text.
const UntitledDocument = "Untitled Document"

// Heading is one entry of a document outline.
type Heading struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
	Page  int    `json:"page"`
}

// Outline is the inferred title and heading list of a document.
type Outline struct {
	Title    string    `json:"title"`
	Headings []Heading `json:"outline"`
}

// Anchor is the representative point of a section: an H1 heading or the document title.
type Anchor struct {
	Text string
	Page int
}
