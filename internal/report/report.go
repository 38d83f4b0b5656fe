// Package report assembles and writes the persona relevance result artifact.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/docrank/internal/schemas"
)

// FileName is the name of the result artifact in the output directory.
const FileName = "round1b_result.json"

// TimestampLayout renders the assembly time in UTC with a literal Z.
const TimestampLayout = "2006-01-02T15:04:05Z"

type Metadata struct {
	Documents   []string `json:"documents"`
	Persona     string   `json:"persona"`
	JobToBeDone string   `json:"job_to_be_done"`
	Timestamp   string   `json:"timestamp"`
}

// ExtractedSection is a ranked section anchor.
type ExtractedSection struct {
	Document       string `json:"document"`
	SectionTitle   string `json:"section_title"`
	ImportanceRank int    `json:"importance_rank"`
	PageNumber     int    `json:"page_number"`
}

// SubsectionAnalysis is the extractive summary paired with an ExtractedSection.
type SubsectionAnalysis struct {
	Document    string `json:"document"`
	RefinedText string `json:"refined_text"`
	PageNumber  int    `json:"page_number"`
}

// Result is the whole artifact.
type Result struct {
	Metadata           Metadata             `json:"metadata"`
	ExtractedSections  []ExtractedSection   `json:"extracted_sections"`
	SubsectionAnalysis []SubsectionAnalysis `json:"subsection_analysis"`
}

// Assemble builds the result without reordering sections or summaries.
func Assemble(docs []string, persona, job string, sections []ExtractedSection, summaries []SubsectionAnalysis, now time.Time) *Result {
	if docs == nil {
		docs = []string{}
	}
	if sections == nil {
		sections = []ExtractedSection{}
	}
	if summaries == nil {
		summaries = []SubsectionAnalysis{}
	}
	return &Result{
		Metadata: Metadata{
			Documents:   docs,
			Persona:     persona,
			JobToBeDone: job,
			Timestamp:   now.UTC().Format(TimestampLayout),
		},
		ExtractedSections:  sections,
		SubsectionAnalysis: summaries,
	}
}

// Marshal encodes a result with two-space indentation and without HTML escaping.
func Marshal(r *Result) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return buf.Bytes(), nil
}

// Validate checks encoded result data against the result schema.
func Validate(data []byte) error {
	return schemas.Validate(schemas.Result, data)
}

// Write stores the result as FileName in dir and returns its path. The file
// is written to a temporary name first and renamed into place.
func Write(dir string, r *Result) (string, error) {
	data, err := Marshal(r)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	return writeAtomic(dir, FileName, data)
}

// WriteJSON stores any value as indented JSON under name in dir.
func WriteJSON(dir, name string, v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	return writeAtomic(dir, name, buf.Bytes())
}

func writeAtomic(dir, name string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return "", fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("rename %s: %w", name, err)
	}
	return path, nil
}
