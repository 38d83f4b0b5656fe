package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *Result {
	now := time.Date(2025, 7, 1, 14, 30, 5, 0, time.FixedZone("CEST", 2*3600))
	return Assemble(
		[]string{"a.pdf", "b.pdf"},
		"Chef",
		"Plan a vegetarian <dinner> & dessert",
		[]ExtractedSection{
			{Document: "b.pdf", SectionTitle: "Soups", ImportanceRank: 1, PageNumber: 3},
			{Document: "a.pdf", SectionTitle: "Salads", ImportanceRank: 2, PageNumber: 1},
		},
		[]SubsectionAnalysis{
			{Document: "b.pdf", RefinedText: "Soup is warm.", PageNumber: 3},
			{Document: "a.pdf", RefinedText: "Salad is cold.", PageNumber: 1},
		},
		now,
	)
}

func TestAssemble_TimestampUTC(t *testing.T) {
	r := sampleResult()
	assert.Equal(t, "2025-07-01T12:30:05Z", r.Metadata.Timestamp)
}

func TestAssemble_PreservesOrder(t *testing.T) {
	r := sampleResult()
	assert.Equal(t, "b.pdf", r.ExtractedSections[0].Document)
	assert.Equal(t, "b.pdf", r.SubsectionAnalysis[0].Document)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, r.Metadata.Documents)
}

func TestAssemble_EmptyListsEncodeAsArrays(t *testing.T) {
	r := Assemble(nil, "p", "j", nil, nil, time.Now())
	data, err := Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"extracted_sections": []`)
	assert.Contains(t, string(data), `"subsection_analysis": []`)
	assert.Contains(t, string(data), `"documents": []`)
	assert.NoError(t, Validate(data))
}

func TestMarshal_KeysAndEscaping(t *testing.T) {
	data, err := Marshal(sampleResult())
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "<dinner> & dessert", "HTML characters are written verbatim")
	assert.Contains(t, text, "\n  \"metadata\": {")
	for _, key := range []string{"job_to_be_done", "section_title", "importance_rank", "page_number", "refined_text"} {
		assert.Contains(t, text, `"`+key+`"`)
	}
	assert.NoError(t, Validate(data))
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	path, err := Write(dir, sampleResult())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var back Result
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *sampleResult(), back)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.False(t, strings.HasSuffix(entries[0].Name(), ".tmp"))
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteJSON(dir, "doc.json", map[string]string{"title": "A & B"})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"title": "A & B"`)
}
