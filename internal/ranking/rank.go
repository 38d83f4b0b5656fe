// Package ranking scores a document's sections against the persona query and
// numbers the emitted sections across a whole run.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/dgallion1/docrank/internal/embed"
	"github.com/dgallion1/docrank/internal/report"
	"github.com/dgallion1/docrank/internal/section"
)

// QueryText is the text embedded once per run as the relevance query.
func QueryText(persona, job string) string {
	return persona + ": " + job
}

// Scored is a section with its similarity to the query.
type Scored struct {
	Section    section.Section
	Similarity float64
}

// DocumentRanking is one document's similarity-ordered sections.
type DocumentRanking struct {
	Document string
	Sections []Scored
}

// Rank embeds all sections of one document in a single batch and orders them
// by descending cosine similarity to query. Equal similarities keep anchor
// order; NaN similarities sort last.
func Rank(ctx context.Context, emb embed.Embedder, query []float32, sections []section.Section) ([]Scored, error) {
	if len(sections) == 0 {
		return nil, nil
	}

	snippets := make([]string, len(sections))
	for i, s := range sections {
		snippets[i] = s.Snippet
	}
	vecs, err := emb.EmbedBatch(ctx, snippets)
	if err != nil {
		return nil, fmt.Errorf("embed sections: %w", err)
	}
	if len(vecs) != len(sections) {
		return nil, fmt.Errorf("embed sections: got %d vectors for %d sections", len(vecs), len(sections))
	}

	scored := make([]Scored, len(sections))
	for i, s := range sections {
		scored[i] = Scored{Section: s, Similarity: embed.CosineSimilarity(query, vecs[i])}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i].Similarity, scored[j].Similarity
		if math.IsNaN(a) || math.IsNaN(b) {
			return !math.IsNaN(a) && math.IsNaN(b)
		}
		return a > b
	})
	return scored, nil
}

// AssignRanks flattens per-document rankings, in document order, into the
// run's extracted sections. Ranks start at 1 and increase by one per section.
func AssignRanks(docs []DocumentRanking) []report.ExtractedSection {
	var out []report.ExtractedSection
	for _, d := range docs {
		for _, s := range d.Sections {
			out = append(out, report.ExtractedSection{
				Document:       d.Document,
				SectionTitle:   s.Section.Anchor.Text,
				ImportanceRank: len(out) + 1,
				PageNumber:     s.Section.Anchor.Page,
			})
		}
	}
	return out
}
