package ranking

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docrank/internal/doctree"
	"github.com/dgallion1/docrank/internal/embed"
	"github.com/dgallion1/docrank/internal/section"
)

// fakeEmbedder returns fixed vectors by text and counts batch calls.
type fakeEmbedder struct {
	vectors    map[string][]float32
	batchCalls int
	err        error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[text], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.batchCalls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 2 }
func (f *fakeEmbedder) Model() string  { return "fake" }

func sec(text string, page int) section.Section {
	return section.Section{Anchor: doctree.Anchor{Text: text, Page: page}, Snippet: text}
}

func TestQueryText(t *testing.T) {
	assert.Equal(t, "Chef: Plan a vegetarian dinner", QueryText("Chef", "Plan a vegetarian dinner"))
}

func TestRank_OrdersBySimilarity(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"far":  {0, 1},
		"near": {1, 0},
		"mid":  {1, 1},
	}}
	got, err := Rank(context.Background(), emb, []float32{1, 0}, []section.Section{
		sec("far", 1), sec("near", 2), sec("mid", 3),
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "near", got[0].Section.Anchor.Text)
	assert.Equal(t, "mid", got[1].Section.Anchor.Text)
	assert.Equal(t, "far", got[2].Section.Anchor.Text)
	assert.InDelta(t, 1.0, got[0].Similarity, 1e-9)
	assert.Equal(t, 1, emb.batchCalls, "one batch call per document")
}

func TestRank_TiesKeepAnchorOrder(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"b": {1, 0},
		"a": {2, 0},
		"c": {0, 1},
		"d": {3, 0},
	}}
	got, err := Rank(context.Background(), emb, []float32{1, 0}, []section.Section{
		sec("b", 1), sec("c", 1), sec("a", 2), sec("d", 3),
	})
	require.NoError(t, err)
	var order []string
	for _, s := range got {
		order = append(order, s.Section.Anchor.Text)
	}
	assert.Equal(t, []string{"b", "a", "d", "c"}, order)
}

func TestRank_NaNSortsLast(t *testing.T) {
	nan := float32(math.NaN())
	emb := &fakeEmbedder{vectors: map[string][]float32{
		"broken": {nan, 0},
		"low":    {-1, 0},
		"high":   {1, 0},
	}}
	got, err := Rank(context.Background(), emb, []float32{1, 0}, []section.Section{
		sec("broken", 1), sec("low", 1), sec("high", 1),
	})
	require.NoError(t, err)
	assert.Equal(t, "high", got[0].Section.Anchor.Text)
	assert.Equal(t, "low", got[1].Section.Anchor.Text)
	assert.Equal(t, "broken", got[2].Section.Anchor.Text)
}

func TestRank_EmbedError(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("model exploded")}
	_, err := Rank(context.Background(), emb, []float32{1, 0}, []section.Section{sec("x", 1)})
	assert.ErrorContains(t, err, "model exploded")
}

func TestRank_WithHashEmbedder(t *testing.T) {
	emb := embed.NewHash(1024, "")
	query, err := emb.Embed(context.Background(), QueryText("Chef", "Plan a vegetarian dinner"))
	require.NoError(t, err)

	got, err := Rank(context.Background(), emb, query, []section.Section{
		{Anchor: doctree.Anchor{Text: "Train Schedules", Page: 1}, Snippet: "Train Schedules\nplatform departures timetable"},
		{Anchor: doctree.Anchor{Text: "Vegetarian Dinner", Page: 2}, Snippet: "Vegetarian Dinner\nplan a vegetarian dinner for the chef"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Vegetarian Dinner", got[0].Section.Anchor.Text)
}

func TestAssignRanks(t *testing.T) {
	docs := []DocumentRanking{
		{Document: "a.pdf", Sections: []Scored{{Section: sec("A1", 1)}, {Section: sec("A2", 4)}}},
		{Document: "missing.pdf"},
		{Document: "b.pdf", Sections: []Scored{{Section: sec("B1", 2)}}},
	}
	got := AssignRanks(docs)
	require.Len(t, got, 3)
	for i, s := range got {
		assert.Equal(t, i+1, s.ImportanceRank)
	}
	assert.Equal(t, "a.pdf", got[0].Document)
	assert.Equal(t, "A2", got[1].SectionTitle)
	assert.Equal(t, 4, got[1].PageNumber)
	assert.Equal(t, "b.pdf", got[2].Document)
}

func TestAssignRanks_Empty(t *testing.T) {
	assert.Empty(t, AssignRanks(nil))
}
