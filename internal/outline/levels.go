package outline

import (
	"sort"

	"github.com/dgallion1/docrank/internal/doctree"
)

// maxLevels is how many distinct candidate sizes get their own level.
const maxLevels = 3

// LevelTable maps the largest distinct candidate font sizes onto H1, H2 and
// H3 in that order. Sizes outside the table fall back to H3.
type LevelTable struct {
	sizes []float64
}

// NewLevelTable builds the table from heading candidates.
func NewLevelTable(candidates []doctree.Span) LevelTable {
	seen := make(map[float64]bool)
	var sizes []float64
	for _, c := range candidates {
		if !seen[c.FontSize] {
			seen[c.FontSize] = true
			sizes = append(sizes, c.FontSize)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sizes)))
	if len(sizes) > maxLevels {
		sizes = sizes[:maxLevels]
	}
	return LevelTable{sizes: sizes}
}

// Sizes returns the table's sizes, largest first.
func (t LevelTable) Sizes() []float64 {
	return append([]float64(nil), t.sizes...)
}

// Level returns the heading level for a font size.
func (t LevelTable) Level(size float64) doctree.Level {
	for i, s := range t.sizes {
		if s == size {
			return doctree.H1 + doctree.Level(i)
		}
	}
	return doctree.H3
}
