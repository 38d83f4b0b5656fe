package embed

import (
	"context"
	"hash/fnv"
)

// Hash embeds text by signed feature hashing of its tokens. It needs no model
// files and is deterministic across runs.
type Hash struct {
	model string
	dim   int
}

// NewHash returns a hashing embedder with dim buckets.
func NewHash(dim int, model string) *Hash {
	if dim <= 0 {
		dim = DefaultHashDimension
	}
	if model == "" {
		model = "feature-hash"
	}
	return &Hash{model: model, dim: dim}
}

func (h *Hash) Embed(_ context.Context, text string) ([]float32, error) {
	out := make([]float32, h.dim)
	for _, tok := range tokenize(text) {
		f := fnv.New64a()
		f.Write([]byte(tok))
		sum := f.Sum64()
		bucket := sum % uint64(h.dim)
		if sum>>63 == 1 {
			out[bucket]--
		} else {
			out[bucket]++
		}
	}
	return out, nil
}

func (h *Hash) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := h.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (h *Hash) Dimension() int { return h.dim }
func (h *Hash) Model() string  { return h.model }
