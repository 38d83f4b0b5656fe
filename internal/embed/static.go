package embed

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Static embeds text as the mean of its known word vectors.
type Static struct {
	model   string
	dim     int
	vectors map[string][]float32
}

// LoadStatic reads a word2vec text file: an optional "count dimension" header
// line, then one word per line followed by its components.
func LoadStatic(path, model string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word vectors: %w", err)
	}
	defer f.Close()

	s := &Static{model: model, vectors: make(map[string][]float32)}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if lineNo == 1 && len(fields) == 2 {
			if _, err := strconv.Atoi(fields[0]); err == nil {
				continue
			}
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("%s:%d: word without components", path, lineNo)
		}
		vec := make([]float32, len(fields)-1)
		for i, raw := range fields[1:] {
			v, err := strconv.ParseFloat(raw, 32)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
			}
			vec[i] = float32(v)
		}
		if s.dim == 0 {
			s.dim = len(vec)
		} else if len(vec) != s.dim {
			return nil, fmt.Errorf("%s:%d: expected %d components, got %d", path, lineNo, s.dim, len(vec))
		}
		s.vectors[strings.ToLower(fields[0])] = vec
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read word vectors: %w", err)
	}
	if len(s.vectors) == 0 {
		return nil, fmt.Errorf("%s: no word vectors", path)
	}
	return s, nil
}

// NewStatic builds a static embedder from an in-memory table. All vectors
// must share one dimension.
func NewStatic(model string, vectors map[string][]float32) (*Static, error) {
	s := &Static{model: model, vectors: make(map[string][]float32, len(vectors))}
	for word, vec := range vectors {
		if s.dim == 0 {
			s.dim = len(vec)
		} else if len(vec) != s.dim {
			return nil, fmt.Errorf("word %q: expected %d components, got %d", word, s.dim, len(vec))
		}
		s.vectors[strings.ToLower(word)] = vec
	}
	return s, nil
}

func (s *Static) Embed(_ context.Context, text string) ([]float32, error) {
	out := make([]float32, s.dim)
	n := 0
	for _, tok := range tokenize(text) {
		vec, ok := s.vectors[tok]
		if !ok {
			continue
		}
		for i, v := range vec {
			out[i] += v
		}
		n++
	}
	if n > 0 {
		for i := range out {
			out[i] /= float32(n)
		}
	}
	return out, nil
}

func (s *Static) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (s *Static) Dimension() int { return s.dim }
func (s *Static) Model() string  { return s.model }

// Len returns the vocabulary size.
func (s *Static) Len() int { return len(s.vectors) }
