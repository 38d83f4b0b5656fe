package embed

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const sampleVectors = `3 2
soup 1 0
salad 0.8 0.2
train 0 1
`

func TestLoad_StaticWithoutConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, VectorsFile, sampleVectors)

	emb, err := Load(dir, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, emb.Dimension())
	assert.Equal(t, filepath.Base(dir), emb.Model())

	vec, err := emb.Embed(context.Background(), "Soup and SALAD!")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.9, 0.1}, vec, 1e-6)
}

func TestLoad_HashFromConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ConfigFile, "backend: hash\ndimension: 64\nmodel: test-hash\n")

	emb, err := Load(dir, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 64, emb.Dimension())
	assert.Equal(t, "test-hash", emb.Model())
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope"), quietLogger())
		assert.Error(t, err)
	})
	t.Run("no vectors", func(t *testing.T) {
		_, err := Load(t.TempDir(), quietLogger())
		assert.Error(t, err)
	})
	t.Run("unknown backend", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, ConfigFile, "backend: quantum\n")
		_, err := Load(dir, quietLogger())
		assert.ErrorContains(t, err, "unknown backend")
	})
	t.Run("http without endpoint", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, ConfigFile, "backend: http\n")
		_, err := Load(dir, quietLogger())
		assert.ErrorContains(t, err, "endpoint")
	})
	t.Run("bad yaml", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, ConfigFile, "backend: [unclosed\n")
		_, err := Load(dir, quietLogger())
		assert.Error(t, err)
	})
}

func TestLoadConfig_Timeout(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ConfigFile, "backend: http\nendpoint: http://localhost:8003\ntimeout: 5s\n")
	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "5s", cfg.Timeout.String())
	assert.Equal(t, 32, cfg.BatchSize)
}

func TestLoadStatic_DimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, VectorsFile, "a 1 2\nb 1 2 3\n")
	_, err := LoadStatic(filepath.Join(dir, VectorsFile), "m")
	assert.ErrorContains(t, err, "expected 2 components")
}

func TestStatic_UnknownTokensGiveZeroVector(t *testing.T) {
	emb, err := NewStatic("m", map[string][]float32{"soup": {1, 2}})
	require.NoError(t, err)

	vec, err := emb.Embed(context.Background(), "quantum chromodynamics")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0}, vec)
}

func TestBatchMatchesSingle(t *testing.T) {
	static, err := NewStatic("m", map[string][]float32{"soup": {1, 0}, "train": {0, 1}})
	require.NoError(t, err)

	for _, emb := range []Embedder{static, NewHash(32, "")} {
		texts := []string{"soup", "train soup", "nothing known"}
		batch, err := emb.EmbedBatch(context.Background(), texts)
		require.NoError(t, err)
		require.Len(t, batch, len(texts))
		for i, text := range texts {
			single, err := emb.Embed(context.Background(), text)
			require.NoError(t, err)
			assert.Equal(t, single, batch[i], "text %q", text)
		}
	}
}

func TestHash_Deterministic(t *testing.T) {
	a := NewHash(0, "")
	b := NewHash(0, "")
	assert.Equal(t, DefaultHashDimension, a.Dimension())

	va, _ := a.Embed(context.Background(), "vegetarian dinner menu")
	vb, _ := b.Embed(context.Background(), "Vegetarian, dinner menu.")
	assert.Equal(t, va, vb)

	other, _ := a.Embed(context.Background(), "railway timetable")
	assert.Less(t, CosineSimilarity(va, other), CosineSimilarity(va, vb))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-3, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}
