package embed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

// ONNX runs a sentence-transformers model exported to ONNX in process,
// using hugot's pure Go runtime. Vectors are mean pooled and L2 normalized.
type ONNX struct {
	model     string
	batchSize int
	log       *slog.Logger

	mu       sync.Mutex
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	dim      int
}

// LoadONNX opens the ONNX model and tokenizer found under modelDir.
func LoadONNX(modelDir string, cfg Config, log *slog.Logger) (*ONNX, error) {
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("start onnx session: %w", err)
	}
	pipeline, err := hugot.NewPipeline(session, hugot.FeatureExtractionConfig{
		ModelPath:    modelDir,
		Name:         cfg.Model,
		OnnxFilename: cfg.OnnxFile,
		Options:      []hugot.FeatureExtractionOption{pipelines.WithNormalization()},
	})
	if err != nil {
		if derr := session.Destroy(); derr != nil {
			log.Warn("destroy onnx session", "error", derr)
		}
		return nil, fmt.Errorf("load onnx model %s: %w", modelDir, err)
	}
	return &ONNX{
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		log:       log,
		session:   session,
		pipeline:  pipeline,
		dim:       cfg.Dimension,
	}, nil
}

func (o *ONNX) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch runs the pipeline over texts in chunks of the configured batch
// size. Calls are serialized; the session is not shared across goroutines.
func (o *ONNX) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += o.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+o.batchSize, len(texts))
		vecs, err := o.run(texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (o *ONNX) run(texts []string) ([][]float32, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	res, err := o.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("onnx embed: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("onnx embed: %d vectors for %d texts", len(res.Embeddings), len(texts))
	}
	if o.dim == 0 && len(res.Embeddings) > 0 {
		o.dim = len(res.Embeddings[0])
	}
	return res.Embeddings, nil
}

func (o *ONNX) Dimension() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dim
}

func (o *ONNX) Model() string { return o.model }

// Close releases the runtime session.
func (o *ONNX) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.session.Destroy(); err != nil {
		o.log.Warn("destroy onnx session", "error", err)
	}
}

// hasONNXModel reports whether modelDir holds an exported ONNX graph,
// either at the top level or in the onnx/ subdirectory sentence-transformers
// writes.
func hasONNXModel(modelDir string) bool {
	for _, dir := range []string{modelDir, filepath.Join(modelDir, "onnx")} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".onnx") {
				return true
			}
		}
	}
	return false
}
