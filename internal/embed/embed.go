// Package embed provides the embedding backends used for relevance ranking.
// A model directory selects the backend through an optional embedder.yaml;
// the static, hash and onnx backends run fully offline.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Embedder converts text to vectors.
type Embedder interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns embeddings for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector dimension, or 0 if not yet known.
	Dimension() int

	// Model returns the model name.
	Model() string
}

// Backend names accepted in embedder.yaml.
const (
	BackendStatic = "static"
	BackendHTTP   = "http"
	BackendHash   = "hash"
	BackendONNX   = "onnx"
)

// Files looked up in the model directory.
const (
	ConfigFile  = "embedder.yaml"
	VectorsFile = "vectors.txt"
)

// DefaultHashDimension is the hash backend's dimension when none is configured.
const DefaultHashDimension = 384

// Config is the contents of embedder.yaml.
type Config struct {
	Backend   string        `yaml:"backend"`
	Model     string        `yaml:"model"`
	Dimension int           `yaml:"dimension"`
	Vectors   string        `yaml:"vectors"`    // Word-vector file, relative to the model directory
	Endpoint  string        `yaml:"endpoint"`   // Base URL for the http backend
	APIKey    string        `yaml:"api_key"`    // Optional bearer token for the http backend
	BatchSize int           `yaml:"batch_size"` // Texts per call for the http and onnx backends
	Timeout   time.Duration `yaml:"timeout"`
	OnnxFile  string        `yaml:"onnx_file"` // Graph to load when the onnx backend finds several
}

func (c *Config) defaults(modelDir string) {
	if c.Backend == "" {
		c.Backend = BackendStatic
		if hasONNXModel(modelDir) {
			c.Backend = BackendONNX
		}
	}
	if c.Model == "" {
		c.Model = filepath.Base(filepath.Clean(modelDir))
	}
	if c.Vectors == "" {
		c.Vectors = VectorsFile
	}
	if !filepath.IsAbs(c.Vectors) {
		c.Vectors = filepath.Join(modelDir, c.Vectors)
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Backend == BackendHash && c.Dimension <= 0 {
		c.Dimension = DefaultHashDimension
	}
}

// LoadConfig reads embedder.yaml from modelDir. Without a backend setting,
// a directory holding an .onnx graph uses the onnx backend and any other
// uses the static backend over vectors.txt.
func LoadConfig(modelDir string) (Config, error) {
	var cfg Config
	info, err := os.Stat(modelDir)
	if err != nil {
		return cfg, fmt.Errorf("model directory: %w", err)
	}
	if !info.IsDir() {
		return cfg, fmt.Errorf("model directory %s is not a directory", modelDir)
	}

	data, err := os.ReadFile(filepath.Join(modelDir, ConfigFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read %s: %w", ConfigFile, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", ConfigFile, err)
		}
	}
	cfg.defaults(modelDir)
	return cfg, nil
}

// Load builds the embedder described by modelDir.
func Load(modelDir string, log *slog.Logger) (Embedder, error) {
	if log == nil {
		log = slog.Default()
	}
	cfg, err := LoadConfig(modelDir)
	if err != nil {
		return nil, err
	}
	log = log.With("backend", cfg.Backend, "model", cfg.Model)

	switch cfg.Backend {
	case BackendStatic:
		emb, err := LoadStatic(cfg.Vectors, cfg.Model)
		if err != nil {
			return nil, err
		}
		log.Info("loaded word vectors", "words", emb.Len(), "dimension", emb.Dimension())
		return emb, nil
	case BackendHash:
		log.Info("using hashing embedder", "dimension", cfg.Dimension)
		return NewHash(cfg.Dimension, cfg.Model), nil
	case BackendHTTP:
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("%s: http backend needs an endpoint", ConfigFile)
		}
		log.Info("using http embedder", "endpoint", cfg.Endpoint)
		return NewHTTP(cfg, log), nil
	case BackendONNX:
		emb, err := LoadONNX(modelDir, cfg, log)
		if err != nil {
			return nil, err
		}
		log.Info("loaded onnx model", "batch_size", cfg.BatchSize)
		return emb, nil
	default:
		return nil, fmt.Errorf("%s: unknown backend %q", ConfigFile, cfg.Backend)
	}
}
