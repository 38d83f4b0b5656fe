package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth for the HTTP API. Empty disables authentication.
	APIKey string

	// Embedding model directory
	ModelDir string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment after loading an optional
// .env file from the working directory.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("DOCRANK_PORT", "8090"),

		APIKey:   os.Getenv("DOCRANK_API_KEY"),
		ModelDir: os.Getenv("DOCRANK_MODEL_DIR"),

		WorkerCount:  env("DOCRANK_WORKERS", 4, strconv.Atoi),
		MaxQueueSize: env("DOCRANK_MAX_QUEUE_SIZE", 100, strconv.Atoi),

		MaxUploadBytes: env("DOCRANK_MAX_UPLOAD_BYTES", int64(52428800), parseInt64), // 50MB

		JobTTL: env("DOCRANK_JOB_TTL", time.Hour, time.ParseDuration),

		PDFFallbackPdftotext: env("DOCRANK_PDF_FALLBACK_PDFTOTEXT", true, strconv.ParseBool),

		LogLevel:  strings.ToLower(envOr("DOCRANK_LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(envOr("DOCRANK_LOG_FORMAT", "json")),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate checks values that have no safe fallback.
func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("DOCRANK_PORT must be a number, got %q", c.Port)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("DOCRANK_LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	return nil
}

// ValidateServe additionally checks what the HTTP API needs.
func (c Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ModelDir == "" {
		return fmt.Errorf("DOCRANK_MODEL_DIR is required")
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level.
func (c Config) SlogLevel() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("DOCRANK_LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel)
}

// NewLogger builds the process logger writing to w.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := c.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// env parses the variable key, keeping fallback when it is unset or does not
// parse.
func env[T any](key string, fallback T, parse func(string) (T, error)) T {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := parse(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseInt64(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }
