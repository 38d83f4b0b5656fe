package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docrank/internal/api"
	"github.com/dgallion1/docrank/internal/embed"
	"github.com/dgallion1/docrank/internal/parser"
	"github.com/dgallion1/docrank/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  "Start an HTTP server that queues ranking jobs over uploaded documents and outlines single documents on demand.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	emb, err := embed.Load(cfg.ModelDir, logger)
	if err != nil {
		return &pipeline.ModelError{Message: "load embedder", Cause: err}
	}
	stats := embed.NewStats(time.Hour)
	if c, ok := emb.(interface{ Close() }); ok {
		defer c.Close()
	}

	runner := pipeline.NewRunner(embed.Instrument(emb, stats), pipeline.Options{
		Workers: cfg.WorkerCount,
		Parser:  parser.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext},
	}, logger)

	orch := pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
		Workers:      cfg.WorkerCount,
		MaxQueueSize: cfg.MaxQueueSize,
		JobTTL:       cfg.JobTTL,
	}, runner, logger)
	orch.Start(ctx)

	srv := api.NewServer(orch, stats, logger, cfg)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting docrank", "port", cfg.Port, "model", runner.Model())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		orch.Stop()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	orch.Stop()
	return nil
}
