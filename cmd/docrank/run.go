package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docrank/internal/embed"
	"github.com/dgallion1/docrank/internal/parser"
	"github.com/dgallion1/docrank/internal/pipeline"
	"github.com/dgallion1/docrank/internal/report"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Rank the sections of a document collection",
	Long:  "Reads the input descriptor, outlines every listed document, ranks top-level sections against the persona and job, and writes " + report.FileName + " to the output directory.",
	RunE:  runRun,
}

var (
	runInputDir       string
	runInputJSON      string
	runOutputDir      string
	runModelDir       string
	runWorkers        int
	runSkipValidation bool
)

func init() {
	runCmd.Flags().StringVar(&runInputDir, "input_dir", "", "Directory holding the input documents (required)")
	runCmd.Flags().StringVar(&runInputJSON, "input_json", "", "Path to the input descriptor JSON (required)")
	runCmd.Flags().StringVar(&runOutputDir, "output_dir", "", "Directory to write "+report.FileName+" to (required)")
	runCmd.Flags().StringVar(&runModelDir, "model_dir", "", "Embedding model directory (required)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Documents decoded in parallel (default DOCRANK_WORKERS)")
	runCmd.Flags().BoolVar(&runSkipValidation, "skip_validation", false, "Skip JSON schema validation of descriptor and result")

	for _, name := range []string{"input_dir", "input_json", "output_dir", "model_dir"} {
		if err := runCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	runner, err := newRunner(runModelDir, runWorkers)
	if err != nil {
		return err
	}
	path, err := runCase(cmd.Context(), runner, caseDirs{
		Input:      runInputDir,
		Descriptor: runInputJSON,
		Output:     runOutputDir,
	}, !runSkipValidation)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Results saved to: %s\n", path)
	return nil
}

// caseDirs locates the inputs and output of one ranking run.
type caseDirs struct {
	Input      string
	Descriptor string
	Output     string
}

// newRunner loads the embedder from modelDir. Load failures are ModelErrors.
func newRunner(modelDir string, workers int) (*pipeline.Runner, error) {
	emb, err := embed.Load(modelDir, logger)
	if err != nil {
		return nil, &pipeline.ModelError{Message: "load embedder", Cause: err}
	}
	if workers <= 0 {
		workers = cfg.WorkerCount
	}
	opts := pipeline.Options{
		Workers: workers,
		Parser:  parser.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext},
	}
	return pipeline.NewRunner(emb, opts, logger), nil
}

// runCase executes one ranking run and writes its result, returning the
// result path.
func runCase(ctx context.Context, runner *pipeline.Runner, dirs caseDirs, validate bool) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := pipeline.LoadRequest(dirs.Input, dirs.Descriptor, validate)
	if err != nil {
		return "", err
	}

	res, err := runner.Run(ctx, req)
	if err != nil {
		return "", err
	}

	if validate {
		data, err := report.Marshal(res)
		if err != nil {
			return "", err
		}
		if err := report.Validate(data); err != nil {
			return "", fmt.Errorf("result failed validation: %w", err)
		}
	}

	path, err := report.Write(dirs.Output, res)
	if err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	slog.Info("result written", "path", path, "sections", len(res.ExtractedSections))
	return path, nil
}
