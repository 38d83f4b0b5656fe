package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docrank/internal/parser"
	"github.com/dgallion1/docrank/internal/pipeline"
	"github.com/dgallion1/docrank/internal/report"
)

var outlineCmd = &cobra.Command{
	Use:   "outline",
	Short: "Write the inferred outline of every document in a directory",
	Long:  "Decodes each supported document in the input directory and writes <name>.json holding its title and heading list to the output directory.",
	RunE:  runOutline,
}

var (
	outlineInputDir  string
	outlineOutputDir string
)

func init() {
	outlineCmd.Flags().StringVar(&outlineInputDir, "input_dir", "", "Directory holding the input documents (required)")
	outlineCmd.Flags().StringVar(&outlineOutputDir, "output_dir", "", "Directory to write outlines to (required)")

	for _, name := range []string{"input_dir", "output_dir"} {
		if err := outlineCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}

	rootCmd.AddCommand(outlineCmd)
}

func runOutline(cmd *cobra.Command, _ []string) error {
	opts := parser.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext}
	paths, err := writeOutlines(outlineInputDir, outlineOutputDir, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d outlines to: %s\n", len(paths), outlineOutputDir)
	return nil
}

// writeOutlines outlines every supported file in inputDir. A document that
// fails to decode still gets an outline, with the untitled fallback.
func writeOutlines(inputDir, outputDir string, opts parser.Options) ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, &pipeline.ConfigError{Message: "input directory", Cause: err}
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !parser.IsSupportedExtension(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	paths := make([]string, 0, len(names))
	for _, name := range names {
		doc, err := pipeline.DecodeFile(filepath.Join(inputDir, name), name, opts)
		if err != nil {
			logger.Warn("decode failed, writing empty outline", "document", name, "error", err)
			doc = nil
		}
		a := pipeline.Analyze(name, doc)

		out := strings.TrimSuffix(name, filepath.Ext(name)) + ".json"
		path, err := report.WriteJSON(outputDir, out, a.Outline)
		if err != nil {
			return paths, fmt.Errorf("write outline for %s: %w", name, err)
		}
		logger.Debug("outline written", "document", name, "headings", len(a.Outline.Headings))
		paths = append(paths, path)
	}
	return paths, nil
}
