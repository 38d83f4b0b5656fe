package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
)

// Layout of one case folder.
const (
	caseInputDir   = "input"
	caseDescriptor = "challenge1b_input.json"
	caseOutputDir  = "output"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run ranking over several case folders",
	Long:  "Runs the ranking for each case folder (holding " + caseInputDir + "/, " + caseDescriptor + " and " + caseOutputDir + "/) with one shared embedder, stopping at the first failure.",
	RunE:  runBatch,
}

var (
	batchRoot           string
	batchCases          []string
	batchModelDir       string
	batchWorkers        int
	batchSkipValidation bool
)

func init() {
	batchCmd.Flags().StringVar(&batchRoot, "root", "", "Directory whose subdirectories are case folders")
	batchCmd.Flags().StringSliceVar(&batchCases, "case", nil, "Case folder to run (repeatable)")
	batchCmd.Flags().StringVar(&batchModelDir, "model_dir", "", "Embedding model directory (required)")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "Documents decoded in parallel (default DOCRANK_WORKERS)")
	batchCmd.Flags().BoolVar(&batchSkipValidation, "skip_validation", false, "Skip JSON schema validation of descriptor and result")

	if err := batchCmd.MarkFlagRequired("model_dir"); err != nil {
		panic(fmt.Sprintf("failed to mark model_dir flag as required: %v", err))
	}
	batchCmd.MarkFlagsMutuallyExclusive("root", "case")
	batchCmd.MarkFlagsOneRequired("root", "case")

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, _ []string) error {
	cases := batchCases
	if batchRoot != "" {
		var err error
		if cases, err = discoverCases(batchRoot); err != nil {
			return err
		}
		if len(cases) == 0 {
			return fmt.Errorf("no case folders with %s found under %s", caseDescriptor, batchRoot)
		}
	}

	runner, err := newRunner(batchModelDir, batchWorkers)
	if err != nil {
		return err
	}

	for i, dir := range cases {
		logger.Info("running case", "case", dir, "index", i+1, "total", len(cases))
		path, err := runCase(cmd.Context(), runner, dirsForCase(dir), !batchSkipValidation)
		if err != nil {
			return fmt.Errorf("case %s: %w", dir, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Results saved to: %s\n", path)
	}
	return nil
}

func dirsForCase(dir string) caseDirs {
	return caseDirs{
		Input:      filepath.Join(dir, caseInputDir),
		Descriptor: filepath.Join(dir, caseDescriptor),
		Output:     filepath.Join(dir, caseOutputDir),
	}
}

// discoverCases returns the subdirectories of root that hold a descriptor,
// in name order.
func discoverCases(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read batch root: %w", err)
	}
	var cases []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if _, err := os.Stat(filepath.Join(dir, caseDescriptor)); err == nil {
			cases = append(cases, dir)
		}
	}
	sort.Strings(cases)
	return cases, nil
}
