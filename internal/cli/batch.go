package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gregorydickson/loan-sub001/internal/logging"
	"github.com/gregorydickson/loan-sub001/internal/pipeline"
	"github.com/gregorydickson/loan-sub001/internal/worker"
)

var (
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir|list-file>",
	Short: "Reconcile many documents in parallel",
	Long: `Batch reconciles every supported document in a directory, or every path
listed in a file (one per line, # comments allowed), with a pool of workers.
Each document is processed sequentially by the engine; parallelism is across
documents only. All workers share one rate limit per LLM provider.

One JSON result per document is written to the output directory, plus a
summary.json with the batch totals.

Example:
  loanrecon batch ./applications
  loanrecon batch documents.txt --concurrency 8 --output-dir ./results`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("concurrency", 0, "number of concurrent documents (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./loanrecon-results", "output directory for results")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", time.Hour, "total timeout for batch processing")

	_ = viper.BindPFlag("concurrency.workers", batchCmd.Flags().Lookup("concurrency"))
}

func runBatch(cmd *cobra.Command, args []string) error {
	input := args[0]

	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()

	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("batch input: %w", err)
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  loanrecon batch\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Input:        %s\n", input)
	fmt.Fprintf(stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(stderr, "  Method:       %s\n", cfg.Extraction.Method)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(stderr, "  LLM:          %s\n", cfg.LLM.Provider)
	}
	fmt.Fprintf(stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	limiter := worker.NewLimiter(cfg.LLM.RequestsPerSecond, cfg.LLM.Burst)
	p, err := buildPipeline(cfg, limiter, logger)
	if err != nil {
		return err
	}
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers, logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	var outcomes []*worker.DocumentOutcome
	if info.IsDir() {
		outcomes, err = processor.ProcessDir(ctx, input)
	} else {
		outcomes, err = processor.ProcessFile(ctx, input)
	}
	if err != nil {
		return err
	}

	renderer := pipeline.NewRenderer(stderr)
	names := resultNames(outcomes)
	for i, o := range outcomes {
		label := o.Name
		if label == "" {
			label = o.Path
		}
		if o.Error != nil {
			fmt.Fprintf(stderr, "✗ %s: %v\n", label, o.Error)
			continue
		}

		jsonPath := filepath.Join(outputDir, names[i]+".json")
		if err := renderer.RenderJSON(o.Result, jsonPath); err != nil {
			fmt.Fprintf(stderr, "✗ %s: failed to write JSON: %v\n", label, err)
			continue
		}
		fmt.Fprintf(stderr, "✓ %s: %d borrowers, %d require review (%s)\n",
			label, len(o.Result.Borrowers), o.Result.ReviewCount(), o.Duration.Round(time.Millisecond))
	}

	summary := worker.Summarize(outcomes)
	f, err := os.Create(filepath.Join(outputDir, "summary.json"))
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	err = pipeline.WriteJSON(f, summary)
	_ = f.Close()
	if err != nil {
		return err
	}

	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  Batch Complete\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Documents:       %d\n", summary.Documents)
	fmt.Fprintf(stderr, "  Succeeded:       %d\n", summary.Succeeded)
	fmt.Fprintf(stderr, "  Failed:          %d\n", summary.Failed)
	fmt.Fprintf(stderr, "  Borrowers:       %d\n", summary.Borrowers)
	fmt.Fprintf(stderr, "  Require review:  %d\n", summary.RequiresReview)
	fmt.Fprintf(stderr, "  Output:          %s\n", outputDir)
	fmt.Fprintf(stderr, "\n")

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d documents failed", summary.Failed, summary.Documents)
	}
	return nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// resultNames assigns each successful outcome a result file stem that no other
// outcome in the batch uses. Documents sharing a base name from different
// directories get -2, -3, ... suffixes in input order.
func resultNames(outcomes []*worker.DocumentOutcome) []string {
	names := make([]string, len(outcomes))
	taken := map[string]bool{"summary": true}
	for i, o := range outcomes {
		if o.Error != nil {
			continue
		}
		base := outputName(o.Name)
		name := base
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s-%d", base, n)
		}
		taken[name] = true
		names[i] = name
	}
	return names
}

// outputName turns a document name into a safe result file stem
func outputName(docName string) string {
	s := strings.TrimSuffix(docName, filepath.Ext(docName))
	s = filenameReplacer.Replace(s)
	if s == "" {
		s = "document"
	}

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
