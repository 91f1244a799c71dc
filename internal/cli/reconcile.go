package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gregorydickson/loan-sub001/internal/document"
	"github.com/gregorydickson/loan-sub001/internal/logging"
	"github.com/gregorydickson/loan-sub001/internal/pipeline"
	"github.com/gregorydickson/loan-sub001/internal/worker"
)

var (
	rawPath    string
	pageCount  int
	outJSON    string
	docTimeout time.Duration
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile <file>",
	Short: "Extract and reconcile the borrowers in one document",
	Long: `Reconcile runs the engine over a single document:
- Classify complexity and pick the extraction model
- Split long documents into overlapping segments
- Extract borrower candidates (LLM primary, heuristic fallback)
- Verify source offsets and translate them to the raw text
- Merge duplicate borrowers and score each record

Supported inputs: .txt, .md, .html, .htm. A sibling <name>.raw.txt is used
as the raw text for offset translation unless --raw is given.

Example:
  loanrecon reconcile application.txt
  loanrecon reconcile application.md --raw application.ocr.txt --pages 12
  loanrecon reconcile application.txt --method secondary --json result.json
  loanrecon reconcile application.txt --llm-provider openai --json -`,
	Args: cobra.ExactArgs(1),
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVar(&rawPath, "raw", "", "raw (pre-formatting) text file for offset translation")
	reconcileCmd.Flags().IntVar(&pageCount, "pages", 0, "page count (default: derived from form feeds)")
	reconcileCmd.Flags().StringVar(&outJSON, "json", "", "write the result as JSON to this path (- for stdout)")
	reconcileCmd.Flags().DurationVar(&docTimeout, "timeout", 10*time.Minute, "timeout for the document")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()

	doc, err := document.Load(args[0])
	if err != nil {
		return err
	}
	if rawPath != "" {
		raw, err := os.ReadFile(rawPath)
		if err != nil {
			return fmt.Errorf("read raw text: %w", err)
		}
		doc.Raw = string(raw)
	}
	if pageCount > 0 {
		doc.Meta.PageCount = pageCount
	}

	limiter := worker.NewLimiter(cfg.LLM.RequestsPerSecond, cfg.LLM.Burst)
	p, err := buildPipeline(cfg, limiter, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), docTimeout)
	defer cancel()

	logger.Debug("reconciling document",
		zap.String("path", doc.Path),
		zap.Int("pages", doc.Meta.PageCount),
		zap.Bool("raw", doc.HasRaw()),
		zap.String("method", cfg.Extraction.Method),
	)

	result, err := p.Process(ctx, doc)
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}

	renderer := pipeline.NewRenderer(cmd.OutOrStdout())
	switch outJSON {
	case "":
		renderer.RenderSummary(result)
	case "-":
		return pipeline.WriteJSON(cmd.OutOrStdout(), result)
	default:
		renderer.RenderSummary(result)
		if err := renderer.RenderJSON(result, outJSON); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote JSON: %s\n", outJSON)
	}
	return nil
}
