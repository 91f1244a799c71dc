package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gregorydickson/loan-sub001/internal/model"
)

// Renderer writes document results for people and for the persistence layer
type Renderer struct {
	out io.Writer
}

// NewRenderer creates a renderer whose summaries go to out
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// RenderJSON writes the result as indented JSON, creating parent directories
func (r *Renderer) RenderJSON(result *model.DocumentResult, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := WriteJSON(f, result); err != nil {
		return err
	}
	return f.Close()
}

// WriteJSON encodes v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// RenderSummary prints a short human-readable summary
func (r *Renderer) RenderSummary(result *model.DocumentResult) {
	fmt.Fprintf(r.out, "\n%s\n", result.Document.Name)
	fmt.Fprintf(r.out, "  Complexity: %s (%s)\n", result.Assessment.Level, strings.Join(result.Assessment.Reasons, "; "))
	if result.Model != "" {
		fmt.Fprintf(r.out, "  Model:      %s\n", result.Model)
	}
	fmt.Fprintf(r.out, "  Segments:   %d  Candidates: %d", result.SegmentCount, result.Candidates)
	if result.FellBack {
		fmt.Fprint(r.out, "  (fell back to secondary strategy)")
	}
	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "  Borrowers:  %d (%d require review)\n", len(result.Borrowers), result.ReviewCount())

	for _, b := range result.Borrowers {
		mark := "✓"
		if b.Confidence.RequiresReview {
			mark = "!"
		}
		fmt.Fprintf(r.out, "    %s %-28s confidence %.2f  sources %d\n",
			mark, b.Record.Name, b.Confidence.Total, len(b.Record.Sources))

		for _, field := range slices.Sorted(maps.Keys(b.Validation.Fields)) {
			for _, e := range b.Validation.Fields[field].Errors {
				fmt.Fprintf(r.out, "        %s %s: %s\n", e.ErrorType, e.Field, e.Message)
			}
		}
	}
}
