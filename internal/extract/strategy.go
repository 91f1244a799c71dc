// Package extract defines extraction strategies and the router that selects
// between them.
package extract

import (
	"context"

	"github.com/gregorydickson/loan-sub001/internal/model"
)

// Strategy extracts borrower candidates from document text
type Strategy interface {
	// Name identifies the strategy in logs and results
	Name() string

	// Extract returns the borrower candidates found in req.Text. Offsets on
	// the candidates are rune offsets into req.Text.
	Extract(ctx context.Context, req Request) ([]model.ExtractedBorrower, error)
}

// Options are passed through to the strategy untouched
type Options struct {
	Model      string
	Passes     int
	MaxWorkers int
	ChunkChars int
}

// Request is one extraction call
type Request struct {
	Text     string
	Document model.DocumentMeta
	Options  Options
}

// OptionsFromConfig builds strategy options for the chosen model
func OptionsFromConfig(cfg model.ExtractionConfig, modelName string) Options {
	return Options{
		Model:      modelName,
		Passes:     cfg.Passes,
		MaxWorkers: cfg.MaxWorkers,
		ChunkChars: cfg.ChunkChars,
	}
}
