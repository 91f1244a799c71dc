package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gregorydickson/loan-sub001/internal/extract"
	"github.com/gregorydickson/loan-sub001/internal/model"
	"github.com/gregorydickson/loan-sub001/internal/segment"
)

const defaultChunkChars = 1000

// RateLimiter throttles provider calls; worker.Limiter satisfies it
type RateLimiter interface {
	Wait(ctx context.Context, key string) error
}

// Extractor is the LLM-backed extraction strategy. It splits the request text
// into chunks, runs several passes per chunk with bounded concurrency, and
// attaches offsets by locating each returned snippet in its chunk.
type Extractor struct {
	provider  Provider
	limiter   RateLimiter
	maxTokens int
	logger    *zap.Logger
}

// NewExtractor creates an extractor. limiter and logger may be nil.
func NewExtractor(provider Provider, limiter RateLimiter, maxTokens int, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		provider:  provider,
		limiter:   limiter,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Name returns the strategy name
func (e *Extractor) Name() string {
	return "llm-" + e.provider.Name()
}

// Extract implements extract.Strategy
func (e *Extractor) Extract(ctx context.Context, req extract.Request) ([]model.ExtractedBorrower, error) {
	chunkChars := req.Options.ChunkChars
	if chunkChars <= 0 {
		chunkChars = defaultChunkChars
	}
	segmenter, err := segment.NewSegmenter(chunkChars, chunkChars/10)
	if err != nil {
		return nil, fmt.Errorf("chunk text: %w", err)
	}
	chunks := segmenter.Segment(req.Text)

	passes := max(req.Options.Passes, 1)
	results := make([][]model.ExtractedBorrower, len(chunks)*passes)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(req.Options.MaxWorkers, 1))

	for i, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}
		for pass := 0; pass < passes; pass++ {
			slot := i*passes + pass
			g.Go(func() error {
				borrowers, err := e.extractChunk(gctx, req, chunk, pass, passes)
				if err != nil {
					return fmt.Errorf("chunk %d pass %d: %w", chunk.Index, pass, err)
				}
				results[slot] = borrowers
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []model.ExtractedBorrower
	for _, r := range results {
		out = append(out, r...)
	}

	e.logger.Debug("llm extraction complete",
		zap.String("document_id", req.Document.ID),
		zap.String("model", req.Options.Model),
		zap.Int("chunks", len(chunks)),
		zap.Int("passes", passes),
		zap.Int("candidates", len(out)),
	)
	return out, nil
}

func (e *Extractor) extractChunk(ctx context.Context, req extract.Request, chunk model.TextSegment, pass, passes int) ([]model.ExtractedBorrower, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, e.provider.Name()); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	resp, err := e.provider.Complete(ctx, CompletionRequest{
		System:    SystemPrompt,
		Prompt:    BuildExtractionPrompt(chunk, req.Document, pass, passes),
		Model:     req.Options.Model,
		MaxTokens: e.maxTokens,
	})
	if err != nil {
		return nil, err
	}

	borrowers, err := ParseBorrowers(resp.Text)
	if err != nil {
		return nil, err
	}

	for i := range borrowers {
		locateSnippet(&borrowers[i], chunk)
	}
	return borrowers, nil
}

// locateSnippet sets rune offsets relative to the full request text when the
// snippet is found verbatim in the chunk. The snippet is kept either way.
func locateSnippet(b *model.ExtractedBorrower, chunk model.TextSegment) {
	snippet := b.Snippet
	if snippet == "" {
		snippet = b.Name
	}
	idx := strings.Index(chunk.Text, snippet)
	if idx < 0 {
		return
	}
	start := chunk.StartOffset + utf8.RuneCountInString(chunk.Text[:idx])
	end := start + utf8.RuneCountInString(snippet)
	b.Snippet = snippet
	b.CharStart = &start
	b.CharEnd = &end
}
