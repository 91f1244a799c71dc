// Package pipeline runs the reconciliation engine over one document: classify,
// segment, extract, attribute, reconcile, validate and score.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gregorydickson/loan-sub001/internal/align"
	"github.com/gregorydickson/loan-sub001/internal/complexity"
	"github.com/gregorydickson/loan-sub001/internal/document"
	"github.com/gregorydickson/loan-sub001/internal/extract"
	"github.com/gregorydickson/loan-sub001/internal/model"
	"github.com/gregorydickson/loan-sub001/internal/reconcile"
	"github.com/gregorydickson/loan-sub001/internal/score"
	"github.com/gregorydickson/loan-sub001/internal/segment"
	"github.com/gregorydickson/loan-sub001/internal/validate"
)

// ErrMissingSource is returned when a finalized record has no source reference
var ErrMissingSource = errors.New("record has no source reference")

// Extractor routes one extraction request; extract.Router satisfies it
type Extractor interface {
	Extract(ctx context.Context, req extract.Request, method model.ExtractionMethod) (*extract.Result, error)
}

// Pipeline orchestrates the reconciliation of a single document. It holds no
// per-document state and may be shared across goroutines.
type Pipeline struct {
	config     *model.Config
	method     model.ExtractionMethod
	extractor  Extractor
	assessor   *complexity.Assessor
	segmenter  *segment.Segmenter
	validator  *validate.FieldValidator
	reconciler *reconcile.Reconciler
	scorer     *score.Scorer
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a pipeline from a validated configuration
func New(cfg *model.Config, extractor Extractor, logger *zap.Logger) (*Pipeline, error) {
	method, ok := model.ParseExtractionMethod(cfg.Extraction.Method)
	if !ok {
		return nil, fmt.Errorf("%w: unknown extraction method %q", model.ErrInvalidConfig, cfg.Extraction.Method)
	}

	segmenter, err := segment.NewSegmenter(cfg.Segment.MaxChars, cfg.Segment.OverlapChars)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidConfig, err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		config:     cfg,
		method:     method,
		extractor:  extractor,
		assessor:   complexity.NewAssessor(),
		segmenter:  segmenter,
		validator:  validate.NewFieldValidator(),
		reconciler: reconcile.NewReconciler(cfg.Dedup),
		scorer:     score.NewScorer(cfg.Confidence),
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Process reconciles one document. Segments are extracted sequentially; an
// extraction failure that survives fallback fails the whole document.
// Low-confidence records are flagged for review, never dropped.
func (p *Pipeline) Process(ctx context.Context, doc document.Document) (*model.DocumentResult, error) {
	log := p.logger.With(
		zap.String("document_id", doc.Meta.ID),
		zap.String("document", doc.Meta.Name),
	)

	// 1. Classify and pick a model
	assessment := p.assessor.Classify(doc.Text, doc.Meta.PageCount)
	modelName := complexity.ModelFor(assessment, p.config.Extraction)
	log.Debug("document classified",
		zap.String("level", string(assessment.Level)),
		zap.Strings("reasons", assessment.Reasons),
		zap.String("model", modelName),
	)

	// 2. Segment
	segments := p.segmenter.Segment(doc.Text)

	var aligner *align.Aligner
	if doc.HasRaw() {
		aligner = align.NewWithRaw(doc.Text, doc.Raw)
	} else {
		aligner = align.New(doc.Text)
	}

	result := &model.DocumentResult{
		Document:     doc.Meta,
		Assessment:   assessment,
		Model:        modelName,
		SegmentCount: len(segments),
		Strategies:   make([]string, 0, len(segments)),
		Borrowers:    []model.ScoredBorrower{},
	}

	// 3. Extract each segment and attribute its candidates
	var records []model.BorrowerRecord
	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}

		req := extract.Request{
			Text:     seg.Text,
			Document: doc.Meta,
			Options:  extract.OptionsFromConfig(p.config.Extraction, modelName),
		}
		res, err := p.extractor.Extract(ctx, req, p.method)
		if err != nil {
			log.Error("extraction failed",
				zap.Int("segment", seg.Index),
				zap.Error(err),
			)
			return nil, fmt.Errorf("extract %s segment %d of %d: %w", doc.Meta.Name, seg.Index+1, seg.TotalCount, err)
		}

		result.Strategies = append(result.Strategies, res.Strategy)
		result.FellBack = result.FellBack || res.FellBack
		result.Candidates += len(res.Borrowers)

		for _, candidate := range res.Borrowers {
			candidate = validate.NormalizeBorrower(candidate)
			if candidate.Name == "" {
				continue
			}
			ref := p.sourceReference(doc, seg, candidate, aligner)
			record := p.newRecord(candidate, ref)

			// Provisional single-source score; the merge keeps the stronger record as base
			record, _ = p.scorer.Apply(record, p.validator.ValidateBorrower(record).Passed)
			records = append(records, record)
		}
	}

	// 4. Reconcile, then validate and score the merged records
	for _, record := range p.reconciler.Reconcile(records) {
		if !record.IsComplete() {
			return nil, fmt.Errorf("%w: %s", ErrMissingSource, record.ID)
		}

		validation := p.validator.ValidateBorrower(record)
		scored, breakdown := p.scorer.Apply(record, validation.Passed)
		scored.IncomeHistory = nonNil(scored.IncomeHistory)
		scored.AccountNumbers = nonNil(scored.AccountNumbers)
		scored.LoanNumbers = nonNil(scored.LoanNumbers)
		result.Borrowers = append(result.Borrowers, model.ScoredBorrower{
			Record:     scored,
			Confidence: breakdown,
			Validation: validation,
		})
	}

	log.Info("document processed",
		zap.String("model", modelName),
		zap.Int("segments", len(segments)),
		zap.Int("candidates", result.Candidates),
		zap.Int("borrowers", len(result.Borrowers)),
		zap.Int("requires_review", result.ReviewCount()),
		zap.Bool("fell_back", result.FellBack),
	)
	return result, nil
}

func (p *Pipeline) newRecord(c model.ExtractedBorrower, ref model.SourceReference) model.BorrowerRecord {
	return model.BorrowerRecord{
		ID:             uuid.NewString(),
		Name:           c.Name,
		SSN:            c.SSN,
		Phone:          c.Phone,
		Email:          c.Email,
		Address:        c.Address,
		IncomeHistory:  c.IncomeHistory,
		AccountNumbers: c.AccountNumbers,
		LoanNumbers:    c.LoanNumbers,
		Sources:        []model.SourceReference{ref},
		ExtractedAt:    p.now().UTC(),
	}
}

// sourceReference attributes a candidate to its document. Segment-relative
// offsets are made absolute and kept only when the text at that span matches
// the snippet; with a raw text they are translated to raw offsets and dropped
// if either endpoint cannot be mapped.
func (p *Pipeline) sourceReference(doc document.Document, seg model.TextSegment, c model.ExtractedBorrower, aligner *align.Aligner) model.SourceReference {
	snippet := c.Snippet
	if snippet == "" {
		snippet = c.Name
	}

	ref := model.SourceReference{
		DocumentID:   doc.Meta.ID,
		DocumentName: doc.Meta.Name,
		Snippet:      snippet,
	}

	position := seg.StartOffset
	if c.CharStart != nil && c.CharEnd != nil {
		start := seg.StartOffset + *c.CharStart
		end := seg.StartOffset + *c.CharEnd
		if aligner.VerifySpan(start, end, snippet, p.config.Alignment.VerifyThreshold) {
			position = start
			if aligner.HasRaw() {
				rawStart, rawEnd := aligner.AlignPositions(start, end)
				if rawStart != nil && rawEnd != nil {
					ref.CharStart, ref.CharEnd = rawStart, rawEnd
				}
			} else {
				ref.CharStart, ref.CharEnd = &start, &end
			}
		} else {
			p.logger.Debug("source span failed verification",
				zap.String("document_id", doc.Meta.ID),
				zap.Int("start", start),
				zap.Int("end", end),
			)
		}
	}

	ref.PageNumber = pageNumber(c.PageNumber, doc.Text, position, doc.Meta.PageCount)
	return ref
}

// pageNumber prefers the strategy's page, then counts page breaks before the
// position, then estimates proportionally from the page count
func pageNumber(candidatePage int, text string, position, pageCount int) int {
	if candidatePage > 0 {
		return candidatePage
	}

	if strings.Contains(text, document.PageBreak) {
		prefix := prefixRunes(text, position)
		return 1 + strings.Count(prefix, document.PageBreak)
	}

	total := utf8.RuneCountInString(text)
	if pageCount <= 1 || total == 0 {
		return 1
	}
	page := 1 + position*pageCount/total
	return min(max(page, 1), pageCount)
}

func prefixRunes(s string, n int) string {
	i := 0
	for byteIdx := range s {
		if i == n {
			return s[:byteIdx]
		}
		i++
	}
	return s
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
