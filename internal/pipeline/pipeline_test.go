package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregorydickson/loan-sub001/internal/align"
	"github.com/gregorydickson/loan-sub001/internal/document"
	"github.com/gregorydickson/loan-sub001/internal/extract"
	"github.com/gregorydickson/loan-sub001/internal/model"
)

// stubExtractor returns canned candidates and records every request
type stubExtractor struct {
	mu        sync.Mutex
	requests  []extract.Request
	borrowers []model.ExtractedBorrower
	fellBack  bool
	err       error
}

func (s *stubExtractor) Extract(ctx context.Context, req extract.Request, method model.ExtractionMethod) (*extract.Result, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &extract.Result{Borrowers: s.borrowers, Strategy: "stub", FellBack: s.fellBack}, nil
}

func span(start, end int) (*int, *int) {
	return &start, &end
}

func candidate(name, ssn, snippet string, start, end int) model.ExtractedBorrower {
	s, e := span(start, end)
	return model.ExtractedBorrower{Name: name, SSN: ssn, Snippet: snippet, CharStart: s, CharEnd: e}
}

func newPipeline(t *testing.T, ex Extractor) *Pipeline {
	t.Helper()
	p, err := New(model.DefaultConfig(), ex, nil)
	require.NoError(t, err)
	return p
}

func TestProcess_MergesDuplicatesAndScores(t *testing.T) {
	text := "Borrower: Jane Doe\nSSN: 123-45-6789\nBorrower: Jane Doe\n"
	ex := &stubExtractor{borrowers: []model.ExtractedBorrower{
		candidate("Jane Doe", "123-45-6789", "Borrower: Jane Doe", 0, 18),
		candidate("Jane  Doe", "123456789", "Borrower: Jane Doe", 36, 54),
	}}
	p := newPipeline(t, ex)

	result, err := p.Process(context.Background(), document.FromText("app.txt", text, "", 0))
	require.NoError(t, err)

	assert.Equal(t, 1, result.SegmentCount)
	assert.Equal(t, []string{"stub"}, result.Strategies)
	assert.Equal(t, 2, result.Candidates)
	require.Len(t, result.Borrowers, 1)

	b := result.Borrowers[0]
	assert.Equal(t, "Jane Doe", b.Record.Name)
	assert.Equal(t, "123-45-6789", b.Record.SSN)
	assert.NotEmpty(t, b.Record.ID)
	assert.NotNil(t, b.Record.IncomeHistory)
	assert.NotNil(t, b.Record.AccountNumbers)
	require.Len(t, b.Record.Sources, 2)

	first := b.Record.Sources[0]
	assert.Equal(t, result.Document.ID, first.DocumentID)
	assert.Equal(t, "app.txt", first.DocumentName)
	assert.Equal(t, 1, first.PageNumber)
	require.NotNil(t, first.CharStart)
	assert.Equal(t, 0, *first.CharStart)
	assert.Equal(t, 18, *first.CharEnd)
	assert.Equal(t, 36, *b.Record.Sources[1].CharStart)

	// base 0.5 + name 0.1 + multi-source 0.1 + validation 0.15
	assert.True(t, b.Validation.Passed)
	assert.InDelta(t, 0.85, b.Confidence.Total, 1e-9)
	assert.InDelta(t, 0.85, b.Record.ConfidenceScore, 1e-9)
	assert.False(t, b.Confidence.RequiresReview)
}

func TestProcess_LowConfidenceIsFlaggedNotDropped(t *testing.T) {
	ex := &stubExtractor{borrowers: []model.ExtractedBorrower{
		candidate("Jane Doe", "12-34", "Borrower: Jane Doe", 0, 18),
	}}
	p := newPipeline(t, ex)

	result, err := p.Process(context.Background(), document.FromText("app.txt", "Borrower: Jane Doe\n", "", 0))
	require.NoError(t, err)
	require.Len(t, result.Borrowers, 1)

	b := result.Borrowers[0]
	assert.False(t, b.Validation.Passed)
	assert.InDelta(t, 0.60, b.Confidence.Total, 1e-9)
	assert.True(t, b.Confidence.RequiresReview)
	assert.Equal(t, 1, result.ReviewCount())
}

func TestProcess_UnverifiableOffsetsDropped(t *testing.T) {
	ex := &stubExtractor{borrowers: []model.ExtractedBorrower{
		candidate("Jane Doe", "", "Co-Applicant: Jane Doe", 40, 62),
		candidate("John Roe", "", "Borrower: John Roe", 0, 5),
	}}
	p := newPipeline(t, ex)

	result, err := p.Process(context.Background(), document.FromText("app.txt", "Borrower: Jane Doe\nBorrower: John Roe\n", "", 0))
	require.NoError(t, err)
	require.Len(t, result.Borrowers, 2)

	for _, b := range result.Borrowers {
		require.Len(t, b.Record.Sources, 1, "a reference is kept even without offsets")
		ref := b.Record.Sources[0]
		assert.Nil(t, ref.CharStart)
		assert.Nil(t, ref.CharEnd)
		assert.NotEmpty(t, ref.Snippet)
	}
}

func TestProcess_StrongerDuplicateBecomesMergeBase(t *testing.T) {
	text := "Borrower: J Smith\nSSN: 123-45-6789\n\nBorrower: John Smith\nAddress: 12 Oak St, Springfield, IL 62704\n"
	ex := &stubExtractor{borrowers: []model.ExtractedBorrower{
		{Name: "J Smith", SSN: "123-45-6789"},
		{
			Name:           "John Smith",
			SSN:            "123-45-6789",
			Address:        &model.Address{Street: "12 Oak St", City: "Springfield", State: "IL", ZipCode: "62704"},
			AccountNumbers: []string{"0001234567"},
		},
	}}
	p := newPipeline(t, ex)

	result, err := p.Process(context.Background(), document.FromText("app.txt", text, "", 1))
	require.NoError(t, err)
	require.Len(t, result.Borrowers, 1)

	merged := result.Borrowers[0].Record
	assert.Equal(t, "John Smith", merged.Name)
	assert.Equal(t, "123-45-6789", merged.SSN)
	assert.Equal(t, []string{"0001234567"}, merged.AccountNumbers)
	require.Len(t, merged.Sources, 2)
	assert.Equal(t, "John Smith", merged.Sources[0].Snippet)
	assert.Equal(t, "J Smith", merged.Sources[1].Snippet)
}

func TestProcess_MissingSnippetUsesName(t *testing.T) {
	ex := &stubExtractor{borrowers: []model.ExtractedBorrower{{Name: "Jane Doe"}}}
	p := newPipeline(t, ex)

	result, err := p.Process(context.Background(), document.FromText("app.txt", "Borrower: Jane Doe\n", "", 0))
	require.NoError(t, err)
	require.Len(t, result.Borrowers, 1)
	assert.Equal(t, "Jane Doe", result.Borrowers[0].Record.Sources[0].Snippet)
}

func TestProcess_NamelessCandidatesIgnored(t *testing.T) {
	ex := &stubExtractor{borrowers: []model.ExtractedBorrower{{Name: "   ", SSN: "123-45-6789"}}}
	p := newPipeline(t, ex)

	result, err := p.Process(context.Background(), document.FromText("app.txt", "SSN: 123-45-6789\n", "", 0))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Candidates)
	assert.Empty(t, result.Borrowers)
}

func TestProcess_RawOffsets(t *testing.T) {
	text := "Borrower: Jane Doe"
	raw := "  Borrower:  Jane Doe"
	ex := &stubExtractor{borrowers: []model.ExtractedBorrower{
		candidate("Jane Doe", "", "Borrower: Jane Doe", 0, 18),
	}}
	p := newPipeline(t, ex)

	result, err := p.Process(context.Background(), document.FromText("app.txt", text, raw, 0))
	require.NoError(t, err)
	require.Len(t, result.Borrowers, 1)

	ref := result.Borrowers[0].Record.Sources[0]
	require.NotNil(t, ref.CharStart)
	require.NotNil(t, ref.CharEnd)
	assert.Equal(t, 2, *ref.CharStart)
	assert.Equal(t, 21, *ref.CharEnd)
	assert.Equal(t, "Borrower:  Jane Doe", string([]rune(raw)[*ref.CharStart:*ref.CharEnd]))
}

func TestProcess_SegmentOffsetsMadeAbsolute(t *testing.T) {
	p := newPipeline(t, &stubExtractor{})
	doc := document.FromText("app.txt", "Page header\nBorrower: Jane Doe\n", "", 0)
	seg := model.TextSegment{Text: "Borrower: Jane Doe\n", StartOffset: 12, EndOffset: 31}

	ref := p.sourceReference(doc, seg, candidate("Jane Doe", "", "Borrower: Jane Doe", 0, 18), align.New(doc.Text))
	require.NotNil(t, ref.CharStart)
	assert.Equal(t, 12, *ref.CharStart)
	assert.Equal(t, 30, *ref.CharEnd)
}

func TestProcess_PassesModelAndOptions(t *testing.T) {
	ex := &stubExtractor{}
	p := newPipeline(t, ex)

	_, err := p.Process(context.Background(), document.FromText("a.txt", "Borrower: Jane Doe\nCo-Borrower: John Doe\n", "", 0))
	require.NoError(t, err)

	require.Len(t, ex.requests, 1)
	req := ex.requests[0]
	cfg := model.DefaultConfig()
	assert.Equal(t, cfg.Extraction.ComplexModel, req.Options.Model, "co-borrower documents are complex")
	assert.Equal(t, cfg.Extraction.Passes, req.Options.Passes)
	assert.Equal(t, cfg.Extraction.ChunkChars, req.Options.ChunkChars)
	assert.Equal(t, "a.txt", req.Document.Name)

	ex.requests = nil
	result, err := p.Process(context.Background(), document.FromText("b.txt", "Borrower: Jane Doe\n", "", 0))
	require.NoError(t, err)
	assert.Equal(t, cfg.Extraction.StandardModel, ex.requests[0].Options.Model)
	assert.Equal(t, model.ComplexityStandard, result.Assessment.Level)
}

func TestProcess_SegmentsLongDocuments(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Segment.MaxChars = 100
	cfg.Segment.OverlapChars = 10

	ex := &stubExtractor{}
	p, err := New(cfg, ex, nil)
	require.NoError(t, err)

	text := ""
	for i := 0; i < 10; i++ {
		text += fmt.Sprintf("Line %02d of the loan application text.\n", i)
	}

	result, err := p.Process(context.Background(), document.FromText("long.txt", text, "", 0))
	require.NoError(t, err)
	assert.Greater(t, result.SegmentCount, 1)
	assert.Len(t, ex.requests, result.SegmentCount)
	assert.Len(t, result.Strategies, result.SegmentCount)
}

func TestProcess_ExtractionFailureFailsDocument(t *testing.T) {
	cause := fmt.Errorf("%w: llm-openai failed after 3 attempts: 503", extract.ErrRetriesExhausted)
	p := newPipeline(t, &stubExtractor{err: cause})

	result, err := p.Process(context.Background(), document.FromText("app.txt", "Borrower: Jane Doe\n", "", 0))
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, extract.ErrRetriesExhausted)
	assert.Contains(t, err.Error(), "app.txt")
}

func TestProcess_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex := &stubExtractor{}
	p := newPipeline(t, ex)

	_, err := p.Process(ctx, document.FromText("app.txt", "Borrower: Jane Doe\n", "", 0))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, ex.requests)
}

func TestProcess_FellBackReported(t *testing.T) {
	ex := &stubExtractor{fellBack: true, borrowers: []model.ExtractedBorrower{{Name: "Jane Doe"}}}
	p := newPipeline(t, ex)

	result, err := p.Process(context.Background(), document.FromText("app.txt", "Borrower: Jane Doe\n", "", 0))
	require.NoError(t, err)
	assert.True(t, result.FellBack)
}

func TestProcess_HeuristicEndToEnd(t *testing.T) {
	text := `UNIFORM RESIDENTIAL LOAN APPLICATION
Loan Number: LN-2024-0042

Borrower: Jane Q. Doe
SSN: 123-45-6789
Phone: (202) 456-1111
Address: 1600 Main Street, Springfield, IL 62704
Account Number: 0001234567

Co-Borrower: John Doe
SSN: 987-65-4321
`
	router := extract.NewRouter(nil, extract.NewHeuristicStrategy(), model.DefaultConfig().Retry, nil)
	p := newPipeline(t, router)

	doc := document.FromText("urla.txt", text, "", 0)
	result, err := p.Process(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, []string{"heuristic"}, result.Strategies)
	assert.False(t, result.FellBack)
	assert.Equal(t, model.ComplexityComplex, result.Assessment.Level)
	require.Len(t, result.Borrowers, 2)

	jane := result.Borrowers[0]
	assert.Equal(t, "Jane Q. Doe", jane.Record.Name)
	assert.Equal(t, []string{"LN-2024-0042"}, jane.Record.LoanNumbers)
	require.Len(t, jane.Record.Sources, 1)
	ref := jane.Record.Sources[0]
	require.NotNil(t, ref.CharStart)
	assert.Equal(t, "Borrower: Jane Q. Doe", string([]rune(text)[*ref.CharStart:*ref.CharEnd]))

	// base 0.5 + required 0.2 + optional 0.1 (accounts, loans) + validation 0.15
	assert.InDelta(t, 0.95, jane.Confidence.Total, 1e-9)
	assert.False(t, jane.Confidence.RequiresReview)

	john := result.Borrowers[1]
	assert.Equal(t, "John Doe", john.Record.Name)
	assert.Equal(t, "987-65-4321", john.Record.SSN)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Extraction.Method = "fastest"
	_, err := New(cfg, &stubExtractor{}, nil)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	cfg = model.DefaultConfig()
	cfg.Segment.OverlapChars = cfg.Segment.MaxChars
	_, err = New(cfg, &stubExtractor{}, nil)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestPageNumber(t *testing.T) {
	tests := []struct {
		name      string
		candidate int
		text      string
		position  int
		pageCount int
		want      int
	}{
		{"candidate page wins", 5, "a\fb", 0, 2, 5},
		{"form feeds before position", 0, "Cover\fBorrower: Jane\fEnd", 6, 3, 2},
		{"position after last break", 0, "a\fb\fc", 4, 3, 3},
		{"proportional estimate", 0, string(make([]rune, 100)), 50, 4, 3},
		{"estimate clamped to page count", 0, string(make([]rune, 100)), 100, 4, 4},
		{"single page", 0, "Borrower: Jane", 3, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pageNumber(tt.candidate, tt.text, tt.position, tt.pageCount))
		})
	}
}
