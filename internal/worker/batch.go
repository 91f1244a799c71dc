package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gregorydickson/loan-sub001/internal/document"
	"github.com/gregorydickson/loan-sub001/internal/model"
)

// Processor reconciles one document; pipeline.Pipeline satisfies it
type Processor interface {
	Process(ctx context.Context, doc document.Document) (*model.DocumentResult, error)
}

// DocumentJob represents one document to reconcile
type DocumentJob struct {
	Index     int
	Path      string
	Document  *document.Document // nil means load Path first
	Processor Processor
	Logger    *zap.Logger
}

// Execute executes the document job
func (j *DocumentJob) Execute(ctx context.Context) Result {
	outcome := &DocumentOutcome{Index: j.Index, Path: j.Path}

	doc := j.Document
	if doc == nil {
		loaded, err := document.Load(j.Path)
		if err != nil {
			outcome.Error = err
			return outcome
		}
		doc = &loaded
	}
	outcome.Name = doc.Meta.Name

	start := time.Now()
	result, err := j.Processor.Process(ctx, *doc)
	outcome.Duration = time.Since(start)
	if err != nil {
		outcome.Error = err
		j.Logger.Warn("document failed",
			zap.String("document", doc.Meta.Name),
			zap.Error(err),
		)
		return outcome
	}

	outcome.Result = result
	j.Logger.Info("document reconciled",
		zap.String("document", doc.Meta.Name),
		zap.Int("borrowers", len(result.Borrowers)),
		zap.Int("requires_review", result.ReviewCount()),
		zap.Duration("duration", outcome.Duration),
	)
	return outcome
}

// DocumentOutcome represents the result of a document job
type DocumentOutcome struct {
	Index    int
	Path     string
	Name     string
	Result   *model.DocumentResult
	Duration time.Duration
	Error    error
}

// GetError returns the error from the document outcome
func (o *DocumentOutcome) GetError() error {
	return o.Error
}

// Summary aggregates a batch run
type Summary struct {
	Documents      int `json:"documents"`
	Succeeded      int `json:"succeeded"`
	Failed         int `json:"failed"`
	Borrowers      int `json:"borrowers"`
	RequiresReview int `json:"requires_review"`
}

// Summarize counts outcomes
func Summarize(outcomes []*DocumentOutcome) Summary {
	s := Summary{Documents: len(outcomes)}
	for _, o := range outcomes {
		if o.Error != nil {
			s.Failed++
			continue
		}
		s.Succeeded++
		s.Borrowers += len(o.Result.Borrowers)
		s.RequiresReview += o.Result.ReviewCount()
	}
	return s
}

// BatchProcessor reconciles multiple documents concurrently. The engine itself
// is sequential per document; cross-document parallelism lives here.
type BatchProcessor struct {
	processor   Processor
	concurrency int
	logger      *zap.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(processor Processor, concurrency int, logger *zap.Logger) *BatchProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ProcessDocuments reconciles loaded documents, returning outcomes in input order
func (b *BatchProcessor) ProcessDocuments(ctx context.Context, docs []document.Document) []*DocumentOutcome {
	jobs := make([]*DocumentJob, len(docs))
	for i := range docs {
		jobs[i] = &DocumentJob{
			Index:     i,
			Path:      docs[i].Path,
			Document:  &docs[i],
			Processor: b.processor,
			Logger:    b.logger,
		}
	}
	return b.run(ctx, jobs)
}

// ProcessPaths loads and reconciles each path. Load failures are reported
// per document.
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string) []*DocumentOutcome {
	jobs := make([]*DocumentJob, len(paths))
	for i, p := range paths {
		jobs[i] = &DocumentJob{
			Index:     i,
			Path:      p,
			Processor: b.processor,
			Logger:    b.logger,
		}
	}
	return b.run(ctx, jobs)
}

// ProcessDir reconciles every supported document in a directory
func (b *BatchProcessor) ProcessDir(ctx context.Context, dir string) ([]*DocumentOutcome, error) {
	docs, err := document.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	return b.ProcessDocuments(ctx, docs), nil
}

// ProcessFile reads document paths from a list file and reconciles them.
// Relative paths resolve against the list file's directory.
func (b *BatchProcessor) ProcessFile(ctx context.Context, listPath string) ([]*DocumentOutcome, error) {
	paths, err := ReadPathsFromFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("read document list: %w", err)
	}

	base := filepath.Dir(listPath)
	for i, p := range paths {
		if !filepath.IsAbs(p) {
			paths[i] = filepath.Join(base, p)
		}
	}
	return b.ProcessPaths(ctx, paths), nil
}

func (b *BatchProcessor) run(ctx context.Context, jobs []*DocumentJob) []*DocumentOutcome {
	if len(jobs) == 0 {
		return []*DocumentOutcome{}
	}

	b.logger.Info("batch started",
		zap.Int("documents", len(jobs)),
		zap.Int("concurrency", b.concurrency),
	)

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, job := range jobs {
		pool.Submit(job)
	}

	results := pool.Wait()

	// Jobs skipped after cancellation still get an outcome
	outcomes := make([]*DocumentOutcome, len(jobs))
	for _, result := range results {
		o := result.(*DocumentOutcome)
		outcomes[o.Index] = o
	}
	for i, o := range outcomes {
		if o == nil {
			outcomes[i] = &DocumentOutcome{Index: i, Path: jobs[i].Path, Error: context.Cause(ctx)}
			if jobs[i].Document != nil {
				outcomes[i].Name = jobs[i].Document.Meta.Name
			}
		}
	}
	return outcomes
}

// ReadPathsFromFile reads document paths from a file (one per line)
func ReadPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
