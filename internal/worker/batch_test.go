package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gregorydickson/loan-sub001/internal/document"
	"github.com/gregorydickson/loan-sub001/internal/model"
)

// mockProcessor implements Processor
type mockProcessor struct {
	mu      sync.Mutex
	seen    []string
	failFor string
}

func (m *mockProcessor) Process(ctx context.Context, doc document.Document) (*model.DocumentResult, error) {
	time.Sleep(5 * time.Millisecond)
	m.mu.Lock()
	m.seen = append(m.seen, doc.Meta.Name)
	m.mu.Unlock()

	if m.failFor != "" && strings.Contains(doc.Text, m.failFor) {
		return nil, errors.New("extraction failed")
	}
	return &model.DocumentResult{
		Document: doc.Meta,
		Borrowers: []model.ScoredBorrower{
			{Confidence: model.ConfidenceBreakdown{Total: 0.9}},
			{Confidence: model.ConfidenceBreakdown{Total: 0.6, RequiresReview: true}},
		},
	}, nil
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBatchProcessor_ProcessDocuments(t *testing.T) {
	proc := &mockProcessor{}
	batch := NewBatchProcessor(proc, 2, nil)

	docs := []document.Document{
		document.FromText("a.txt", "Borrower: A", "", 0),
		document.FromText("b.txt", "Borrower: B", "", 0),
		document.FromText("c.txt", "Borrower: C", "", 0),
	}

	outcomes := batch.ProcessDocuments(context.Background(), docs)
	require.Len(t, outcomes, 3)
	for i, o := range outcomes {
		assert.NoError(t, o.Error)
		assert.Equal(t, docs[i].Meta.Name, o.Name)
		assert.Equal(t, docs[i].Meta.ID, o.Result.Document.ID)
	}
	assert.Len(t, proc.seen, 3)
}

func TestBatchProcessor_ErrorPerDocument(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	batch := NewBatchProcessor(&mockProcessor{failFor: "BAD"}, 2, zap.New(core))

	docs := []document.Document{
		document.FromText("good.txt", "Borrower: A", "", 0),
		document.FromText("bad.txt", "Borrower: BAD", "", 0),
	}

	outcomes := batch.ProcessDocuments(context.Background(), docs)
	require.Len(t, outcomes, 2)
	assert.NoError(t, outcomes[0].GetError())
	assert.Error(t, outcomes[1].GetError())
	assert.Nil(t, outcomes[1].Result)

	failed := logs.FilterMessage("document failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "bad.txt", failed[0].ContextMap()["document"])
	assert.Equal(t, 1, logs.FilterMessage("document reconciled").Len())
}

func TestBatchProcessor_Empty(t *testing.T) {
	batch := NewBatchProcessor(&mockProcessor{}, 2, nil)

	outcomes := batch.ProcessDocuments(context.Background(), nil)
	assert.Empty(t, outcomes)
	assert.NotNil(t, outcomes)
}

func TestBatchProcessor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := NewBatchProcessor(&mockProcessor{}, 1, nil)
	docs := []document.Document{
		document.FromText("a.txt", "Borrower: A", "", 0),
		document.FromText("b.txt", "Borrower: B", "", 0),
	}

	outcomes := batch.ProcessDocuments(ctx, docs)
	require.Len(t, outcomes, 2)
	for i, o := range outcomes {
		require.NotNil(t, o)
		assert.Equal(t, i, o.Index)
		if o.Error != nil {
			assert.ErrorIs(t, o.Error, context.Canceled)
		}
	}
}

func TestBatchProcessor_ProcessDir(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "one.txt", "Borrower: One")
	writeDoc(t, dir, "two.md", "Borrower: Two")
	writeDoc(t, dir, "two.raw.txt", "raw")

	batch := NewBatchProcessor(&mockProcessor{}, 2, nil)
	outcomes, err := batch.ProcessDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, "one.txt", outcomes[0].Name)
	assert.Equal(t, "two.md", outcomes[1].Name)

	_, err = batch.ProcessDir(context.Background(), filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "one.txt", "Borrower: One")
	list := writeDoc(t, dir, "list.txt", "one.txt\n# comment\n\nmissing.txt\none.txt\n")

	batch := NewBatchProcessor(&mockProcessor{}, 2, nil)
	outcomes, err := batch.ProcessFile(context.Background(), list)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.NoError(t, outcomes[0].Error)
	assert.Equal(t, filepath.Join(dir, "one.txt"), outcomes[0].Path)
	assert.Error(t, outcomes[1].Error, "missing files fail per document")
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	batch := NewBatchProcessor(&mockProcessor{}, 2, nil)

	_, err := batch.ProcessFile(context.Background(), "no_such_file.txt")
	assert.Error(t, err)
}

func TestReadPathsFromFile(t *testing.T) {
	dir := t.TempDir()
	list := writeDoc(t, dir, "list.txt", "a.txt\n# comment\n  b.md  \n\na.txt\n")

	paths, err := ReadPathsFromFile(list)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.md"}, paths)
}

func TestSummarize(t *testing.T) {
	ok := &model.DocumentResult{Borrowers: []model.ScoredBorrower{
		{Confidence: model.ConfidenceBreakdown{RequiresReview: true}},
		{},
	}}
	s := Summarize([]*DocumentOutcome{
		{Result: ok},
		{Error: errors.New("boom")},
	})

	assert.Equal(t, Summary{Documents: 2, Succeeded: 1, Failed: 1, Borrowers: 2, RequiresReview: 1}, s)
}
