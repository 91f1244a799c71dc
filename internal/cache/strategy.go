package cache

import (
	"context"
	"encoding/json"
	"strconv"

	"go.uber.org/zap"

	"github.com/gregorydickson/loan-sub001/internal/extract"
	"github.com/gregorydickson/loan-sub001/internal/model"
)

// Strategy memoizes another extraction strategy. Entries are keyed by the
// strategy name, the options that change its output, and the exact text, so
// offsets in a cached answer stay valid for the request that reads it.
type Strategy struct {
	inner  extract.Strategy
	store  Store
	logger *zap.Logger
}

// NewStrategy wraps inner with store
func NewStrategy(inner extract.Strategy, store Store, logger *zap.Logger) *Strategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Strategy{
		inner:  inner,
		store:  store,
		logger: logger,
	}
}

// Name returns the wrapped strategy's name
func (s *Strategy) Name() string {
	return s.inner.Name()
}

// Extract returns a cached answer when one exists, otherwise runs the wrapped
// strategy and stores its answer. Failures are never cached.
func (s *Strategy) Extract(ctx context.Context, req extract.Request) ([]model.ExtractedBorrower, error) {
	key := requestKey(s.inner.Name(), req)

	if data, ok := s.store.Get(key); ok {
		var borrowers []model.ExtractedBorrower
		if err := json.Unmarshal(data, &borrowers); err == nil {
			s.logger.Debug("extraction cache hit",
				zap.String("strategy", s.inner.Name()),
				zap.String("document_id", req.Document.ID),
				zap.Int("candidates", len(borrowers)),
			)
			return borrowers, nil
		}
		// Unreadable entries are dropped and recomputed
		_ = s.store.Delete(key)
	}

	borrowers, err := s.inner.Extract(ctx, req)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(borrowers)
	if err == nil {
		err = s.store.Set(key, data, 0)
	}
	if err != nil {
		s.logger.Warn("extraction cache write failed",
			zap.String("strategy", s.inner.Name()),
			zap.Error(err),
		)
	}
	return borrowers, nil
}

func requestKey(strategy string, req extract.Request) string {
	return Key(
		strategy,
		req.Options.Model,
		strconv.Itoa(req.Options.Passes),
		strconv.Itoa(req.Options.ChunkChars),
		req.Text,
	)
}
