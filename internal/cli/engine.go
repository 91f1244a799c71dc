package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gregorydickson/loan-sub001/internal/cache"
	"github.com/gregorydickson/loan-sub001/internal/extract"
	"github.com/gregorydickson/loan-sub001/internal/llm"
	"github.com/gregorydickson/loan-sub001/internal/model"
	"github.com/gregorydickson/loan-sub001/internal/pipeline"
	"github.com/gregorydickson/loan-sub001/internal/worker"
)

// buildPipeline wires the strategies, router and engine for cfg. The limiter
// is shared so that concurrent documents draw from one provider budget.
func buildPipeline(cfg *model.Config, limiter *worker.Limiter, logger *zap.Logger) (*pipeline.Pipeline, error) {
	var store cache.Store
	if cfg.Cache.Enabled {
		store = cache.NewLayeredStore(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	primary, err := buildPrimary(cfg, limiter, store, logger)
	if err != nil {
		return nil, err
	}
	secondary := extract.NewHeuristicStrategy()

	router := extract.NewRouter(primary, secondary, cfg.Retry, logger)
	if !router.HasPrimary() {
		logger.Info("no LLM provider configured, primary extraction disabled")
	}

	return pipeline.New(cfg, router, logger)
}

// buildPrimary returns nil when no provider is configured
func buildPrimary(cfg *model.Config, limiter *worker.Limiter, store cache.Store, logger *zap.Logger) (extract.Strategy, error) {
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("init LLM provider: %w", err)
	}
	if provider == nil {
		return nil, nil
	}

	var primary extract.Strategy = llm.NewExtractor(provider, limiter, cfg.LLM.MaxTokens, logger)
	if store != nil {
		primary = cache.NewStrategy(primary, store, logger)
	}

	logger.Debug("primary extraction enabled",
		zap.String("provider", provider.Name()),
		zap.String("standard_model", cfg.Extraction.StandardModel),
		zap.String("complex_model", cfg.Extraction.ComplexModel),
		zap.Bool("cache", store != nil),
	)
	return primary, nil
}
