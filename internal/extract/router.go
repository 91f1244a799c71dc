package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/gregorydickson/loan-sub001/internal/model"
)

// Result is the outcome of a routed extraction
type Result struct {
	Borrowers []model.ExtractedBorrower
	Strategy  string // Strategy that produced Borrowers
	FellBack  bool   // Primary failed and secondary answered
	Attempts  int    // Primary attempts made, 0 when primary was not called
}

// Router selects a strategy per call and wraps the primary in retries.
// It holds no per-call state, so one router can serve concurrent documents.
type Router struct {
	primary   Strategy // nil when no provider is configured
	secondary Strategy
	retry     model.RetryConfig
	logger    *zap.Logger
}

// NewRouter creates a router. primary may be nil.
func NewRouter(primary, secondary Strategy, retry model.RetryConfig, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		primary:   primary,
		secondary: secondary,
		retry:     retry,
		logger:    logger,
	}
}

// HasPrimary reports whether a primary strategy is configured
func (r *Router) HasPrimary() bool {
	return r.primary != nil
}

// Extract runs the strategy selected by method
func (r *Router) Extract(ctx context.Context, req Request, method model.ExtractionMethod) (*Result, error) {
	log := r.logger.With(
		zap.String("document_id", req.Document.ID),
		zap.String("method", string(method)),
	)

	switch method {
	case model.MethodSecondary:
		return r.runSecondary(ctx, req, log)

	case model.MethodPrimary:
		if r.primary == nil {
			return nil, fmt.Errorf("%w: primary", ErrNoStrategy)
		}
		borrowers, attempts, err := r.runPrimary(ctx, req, log)
		if err != nil {
			return nil, err
		}
		return &Result{Borrowers: borrowers, Strategy: r.primary.Name(), Attempts: attempts}, nil

	case model.MethodAuto:
		if r.primary == nil {
			log.Info("no primary strategy configured, using secondary")
			return r.runSecondary(ctx, req, log)
		}

		borrowers, attempts, err := r.runPrimary(ctx, req, log)
		if err == nil {
			return &Result{Borrowers: borrowers, Strategy: r.primary.Name(), Attempts: attempts}, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}

		log.Warn("primary extraction failed, falling back",
			zap.String("primary", r.primary.Name()),
			zap.Bool("fatal", IsFatal(err)),
			zap.Bool("retries_exhausted", errors.Is(err, ErrRetriesExhausted)),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)

		res, secErr := r.runSecondary(ctx, req, log)
		if secErr != nil {
			return nil, fmt.Errorf("fallback after primary failure (%v): %w", err, secErr)
		}
		res.FellBack = true
		res.Attempts = attempts
		return res, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

func (r *Router) runSecondary(ctx context.Context, req Request, log *zap.Logger) (*Result, error) {
	if r.secondary == nil {
		return nil, fmt.Errorf("%w: secondary", ErrNoStrategy)
	}

	log.Debug("calling secondary strategy", zap.String("strategy", r.secondary.Name()))
	borrowers, err := r.secondary.Extract(ctx, req)
	if err != nil {
		log.Warn("secondary extraction failed", zap.String("strategy", r.secondary.Name()), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", r.secondary.Name(), err)
	}
	return &Result{Borrowers: borrowers, Strategy: r.secondary.Name()}, nil
}

// runPrimary calls the primary strategy, retrying transient failures with
// exponential backoff. Fatal failures stop immediately as *FatalError.
func (r *Router) runPrimary(ctx context.Context, req Request, log *zap.Logger) ([]model.ExtractedBorrower, int, error) {
	name := r.primary.Name()
	attempt := 0

	operation := func() ([]model.ExtractedBorrower, error) {
		attempt++
		log.Debug("primary extraction attempt",
			zap.String("strategy", name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.retry.Attempts),
		)

		borrowers, err := r.primary.Extract(ctx, req)
		if err == nil {
			return borrowers, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		if Classify(err) == ClassFatal {
			log.Warn("primary extraction failed with fatal error",
				zap.String("strategy", name),
				zap.Int("attempt", attempt),
				zap.String("classification", string(ClassFatal)),
				zap.Error(err),
			)
			return nil, backoff.Permanent(&FatalError{Strategy: name, Err: err})
		}
		return nil, err
	}

	notify := func(err error, next time.Duration) {
		log.Warn("primary extraction failed with transient error, retrying",
			zap.String("strategy", name),
			zap.Int("attempt", attempt),
			zap.String("classification", string(ClassTransient)),
			zap.Duration("backoff", next),
			zap.Error(err),
		)
	}

	borrowers, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(r.newBackOff()),
		backoff.WithMaxTries(uint(max(r.retry.Attempts, 1))),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)
	if err == nil {
		if attempt > 1 {
			log.Info("primary extraction recovered after retries", zap.String("strategy", name), zap.Int("attempts", attempt))
		}
		return borrowers, attempt, nil
	}

	if IsFatal(err) {
		return nil, attempt, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, attempt, ctxErr
	}

	log.Error("primary extraction retries exhausted",
		zap.String("strategy", name),
		zap.Int("attempts", attempt),
		zap.Error(err),
	)
	return nil, attempt, fmt.Errorf("%w: %s failed after %d attempts: %w", ErrRetriesExhausted, name, attempt, err)
}

func (r *Router) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.retry.InitialBackoff
	b.MaxInterval = r.retry.MaxBackoff
	b.Multiplier = r.retry.Multiplier
	b.RandomizationFactor = 0
	if r.retry.Jitter {
		b.RandomizationFactor = 0.5
	}
	return b
}
