package provider

import (
	"context"
	"log/slog"
	"time"

	"codebot/internal/domain"
	"codebot/internal/metrics"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 5 * time.Second
)

// Sleeper waits for d or until ctx is done. Tests swap in a recorder.
type Sleeper func(ctx context.Context, d time.Duration) error

// Retrier wraps a Completer with linear backoff on rate limiting. Only
// RateLimited is retried; the wait before attempt n+1 is BaseDelay*n.
type Retrier struct {
	completer   domain.Completer
	model       string
	temperature float64
	maxTokens   int
	maxAttempts int
	baseDelay   time.Duration
	sleep       Sleeper
	logger      *slog.Logger
}

type RetryConfig struct {
	Completer   domain.Completer
	Model       string
	Temperature float64
	MaxTokens   int
	MaxAttempts int           // 0 means DefaultMaxAttempts
	BaseDelay   time.Duration // 0 means DefaultBaseDelay
	Sleep       Sleeper
	Logger      *slog.Logger
}

func NewRetrier(cfg RetryConfig) *Retrier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Retrier{
		completer:   cfg.Completer,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		sleep:       cfg.Sleep,
		logger:      cfg.Logger.With("component", "retrier"),
	}
}

// Complete returns the first success, the first non-rate-limit failure, or
// Exhausted once every attempt was rate limited. No wait follows the last
// attempt.
func (r *Retrier) Complete(ctx context.Context, payload domain.ConversationPayload) domain.CompletionResult {
	req := domain.CompletionRequest{
		Payload:     payload,
		Model:       r.model,
		Temperature: r.temperature,
		MaxTokens:   r.maxTokens,
	}

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		res := r.completer.Complete(ctx, req)
		if res.OK() {
			metrics.CompletionResults.WithLabelValues("ok").Inc()
			return res
		}
		if res.Failure.Kind != domain.RateLimited {
			metrics.CompletionResults.WithLabelValues(string(res.Failure.Kind)).Inc()
			return res
		}
		if attempt == r.maxAttempts {
			break
		}

		wait := r.baseDelay * time.Duration(attempt)
		r.logger.Warn("rate limited, backing off",
			"attempt", attempt, "max_attempts", r.maxAttempts, "wait", wait)
		metrics.RetryWaits.Inc()
		if err := r.sleep(ctx, wait); err != nil {
			metrics.CompletionResults.WithLabelValues(string(domain.UpstreamError)).Inc()
			return domain.Fail(domain.UpstreamError, "cancelled during backoff: "+err.Error())
		}
	}

	r.logger.Error("rate limit persisted", "attempts", r.maxAttempts)
	metrics.CompletionResults.WithLabelValues(string(domain.Exhausted)).Inc()
	return domain.Fail(domain.Exhausted, "rate limited on every attempt")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
