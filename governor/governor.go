// Package governor bounds concurrency and retries transient failures for
// external calls. Every generation and embedding call in the review pipeline
// goes through a Governor: per-session scopes serialize a session's own
// generation calls, and a small shared scope protects the embedding provider
// from burst load across sessions.
package governor

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/c360studio/tribunal/llm"
)

// EmbeddingScope is the shared scope key for embedding calls. All sessions
// funnel embedding traffic through this one limiter.
const EmbeddingScope = "__embeddings__"

// Config holds governor retry and concurrency settings.
type Config struct {
	// MaxAttempts is the maximum number of attempts per call.
	MaxAttempts int

	// BackoffBase is the initial backoff duration.
	BackoffBase time.Duration

	// BackoffMultiplier is applied to backoff on each retry.
	BackoffMultiplier float64

	// MaxBackoff caps the maximum backoff duration.
	MaxBackoff time.Duration

	// SessionWidth is the in-flight limit for per-session scopes.
	SessionWidth int

	// EmbeddingWidth is the in-flight limit for the shared embedding scope.
	EmbeddingWidth int
}

// DefaultConfig returns sensible defaults: sessions serialize their own
// generation calls, embeddings share a pool of 2.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
		SessionWidth:      1,
		EmbeddingWidth:    2,
	}
}

// Governor wraps external calls with per-scope concurrency limiting and
// exponential backoff with jitter. Scopes are created lazily and must be
// released when their session completes (see ReleaseScope) so the registry
// does not grow without bound.
type Governor struct {
	config  Config
	logger  *slog.Logger
	metrics *Metrics

	mu       sync.Mutex
	limiters map[string]chan struct{}
}

// Option configures a Governor.
type Option func(*Governor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Governor) {
		g.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(g *Governor) {
		g.metrics = m
	}
}

// New creates a Governor with the given config.
func New(config Config, opts ...Option) *Governor {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.SessionWidth <= 0 {
		config.SessionWidth = 1
	}
	if config.EmbeddingWidth <= 0 {
		config.EmbeddingWidth = 1
	}

	g := &Governor{
		config:   config,
		logger:   slog.Default(),
		metrics:  NopMetrics(),
		limiters: make(map[string]chan struct{}),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Invoke runs op under the scope's concurrency limiter, retrying transient
// failures with exponential backoff and jitter. After MaxAttempts the
// original error is returned unchanged. Non-transient errors are never
// retried; classification is op's responsibility via the llm error wrappers.
func (g *Governor) Invoke(ctx context.Context, scopeKey string, op func() error) error {
	limiter := g.limiter(scopeKey)

	select {
	case limiter <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-limiter }()

	var lastErr error
	for attempt := 1; attempt <= g.config.MaxAttempts; attempt++ {
		g.metrics.RecordCall(scopeKey)

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if llm.IsRateLimited(err) {
			g.metrics.RecordRateLimit(scopeKey)
		}
		if !llm.IsTransient(err) {
			return err
		}

		if attempt < g.config.MaxAttempts {
			g.metrics.RecordRetry(scopeKey)
			backoff := g.calculateBackoff(attempt)
			g.logger.Debug("Transient failure, retrying",
				"scope", scopeKey,
				"attempt", attempt,
				"max_attempts", g.config.MaxAttempts,
				"backoff", backoff,
				"error", err)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				// Continue to retry
			}
		}
	}

	g.logger.Warn("Retries exhausted",
		"scope", scopeKey,
		"attempts", g.config.MaxAttempts,
		"error", lastErr)

	return lastErr
}

// ReleaseScope drops a scope's limiter from the registry. Called when a
// session reaches a terminal state. The shared embedding scope is never
// released.
func (g *Governor) ReleaseScope(scopeKey string) {
	if scopeKey == EmbeddingScope {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.limiters, scopeKey)
}

// ScopeCount returns the number of live limiters. Exposed for tests and
// health reporting.
func (g *Governor) ScopeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.limiters)
}

// limiter returns the scope's limiter channel, creating it on first use.
func (g *Governor) limiter(scopeKey string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()

	if l, ok := g.limiters[scopeKey]; ok {
		return l
	}

	width := g.config.SessionWidth
	if scopeKey == EmbeddingScope {
		width = g.config.EmbeddingWidth
	}

	l := make(chan struct{}, width)
	g.limiters[scopeKey] = l
	return l
}

// calculateBackoff computes exponential backoff with jitter in [0.7, 1.3).
// Jitter prevents thundering herd when multiple sessions retry simultaneously.
func (g *Governor) calculateBackoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= g.config.BackoffMultiplier
	}

	backoff := time.Duration(float64(g.config.BackoffBase) * multiplier)
	if backoff > g.config.MaxBackoff {
		backoff = g.config.MaxBackoff
	}

	jitter := 0.7 + 0.6*rand.Float64()
	return time.Duration(float64(backoff) * jitter)
}
