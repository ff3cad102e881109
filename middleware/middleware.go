// Package middleware provides composable decorators for event handlers
package middleware

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/flowkit/eventbus"
	"github.com/c360/flowkit/pkg/retry"
)

// WithRetry wraps a handler so transient failures are retried with
// exponential backoff. Errors marked retry.NonRetryable fail immediately.
func WithRetry(cfg retry.Config, handler eventbus.Handler) eventbus.Handler {
	return func(ctx context.Context, payload eventbus.Payload) error {
		return retry.Do(ctx, cfg, func() error {
			return handler(ctx, payload)
		})
	}
}

// WithThrottle wraps a handler with a token-bucket rate limiter. The
// handler blocks until a token is available or the context is cancelled;
// burst tokens allow short spikes through without waiting.
func WithThrottle(limit rate.Limit, burst int, handler eventbus.Handler) eventbus.Handler {
	limiter := rate.NewLimiter(limit, burst)
	return func(ctx context.Context, payload eventbus.Payload) error {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("throttle wait: %w", err)
		}
		return handler(ctx, payload)
	}
}

// WithTimeout wraps a handler so each invocation runs under a deadline.
// The handler receives a context that expires after d; a handler that
// honors its context returns context.DeadlineExceeded when it overruns.
func WithTimeout(d time.Duration, handler eventbus.Handler) eventbus.Handler {
	return func(ctx context.Context, payload eventbus.Payload) error {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return handler(ctx, payload)
	}
}

// Chain composes decorators right to left, so the first decorator listed
// is the outermost wrapper.
func Chain(handler eventbus.Handler, decorators ...func(eventbus.Handler) eventbus.Handler) eventbus.Handler {
	for i := len(decorators) - 1; i >= 0; i-- {
		handler = decorators[i](handler)
	}
	return handler
}
