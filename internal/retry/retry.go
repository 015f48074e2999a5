// Package retry provides a bounded exponential-backoff executor for
// fallible sink operations. Exhausted retries are logged and reported to the
// caller, never escalated further — a single missed sink write is an
// acceptable, loggable degradation, while a crashed pipeline is not.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const backoffFactor = 2

// Config bounds a retried operation.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
}

// Executor runs operations with retry. The zero value is not usable; create
// one with New.
type Executor struct {
	logger *slog.Logger

	// sleepFunc waits between attempts. Tests override this to avoid real
	// delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// New creates an Executor that logs retry activity to the given logger.
func New(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger, sleepFunc: Sleep}
}

// NewWithSleep creates an Executor with a custom sleep function, for tests
// that must not wait out real backoff delays.
func NewWithSleep(logger *slog.Logger, sleep func(ctx context.Context, d time.Duration) error) *Executor {
	e := New(logger)
	e.sleepFunc = sleep

	return e
}

// Do runs op, retrying on failure up to cfg.MaxRetries additional attempts
// with exponentially increasing delay. On success it returns nil. On
// exhaustion it logs the failure and returns the last error; callers that
// treat the operation as best-effort drop the returned error.
//
// Callers must not assume the operation succeeded just because Do returned.
func (e *Executor) Do(ctx context.Context, label string, cfg Config, op func(ctx context.Context) error) error {
	delay := cfg.InitialDelay

	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if ctx.Err() != nil {
			return fmt.Errorf("retry: %s canceled: %w", label, ctx.Err())
		}

		if attempt == cfg.MaxRetries {
			break
		}

		e.logger.Warn("operation failed, retrying",
			slog.String("op", label),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", delay),
			slog.String("error", lastErr.Error()),
		)

		if err := e.sleepFunc(ctx, delay); err != nil {
			return fmt.Errorf("retry: %s canceled: %w", label, err)
		}

		delay *= backoffFactor
	}

	e.logger.Error("operation failed, retries exhausted",
		slog.String("op", label),
		slog.Int("attempts", cfg.MaxRetries+1),
		slog.String("error", lastErr.Error()),
	)

	return lastErr
}

// Sleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Executor.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
