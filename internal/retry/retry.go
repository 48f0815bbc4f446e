// Package retry runs a task until its result validates or the attempt budget is spent.
// It knows nothing about feeds, schemas or models; callers supply the task and the check.
package retry

import (
	"context"
	"time"
)

// Delay returns how long to wait after the given failed attempt (1-based).
type Delay func(attempt int) time.Duration

// Fixed waits the same duration between every attempt.
func Fixed(d time.Duration) Delay {
	return func(int) time.Duration { return d }
}

// Backoff derives the wait from the attempt number.
func Backoff(f func(attempt int) time.Duration) Delay {
	return Delay(f)
}

// Exponential doubles base after each failed attempt, capped at limit.
func Exponential(base, limit time.Duration) Delay {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if limit > 0 && d >= limit {
				return limit
			}
		}
		return d
	}
}

// Options configures a retry run
type Options[T any] struct {
	// MaxAttempts is clamped to at least 1.
	MaxAttempts int
	Delay       Delay

	// OnError is called after a task error, before the next attempt.
	OnError func(err error, attempt int)
	// OnValidationFailure is called when a result fails validation.
	OnValidationFailure func(result T, attempt int)
	// ShouldRetry stops the run early when it returns false for a task error.
	ShouldRetry func(err error) bool
}

// DefaultMaxAttempts matches the budget used when Options leaves it unset.
const DefaultMaxAttempts = 3

// Do runs task up to MaxAttempts times, returning the first result accepted by validate.
// Attempts are sequential. When every attempt fails, the last task error is returned if
// any attempt errored; otherwise a *ValidationExhaustedError.
func Do[T any](ctx context.Context, task func(ctx context.Context) (T, error), validate func(ctx context.Context, result T) (bool, error), opts Options[T]) (T, error) {
	var zero T

	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := task(ctx)
		if err == nil {
			var ok bool
			ok, err = validate(ctx, result)
			if err == nil && ok {
				return result, nil
			}
			if err == nil && opts.OnValidationFailure != nil {
				opts.OnValidationFailure(result, attempt)
			}
		}

		if err != nil {
			lastErr = err
			if opts.OnError != nil {
				opts.OnError(err, attempt)
			}
			if opts.ShouldRetry != nil && !opts.ShouldRetry(err) {
				return zero, err
			}
		}

		if attempt >= maxAttempts {
			break
		}

		if err := sleep(ctx, opts.Delay, attempt); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}
	}

	if lastErr != nil {
		return zero, lastErr
	}
	return zero, &ValidationExhaustedError{Attempts: maxAttempts}
}

// Attemptable bundles a task with its validity check.
type Attemptable[T any] interface {
	Run(ctx context.Context) (T, error)
	IsValid(ctx context.Context, result T) (bool, error)
}

// Run drives an Attemptable through Do.
func Run[T any](ctx context.Context, a Attemptable[T], opts Options[T]) (T, error) {
	return Do(ctx, a.Run, a.IsValid, opts)
}

func sleep(ctx context.Context, delay Delay, attempt int) error {
	if delay == nil {
		return ctx.Err()
	}
	d := delay(attempt)
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
