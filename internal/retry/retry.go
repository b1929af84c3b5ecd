// Package retry provides an exponential-backoff retry wrapper for fallible
// operations, used to absorb transient timing failures in UI interactions.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Options controls the retry loop.
type Options struct {
	// MaxAttempts is the total invocation budget, including the first try.
	MaxAttempts int
	// InitialDelay seeds the geometric backoff sequence.
	InitialDelay time.Duration
	// MaxDelay caps each computed delay. Zero means uncapped.
	MaxDelay time.Duration
	// Jitter, when set, replaces each delay with a uniform random duration
	// in (0, delay], decorrelating retries across parallel workers.
	Jitter bool
	// OnRetry is invoked before each backoff sleep.
	OnRetry func(attempt int, delay time.Duration, err error)

	// sleep is injected by tests to observe delays without waiting.
	sleep func(ctx context.Context, d time.Duration) error
	// rng is injected by tests for deterministic jitter.
	rng *rand.Rand
}

// Option mutates Options.
type Option func(*Options)

// WithMaxAttempts sets the total invocation budget.
func WithMaxAttempts(n int) Option { return func(o *Options) { o.MaxAttempts = n } }

// WithInitialDelay sets the first backoff delay.
func WithInitialDelay(d time.Duration) Option { return func(o *Options) { o.InitialDelay = d } }

// WithMaxDelay caps the backoff ceiling.
func WithMaxDelay(d time.Duration) Option { return func(o *Options) { o.MaxDelay = d } }

// WithJitter enables full jitter on each delay.
func WithJitter() Option { return func(o *Options) { o.Jitter = true } }

// WithOnRetry registers a callback fired before each backoff sleep.
func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(o *Options) { o.OnRetry = fn }
}

func defaultOptions() Options {
	return Options{
		MaxAttempts:  3,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		sleep:        sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Delay returns the backoff delay preceding the given retry, where attempt 0
// is the first retry after the initial failure: initial * 2^attempt, capped
// at the ceiling.
func (o Options) Delay(attempt int) time.Duration {
	d := o.InitialDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if o.MaxDelay > 0 && d >= o.MaxDelay {
			return o.MaxDelay
		}
	}
	if o.MaxDelay > 0 && d > o.MaxDelay {
		return o.MaxDelay
	}
	return d
}

func (o Options) jittered(d time.Duration) time.Duration {
	if !o.Jitter || d <= 0 {
		return d
	}
	var n int64
	if o.rng != nil {
		n = o.rng.Int63n(int64(d))
	} else {
		n = rand.Int63n(int64(d))
	}
	return time.Duration(n + 1)
}

// Do invokes op until it succeeds or the attempt budget is exhausted. On
// exhaustion the LAST error is returned unchanged, so callers can match its
// original type with errors.Is and errors.As.
func Do(ctx context.Context, op func(ctx context.Context) error, opts ...Option) error {
	_, err := DoValue(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts...)
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 1
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < o.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		val, err := op(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if attempt == o.MaxAttempts-1 {
			break
		}

		delay := o.jittered(o.Delay(attempt))
		if o.OnRetry != nil {
			o.OnRetry(attempt, delay, err)
		}
		if err := o.sleep(ctx, delay); err != nil {
			// Context cancelled mid-backoff; surface the operation's error,
			// which is more useful than "context canceled" alone.
			return zero, lastErr
		}
	}
	return zero, lastErr
}
