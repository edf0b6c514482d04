package errors

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxRetries     int           // 0 = single attempt
	InitialDelay   time.Duration // first backoff
	MaxDelay       time.Duration // cap for backoff and Retry-After hints
	Multiplier     float64
	Jitter         float64 // fraction of the delay, 0-1
	RetryableTypes []ErrorType

	// OnRetry is called before each retry sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns the backoff used for model provider calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		InitialDelay:   time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.2,
		RetryableTypes: []ErrorType{Network, Timeout, RateLimit, ServerError},
	}
}

// Retrier retries retryable failures with exponential backoff. A provider's
// Retry-After hint overrides a shorter backoff. Safe for concurrent use.
type Retrier struct {
	config RetryConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRetrier creates a new retrier.
func NewRetrier(config RetryConfig) *Retrier {
	return &Retrier{
		config: config,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewDefaultRetrier creates a retrier with DefaultRetryConfig.
func NewDefaultRetrier() *Retrier {
	return NewRetrier(DefaultRetryConfig())
}

// RetryFunc is one attempt.
type RetryFunc func(ctx context.Context) error

// RetryResult describes how a retried call ended.
type RetryResult struct {
	Attempts  int
	LastError error
	Duration  time.Duration
	Success   bool
}

// Do runs fn until it succeeds, fails with a non-retryable error, runs out
// of retries or ctx is done. Cancellation is reported as a Cancelled error.
func (r *Retrier) Do(ctx context.Context, operation string, target string, fn RetryFunc) *RetryResult {
	start := time.Now()
	result := &RetryResult{}
	finish := func(err error) *RetryResult {
		result.LastError = err
		result.Success = err == nil
		result.Duration = time.Since(start)
		return result
	}

	backoff := r.config.InitialDelay
	for {
		result.Attempts++
		err := fn(ctx)
		switch {
		case err == nil:
			return finish(nil)
		case ctx.Err() != nil:
			return finish(NewCancelledError(target, operation))
		case result.Attempts > r.config.MaxRetries || !r.shouldRetry(err):
			return finish(err)
		}

		wait := r.waitFor(err, backoff)
		if r.config.OnRetry != nil {
			r.config.OnRetry(result.Attempts, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return finish(NewCancelledError(target, operation))
		case <-timer.C:
		}
		backoff = r.grow(backoff)
	}
}

func (r *Retrier) shouldRetry(err error) bool {
	errType := GetErrorType(err)
	for _, t := range r.config.RetryableTypes {
		if errType == t {
			return true
		}
	}
	return IsRetryable(err)
}

// waitFor jitters the backoff and honors a longer Retry-After hint, capped at
// MaxDelay.
func (r *Retrier) waitFor(err error, backoff time.Duration) time.Duration {
	wait := backoff
	if r.config.Jitter > 0 {
		r.mu.Lock()
		f := r.rng.Float64()*2 - 1
		r.mu.Unlock()
		wait += time.Duration(f * r.config.Jitter * float64(backoff))
	}
	if hint := RetryAfter(err); hint > wait {
		wait = hint
	}
	if r.config.MaxDelay > 0 && wait > r.config.MaxDelay {
		wait = r.config.MaxDelay
	}
	return wait
}

func (r *Retrier) grow(d time.Duration) time.Duration {
	next := time.Duration(float64(d) * r.config.Multiplier)
	if r.config.MaxDelay > 0 && next > r.config.MaxDelay {
		return r.config.MaxDelay
	}
	return next
}

// DoWithResult is Do for functions that return a value.
func DoWithResult[T any](ctx context.Context, r *Retrier, operation, target string, fn func(ctx context.Context) (T, error)) (T, *RetryResult) {
	var value T
	result := r.Do(ctx, operation, target, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err == nil {
			value = v
		}
		return err
	})
	return value, result
}
