package rendering

import (
	"context"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Second
)

// Policy controls WithPolicy. Attempts are total attempts, with a fixed Delay
// between them.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
	OnRetry     func(attempt int, err error)
}

// DefaultPolicy is three attempts one second apart.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultRetryDelay}
}

// WithRetry runs op up to maxAttempts times, sleeping delay between attempts,
// and returns the last error once every attempt has failed.
func WithRetry[T any](ctx context.Context, op func(context.Context) (T, error), maxAttempts int, delay time.Duration) (T, error) {
	return WithPolicy(ctx, Policy{MaxAttempts: maxAttempts, Delay: delay}, op)
}

// WithPolicy is WithRetry driven by a Policy.
func WithPolicy[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		val, err := op(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if sleepErr := sleep(ctx, p.Delay); sleepErr != nil {
			break
		}
	}
	return zero, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
