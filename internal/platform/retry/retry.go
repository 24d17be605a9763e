package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = 1500 * time.Millisecond
	DefaultBackoff  = 2.0
)

// Policy is a bounded exponential backoff. Attempts counts the first call.
type Policy struct {
	Attempts int
	Delay    time.Duration
	Backoff  float64
}

func DefaultPolicy() Policy {
	return Policy{Attempts: DefaultAttempts, Delay: DefaultDelay, Backoff: DefaultBackoff}
}

func (p Policy) normalized() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	if p.Backoff < 1 {
		p.Backoff = 1
	}
	return p
}

// RetryableError marks an error as worth another attempt.
type RetryableError struct {
	Err   error
	Delay time.Duration
}

func (e *RetryableError) Error() string {
	if e == nil {
		return ""
	}
	if e.Delay > 0 {
		return fmt.Sprintf("retry after %s: %v", e.Delay, e.Err)
	}
	return fmt.Sprintf("retry: %v", e.Err)
}

func (e *RetryableError) RetryDelay() time.Duration {
	if e == nil {
		return 0
	}
	return e.Delay
}

func (e *RetryableError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RetryAfter wraps err with a minimum delay before the next attempt.
func RetryAfter(err error, delay time.Duration) error {
	if err == nil {
		err = errors.New("retry requested")
	}
	if delay < 0 {
		delay = 0
	}
	return &RetryableError{Err: err, Delay: delay}
}

// RetryDelay extracts the requested delay when err is retryable.
func RetryDelay(err error) (time.Duration, bool) {
	type retryDelayProvider interface {
		RetryDelay() time.Duration
	}
	var rd retryDelayProvider
	if errors.As(err, &rd) {
		delay := rd.RetryDelay()
		if delay < 0 {
			delay = 0
		}
		return delay, true
	}
	return 0, false
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts
// run out or ctx is done. The returned error has any RetryableError wrapper
// removed.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	p = p.normalized()
	delay := p.Delay
	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		requested, ok := RetryDelay(err)
		if !ok || attempt == p.Attempts {
			break
		}
		wait := delay
		if requested > wait {
			wait = requested
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * p.Backoff)
	}
	return unwrapRetryable(err)
}

func unwrapRetryable(err error) error {
	var re *RetryableError
	if errors.As(err, &re) && re.Err != nil {
		return re.Err
	}
	return err
}
