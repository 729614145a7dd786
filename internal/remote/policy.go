package remote

import "time"

// RetryPolicy is the explicit retry/backoff policy the client
// consults. Keeping it a value type makes the policy independently
// testable.
type RetryPolicy struct {
	// MaxAttempts bounds total tries, first call included.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff: base × 2^(attempt−1).
	BaseDelay time.Duration

	// MaxDelay caps any single backoff wait.
	MaxDelay time.Duration

	// ServerErrorFactor stretches the delay after server-side errors.
	ServerErrorFactor float64

	// NetworkErrorFactor shrinks the delay after pure transport
	// errors, which tend to clear quickly.
	NetworkErrorFactor float64
}

// DefaultRetryPolicy matches the documented defaults: up to 5
// attempts, exponential backoff capped at 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:        5,
		BaseDelay:          500 * time.Millisecond,
		MaxDelay:           10 * time.Second,
		ServerErrorFactor:  1.5,
		NetworkErrorFactor: 0.7,
	}
}

// Retryable reports whether a failure of the given class is worth
// another attempt. Rate-limit and validation failures are not: the
// former is gated by the reset window, the latter will never succeed.
func (p RetryPolicy) Retryable(class Class) bool {
	switch class {
	case ClassRateLimit, ClassValidation:
		return false
	default:
		return true
	}
}

// Delay returns the backoff before the given attempt number (1-based),
// adjusted by the class of the error that failed the previous attempt.
func (p RetryPolicy) Delay(attempt int, class Class) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delay := p.BaseDelay
	for i := 1; i < attempt-1; i++ {
		delay *= 2
	}

	switch class {
	case ClassServer:
		delay = time.Duration(float64(delay) * p.ServerErrorFactor)
	case ClassNetwork:
		delay = time.Duration(float64(delay) * p.NetworkErrorFactor)
	}

	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}
