package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Class partitions remote-call failures for retry and propagation
// decisions.
type Class int

const (
	ClassUnknown Class = iota
	ClassNetwork
	ClassTimeout
	ClassRateLimit
	ClassValidation
	ClassServer
)

func (c Class) String() string {
	switch c {
	case ClassNetwork:
		return "network"
	case ClassTimeout:
		return "timeout"
	case ClassRateLimit:
		return "rate_limit"
	case ClassValidation:
		return "validation"
	case ClassServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is a classified remote-call failure. Callers match on class
// via errors.Is against the exported sentinels.
type Error struct {
	Class Class
	Op    string
	Cause error

	// RetryAfter carries the advertised reset delay for rate-limit
	// errors.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s error: %v", e.Op, e.Class, e.Cause)
	}
	return fmt.Sprintf("%s: %s error", e.Op, e.Class)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same class, so
// errors.Is(err, remote.ErrRateLimit) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Class == e.Class
}

// Sentinels for errors.Is matching.
var (
	ErrNetwork    = &Error{Class: ClassNetwork}
	ErrTimeout    = &Error{Class: ClassTimeout}
	ErrRateLimit  = &Error{Class: ClassRateLimit}
	ErrValidation = &Error{Class: ClassValidation}
	ErrServer     = &Error{Class: ClassServer}
	ErrUnknown    = &Error{Class: ClassUnknown}
)

func newError(class Class, op string, cause error) *Error {
	return &Error{Class: class, Op: op, Cause: cause}
}

// classify maps a transport error to its class.
func classify(err error) Class {
	switch {
	case err == nil:
		return ClassUnknown
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case errors.Is(err, context.Canceled):
		return ClassNetwork
	default:
	}

	var remoteErr *Error
	if errors.As(err, &remoteErr) {
		return remoteErr.Class
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ClassTimeout
		}
		return ClassNetwork
	}

	return ClassUnknown
}
