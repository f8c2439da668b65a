package completion

import (
	"errors"
	"net/http"
)

var errEmptyResponse = errors.New("empty completion response")

// TransientError is a failure worth retrying with backoff: timeouts, rate
// limits, 5xx responses, connection problems.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient completion error: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// FatalError must reach the caller without retry: bad credentials, rejected
// content, unknown model, cancellation by the caller.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "fatal completion error: " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// IsTransient reports whether err is, or wraps, a *TransientError.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

func isClassified(err error) bool {
	var t *TransientError
	var f *FatalError
	return errors.As(err, &t) || errors.As(err, &f)
}

// classifyStatus maps an HTTP status from a provider to the error taxonomy.
// A zero status means the request never got a response.
func classifyStatus(status int, err error) error {
	switch {
	case status == 0,
		status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= http.StatusInternalServerError:
		return &TransientError{Err: err}
	default:
		return &FatalError{Err: err}
	}
}
