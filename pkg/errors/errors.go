package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind represents the class of failure a retrieval step ran into
type Kind string

const (
	KindValidation   Kind = "validation"
	KindThrottled    Kind = "throttled"
	KindAPI          Kind = "api"
	KindNetwork      Kind = "network"
	KindParsing      Kind = "parsing"
	KindConnectivity Kind = "connectivity"
	KindUnknown      Kind = "unknown"
)

// Error is the tagged error returned by the retrieval layer
type Error struct {
	Kind    Kind
	Message string
	// Code is the HTTP status code, 0 for transport failures
	Code     int
	Endpoint string
	// Attempts is the number of requests (or endpoints, for connectivity
	// errors) tried before giving up
	Attempts int
	// Exhausted is set when the retry budget ran out
	Exhausted bool
	// RetryAfter is the wait suggested by the server, if any
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Kind)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	msg += ": " + e.Message
	if e.Attempts > 0 {
		msg = fmt.Sprintf("%s after %d attempts", msg, e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation builds an input validation error
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Contains reports whether any *Error anywhere in err's tree has the given
// kind, including errors combined with errors.Join
func Contains(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok && e.Kind == kind {
		return true
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if Contains(inner, kind) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return Contains(u.Unwrap(), kind)
	}
	return false
}

// IsRetryable checks if an error kind should be retried on the same endpoint
func IsRetryable(kind Kind) bool {
	switch kind {
	case KindThrottled, KindNetwork:
		return true
	default:
		return false
	}
}

// IsThrottleStatus reports whether an HTTP status signals rate limiting.
// The public API answers 403 as well as 429 when a client is throttled.
func IsThrottleStatus(statusCode int) bool {
	return statusCode == 429 || statusCode == 403
}

// Guidance returns a user-facing hint for the error kind
func Guidance(err error) string {
	switch KindOf(err) {
	case KindValidation:
		return "check the command arguments"
	case KindThrottled:
		return "the service is rate limiting requests; wait a few minutes or lower --limit"
	case KindAPI:
		return "the service rejected the request; check that the handle, post URL or term exists"
	case KindConnectivity:
		if Contains(err, KindAPI) {
			return "the service rejected the request; check that the handle, post URL or term exists"
		}
		return "could not reach the service; check your network connection and configured endpoints"
	case KindNetwork:
		return "could not reach the service; check your network connection and configured endpoints"
	case KindParsing:
		return "the service returned an unexpected response"
	default:
		return ""
	}
}
