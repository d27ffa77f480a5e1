package trainerroad

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

var (
	// ErrScrape means the login page did not contain the expected anti-forgery field.
	ErrScrape = errors.New("verification token not found in login page")
	// ErrUpstreamUnavailable is returned for non-2xx responses on unauthenticated bootstrap calls.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrLoginRejected is returned when the platform refuses the submitted credentials.
	ErrLoginRejected = errors.New("login rejected")
	// ErrUnauthorized means the replayed session is no longer accepted.
	ErrUnauthorized = errors.New("upstream session unauthorized")
	// ErrRateLimited is returned for 429 responses.
	ErrRateLimited = errors.New("upstream rate limited")
	// ErrTimeout is returned when a call exceeds its time budget.
	ErrTimeout = errors.New("upstream request timed out")
	// ErrTransport wraps network failures that are not timeouts.
	ErrTransport = errors.New("upstream transport failure")
	// ErrInvalidUpstreamShape is returned when no known list could be found in a response.
	ErrInvalidUpstreamShape = errors.New("invalid upstream response shape")

	// Common errors
	ErrRedirectedToLogin = errors.New("redirected to login page")
)

// maxErrorBody bounds how much of an error response body is kept.
const maxErrorBody = 500

// StatusError is an unexpected non-2xx upstream response.
type StatusError struct {
	StatusCode int
	BodyPrefix string
	// Bootstrap is set for unauthenticated login-flow calls.
	Bootstrap bool
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// Is makes bootstrap failures match ErrUpstreamUnavailable.
func (e *StatusError) Is(target error) bool {
	return e.Bootstrap && target == ErrUpstreamUnavailable
}

func newStatusError(status int, body []byte, bootstrap bool) *StatusError {
	return &StatusError{
		StatusCode: status,
		BodyPrefix: truncate(string(body), maxErrorBody),
		Bootstrap:  bootstrap,
	}
}

// RejectedError carries the best-effort reason the platform gave for refusing a login.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "login rejected: " + e.Reason
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrLoginRejected
}

// RateLimitError is a 429 response with the suggested backoff.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("upstream rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// truncate cuts s to at most n bytes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
