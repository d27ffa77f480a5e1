package bridge

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/roessland/coachsync/trainerroad"
)

var (
	// ErrNotConnected means the principal has no usable session
	ErrNotConnected = errors.New("not connected to the training platform")
	// ErrInvalidArgument is returned when input fails validation before any call is made
	ErrInvalidArgument = errors.New("invalid argument")
)

// IntegrationError is the single error type returned by Service.
// Message is safe to show to users; Err keeps the cause for logs.
type IntegrationError struct {
	Status     int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *IntegrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *IntegrationError) Unwrap() error {
	return e.Err
}

func newIntegrationError(status int, message string, err error) *IntegrationError {
	return &IntegrationError{Status: status, Message: message, Err: err}
}

func notConnected() *IntegrationError {
	return newIntegrationError(http.StatusUnauthorized, "connect your training platform account first", ErrNotConnected)
}

func invalidArgument(format string, args ...any) *IntegrationError {
	msg := fmt.Sprintf(format, args...)
	return newIntegrationError(http.StatusBadRequest, msg, fmt.Errorf("%w: %s", ErrInvalidArgument, msg))
}

func storeFailure(err error) *IntegrationError {
	return newIntegrationError(http.StatusInternalServerError, "session storage failed", err)
}

// mapUpstreamError translates a gateway or login error into an IntegrationError.
// Upstream bodies never end up in Message.
func mapUpstreamError(err error) *IntegrationError {
	var rateErr *trainerroad.RateLimitError
	var statusErr *trainerroad.StatusError

	switch {
	case errors.As(err, &rateErr):
		ie := newIntegrationError(http.StatusTooManyRequests, "the training platform is rate limiting requests, try again later", err)
		ie.RetryAfter = rateErr.RetryAfter
		return ie
	case errors.Is(err, trainerroad.ErrUnauthorized):
		return newIntegrationError(http.StatusUnauthorized, "the training platform session has expired, please reconnect", err)
	case errors.Is(err, trainerroad.ErrTimeout):
		return newIntegrationError(http.StatusGatewayTimeout, "the training platform did not respond in time", err)
	case errors.Is(err, trainerroad.ErrUpstreamUnavailable):
		return newIntegrationError(http.StatusServiceUnavailable, "the training platform is unavailable", err)
	case errors.As(err, &statusErr):
		return newIntegrationError(http.StatusBadGateway, fmt.Sprintf("upstream returned status %d", statusErr.StatusCode), err)
	case errors.Is(err, trainerroad.ErrInvalidUpstreamShape):
		return newIntegrationError(http.StatusBadGateway, "the training platform returned an unexpected response", err)
	case errors.Is(err, trainerroad.ErrTransport):
		return newIntegrationError(http.StatusBadGateway, "could not reach the training platform", err)
	default:
		return newIntegrationError(http.StatusBadGateway, "the training platform request failed", err)
	}
}
