package registry

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Sentinel and typed errors for transport-level reporting.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
)

// remoteBody is the error envelope returned by the registry.
type remoteBody struct {
	Error string `json:"error"`
}

// RateLimitedError includes optional retry-after seconds.
type RateLimitedError struct {
	RetryAfterSeconds int
	Message           string
}

func (e RateLimitedError) Error() string {
	if e.RetryAfterSeconds > 0 {
		return fmt.Sprintf("rate limited, retry after %ds: %s", e.RetryAfterSeconds, e.Message)
	}
	return fmt.Sprintf("rate limited: %s", e.Message)
}

// RemoteError wraps non-specific remote errors with status code and the remote message.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote error %d", e.StatusCode)
}

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 * 1024

// handleHTTPError maps a non-200 response to a typed error. It consumes the body.
func handleHTTPError(resp *http.Response) error {
	var body remoteBody
	_ = decodeJSON(io.LimitReader(resp.Body, maxErrorBody), &body)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, body.Error)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, body.Error)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrValidation, body.Error)
	case http.StatusTooManyRequests:
		retryAfter := 0
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if v, err := strconv.Atoi(ra); err == nil {
				retryAfter = v
			}
		}
		return RateLimitedError{RetryAfterSeconds: retryAfter, Message: body.Error}
	default:
		return RemoteError{StatusCode: resp.StatusCode, Message: body.Error}
	}
}
