package rendering

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

// IntegrationError is the normalized shape of every rendering service failure.
// Status is 503 when the service could not be reached and 500 otherwise.
type IntegrationError struct {
	Message string
	Status  int
	Err     error
}

func (e *IntegrationError) Error() string {
	return e.Message
}

func (e *IntegrationError) Unwrap() error {
	return e.Err
}

// Unreachable reports whether the failure was a transport failure.
func (e *IntegrationError) Unreachable() bool {
	return e.Status == http.StatusServiceUnavailable
}

// Normalize maps err to an *IntegrationError. Errors that already are one pass
// through unchanged.
func Normalize(err error) *IntegrationError {
	if err == nil {
		return nil
	}
	var ie *IntegrationError
	if errors.As(err, &ie) {
		return ie
	}
	if isTransport(err) {
		return &IntegrationError{
			Message: fmt.Sprintf("rendering service unreachable: %v", err),
			Status:  http.StatusServiceUnavailable,
			Err:     err,
		}
	}
	return &IntegrationError{Message: err.Error(), Status: http.StatusInternalServerError, Err: err}
}

func isTransport(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func statusError(op string, status int, body []byte) *IntegrationError {
	return &IntegrationError{
		Message: fmt.Sprintf("rendering %s failed: %d - %s", op, status, truncate(string(body), 512)),
		Status:  http.StatusInternalServerError,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
