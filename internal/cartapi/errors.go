package cartapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound = errors.New("not found")
	ErrUpstream = errors.New("cart service error")
)

// APIError is a failed call to the cart service. Message carries the text the
// service returned, if any, so it can be shown to the shopper as-is.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func newStatusError(op string, status int, message string) *APIError {
	err := ErrUpstream
	if status == http.StatusNotFound {
		err = ErrNotFound
	}
	return &APIError{Op: op, StatusCode: status, Message: message, Err: err}
}

func newTransportError(op string, cause error) *APIError {
	return &APIError{Op: op, Err: fmt.Errorf("%w: %v", ErrUpstream, cause)}
}

// IsNotFound reports whether err is a 404 from the cart service.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// UserMessage returns the service-provided message carried by err, or fallback
// when there is none.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
