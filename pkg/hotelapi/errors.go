package hotelapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSessionAbsent fails an authenticated call before any request is sent.
	ErrSessionAbsent = errors.New("no stored session")
	ErrInvalidPage   = errors.New("page index must be zero or greater")
	ErrInvalidStatus = errors.New("reservation status must be APPROVED or REJECTED")
	ErrInvalidInput  = errors.New("invalid request")
	ErrMalformed     = errors.New("malformed response")
)

// NetworkError means the request never produced an HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("hotelapi: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response. Message is the server's own wording when
// it sent one.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hotelapi: %s: %s (status %d)", e.Op, e.Message, e.Status)
}

func genericMessage(status int) string {
	return fmt.Sprintf("request failed with status %d", status)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized) || IsStatus(err, http.StatusForbidden)
}

// Generic reports whether the server sent no usable message of its own.
func (e *APIError) Generic() bool {
	return e.Message == genericMessage(e.Status)
}
