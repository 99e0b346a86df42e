// Package apperr defines the error kinds shared by the store, the chat
// service and the transport layers.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("conflict")
	ErrUnavailable     = errors.New("store unavailable")
)

// Kind returns the sentinel err wraps, or nil when err is not one of ours.
func Kind(err error) error {
	for _, kind := range []error{ErrUnauthenticated, ErrForbidden, ErrNotFound, ErrInvalidInput, ErrConflict, ErrUnavailable} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// HTTPStatus maps an error to the response status the REST surface uses.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case ErrUnauthenticated:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrConflict:
		return http.StatusConflict
	case ErrUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether a pure read that failed with err may be retried.
func Retryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
