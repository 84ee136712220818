package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrLoggedOut         = errors.New("logged out")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// APIError is any non-success upstream status not covered by a sentinel.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.Status)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

// StatusOf maps an error to the HTTP status it represents, or 0.
func StatusOf(err error) int {
	var ae *APIError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrLoggedOut):
		return 401
	case errors.Is(err, ErrForbidden):
		return 403
	case errors.As(err, &ae):
		return ae.Status
	}
	return 0
}
