package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the service rejected the credential. The
	// session teardown hook fires before this is returned.
	ErrUnauthorized = errors.New("api: unauthorized")

	// ErrNotFound means the referenced entity no longer exists.
	ErrNotFound = errors.New("api: not found")
)

// ValidationError carries the service-provided rejection message for a
// payload the service refused (conflicting slot, duplicate review, bad
// field values).
type ValidationError struct {
	Status int
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: validation failed (http %d)", e.Status)
	}
	return fmt.Sprintf("api: %s (http %d)", e.Detail, e.Status)
}

// IsValidation reports whether err is a service-side payload rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
