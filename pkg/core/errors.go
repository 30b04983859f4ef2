// pkg/core/errors.go
package core

import (
	"errors"
	"fmt"
)

// ErrRouteNotFound is returned by storage lookups when no stored route
// carries the requested ID.
var ErrRouteNotFound = errors.New("route not found")

// UserInputError reports a recoverable problem with a user-initiated
// operation, e.g. requesting a round trip on a route with fewer than
// two points. It carries a human-readable reason and is never fatal:
// callers surface the reason and continue.
type UserInputError struct {
	Reason string
}

// NewUserInputError builds a UserInputError from a format string.
func NewUserInputError(format string, args ...any) *UserInputError {
	return &UserInputError{Reason: fmt.Sprintf(format, args...)}
}

func (e *UserInputError) Error() string {
	return e.Reason
}

// IsUserInput reports whether err is (or wraps) a UserInputError.
func IsUserInput(err error) bool {
	var uie *UserInputError
	return errors.As(err, &uie)
}
