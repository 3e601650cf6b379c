// ABOUTME: Error taxonomy for authorization and request handling
// ABOUTME: Classified errors unwrap to a sentinel kind and carry a caller-facing message
package policy

import "errors"

var (
	ErrUnauthorized = errors.New("Unauthorized")
	ErrForbidden    = errors.New("Forbidden")
	ErrNotFound     = errors.New("Not found")
	ErrValidation   = errors.New("Bad request")
)

type denial struct {
	kind    error
	message string
}

func (d *denial) Error() string { return d.message }

func (d *denial) Unwrap() error { return d.kind }

// Deny classifies a failure as kind with a message safe to show the caller.
func Deny(kind error, message string) error {
	return &denial{kind: kind, message: message}
}

// Invalid is shorthand for a validation failure.
func Invalid(message string) error {
	return Deny(ErrValidation, message)
}

// NotFound is shorthand for a missing resource, e.g. NotFound("Deal").
func NotFound(resource string) error {
	return Deny(ErrNotFound, resource+" not found")
}

// IsClassified reports whether err belongs to the taxonomy and may be shown as is.
func IsClassified(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrValidation)
}
