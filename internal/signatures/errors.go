package signatures

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the service. Handlers map these to transport
// statuses; NotFound and Unauthorized both turn into generic denial bodies
// so record existence is never confirmed across tenants.
var (
	ErrNotFound     = errors.New("signature not found")
	ErrUnauthorized = errors.New("access denied")
	ErrInvalidState = errors.New("invalid signature state")
)

// ValidationError reports a rejected request: missing fields, malformed
// digest length, unknown document kind. The message is safe to return to
// callers.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is a request validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
