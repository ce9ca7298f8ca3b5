package core

import "github.com/pkg/errors"

// FieldError pins a validation failure to a single request field. The HTTP
// layer renders a slice of these as a field-to-message map.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is the caller-facing bad-input error; the HTTP error
// handler unpacks it into a 400 response.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown marks an unrecoverable server state: once caught by the error
// handler, the server drains and exits instead of serving more requests.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown checks if an error of type shutdown is hiding inside err.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
