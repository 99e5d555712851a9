package service

import (
	"fmt"

	"github.com/reelhub/discovery/internal/db"
)

// ValidationError reports a request the engine refuses to run, such as an
// unknown strategy or sort key. It matches db.ErrInvalidInput under errors.Is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return db.ErrInvalidInput
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
