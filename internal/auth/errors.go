package auth

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrMissingField matches every SignatureError
var ErrMissingField = errors.New("missing field for signature calculation")

// SignatureError reports a required signing field that was absent or empty
type SignatureError struct {
	Field string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("input missing %s for signature calculation", e.Field)
}

// Is lets errors.Is(err, ErrMissingField) match
func (e *SignatureError) Is(target error) bool {
	return target == ErrMissingField
}

// FieldError reports a credential or request field that breaks its syntax rules
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid parameter - %s, reason: %s", e.Field, e.Reason)
}

func newFieldError(field, format string, args ...any) error {
	return errors.WithStack(&FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
}
