package service

import (
	"errors"
	"fmt"

	"github.com/templui/estatedesk/internal/validation"
)

// ValidationError marks input the caller has to fix. Handlers answer 400.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}

func validateInput(v any) error {
	err := validation.Struct(v)
	if err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
