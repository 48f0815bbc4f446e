// Package generation asks a language model for structured campaign output and
// validates every response before handing it back.
package generation

import (
	"fmt"

	"github.com/jonathan/campaign-briefing/internal/schemas"
)

// SchemaValidationError is returned when the model kept producing output that
// violates the result schema.
type SchemaValidationError struct {
	Operation string
	Errors    []schemas.FieldError
}

func (e *SchemaValidationError) Error() string {
	issues := (&schemas.ValidationError{Errors: e.Errors}).Issues()
	return fmt.Sprintf("%s failed schema validation: %s", e.Operation, issues)
}

// Fields returns the violated field paths in first-seen order.
func (e *SchemaValidationError) Fields() []string {
	return (&schemas.ValidationError{Errors: e.Errors}).Fields()
}

// TransportError is returned when the generation request itself kept failing.
type TransportError struct {
	Operation string
	Attempts  int
	Cause     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request failed after %d attempt(s): %v", e.Operation, e.Attempts, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}
