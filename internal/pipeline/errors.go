package pipeline

import "fmt"

// InputError is returned for caller input that cannot start a run
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
