package retry

import "fmt"

// ValidationExhaustedError is returned when every attempt produced a result
// but none passed validation.
type ValidationExhaustedError struct {
	Attempts int
}

func (e *ValidationExhaustedError) Error() string {
	suffix := "s"
	if e.Attempts == 1 {
		suffix = ""
	}
	return fmt.Sprintf("validation failed after %d attempt%s", e.Attempts, suffix)
}
