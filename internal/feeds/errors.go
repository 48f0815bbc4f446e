package feeds

import "fmt"

// NoCandidatesError is returned when no feed produced a usable article
type NoCandidatesError struct {
	Sources int
	Failed  int
}

func (e *NoCandidatesError) Error() string {
	return fmt.Sprintf("no articles could be retrieved from the configured feeds (%d sources, %d failed)", e.Sources, e.Failed)
}

// SourceError records a single feed that failed to fetch or parse.
// It is logged and absorbed, never returned from Collect.
type SourceError struct {
	Source  string
	URL     string
	Message string
	Cause   error
}

func (e *SourceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("feed %s (%s): %s: %v", e.Source, e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("feed %s (%s): %s", e.Source, e.URL, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Cause
}
