package manifest

import (
	"fmt"
	"strings"
)

// ValidationError collects every problem found in a manifest so a single
// `devrig check` run reports all of them at once.
type ValidationError struct {
	Errors []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "manifest validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("manifest validation failed: %s", e.Errors[0])
	}
	return fmt.Sprintf("manifest validation failed with %d errors:\n  - %s",
		len(e.Errors), strings.Join(e.Errors, "\n  - "))
}

// Add appends an error message.
func (e *ValidationError) Add(msg string) {
	e.Errors = append(e.Errors, msg)
}

// Addf appends a formatted error message.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// HasErrors reports whether any errors were collected.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ToError returns the collector as an error, or nil when empty.
func (e *ValidationError) ToError() error {
	if e.HasErrors() {
		return e
	}
	return nil
}
