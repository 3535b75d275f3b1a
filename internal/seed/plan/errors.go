package plan

import "fmt"

// ValidationError reports a malformed plan. A plan that fails validation is
// rejected before any entity is created.
type ValidationError struct {
	Path   string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil {
		return "invalid plan"
	}
	return fmt.Sprintf("invalid plan at %s: %s", e.Path, e.Reason)
}

func invalid(path, format string, args ...any) *ValidationError {
	return &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...)}
}
