package capability

import (
	"errors"
	"fmt"
)

// retryableError marks a transport failure that is worth retrying.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }

func (e *retryableError) Unwrap() error { return e.err }

// MarkRetryable wraps err so Retryable reports true for it. Adapters use it
// for transient failures such as an unavailable gateway.
func MarkRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// Retryable reports whether err was marked retryable by an adapter.
func Retryable(err error) bool {
	var target *retryableError
	return errors.As(err, &target)
}

// ErrEmptyID is returned when the backend answers without an identifier.
var ErrEmptyID = errors.New("missing id in response")

// RequireID fails with ErrEmptyID when id is empty.
func RequireID[T ~string](op Op, id T) (T, error) {
	if id == "" {
		return "", fmt.Errorf("%s: %w", op, ErrEmptyID)
	}
	return id, nil
}
