package result

import (
	"errors"
	"fmt"

	"github.com/paygate/seedforge/internal/seed/capability"
)

// ErrorKind classifies a node-level failure.
type ErrorKind string

const (
	// KindTransport marks a capability call that failed.
	KindTransport ErrorKind = "transport"
	// KindDependency marks an operation skipped because its account has no card.
	KindDependency ErrorKind = "dependency"
)

// TransportError records a failed capability call on the node it was meant
// to create.
type TransportError struct {
	Op  capability.Op
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e == nil {
		return "transport error"
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying capability error.
func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// DependencyError records an operation that was never attempted because no
// card was created on its account.
type DependencyError struct {
	AccountID capability.AccountID
}

// Error implements the error interface.
func (e *DependencyError) Error() string {
	if e == nil {
		return "dependency error"
	}
	return fmt.Sprintf("no card was created for account %s", e.AccountID)
}

// NodeError is the failure stored on a result node. Kind and Message survive
// serialization; the original error is kept for in-process callers.
type NodeError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	cause   error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap returns the original error when the node was built in-process.
func (e *NodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// NewNodeError classifies err for storage on a result node. It returns nil
// for a nil error.
func NewNodeError(err error) *NodeError {
	if err == nil {
		return nil
	}
	kind := KindTransport
	var depErr *DependencyError
	if errors.As(err, &depErr) {
		kind = KindDependency
	}
	return &NodeError{Kind: kind, Message: err.Error(), cause: err}
}

// Transport builds the node error for a failed capability call.
func Transport(op capability.Op, err error) *NodeError {
	return NewNodeError(&TransportError{Op: op, Err: err})
}

// Dependency builds the node error for an operation skipped for lack of a card.
func Dependency(accountID capability.AccountID) *NodeError {
	return NewNodeError(&DependencyError{AccountID: accountID})
}
