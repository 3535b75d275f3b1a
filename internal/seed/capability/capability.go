// Package capability defines the narrow interface the seed engine uses to
// create entities on the banking gateway.
//
// The engine only sees Capability; transports (HTTP, gRPC, in-memory) live
// in adapters under internal/seed/gateway. Decorators in this package wrap
// any Capability with retries or tracing without touching the engine.
package capability

import (
	"context"

	"github.com/paygate/seedforge/internal/seed/plan"
)

// UserID identifies a created user.
type UserID string

// AccountID identifies a created account.
type AccountID string

// CardID identifies a created card.
type CardID string

// OperationID identifies a created operation.
type OperationID string

// CardRequest asks for one card of the given type on an account.
type CardRequest struct {
	UserID    UserID
	AccountID AccountID
	Type      plan.CardType
}

// OperationRequest asks for one operation of the given kind made with a card.
type OperationRequest struct {
	UserID    UserID
	CardID    CardID
	AccountID AccountID
	Kind      plan.OperationKind
}

// Capability creates backend resources. Every call creates a new resource,
// so calls are not idempotent. Implementations must be safe for concurrent
// use by many goroutines.
type Capability interface {
	CreateUser(ctx context.Context) (UserID, error)
	OpenAccount(ctx context.Context, userID UserID, accountType plan.AccountType) (AccountID, error)
	IssueCard(ctx context.Context, req CardRequest) (CardID, error)
	CreateOperation(ctx context.Context, req OperationRequest) (OperationID, error)
}

// Op names one of the four capability calls.
type Op string

const (
	OpCreateUser      Op = "create_user"
	OpOpenAccount     Op = "open_account"
	OpIssueCard       Op = "issue_card"
	OpCreateOperation Op = "create_operation"
)

// Ops returns the capability calls in hierarchy order.
func Ops() []Op {
	return []Op{OpCreateUser, OpOpenAccount, OpIssueCard, OpCreateOperation}
}
