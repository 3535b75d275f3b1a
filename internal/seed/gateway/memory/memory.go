// Package memory provides an in-process Capability backed by maps.
//
// It is used for dry runs of a scenario and by tests: it keeps every created
// entity, enforces that parents exist, can inject failures and latency, and
// records a logical-clock event log plus the peak number of concurrent calls.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paygate/seedforge/internal/platform/id"
	"github.com/paygate/seedforge/internal/seed/capability"
	"github.com/paygate/seedforge/internal/seed/plan"
)

// Call describes one capability call as seen by a FailFunc.
type Call struct {
	Op            capability.Op
	N             int // 1-based index of this call among calls of the same op
	UserID        capability.UserID
	AccountID     capability.AccountID
	CardID        capability.CardID
	AccountType   plan.AccountType
	CardType      plan.CardType
	OperationKind plan.OperationKind
}

// FailFunc decides whether a call fails. A non-nil error is returned to the
// caller and nothing is created.
type FailFunc func(Call) error

// Event is one completed call in the backend's event log. Start and End are
// logical clock ticks shared by all calls, so End < Start of another event
// means the first call returned before the second began.
type Event struct {
	Call  Call
	Start uint64
	End   uint64
	Err   error
}

// User is a created user.
type User struct {
	ID capability.UserID
}

// Account is a created account.
type Account struct {
	ID     capability.AccountID
	UserID capability.UserID
	Type   plan.AccountType
}

// Card is a created card.
type Card struct {
	ID        capability.CardID
	UserID    capability.UserID
	AccountID capability.AccountID
	Type      plan.CardType
}

// Operation is a created operation.
type Operation struct {
	ID        capability.OperationID
	CardID    capability.CardID
	AccountID capability.AccountID
	Kind      plan.OperationKind
}

// Option configures a Backend.
type Option func(*Backend)

// WithFailFunc injects failures.
func WithFailFunc(fn FailFunc) Option {
	return func(b *Backend) {
		b.fail = fn
	}
}

// WithLatency makes every call wait d before answering.
func WithLatency(d time.Duration) Option {
	return func(b *Backend) {
		b.latency = d
	}
}

// WithIDGenerator overrides how entity identifiers are generated.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(b *Backend) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// Backend is an in-memory Capability. The zero value is not usable; call New.
type Backend struct {
	fail    FailFunc
	latency time.Duration
	newID   func() (string, error)

	mu          sync.Mutex
	clock       uint64
	inFlight    int
	maxInFlight int
	calls       map[capability.Op]int
	events      []Event
	users       map[capability.UserID]User
	accounts    map[capability.AccountID]Account
	cards       map[capability.CardID]Card
	operations  map[capability.OperationID]Operation
}

// New creates an empty Backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		newID:      id.NewID,
		calls:      make(map[capability.Op]int),
		users:      make(map[capability.UserID]User),
		accounts:   make(map[capability.AccountID]Account),
		cards:      make(map[capability.CardID]Card),
		operations: make(map[capability.OperationID]Operation),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CreateUser implements capability.Capability.
func (b *Backend) CreateUser(ctx context.Context) (capability.UserID, error) {
	return do(ctx, b, Call{Op: capability.OpCreateUser}, func(raw string) (capability.UserID, error) {
		userID := capability.UserID(raw)
		b.users[userID] = User{ID: userID}
		return userID, nil
	})
}

// OpenAccount implements capability.Capability.
func (b *Backend) OpenAccount(ctx context.Context, userID capability.UserID, accountType plan.AccountType) (capability.AccountID, error) {
	c := Call{Op: capability.OpOpenAccount, UserID: userID, AccountType: accountType}
	return do(ctx, b, c, func(raw string) (capability.AccountID, error) {
		if _, ok := b.users[userID]; !ok {
			return "", fmt.Errorf("user %s not found", userID)
		}
		if !accountType.Valid() {
			return "", fmt.Errorf("unknown account type %q", accountType)
		}
		accountID := capability.AccountID(raw)
		b.accounts[accountID] = Account{ID: accountID, UserID: userID, Type: accountType}
		return accountID, nil
	})
}

// IssueCard implements capability.Capability.
func (b *Backend) IssueCard(ctx context.Context, req capability.CardRequest) (capability.CardID, error) {
	c := Call{Op: capability.OpIssueCard, UserID: req.UserID, AccountID: req.AccountID, CardType: req.Type}
	return do(ctx, b, c, func(raw string) (capability.CardID, error) {
		account, ok := b.accounts[req.AccountID]
		if !ok {
			return "", fmt.Errorf("account %s not found", req.AccountID)
		}
		if req.UserID != "" && account.UserID != req.UserID {
			return "", fmt.Errorf("account %s does not belong to user %s", req.AccountID, req.UserID)
		}
		if !req.Type.Valid() {
			return "", fmt.Errorf("unknown card type %q", req.Type)
		}
		cardID := capability.CardID(raw)
		b.cards[cardID] = Card{ID: cardID, UserID: account.UserID, AccountID: req.AccountID, Type: req.Type}
		return cardID, nil
	})
}

// CreateOperation implements capability.Capability.
func (b *Backend) CreateOperation(ctx context.Context, req capability.OperationRequest) (capability.OperationID, error) {
	c := Call{Op: capability.OpCreateOperation, UserID: req.UserID, AccountID: req.AccountID, CardID: req.CardID, OperationKind: req.Kind}
	return do(ctx, b, c, func(raw string) (capability.OperationID, error) {
		card, ok := b.cards[req.CardID]
		if !ok {
			return "", fmt.Errorf("card %s not found", req.CardID)
		}
		if card.AccountID != req.AccountID {
			return "", fmt.Errorf("card %s does not belong to account %s", req.CardID, req.AccountID)
		}
		if !req.Kind.Valid() {
			return "", fmt.Errorf("unknown operation kind %q", req.Kind)
		}
		opID := capability.OperationID(raw)
		b.operations[opID] = Operation{ID: opID, CardID: req.CardID, AccountID: req.AccountID, Kind: req.Kind}
		return opID, nil
	})
}

// do runs one call: it numbers it, tracks concurrency, waits for the
// configured latency, consults the FailFunc and finally applies create
// under the lock.
func do[T ~string](ctx context.Context, b *Backend, c Call, create func(raw string) (T, error)) (T, error) {
	b.mu.Lock()
	b.calls[c.Op]++
	c.N = b.calls[c.Op]
	b.clock++
	start := b.clock
	b.inFlight++
	b.maxInFlight = max(b.maxInFlight, b.inFlight)
	b.mu.Unlock()

	var err error
	if b.latency > 0 {
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(b.latency):
		}
	}
	if err == nil && b.fail != nil {
		err = b.fail(c)
	}
	var raw string
	if err == nil {
		raw, err = b.newID()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var value T
	if err == nil {
		value, err = create(raw)
	}
	b.clock++
	b.inFlight--
	b.events = append(b.events, Event{Call: c, Start: start, End: b.clock, Err: err})
	if err != nil {
		return "", err
	}
	return value, nil
}

var _ capability.Capability = (*Backend)(nil)
