package memory

import (
	"slices"

	"github.com/paygate/seedforge/internal/seed/capability"
)

// Stats summarizes the calls a Backend has served.
type Stats struct {
	Calls       map[capability.Op]int
	MaxInFlight int
	Users       int
	Accounts    int
	Cards       int
	Operations  int
}

// Stats returns a snapshot of call counts and stored entities.
func (b *Backend) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	calls := make(map[capability.Op]int, len(b.calls))
	for op, n := range b.calls {
		calls[op] = n
	}
	return Stats{
		Calls:       calls,
		MaxInFlight: b.maxInFlight,
		Users:       len(b.users),
		Accounts:    len(b.accounts),
		Cards:       len(b.cards),
		Operations:  len(b.operations),
	}
}

// Events returns a copy of the event log in completion order.
func (b *Backend) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.events)
}

// AccountsOf returns the accounts opened for a user.
func (b *Backend) AccountsOf(userID capability.UserID) []Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Account
	for _, account := range b.accounts {
		if account.UserID == userID {
			out = append(out, account)
		}
	}
	return out
}

// Operation returns a created operation.
func (b *Backend) Operation(opID capability.OperationID) (Operation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	op, ok := b.operations[opID]
	return op, ok
}

// Card returns a created card.
func (b *Backend) Card(cardID capability.CardID) (Card, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	card, ok := b.cards[cardID]
	return card, ok
}
