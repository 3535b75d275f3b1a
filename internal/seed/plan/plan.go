// Package plan describes how much seed data to create.
//
// A plan is a fixed three-level hierarchy: users own accounts, and each
// account owns cards and operations. Every level carries a count; a zero
// count or a missing sub-plan means nothing is created at that level.
// Plans are plain values built once by the caller and never mutated by
// the engine.
package plan

import (
	"fmt"
	"slices"
	"strings"
)

// AccountType identifies the kind of account opened for a user.
type AccountType string

const (
	AccountDeposit    AccountType = "deposit"
	AccountSavings    AccountType = "savings"
	AccountDebitCard  AccountType = "debit_card"
	AccountCreditCard AccountType = "credit_card"
)

// CardType identifies the kind of card issued for an account.
type CardType string

const (
	CardVirtual  CardType = "virtual"
	CardPhysical CardType = "physical"
)

// OperationKind identifies the kind of financial operation made with a card.
type OperationKind string

const (
	OperationFee            OperationKind = "fee"
	OperationTopUp          OperationKind = "top_up"
	OperationCashback       OperationKind = "cashback"
	OperationTransfer       OperationKind = "transfer"
	OperationPurchase       OperationKind = "purchase"
	OperationBillPayment    OperationKind = "bill_payment"
	OperationCashWithdrawal OperationKind = "cash_withdrawal"
)

var (
	accountTypes   = []AccountType{AccountDeposit, AccountSavings, AccountDebitCard, AccountCreditCard}
	cardTypes      = []CardType{CardVirtual, CardPhysical}
	operationKinds = []OperationKind{
		OperationFee,
		OperationTopUp,
		OperationCashback,
		OperationTransfer,
		OperationPurchase,
		OperationBillPayment,
		OperationCashWithdrawal,
	}
)

// AccountTypes returns every account type in declaration order.
func AccountTypes() []AccountType { return slices.Clone(accountTypes) }

// CardTypes returns every card type in declaration order.
func CardTypes() []CardType { return slices.Clone(cardTypes) }

// OperationKinds returns every operation kind in declaration order.
func OperationKinds() []OperationKind { return slices.Clone(operationKinds) }

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool { return slices.Contains(accountTypes, t) }

// Valid reports whether t is a known card type.
func (t CardType) Valid() bool { return slices.Contains(cardTypes, t) }

// Valid reports whether k is a known operation kind.
func (k OperationKind) Valid() bool { return slices.Contains(operationKinds, k) }

// ParseAccountType parses the canonical name or the gateway spelling
// ("CREDIT_CARD") of an account type.
func ParseAccountType(value string) (AccountType, error) {
	t := AccountType(normalizeName(value))
	if !t.Valid() {
		return "", fmt.Errorf("unknown account type %q", value)
	}
	return t, nil
}

// ParseCardType parses the canonical name or the gateway spelling of a card type.
func ParseCardType(value string) (CardType, error) {
	t := CardType(normalizeName(value))
	if !t.Valid() {
		return "", fmt.Errorf("unknown card type %q", value)
	}
	return t, nil
}

// ParseOperationKind parses the canonical name or the gateway spelling of
// an operation kind.
func ParseOperationKind(value string) (OperationKind, error) {
	k := OperationKind(normalizeName(value))
	if !k.Valid() {
		return "", fmt.Errorf("unknown operation kind %q", value)
	}
	return k, nil
}

func normalizeName(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	return strings.ReplaceAll(value, "-", "_")
}

// Plan is the root document of a seed plan.
type Plan struct {
	Users UsersPlan
}

// UsersPlan describes how many users to create and which accounts each gets.
type UsersPlan struct {
	Count    int
	Accounts map[AccountType]AccountPlan
}

// AccountPlan describes how many accounts of one type to open per user and
// what each account holds.
type AccountPlan struct {
	Count      int
	Cards      map[CardType]CardPlan
	Operations map[OperationKind]OperationPlan
}

// CardPlan is the number of cards of one type issued per account.
type CardPlan struct {
	Count int
}

// OperationPlan is the number of operations of one kind made per account.
type OperationPlan struct {
	Count int
}

// CardCount returns the number of cards requested for one account.
func (a AccountPlan) CardCount() int {
	total := 0
	for _, card := range a.Cards {
		total += max(card.Count, 0)
	}
	return total
}

// OperationCount returns the number of operations requested for one account.
func (a AccountPlan) OperationCount() int {
	total := 0
	for _, op := range a.Operations {
		total += max(op.Count, 0)
	}
	return total
}

// Totals is the number of entities a plan asks for at each level.
type Totals struct {
	Users      int
	Accounts   int
	Cards      int
	Operations int
}

// Entities returns the total number of entities across all levels.
func (t Totals) Entities() int {
	return t.Users + t.Accounts + t.Cards + t.Operations
}

// MaxEntities caps the number of entities one plan may request. Validate
// rejects larger plans, so Totals of a valid plan always fits in an int.
const MaxEntities = 10_000_000

// Totals counts the entities the plan requests across the whole tree.
func (p UsersPlan) Totals() Totals {
	users := max(p.Count, 0)
	totals := Totals{Users: users}
	for _, account := range p.Accounts {
		accounts := users * max(account.Count, 0)
		totals.Accounts += accounts
		totals.Cards += accounts * account.CardCount()
		totals.Operations += accounts * account.OperationCount()
	}
	return totals
}

// Totals counts the entities the plan requests across the whole tree.
func (p Plan) Totals() Totals {
	return p.Users.Totals()
}

// Validate checks the plan for negative counts and unknown keys.
func (p Plan) Validate() error {
	return p.Users.Validate()
}

// Validate checks every count and enum key in the plan. It reports the
// first problem found, walking keys in sorted order so the result is
// stable across calls.
func (p UsersPlan) Validate() error {
	if p.Count < 0 {
		return invalid("users.count", "count must not be negative, got %d", p.Count)
	}
	for _, accountType := range sortedKeys(p.Accounts) {
		path := fmt.Sprintf("users.accounts[%s]", accountType)
		if !accountType.Valid() {
			return invalid(path, "unknown account type %q", string(accountType))
		}
		if err := p.Accounts[accountType].validate(path); err != nil {
			return err
		}
	}
	if !p.withinLimit() {
		return invalid("users", "plan requests more than %d entities", MaxEntities)
	}
	return nil
}

// withinLimit reports whether the entity total stays at or below
// MaxEntities. Every intermediate product is checked so huge counts cannot
// wrap around.
func (p UsersPlan) withinLimit() bool {
	total, ok := addWithin(0, p.Count)
	for _, account := range p.Accounts {
		accounts, accountsOK := mulWithin(p.Count, account.Count)
		perAccount, perOK := 0, true
		for _, card := range account.Cards {
			perAccount, perOK = addWithin(perAccount, card.Count)
			if !perOK {
				return false
			}
		}
		for _, op := range account.Operations {
			perAccount, perOK = addWithin(perAccount, op.Count)
			if !perOK {
				return false
			}
		}
		children, childrenOK := mulWithin(accounts, perAccount)
		if !ok || !accountsOK || !childrenOK {
			return false
		}
		if total, ok = addWithin(total, accounts); !ok {
			return false
		}
		if total, ok = addWithin(total, children); !ok {
			return false
		}
	}
	return ok
}

func addWithin(a, b int) (int, bool) {
	if a < 0 || b < 0 || a > MaxEntities-b {
		return 0, false
	}
	return a + b, true
}

func mulWithin(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > MaxEntities/b {
		return 0, false
	}
	return a * b, true
}

func (a AccountPlan) validate(path string) error {
	if a.Count < 0 {
		return invalid(path+".count", "count must not be negative, got %d", a.Count)
	}
	for _, cardType := range sortedKeys(a.Cards) {
		cardPath := fmt.Sprintf("%s.cards[%s]", path, cardType)
		if !cardType.Valid() {
			return invalid(cardPath, "unknown card type %q", string(cardType))
		}
		if count := a.Cards[cardType].Count; count < 0 {
			return invalid(cardPath+".count", "count must not be negative, got %d", count)
		}
	}
	for _, kind := range sortedKeys(a.Operations) {
		opPath := fmt.Sprintf("%s.operations[%s]", path, kind)
		if !kind.Valid() {
			return invalid(opPath, "unknown operation kind %q", string(kind))
		}
		if count := a.Operations[kind].Count; count < 0 {
			return invalid(opPath+".count", "count must not be negative, got %d", count)
		}
	}
	return nil
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
