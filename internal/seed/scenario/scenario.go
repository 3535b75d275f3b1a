// Package scenario names the seed plans used by load tests.
package scenario

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/paygate/seedforge/internal/seed/plan"
)

// Scenario is a named seed plan.
type Scenario struct {
	Name        string
	Description string
	Plan        plan.UsersPlan
}

// ErrNotFound is returned by Lookup for an unregistered scenario.
var ErrNotFound = errors.New("scenario not found")

// Registry holds scenarios by name. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	scenarios map[string]Scenario
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{scenarios: make(map[string]Scenario)}
}

// Register adds s. The name must be unique and the plan valid.
func (r *Registry) Register(s Scenario) error {
	if s.Name == "" {
		return errors.New("scenario name is required")
	}
	if err := s.Plan.Validate(); err != nil {
		return fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scenarios[s.Name]; ok {
		return fmt.Errorf("scenario %s already registered", s.Name)
	}
	r.scenarios[s.Name] = s
	return nil
}

// Get returns the scenario registered under name.
func (r *Registry) Get(name string) (Scenario, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenarios[name]
	return s, ok
}

// Lookup is Get with an error that lists the known names.
func (r *Registry) Lookup(name string) (Scenario, error) {
	if s, ok := r.Get(name); ok {
		return s, nil
	}
	return Scenario{}, fmt.Errorf("%w: %q (known: %v)", ErrNotFound, name, r.Names())
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Built-in scenario names.
const (
	ExistingUserGetOperations         = "existing_user_get_operations"
	NewUserIssuePhysicalCard          = "new_user_issue_physical_card"
	ExistingUserGetDocuments          = "existing_user_get_documents"
	ExistingUserMakePurchaseOperation = "existing_user_make_purchase_operation"
	Smoke                             = "smoke"
)

// loadTestUsers is the user count of the load-test scenarios.
const loadTestUsers = 300

// Builtin returns the built-in scenarios. Each call returns fresh plans.
func Builtin() []Scenario {
	return []Scenario{
		{
			Name:        ExistingUserGetOperations,
			Description: "users with a credit card account, a virtual card, purchases, a top-up and a cash withdrawal",
			Plan: plan.UsersPlan{
				Count: loadTestUsers,
				Accounts: map[plan.AccountType]plan.AccountPlan{
					plan.AccountCreditCard: {
						Count: 1,
						Cards: map[plan.CardType]plan.CardPlan{plan.CardVirtual: {Count: 1}},
						Operations: map[plan.OperationKind]plan.OperationPlan{
							plan.OperationPurchase:       {Count: 5},
							plan.OperationTopUp:          {Count: 1},
							plan.OperationCashWithdrawal: {Count: 1},
						},
					},
				},
			},
		},
		{
			Name:        NewUserIssuePhysicalCard,
			Description: "users with a debit card account and no cards yet",
			Plan: plan.UsersPlan{
				Count: loadTestUsers,
				Accounts: map[plan.AccountType]plan.AccountPlan{
					plan.AccountDebitCard: {Count: 1},
				},
			},
		},
		{
			Name:        ExistingUserGetDocuments,
			Description: "users with savings, deposit and debit card accounts",
			Plan: plan.UsersPlan{
				Count: loadTestUsers,
				Accounts: map[plan.AccountType]plan.AccountPlan{
					plan.AccountSavings:   {Count: 1},
					plan.AccountDeposit:   {Count: 1},
					plan.AccountDebitCard: {Count: 1},
				},
			},
		},
		{
			Name:        ExistingUserMakePurchaseOperation,
			Description: "users with a credit card account and a physical card",
			Plan: plan.UsersPlan{
				Count: loadTestUsers,
				Accounts: map[plan.AccountType]plan.AccountPlan{
					plan.AccountCreditCard: {
						Count: 1,
						Cards: map[plan.CardType]plan.CardPlan{plan.CardPhysical: {Count: 1}},
					},
				},
			},
		},
		{
			Name:        Smoke,
			Description: "two users with a credit card account, a physical card and three purchases",
			Plan: plan.UsersPlan{
				Count: 2,
				Accounts: map[plan.AccountType]plan.AccountPlan{
					plan.AccountCreditCard: {
						Count:      1,
						Cards:      map[plan.CardType]plan.CardPlan{plan.CardPhysical: {Count: 1}},
						Operations: map[plan.OperationKind]plan.OperationPlan{plan.OperationPurchase: {Count: 3}},
					},
				},
			},
		},
	}
}

// Default returns a registry holding the built-in scenarios.
func Default() *Registry {
	r := NewRegistry()
	for _, s := range Builtin() {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

// FromFile loads a plan file as a scenario. An empty name uses the path.
func FromFile(name, path string) (Scenario, error) {
	p, err := plan.LoadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	if name == "" {
		name = path
	}
	return Scenario{Name: name, Description: "plan file " + path, Plan: p.Users}, nil
}
