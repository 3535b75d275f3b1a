// Package fakedata generates request payloads for seeded entities.
package fakedata

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/paygate/seedforge/internal/random"
	"github.com/paygate/seedforge/internal/seed/plan"
	"github.com/shopspring/decimal"
)

// UserProfile is the payload of a create-user request.
type UserProfile struct {
	Email       string `json:"email"`
	LastName    string `json:"lastName"`
	FirstName   string `json:"firstName"`
	MiddleName  string `json:"middleName"`
	PhoneNumber string `json:"phoneNumber"`
}

// amountRange bounds generated amounts in whole currency units.
type amountRange struct {
	min, max int64
}

var amountRanges = map[plan.OperationKind]amountRange{
	plan.OperationFee:            {1, 100},
	plan.OperationTopUp:          {100, 5000},
	plan.OperationCashback:       {1, 300},
	plan.OperationTransfer:       {10, 3000},
	plan.OperationPurchase:       {1, 1000},
	plan.OperationBillPayment:    {10, 1500},
	plan.OperationCashWithdrawal: {10, 2000},
}

var defaultRange = amountRange{1, 1000}

// Generator produces random payloads. It is safe for concurrent use.
type Generator struct {
	mu   sync.Mutex
	rng  *rand.Rand
	seed int64
}

// New creates a Generator. A zero seed draws one from crypto/rand.
func New(seed int64) (*Generator, error) {
	seed, err := random.Resolve(seed)
	if err != nil {
		return nil, fmt.Errorf("fake data seed: %w", err)
	}
	return &Generator{rng: rand.New(rand.NewSource(seed)), seed: seed}, nil
}

// Seed returns the seed the generator was created with.
func (g *Generator) Seed() int64 {
	return g.seed
}

// User generates a user profile.
func (g *Generator) User() UserProfile {
	g.mu.Lock()
	defer g.mu.Unlock()

	first := pick(g.rng, firstNames)
	last := pick(g.rng, lastNames)
	return UserProfile{
		Email: fmt.Sprintf("%s.%s.%d@%s",
			strings.ToLower(first), strings.ToLower(last), g.rng.Intn(1_000_000), pick(g.rng, emailDomains)),
		LastName:    last,
		FirstName:   first,
		MiddleName:  pick(g.rng, middleNames),
		PhoneNumber: fmt.Sprintf("+1%03d%07d", 200+g.rng.Intn(800), g.rng.Intn(10_000_000)),
	}
}

// Amount generates a positive amount with two decimal places in the range
// used for the given operation kind.
func (g *Generator) Amount(kind plan.OperationKind) decimal.Decimal {
	r, ok := amountRanges[kind]
	if !ok {
		r = defaultRange
	}
	g.mu.Lock()
	cents := r.min*100 + g.rng.Int63n((r.max-r.min)*100+1)
	g.mu.Unlock()
	return decimal.New(cents, -2)
}

// PurchaseCategory picks a merchant category.
func (g *Generator) PurchaseCategory() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return pick(g.rng, purchaseCategories)
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}
