package plan

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func samplePlan() UsersPlan {
	return UsersPlan{
		Count: 2,
		Accounts: map[AccountType]AccountPlan{
			AccountCreditCard: {
				Count: 1,
				Cards: map[CardType]CardPlan{
					CardPhysical: {Count: 1},
				},
				Operations: map[OperationKind]OperationPlan{
					OperationPurchase: {Count: 3},
				},
			},
		},
	}
}

func TestTotals(t *testing.T) {
	p := samplePlan()
	p.Accounts[AccountSavings] = AccountPlan{Count: 2}

	got := p.Totals()
	want := Totals{Users: 2, Accounts: 6, Cards: 2, Operations: 6}
	if got != want {
		t.Fatalf("totals = %+v, want %+v", got, want)
	}
	if got.Entities() != 16 {
		t.Fatalf("entities = %d, want 16", got.Entities())
	}
}

func TestTotalsIgnoresZeroAndEmptyBranches(t *testing.T) {
	p := UsersPlan{
		Count: 3,
		Accounts: map[AccountType]AccountPlan{
			AccountDeposit: {Count: 0, Cards: map[CardType]CardPlan{CardVirtual: {Count: 5}}},
		},
	}
	if got := p.Totals(); got != (Totals{Users: 3}) {
		t.Fatalf("totals = %+v, want only users", got)
	}
}

func TestValidateAcceptsSamplePlan(t *testing.T) {
	if err := samplePlan().Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := (UsersPlan{}).Validate(); err != nil {
		t.Fatalf("validate empty plan: %v", err)
	}
}

func TestValidateRejectsMalformedPlans(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*UsersPlan)
		wantPath string
	}{
		{
			name:     "negative users",
			mutate:   func(p *UsersPlan) { p.Count = -1 },
			wantPath: "users.count",
		},
		{
			name: "unknown account type",
			mutate: func(p *UsersPlan) {
				p.Accounts["brokerage"] = AccountPlan{Count: 1}
			},
			wantPath: "users.accounts[brokerage]",
		},
		{
			name: "negative account count",
			mutate: func(p *UsersPlan) {
				p.Accounts[AccountDeposit] = AccountPlan{Count: -2}
			},
			wantPath: "users.accounts[deposit].count",
		},
		{
			name: "unknown card type",
			mutate: func(p *UsersPlan) {
				account := p.Accounts[AccountCreditCard]
				account.Cards["gold"] = CardPlan{Count: 1}
			},
			wantPath: "users.accounts[credit_card].cards[gold]",
		},
		{
			name: "negative card count",
			mutate: func(p *UsersPlan) {
				account := p.Accounts[AccountCreditCard]
				account.Cards[CardVirtual] = CardPlan{Count: -1}
			},
			wantPath: "users.accounts[credit_card].cards[virtual].count",
		},
		{
			name: "unknown operation kind",
			mutate: func(p *UsersPlan) {
				account := p.Accounts[AccountCreditCard]
				account.Operations["refund"] = OperationPlan{Count: 1}
			},
			wantPath: "users.accounts[credit_card].operations[refund]",
		},
		{
			name: "negative operation count",
			mutate: func(p *UsersPlan) {
				account := p.Accounts[AccountCreditCard]
				account.Operations[OperationFee] = OperationPlan{Count: -4}
			},
			wantPath: "users.accounts[credit_card].operations[fee].count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := samplePlan()
			tt.mutate(&p)

			err := p.Validate()
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %T (%v)", err, err)
			}
			if validationErr.Path != tt.wantPath {
				t.Fatalf("path = %q, want %q", validationErr.Path, tt.wantPath)
			}
		})
	}
}

func TestParseEnumsAcceptGatewaySpelling(t *testing.T) {
	accountType, err := ParseAccountType("CREDIT_CARD")
	if err != nil || accountType != AccountCreditCard {
		t.Fatalf("parse account type = %q, %v", accountType, err)
	}
	cardType, err := ParseCardType(" Physical ")
	if err != nil || cardType != CardPhysical {
		t.Fatalf("parse card type = %q, %v", cardType, err)
	}
	kind, err := ParseOperationKind("cash-withdrawal")
	if err != nil || kind != OperationCashWithdrawal {
		t.Fatalf("parse operation kind = %q, %v", kind, err)
	}
	if _, err := ParseOperationKind("refund"); err == nil {
		t.Fatal("expected error for unknown operation kind")
	}
}

func TestDecodeJSON(t *testing.T) {
	data := []byte(`{
		"users": {
			"count": 2,
			"accounts": {
				"CREDIT_CARD": {
					"count": 1,
					"cards": {"physical": {"count": 1}},
					"operations": {"purchase": {"count": 3}}
				}
			}
		}
	}`)

	p, err := Decode(data, "json")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got, want := p.Totals(), samplePlan().Totals(); got != want {
		t.Fatalf("totals = %+v, want %+v", got, want)
	}
	if _, ok := p.Users.Accounts[AccountCreditCard]; !ok {
		t.Fatal("expected gateway spelling to normalize to credit_card")
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode([]byte(`{"users":{"count":1,"accounts":{"brokerage":{"count":1}}}}`), "json")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	if _, err := Decode([]byte(`{"users":{"count":1,"extra":true}}`), "json"); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestDecodeYAML(t *testing.T) {
	data := []byte(`
users:
  count: 300
  accounts:
    credit_card:
      count: 1
      cards:
        virtual:
          count: 1
      operations:
        purchase:
          count: 5
        top_up:
          count: 1
`)
	p, err := Decode(data, ".yaml")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Totals{Users: 300, Accounts: 300, Cards: 300, Operations: 1800}
	if got := p.Totals(); got != want {
		t.Fatalf("totals = %+v, want %+v", got, want)
	}
}

func TestDecodeUnsupportedFormat(t *testing.T) {
	if _, err := Decode([]byte("users = 1"), "toml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestMarshalRoundTripKeepsWireShape(t *testing.T) {
	data, err := Plan{Users: samplePlan()}.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"credit_card"`) {
		t.Fatalf("expected canonical key in %s", data)
	}
	p, err := Decode(data, "json")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got, want := p.Totals(), samplePlan().Totals(); got != want {
		t.Fatalf("totals = %+v, want %+v", got, want)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yml")
	if err := os.WriteFile(path, []byte("users:\n  count: 4\n"), 0o600); err != nil {
		t.Fatalf("write plan: %v", err)
	}

	p, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if p.Users.Count != 4 {
		t.Fatalf("users = %d, want 4", p.Users.Count)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejectsPlansAboveEntityLimit(t *testing.T) {
	huge := map[string]UsersPlan{
		"users": {Count: 1 << 62},
		"accounts": {
			Count:    1 << 31,
			Accounts: map[AccountType]AccountPlan{AccountSavings: {Count: 1 << 31}},
		},
		"operations": {
			Count: 1000,
			Accounts: map[AccountType]AccountPlan{
				AccountCreditCard: {
					Count:      1000,
					Operations: map[OperationKind]OperationPlan{OperationPurchase: {Count: 1 << 40}},
				},
			},
		},
		"just over": {
			Count:    MaxEntities/2 + 1,
			Accounts: map[AccountType]AccountPlan{AccountDeposit: {Count: 1}},
		},
	}
	for name, p := range huge {
		t.Run(name, func(t *testing.T) {
			var validationErr *ValidationError
			if err := p.Validate(); !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if validationErr.Path != "users" {
				t.Fatalf("path = %q, want users", validationErr.Path)
			}
		})
	}
}

func TestValidateAcceptsPlanAtEntityLimit(t *testing.T) {
	p := UsersPlan{
		Count:    MaxEntities / 2,
		Accounts: map[AccountType]AccountPlan{AccountDeposit: {Count: 1}},
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := p.Totals().Entities(); got != MaxEntities {
		t.Fatalf("entities = %d, want %d", got, MaxEntities)
	}
}

func TestDecodeRejectsKeysThatNormalizeToTheSameValue(t *testing.T) {
	docs := map[string]string{
		"accounts":   `{"users":{"count":1,"accounts":{"credit_card":{"count":1},"CREDIT_CARD":{"count":2}}}}`,
		"cards":      `{"users":{"count":1,"accounts":{"savings":{"count":1,"cards":{"virtual":{"count":1},"Virtual":{"count":3}}}}}}`,
		"operations": `{"users":{"count":1,"accounts":{"savings":{"count":1,"operations":{"top_up":{"count":1},"top-up":{"count":2}}}}}}`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			for range 5 {
				_, err := Decode([]byte(doc), "json")
				var validationErr *ValidationError
				if !errors.As(err, &validationErr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if !strings.Contains(validationErr.Reason, "both name") {
					t.Fatalf("unexpected reason %q", validationErr.Reason)
				}
			}
		})
	}
}

func TestDecodeYAMLRejectsDuplicateNormalizedKeys(t *testing.T) {
	data := []byte(`
users:
  count: 1
  accounts:
    debit_card:
      count: 1
    debit-card:
      count: 1
`)
	_, err := Decode(data, "yaml")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validationErr.Path != "users.accounts" {
		t.Fatalf("path = %q, want users.accounts", validationErr.Path)
	}
}
