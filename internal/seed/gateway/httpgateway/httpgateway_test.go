package httpgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/paygate/seedforge/internal/seed/capability"
	"github.com/paygate/seedforge/internal/seed/engine"
	"github.com/paygate/seedforge/internal/seed/fakedata"
	"github.com/paygate/seedforge/internal/seed/plan"
)

// fakeGateway serves the create endpoints and records request bodies.
type fakeGateway struct {
	mu     sync.Mutex
	seq    int
	bodies map[string][]map[string]any
	status int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{bodies: make(map[string][]map[string]any)}
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	g.mu.Lock()
	g.seq++
	id := fmt.Sprintf("id-%d", g.seq)
	g.bodies[r.URL.Path] = append(g.bodies[r.URL.Path], body)
	status := g.status
	g.mu.Unlock()

	if status != 0 {
		http.Error(w, "gateway says no", status)
		return
	}

	var key string
	switch {
	case r.URL.Path == "/api/v1/users":
		key = "user"
	case strings.HasPrefix(r.URL.Path, "/api/v1/accounts/"):
		key = "account"
	case strings.HasPrefix(r.URL.Path, "/api/v1/cards/"):
		key = "card"
	case strings.HasPrefix(r.URL.Path, "/api/v1/operations/"):
		key = "operation"
	default:
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{key: map[string]string{"id": id}})
}

func (g *fakeGateway) requests(path string) []map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bodies[path]
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	fake, err := fakedata.New(1)
	if err != nil {
		t.Fatalf("fake data: %v", err)
	}
	c, err := New(srv.URL, fake, append([]Option{WithHTTPClient(srv.Client())}, opts...)...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestClientSeedsSmokePlan(t *testing.T) {
	gw := newFakeGateway()
	c := newTestClient(t, gw)

	p := plan.UsersPlan{
		Count: 2,
		Accounts: map[plan.AccountType]plan.AccountPlan{
			plan.AccountCreditCard: {
				Count:      1,
				Cards:      map[plan.CardType]plan.CardPlan{plan.CardPhysical: {Count: 1}},
				Operations: map[plan.OperationKind]plan.OperationPlan{plan.OperationPurchase: {Count: 3}},
			},
		},
	}
	out, err := engine.New(c, engine.WithConcurrency(4)).Run(context.Background(), "smoke", p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Summary.CreatedTotal != 12 || !out.OK() {
		t.Fatalf("summary = %+v", out.Summary)
	}

	if n := len(gw.requests("/api/v1/users")); n != 2 {
		t.Fatalf("user requests = %d, want 2", n)
	}
	if n := len(gw.requests("/api/v1/accounts/open-credit-card-account")); n != 2 {
		t.Fatalf("account requests = %d, want 2", n)
	}
	if n := len(gw.requests("/api/v1/cards/issue-physical-card")); n != 2 {
		t.Fatalf("card requests = %d, want 2", n)
	}
	purchases := gw.requests("/api/v1/operations/make-purchase-operation")
	if len(purchases) != 6 {
		t.Fatalf("purchase requests = %d, want 6", len(purchases))
	}
	for _, body := range purchases {
		if body["status"] != fakedata.OperationStatusCompleted {
			t.Fatalf("status = %v", body["status"])
		}
		if _, ok := body["amount"].(float64); !ok {
			t.Fatalf("amount is not a number: %#v", body["amount"])
		}
		if body["category"] == "" || body["category"] == nil {
			t.Fatalf("expected category in %v", body)
		}
		if body["cardId"] == "" || body["accountId"] == "" {
			t.Fatalf("expected card and account ids in %v", body)
		}
	}

	users := gw.requests("/api/v1/users")
	for _, field := range []string{"email", "lastName", "firstName", "middleName", "phoneNumber"} {
		if users[0][field] == "" || users[0][field] == nil {
			t.Fatalf("user request missing %s: %v", field, users[0])
		}
	}
}

func TestClientOmitsCategoryOutsidePurchases(t *testing.T) {
	gw := newFakeGateway()
	c := newTestClient(t, gw)

	req := capability.OperationRequest{CardID: "c1", AccountID: "a1", Kind: plan.OperationTopUp}
	if _, err := c.CreateOperation(context.Background(), req); err != nil {
		t.Fatalf("create operation: %v", err)
	}
	body := gw.requests("/api/v1/operations/make-top-up-operation")[0]
	if _, ok := body["category"]; ok {
		t.Fatalf("unexpected category in %v", body)
	}
}

func TestClientStatusErrors(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusServiceUnavailable, true},
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
		{http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			gw := newFakeGateway()
			gw.status = tt.status
			c := newTestClient(t, gw)

			_, err := c.CreateUser(context.Background())
			var statusErr *StatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("expected StatusError, got %v", err)
			}
			if statusErr.Code != tt.status || !strings.Contains(statusErr.Body, "gateway says no") {
				t.Fatalf("unexpected status error %+v", statusErr)
			}
			if got := capability.Retryable(err); got != tt.retryable {
				t.Fatalf("retryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestClientRejectsEmptyID(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{}}`))
	})
	c := newTestClient(t, handler)
	if _, err := c.CreateUser(context.Background()); !errors.Is(err, capability.ErrEmptyID) {
		t.Fatalf("expected ErrEmptyID, got %v", err)
	}
}

func TestClientLogsRequests(t *testing.T) {
	var lines []string
	var mu sync.Mutex
	c := newTestClient(t, newFakeGateway(), WithLogger(func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, fmt.Sprintf(format, args...))
	}))

	if _, err := c.OpenAccount(context.Background(), "u1", plan.AccountSavings); err != nil {
		t.Fatalf("open account: %v", err)
	}
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "request: POST ") || !strings.HasSuffix(lines[0], "/api/v1/accounts/open-savings-account") {
		t.Fatalf("unexpected log lines %q", lines)
	}
}

func TestClientUnreachableIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	fake, _ := fakedata.New(1)
	c, err := New(addr, fake)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := c.CreateUser(context.Background()); !capability.Retryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestNewValidatesArguments(t *testing.T) {
	fake, _ := fakedata.New(1)
	if _, err := New("", fake); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := New("localhost:8003", nil); err == nil {
		t.Fatal("expected error without generator")
	}
	c, err := New("localhost:8003", fake)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.base.Scheme != "http" || c.base.Host != "localhost:8003" {
		t.Fatalf("unexpected base url %v", c.base)
	}
}

func TestNewBuildsDedicatedConnectionPool(t *testing.T) {
	fake, _ := fakedata.New(1)
	tests := []struct {
		name string
		opts []Option
		want int
	}{
		{"default", nil, DefaultMaxConns},
		{"sized", []Option{WithMaxConns(32)}, 32},
		{"ignores zero", []Option{WithMaxConns(0)}, DefaultMaxConns},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New("localhost:8003", fake, tt.opts...)
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			defer c.Close()
			if c.http == http.DefaultClient {
				t.Fatal("expected a dedicated http client")
			}
			transport, ok := c.http.Transport.(*http.Transport)
			if !ok {
				t.Fatalf("transport = %T, want *http.Transport", c.http.Transport)
			}
			if transport == http.DefaultTransport {
				t.Fatal("expected a dedicated transport")
			}
			if transport.MaxIdleConnsPerHost != tt.want || transport.MaxIdleConns != tt.want {
				t.Fatalf("idle conns = %d/%d, want %d", transport.MaxIdleConnsPerHost, transport.MaxIdleConns, tt.want)
			}
		})
	}

	custom := &http.Client{}
	c, err := New("localhost:8003", fake, WithHTTPClient(custom), WithMaxConns(4))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.http != custom {
		t.Fatal("expected the supplied client to be kept")
	}
}

func TestRoutes(t *testing.T) {
	accountPaths := map[plan.AccountType]string{
		plan.AccountDeposit:    "/api/v1/accounts/open-deposit-account",
		plan.AccountSavings:    "/api/v1/accounts/open-savings-account",
		plan.AccountDebitCard:  "/api/v1/accounts/open-debit-card-account",
		plan.AccountCreditCard: "/api/v1/accounts/open-credit-card-account",
	}
	for accountType, want := range accountPaths {
		if got, err := AccountPath(accountType); err != nil || got != want {
			t.Fatalf("AccountPath(%s) = %q, %v", accountType, got, err)
		}
	}
	if got, _ := CardPath(plan.CardVirtual); got != "/api/v1/cards/issue-virtual-card" {
		t.Fatalf("CardPath = %q", got)
	}
	if got, _ := OperationPath(plan.OperationCashWithdrawal); got != "/api/v1/operations/make-cash-withdrawal-operation" {
		t.Fatalf("OperationPath = %q", got)
	}
	if _, err := OperationPath("refund"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
