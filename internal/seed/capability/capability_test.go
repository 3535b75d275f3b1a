package capability

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paygate/seedforge/internal/seed/plan"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// stubCapability fails the first failures calls of every op with err.
type stubCapability struct {
	err      error
	failures int32
	calls    atomic.Int32
}

func (s *stubCapability) next() error {
	if s.calls.Add(1) <= s.failures {
		return s.err
	}
	return nil
}

func (s *stubCapability) CreateUser(context.Context) (UserID, error) {
	if err := s.next(); err != nil {
		return "", err
	}
	return "user-1", nil
}

func (s *stubCapability) OpenAccount(context.Context, UserID, plan.AccountType) (AccountID, error) {
	if err := s.next(); err != nil {
		return "", err
	}
	return "account-1", nil
}

func (s *stubCapability) IssueCard(context.Context, CardRequest) (CardID, error) {
	if err := s.next(); err != nil {
		return "", err
	}
	return "card-1", nil
}

func (s *stubCapability) CreateOperation(context.Context, OperationRequest) (OperationID, error) {
	if err := s.next(); err != nil {
		return "", err
	}
	return "operation-1", nil
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestWithRetryRetriesRetryableErrors(t *testing.T) {
	stub := &stubCapability{err: MarkRetryable(errors.New("unavailable")), failures: 2}
	capability := WithRetry(stub, fastPolicy(3))

	id, err := capability.CreateUser(context.Background())
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if id != "user-1" {
		t.Fatalf("id = %q, want user-1", id)
	}
	if got := stub.calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	stub := &stubCapability{err: MarkRetryable(errors.New("unavailable")), failures: 10}
	capability := WithRetry(stub, fastPolicy(2))

	_, err := capability.IssueCard(context.Background(), CardRequest{AccountID: "a", Type: plan.CardVirtual})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := stub.calls.Load(); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestWithRetryDoesNotRetryPermanentErrors(t *testing.T) {
	boom := errors.New("bad request")
	stub := &stubCapability{err: boom, failures: 1}
	capability := WithRetry(stub, fastPolicy(5))

	_, err := capability.OpenAccount(context.Background(), "user-1", plan.AccountDeposit)
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}
	if got := stub.calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestWithRetryDisabledReturnsNext(t *testing.T) {
	stub := &stubCapability{}
	if got := WithRetry(stub, RetryPolicy{MaxAttempts: 1}); got != Capability(stub) {
		t.Fatal("expected undecorated capability when retries are disabled")
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(errors.New("plain")) {
		t.Fatal("plain error must not be retryable")
	}
	if !Retryable(MarkRetryable(errors.New("transient"))) {
		t.Fatal("marked error must be retryable")
	}
	if MarkRetryable(nil) != nil {
		t.Fatal("marking nil must stay nil")
	}
}

func TestRequireID(t *testing.T) {
	if _, err := RequireID(OpIssueCard, CardID("")); !errors.Is(err, ErrEmptyID) {
		t.Fatalf("expected ErrEmptyID, got %v", err)
	}
	id, err := RequireID(OpIssueCard, CardID("card-9"))
	if err != nil || id != "card-9" {
		t.Fatalf("require id = %q, %v", id, err)
	}
}

func TestWithTracingRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	stub := &stubCapability{err: errors.New("declined"), failures: 1}
	capability := WithTracing(stub, provider.Tracer("test"))

	if _, err := capability.CreateOperation(context.Background(), OperationRequest{
		CardID:    "card-1",
		AccountID: "account-1",
		Kind:      plan.OperationPurchase,
	}); err == nil {
		t.Fatal("expected first call to fail")
	}
	if _, err := capability.CreateUser(context.Background()); err != nil {
		t.Fatalf("create user: %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}
	if spans[0].Name() != "seed.create_operation" {
		t.Fatalf("span name = %q", spans[0].Name())
	}
	if spans[0].Status().Code != otelcodes.Error {
		t.Fatalf("expected error status, got %v", spans[0].Status().Code)
	}
	if spans[1].Name() != "seed.create_user" {
		t.Fatalf("span name = %q", spans[1].Name())
	}
	if spans[1].Status().Code == otelcodes.Error {
		t.Fatal("expected successful span")
	}
}
