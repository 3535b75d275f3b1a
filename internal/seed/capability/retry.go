package capability

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/paygate/seedforge/internal/seed/plan"
)

const (
	defaultRetryInitialInterval = 100 * time.Millisecond
	defaultRetryMaxInterval     = 2 * time.Second
)

// RetryPolicy controls the retrying decorator. MaxAttempts counts the first
// call, so values below 2 disable retries.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Logf            func(string, ...any)
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.InitialInterval <= 0 {
		p.InitialInterval = defaultRetryInitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = defaultRetryMaxInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	return p
}

// WithRetry wraps next so calls failing with a Retryable error are retried
// with exponential backoff. Errors not marked retryable are returned as-is
// after the first attempt, because creation calls are not idempotent.
func WithRetry(next Capability, policy RetryPolicy) Capability {
	if next == nil || policy.MaxAttempts < 2 {
		return next
	}
	return &retrying{next: next, policy: policy.normalized()}
}

type retrying struct {
	next   Capability
	policy RetryPolicy
}

func (r *retrying) CreateUser(ctx context.Context) (UserID, error) {
	return retryCall(ctx, r.policy, OpCreateUser, func() (UserID, error) {
		return r.next.CreateUser(ctx)
	})
}

func (r *retrying) OpenAccount(ctx context.Context, userID UserID, accountType plan.AccountType) (AccountID, error) {
	return retryCall(ctx, r.policy, OpOpenAccount, func() (AccountID, error) {
		return r.next.OpenAccount(ctx, userID, accountType)
	})
}

func (r *retrying) IssueCard(ctx context.Context, req CardRequest) (CardID, error) {
	return retryCall(ctx, r.policy, OpIssueCard, func() (CardID, error) {
		return r.next.IssueCard(ctx, req)
	})
}

func (r *retrying) CreateOperation(ctx context.Context, req OperationRequest) (OperationID, error) {
	return retryCall(ctx, r.policy, OpCreateOperation, func() (OperationID, error) {
		return r.next.CreateOperation(ctx, req)
	})
}

func retryCall[T any](ctx context.Context, policy RetryPolicy, op Op, call func() (T, error)) (T, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = policy.InitialInterval
	expBackoff.MaxInterval = policy.MaxInterval

	options := []backoff.RetryOption{
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(uint(policy.MaxAttempts)),
	}
	if policy.Logf != nil {
		options = append(options, backoff.WithNotify(func(err error, wait time.Duration) {
			policy.Logf("retrying %s in %v: %v", op, wait, err)
		}))
	}

	return backoff.Retry(ctx, func() (T, error) {
		value, err := call()
		if err != nil && !Retryable(err) {
			return value, backoff.Permanent(err)
		}
		return value, err
	}, options...)
}

var _ Capability = (*retrying)(nil)
