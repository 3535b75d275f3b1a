// Package engine realizes a seed plan against a capability.
//
// Users, accounts, cards and operations are created by one goroutine each.
// A weighted semaphore shared by the whole run bounds the number of
// capability calls in flight; it is held only around the call itself, so a
// goroutine waiting for its children never holds a permit. Within an account
// every card call returns before the first operation call is issued.
//
// Failures are recorded on the node that failed and never abort siblings.
// Descendants of a failed user or account are not attempted.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/paygate/seedforge/internal/platform/id"
	"github.com/paygate/seedforge/internal/seed/capability"
	"github.com/paygate/seedforge/internal/seed/plan"
	"github.com/paygate/seedforge/internal/seed/result"
	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency bounds in-flight capability calls when no bound is set.
const DefaultConcurrency = 16

// Engine runs plans against one capability. It is safe to call Run
// concurrently; every run gets its own concurrency gate.
type Engine struct {
	capability  capability.Capability
	concurrency int
	logf        func(string, ...any)
	clock       func() time.Time
	newRunID    func() (string, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency sets the maximum number of capability calls in flight.
// Values below 1 keep DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the printf-style logger used for progress and failures.
func WithLogger(logf func(string, ...any)) Option {
	return func(e *Engine) {
		e.logf = logf
	}
}

// WithClock overrides the time source used for run timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithRunID overrides the run identifier generator.
func WithRunID(fn func() (string, error)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newRunID = fn
		}
	}
}

// New creates an Engine that creates entities through c.
func New(c capability.Capability, opts ...Option) *Engine {
	e := &Engine{
		capability:  c,
		concurrency: DefaultConcurrency,
		clock:       time.Now,
		newRunID:    id.NewID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Concurrency returns the configured bound on in-flight calls.
func (e *Engine) Concurrency() int {
	return e.concurrency
}

// Run validates p and creates every entity it describes. A malformed plan
// returns a *plan.ValidationError before any call is made. Once dispatch
// begins, Run always completes and returns the full result tree; per-entity
// failures are recorded in the tree, never returned as an error. Cancelling
// ctx does not interrupt a run that has started.
func (e *Engine) Run(ctx context.Context, name string, p plan.UsersPlan) (*result.Result, error) {
	if e == nil || e.capability == nil {
		return nil, errors.New("engine capability is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	runID, err := e.newRunID()
	if err != nil {
		return nil, fmt.Errorf("new run id: %w", err)
	}

	r := &run{
		ctx:        context.WithoutCancel(ctx),
		capability: e.capability,
		gate:       semaphore.NewWeighted(int64(e.concurrency)),
		logf:       e.logf,
	}

	out := &result.Result{
		RunID:     runID,
		Scenario:  name,
		StartedAt: e.clock().UTC(),
	}
	totals := p.Totals()
	r.log("run %s: seeding %q with %d user(s), %d account(s), %d card(s), %d operation(s), concurrency %d",
		runID, name, totals.Users, totals.Accounts, totals.Cards, totals.Operations, e.concurrency)

	out.Users = make([]result.UserResult, max(p.Count, 0))
	var wg sync.WaitGroup
	for i := range out.Users {
		wg.Go(func() {
			out.Users[i] = r.user(p)
		})
	}
	wg.Wait()

	out.FinishedAt = e.clock().UTC()
	out.Summary = result.Summarize(out.Users, totals.Entities())
	r.log("run %s: created %d of %d planned, %d failed, %d skipped in %v",
		runID, out.Summary.CreatedTotal, out.Summary.PlannedTotal, out.Summary.FailedTotal,
		out.Summary.SkippedTotal(), out.Duration())
	return out, nil
}
