// Package metrics exposes Prometheus metrics for seed runs.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/paygate/seedforge/internal/platform/timeouts"
	"github.com/paygate/seedforge/internal/seed/capability"
	"github.com/paygate/seedforge/internal/seed/plan"
	"github.com/paygate/seedforge/internal/seed/result"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "seedforge"

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Collector owns a private registry with the seed metrics.
type Collector struct {
	registry *prometheus.Registry
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	runs     *prometheus.CounterVec
	entities *prometheus.GaugeVec
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Collector{
		registry: registry,
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_calls_total",
			Help:      "Capability calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capability_call_duration_seconds",
			Help:      "Capability call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capability_calls_in_flight",
			Help:      "Capability calls currently in flight.",
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed seed runs by scenario.",
		}, []string{"scenario"}),
		entities: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_entities",
			Help:      "Entity totals of the latest run by scenario and state.",
		}, []string{"scenario", "state"}),
	}
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveCall records one finished capability call.
func (c *Collector) ObserveCall(op capability.Op, d time.Duration, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	c.calls.WithLabelValues(string(op), outcome).Inc()
	c.duration.WithLabelValues(string(op)).Observe(d.Seconds())
}

// RecordRun publishes the summary of a finished run.
func (c *Collector) RecordRun(r *result.Result) {
	if r == nil {
		return
	}
	c.runs.WithLabelValues(r.Scenario).Inc()
	c.entities.WithLabelValues(r.Scenario, "planned").Set(float64(r.Summary.PlannedTotal))
	c.entities.WithLabelValues(r.Scenario, "created").Set(float64(r.Summary.CreatedTotal))
	c.entities.WithLabelValues(r.Scenario, "failed").Set(float64(r.Summary.FailedTotal))
	c.entities.WithLabelValues(r.Scenario, "skipped").Set(float64(r.Summary.SkippedTotal()))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr in the background. The returned
// server is shut down by the caller.
func (c *Collector) StartServer(addr string, logf func(string, ...any)) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	go func() {
		if logf != nil {
			logf("metrics listening on %s", addr)
		}
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) && logf != nil {
			logf("metrics server: %v", err)
		}
	}()
	return server
}

// Instrument wraps next so every call is counted and timed by c.
func Instrument(next capability.Capability, c *Collector) capability.Capability {
	if c == nil {
		return next
	}
	return &instrumented{next: next, collector: c}
}

type instrumented struct {
	next      capability.Capability
	collector *Collector
}

func observe[T any](c *Collector, op capability.Op, fn func() (T, error)) (T, error) {
	c.inFlight.Inc()
	defer c.inFlight.Dec()
	start := time.Now()
	value, err := fn()
	c.ObserveCall(op, time.Since(start), err)
	return value, err
}

func (i *instrumented) CreateUser(ctx context.Context) (capability.UserID, error) {
	return observe(i.collector, capability.OpCreateUser, func() (capability.UserID, error) {
		return i.next.CreateUser(ctx)
	})
}

func (i *instrumented) OpenAccount(ctx context.Context, userID capability.UserID, accountType plan.AccountType) (capability.AccountID, error) {
	return observe(i.collector, capability.OpOpenAccount, func() (capability.AccountID, error) {
		return i.next.OpenAccount(ctx, userID, accountType)
	})
}

func (i *instrumented) IssueCard(ctx context.Context, req capability.CardRequest) (capability.CardID, error) {
	return observe(i.collector, capability.OpIssueCard, func() (capability.CardID, error) {
		return i.next.IssueCard(ctx, req)
	})
}

func (i *instrumented) CreateOperation(ctx context.Context, req capability.OperationRequest) (capability.OperationID, error) {
	return observe(i.collector, capability.OpCreateOperation, func() (capability.OperationID, error) {
		return i.next.CreateOperation(ctx, req)
	})
}
