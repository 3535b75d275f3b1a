// Package seed implements the seed command: it resolves a scenario, builds
// the gateway capability stack and runs the engine against it.
package seed

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	platformcmd "github.com/paygate/seedforge/internal/platform/cmd"
	platformerrors "github.com/paygate/seedforge/internal/platform/errors"
	"github.com/paygate/seedforge/internal/platform/timeouts"
	"github.com/paygate/seedforge/internal/seed/capability"
	"github.com/paygate/seedforge/internal/seed/engine"
	"github.com/paygate/seedforge/internal/seed/fakedata"
	"github.com/paygate/seedforge/internal/seed/gateway/grpcgateway"
	"github.com/paygate/seedforge/internal/seed/gateway/httpgateway"
	"github.com/paygate/seedforge/internal/seed/gateway/memory"
	"github.com/paygate/seedforge/internal/seed/metrics"
	"github.com/paygate/seedforge/internal/seed/result"
	"github.com/paygate/seedforge/internal/seed/scenario"
	"github.com/paygate/seedforge/internal/seed/storage"
	"github.com/paygate/seedforge/internal/seed/storage/sqlite"
)

// Transports accepted by -transport.
const (
	TransportHTTP   = "http"
	TransportGRPC   = "grpc"
	TransportMemory = "memory"
)

// maxReportedFailures caps the failure lines printed after a run.
const maxReportedFailures = 20

// ErrRunIncomplete is returned when a run finished with failed nodes.
var ErrRunIncomplete = errors.New("seed run incomplete")

// Config holds seed command configuration.
type Config struct {
	Scenario      string
	PlanPath      string
	List          bool
	OutPath       string
	Seed          int64
	Verbose       bool
	Transport     string `env:"SEEDFORGE_TRANSPORT" envDefault:"http"`
	HTTPAddr      string `env:"SEEDFORGE_HTTP_ADDR" envDefault:"http://localhost:8003"`
	GRPCAddr      string `env:"SEEDFORGE_GRPC_ADDR" envDefault:"localhost:9003"`
	GRPCSchema    string `env:"SEEDFORGE_GRPC_DESCRIPTORS"`
	Concurrency   int    `env:"SEEDFORGE_CONCURRENCY" envDefault:"16"`
	RetryAttempts int    `env:"SEEDFORGE_RETRY_ATTEMPTS" envDefault:"1"`
	DBPath        string `env:"SEEDFORGE_DB_PATH"`
	MetricsAddr   string `env:"SEEDFORGE_METRICS_ADDR"`
}

// ParseConfig loads env defaults and then applies flags from args.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.LoadEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Scenario, "scenario", "", "scenario to run (see -list)")
	fs.StringVar(&cfg.PlanPath, "plan", "", "run a plan file (JSON or YAML) instead of a built-in scenario")
	fs.BoolVar(&cfg.List, "list", false, "list available scenarios")
	fs.StringVar(&cfg.OutPath, "out", "", "write the result tree as JSON to this file")
	fs.Int64Var(&cfg.Seed, "seed", 0, "random seed for fake data (0 = random)")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose output")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "gateway transport (http, grpc, memory)")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP gateway base URL")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC gateway address")
	fs.StringVar(&cfg.GRPCSchema, "grpc-descriptors", cfg.GRPCSchema, "compiled FileDescriptorSet of the gRPC gateway (default: built-in contract)")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "maximum in-flight gateway calls")
	fs.IntVar(&cfg.RetryAttempts, "retries", cfg.RetryAttempts, "attempts per call for retryable gateway errors (1 = no retry)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite database that records finished runs")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	if err := platformcmd.ParseFlags(fs, args); err != nil {
		return Config{}, err
	}
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	return cfg, nil
}

// Run executes the seed command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	registry := scenario.Default()

	if cfg.List {
		fmt.Fprintln(out, "Available scenarios:")
		for _, name := range registry.Names() {
			s, _ := registry.Get(name)
			totals := s.Plan.Totals()
			fmt.Fprintf(out, "  %-40s %s (%d entities)\n", name, s.Description, totals.Entities())
		}
		return nil
	}

	sc, err := resolveScenario(registry, cfg)
	if err != nil {
		return err
	}
	if cfg.Concurrency < 1 {
		return platformerrors.New(platformerrors.CodeConfigInvalid, fmt.Sprintf("concurrency must be at least 1, got %d", cfg.Concurrency))
	}

	var logf func(string, ...any)
	if cfg.Verbose {
		logf = log.New(errOut, "[SEED] ", log.LstdFlags).Printf
	}

	fake, err := fakedata.New(cfg.Seed)
	if err != nil {
		return err
	}
	if logf != nil {
		logf("fake data seed %d", fake.Seed())
	}

	backend, closeBackend, err := newCapability(ctx, cfg, fake, logf)
	if err != nil {
		return err
	}
	defer closeBackend()

	collector := metrics.NewCollector()
	if cfg.MetricsAddr != "" {
		server := collector.StartServer(cfg.MetricsAddr, logf)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Shutdown)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	var c capability.Capability = backend
	c = metrics.Instrument(c, collector)
	c = capability.WithTracing(c, nil)
	c = capability.WithRetry(c, capability.RetryPolicy{MaxAttempts: cfg.RetryAttempts, Logf: logf})

	eng := engine.New(c, engine.WithConcurrency(cfg.Concurrency), engine.WithLogger(logf))
	res, err := eng.Run(ctx, sc.Name, sc.Plan)
	if err != nil {
		return platformerrors.Wrap(platformerrors.CodePlanInvalid, fmt.Sprintf("scenario %q", sc.Name), err)
	}
	collector.RecordRun(res)

	if cfg.OutPath != "" {
		if err := result.WriteFile(cfg.OutPath, res); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	if cfg.DBPath != "" {
		if err := saveRun(ctx, cfg.DBPath, res); err != nil {
			return err
		}
	}

	report(out, errOut, res)
	if !res.OK() {
		return fmt.Errorf("%w: %d of %d entities failed", ErrRunIncomplete, res.Summary.FailedTotal, res.Summary.PlannedTotal)
	}
	return nil
}

func resolveScenario(registry *scenario.Registry, cfg Config) (scenario.Scenario, error) {
	if cfg.PlanPath != "" {
		s, err := scenario.FromFile(cfg.Scenario, cfg.PlanPath)
		if err != nil {
			return scenario.Scenario{}, platformerrors.Wrap(platformerrors.CodePlanInvalid, fmt.Sprintf("load plan %s", cfg.PlanPath), err)
		}
		return s, nil
	}
	if strings.TrimSpace(cfg.Scenario) == "" {
		return scenario.Scenario{}, platformerrors.New(platformerrors.CodeConfigInvalid, "a -scenario or -plan is required (see -list)")
	}
	s, err := registry.Lookup(cfg.Scenario)
	if err != nil {
		return scenario.Scenario{}, platformerrors.Wrap(platformerrors.CodeScenarioNotFound, fmt.Sprintf("scenario %q", cfg.Scenario), err)
	}
	return s, nil
}

func newCapability(ctx context.Context, cfg Config, fake *fakedata.Generator, logf func(string, ...any)) (capability.Capability, func(), error) {
	switch cfg.Transport {
	case TransportHTTP:
		client, err := httpgateway.New(cfg.HTTPAddr, fake,
			httpgateway.WithLogger(logf),
			httpgateway.WithMaxConns(cfg.Concurrency),
		)
		if err != nil {
			return nil, nil, platformerrors.Wrap(platformerrors.CodeConfigInvalid, "http gateway", err)
		}
		return client, func() { _ = client.Close() }, nil
	case TransportGRPC:
		opts := []grpcgateway.Option{grpcgateway.WithLogger(logf)}
		if cfg.GRPCSchema != "" {
			schema, err := grpcgateway.LoadSchema(cfg.GRPCSchema)
			if err != nil {
				return nil, nil, platformerrors.Wrap(platformerrors.CodeConfigInvalid, "grpc descriptors", err)
			}
			opts = append(opts, grpcgateway.WithSchema(schema))
		}
		client, err := grpcgateway.Dial(ctx, cfg.GRPCAddr, fake, opts...)
		if err != nil {
			return nil, nil, platformerrors.Wrap(platformerrors.CodeGatewayUnavailable, "grpc gateway "+cfg.GRPCAddr, err)
		}
		return client, func() { _ = client.Close() }, nil
	case TransportMemory:
		return memory.New(), func() {}, nil
	default:
		return nil, nil, platformerrors.New(platformerrors.CodeTransportUnsupported, fmt.Sprintf("unknown transport %q (valid: http, grpc, memory)", cfg.Transport))
	}
}

func saveRun(ctx context.Context, path string, res *result.Result) error {
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return platformerrors.Wrap(platformerrors.CodeStorageFailed, "open run store", err)
	}
	defer store.Close()
	return storage.SaveResult(ctx, store, res)
}

func report(out, errOut io.Writer, res *result.Result) {
	s := res.Summary
	fmt.Fprintf(out, "scenario %s run %s: planned %d, created %d, failed %d, skipped %d in %s\n",
		res.Scenario, res.RunID, s.PlannedTotal, s.CreatedTotal, s.FailedTotal, s.SkippedTotal(), res.Duration().Round(time.Millisecond))

	failures := res.Failures()
	for i, f := range failures {
		if i == maxReportedFailures {
			fmt.Fprintf(errOut, "... %d more failure(s)\n", len(failures)-i)
			break
		}
		fmt.Fprintf(errOut, "%s [%s] %s\n", f.Path, f.Kind, f.Message)
	}
}
