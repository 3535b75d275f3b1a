// Package cmd is the startup path of the seedforge binaries. A command loads
// its environment defaults, lets flags override them, then runs inside a
// Lifecycle that owns signal handling and trace export, and finally turns the
// run error into a process exit code with ExitCode.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/paygate/seedforge/internal/platform/config"
	"github.com/paygate/seedforge/internal/platform/otel"
)

// ServiceSeed names the seed command in telemetry.
const ServiceSeed = "seedforge-seed"

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailed      = 1
	ExitInterrupted = 130
)

const defaultFlushTimeout = 5 * time.Second

// ErrInterrupted marks a run that ended because the process got a
// termination signal. Partial seed results are still written before exit.
var ErrInterrupted = errors.New("interrupted")

// TelemetryFunc installs tracing for a service and returns its flush func.
type TelemetryFunc func(ctx context.Context, service string) (func(context.Context) error, error)

// Lifecycle runs one seedforge command between startup and exit.
type Lifecycle struct {
	Service string
	// FlushTimeout bounds the final span export. Zero means five seconds.
	FlushTimeout time.Duration
	// Telemetry defaults to otel.Setup.
	Telemetry TelemetryFunc
	// Signals cancel the run. Defaults to SIGINT and SIGTERM.
	Signals []os.Signal
	// Logf reports flush failures. Defaults to log.Printf.
	Logf func(string, ...any)
}

// LoadEnv fills cfg from SEEDFORGE_* environment variables and their defaults.
func LoadEnv[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseFlags parses args with fs. Call it after LoadEnv and register flags
// with the loaded values as defaults, so a flag wins over its variable.
func ParseFlags(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag set is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// Run installs telemetry, runs fn under a context cancelled by the
// configured signals, and flushes spans once fn returns. When a signal ended
// the run, the returned error wraps ErrInterrupted.
func (l Lifecycle) Run(ctx context.Context, fn func(context.Context) error) error {
	service := strings.TrimSpace(l.Service)
	if service == "" {
		return errors.New("service name is required")
	}
	if fn == nil {
		return errors.New("run function is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stopSignals := l.watchSignals(cancel)
	defer stopSignals()

	telemetry := l.Telemetry
	if telemetry == nil {
		telemetry = otel.Setup
	}
	flush, err := telemetry(ctx, service)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer l.flush(service, flush)

	err = fn(ctx)
	if cause := context.Cause(ctx); errors.Is(cause, ErrInterrupted) {
		if err == nil {
			return cause
		}
		return fmt.Errorf("%w: %w", cause, err)
	}
	return err
}

func (l Lifecycle) watchSignals(cancel context.CancelCauseFunc) func() {
	signals := l.Signals
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-ch:
			cancel(fmt.Errorf("%w by %s", ErrInterrupted, sig))
		case <-done:
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}

func (l Lifecycle) flush(service string, flush func(context.Context) error) {
	timeout := l.FlushTimeout
	if timeout <= 0 {
		timeout = defaultFlushTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := flush(ctx); err != nil {
		logf := l.Logf
		if logf == nil {
			logf = log.Printf
		}
		logf("%s: flush traces: %v", service, err)
	}
}

// ExitCode maps a run error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return ExitOK
	case errors.Is(err, ErrInterrupted):
		return ExitInterrupted
	default:
		return ExitFailed
	}
}
