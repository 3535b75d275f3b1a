package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"
)

type testConfig struct {
	Addr      string `env:"SEEDFORGE_CMD_TEST_ADDR" envDefault:"localhost:8003"`
	Transport string `env:"SEEDFORGE_CMD_TEST_TRANSPORT" envDefault:"http"`
}

func noTelemetry(context.Context, string) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("SEEDFORGE_CMD_TEST_ADDR", "env:9000")
	t.Setenv("SEEDFORGE_CMD_TEST_TRANSPORT", "grpc")

	var cfg testConfig
	if err := LoadEnv(&cfg); err != nil {
		t.Fatalf("load env: %v", err)
	}
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "gateway address")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "transport")
	if err := ParseFlags(fs, []string{"-addr", "flag:9002"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfg.Addr != "flag:9002" {
		t.Fatalf("addr = %q, want flag value", cfg.Addr)
	}
	if cfg.Transport != "grpc" {
		t.Fatalf("transport = %q, want env value", cfg.Transport)
	}
}

func TestLoadEnvDefaults(t *testing.T) {
	var cfg testConfig
	if err := LoadEnv(&cfg); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if cfg.Addr != "localhost:8003" || cfg.Transport != "http" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if err := LoadEnv[testConfig](nil); err == nil {
		t.Fatal("expected error for nil target")
	}
}

func TestParseFlagsRejectsNilSet(t *testing.T) {
	if err := ParseFlags(nil, nil); err == nil {
		t.Fatal("expected error for nil flag set")
	}
}

func TestLifecycleRejectsMissingInputs(t *testing.T) {
	lc := Lifecycle{Telemetry: noTelemetry}
	if err := lc.Run(context.Background(), func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	lc.Service = ServiceSeed
	if err := lc.Run(context.Background(), nil); err == nil {
		t.Fatal("expected missing run function error")
	}
}

func TestLifecycleFlushesAfterRun(t *testing.T) {
	var order []string
	var flushed []string
	lc := Lifecycle{
		Service: ServiceSeed,
		Telemetry: func(_ context.Context, service string) (func(context.Context) error, error) {
			order = append(order, "setup "+service)
			return func(context.Context) error {
				order = append(order, "flush")
				return errors.New("collector down")
			}, nil
		},
		Logf: func(format string, args ...any) { flushed = append(flushed, fmt.Sprintf(format, args...)) },
	}
	runErr := errors.New("run failed")
	err := lc.Run(context.Background(), func(context.Context) error {
		order = append(order, "run")
		return runErr
	})
	if !errors.Is(err, runErr) || errors.Is(err, ErrInterrupted) {
		t.Fatalf("expected plain run error, got %v", err)
	}
	want := []string{"setup " + ServiceSeed, "run", "flush"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Fatalf("order = %v, want %v", order, want)
	}
	if len(flushed) != 1 || !strings.Contains(flushed[0], "collector down") {
		t.Fatalf("flush log = %v", flushed)
	}
}

func TestLifecycleTelemetryError(t *testing.T) {
	lc := Lifecycle{
		Service: ServiceSeed,
		Telemetry: func(context.Context, string) (func(context.Context) error, error) {
			return nil, errors.New("bad exporter")
		},
	}
	called := false
	err := lc.Run(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if err == nil || called {
		t.Fatalf("expected setup error before run, err=%v called=%v", err, called)
	}
}

func TestLifecycleSignalInterruptsRun(t *testing.T) {
	lc := Lifecycle{
		Service:   ServiceSeed,
		Telemetry: noTelemetry,
		Signals:   []os.Signal{syscall.SIGUSR1},
	}
	err := lc.Run(context.Background(), func(ctx context.Context) error {
		if err := syscall.Kill(os.Getpid(), syscall.SIGUSR1); err != nil {
			t.Fatalf("send signal: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return errors.New("signal did not cancel the run")
		}
	})
	if !errors.Is(err, ErrInterrupted) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected interrupted cancellation, got %v", err)
	}
	if code := ExitCode(err); code != ExitInterrupted {
		t.Fatalf("exit code = %d, want %d", code, ExitInterrupted)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{flag.ErrHelp, ExitOK},
		{fmt.Errorf("run: %w", ErrInterrupted), ExitInterrupted},
		{errors.New("gateway down"), ExitFailed},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Fatalf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
