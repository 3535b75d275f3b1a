// Package main runs seed scenarios against the payments gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	seedcmd "github.com/paygate/seedforge/internal/cmd/seed"
	platformcmd "github.com/paygate/seedforge/internal/platform/cmd"
	"github.com/paygate/seedforge/internal/platform/config"
)

func main() {
	log.SetPrefix("[SEED] ")
	cfg, err := seedcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	lc := platformcmd.Lifecycle{Service: platformcmd.ServiceSeed}
	err = lc.Run(context.Background(), func(ctx context.Context) error {
		return seedcmd.Run(ctx, cfg, os.Stdout, os.Stderr)
	})
	if code := platformcmd.ExitCode(err); code != platformcmd.ExitOK {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(code)
	}
}
