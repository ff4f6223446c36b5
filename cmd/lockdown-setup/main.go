// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Lockdown-setup prepares a host for lockdown applications: the
// _lockdown group, the crash diagnostic and socket directories, log
// directories and /etc/rc.d/rc.lockdown. Run it once as root; rerunning
// it is harmless.
//
// Environment variables:
//
//	LOCKDOWN_BIN_PREFIX  prefix for every path (testing, staging trees)
//	LOCKDOWN_DEBUG       enable debug logging
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/lockdown/lib/process"
	"github.com/bureau-foundation/lockdown/lib/version"
	"github.com/bureau-foundation/lockdown/provision"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var showVersion bool
	flagSet := pflag.NewFlagSet("lockdown-setup", pflag.ContinueOnError)
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lockdown-setup\n\nPrepares this host for lockdown applications.\n\nFlags:\n")
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("lockdown-setup %s\n", version.Info())
		return nil
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	level := slog.LevelInfo
	if os.Getenv("LOCKDOWN_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return provision.Setup(context.Background(), provision.SystemFromEnvironment(os.Stdout, logger))
}
