// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Lockdown-add provisions one application on a host prepared by
// lockdown-setup: its user, diagnostic directory, application
// directory, a lockdown.yaml to edit, an nginx server block, log files
// and an rc.d script.
//
// Usage:
//
//	lockdown-add -o owner -u user [-d dir] [-f config] [--uid N] app
//
// Environment variables:
//
//	LOCKDOWN_BIN_PREFIX  prefix for every path (testing, staging trees)
//	LOCKDOWN_DEBUG       enable debug logging
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/lockdown/lib/process"
	"github.com/bureau-foundation/lockdown/provision"
)

// errUsage has already been reported with the usage text.
var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(1)
		}
		process.Fatal(err)
	}
}

func run(args []string) error {
	var opts provision.AppOptions
	flagSet := pflag.NewFlagSet("lockdown-add", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.Owner, "owner", "o", "", "operating system user owning the application")
	flagSet.StringVarP(&opts.User, "user", "u", "", "operating system user running the application")
	flagSet.StringVarP(&opts.Dir, "dir", "d", "", "application directory name under /var/www (default: app)")
	flagSet.StringVarP(&opts.ConfigFile, "config-file", "f", provision.DefaultConfigFile, "config file relative to the application directory")
	flagSet.IntVar(&opts.UID, "uid", 0, "uid for the user, if it has to be created")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: lockdown-add -o owner -u user [options] app_name\n\nOptions:\n")
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if opts.Owner == "" || opts.User == "" {
		fmt.Fprintln(os.Stderr, "Must pass -o and -u options")
		flagSet.Usage()
		return errUsage
	}
	if flagSet.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Must pass exactly one application name")
		flagSet.Usage()
		return errUsage
	}
	opts.App = flagSet.Arg(0)

	level := slog.LevelInfo
	if os.Getenv("LOCKDOWN_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return provision.AddApp(context.Background(), provision.SystemFromEnvironment(os.Stdout, logger), opts)
}
