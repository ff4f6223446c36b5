// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Lockdownd runs an application directory's public/ tree as a
// preforking web service under lockdown: a master that keeps a fixed
// number of worker processes alive on a unix socket, workers that
// restrict themselves once loaded, and crash notifications relayed by
// a separately restricted process.
//
// Usage:
//
//	lockdownd serve --config /var/www/blog/lockdown.yaml [--log-file]
//	lockdownd check --config /var/www/blog/lockdown.yaml
//	lockdownd version
//
// Workers and relays are this binary re-executed with LOCKDOWN_ROLE
// set; they are not started by hand.
//
// Environment variables:
//
//	LOCKDOWN_CONFIG  config file, when --config is not given
//	LOCKDOWN_DEBUG   enable debug logging
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/lockdown/crash"
	"github.com/bureau-foundation/lockdown/lib/config"
	"github.com/bureau-foundation/lockdown/lib/process"
	"github.com/bureau-foundation/lockdown/lib/version"
	"github.com/bureau-foundation/lockdown/lockdown"
	"github.com/bureau-foundation/lockdown/notify"
	"github.com/bureau-foundation/lockdown/restrict"
	"github.com/bureau-foundation/lockdown/server"
)

// executableEnv carries the binary's path across the master's
// re-exec under its process title, after which some platforms can no
// longer find it from argv[0].
const executableEnv = "LOCKDOWN_EXECUTABLE"

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	role, err := process.DetectRole()
	if err != nil {
		return err
	}
	switch role {
	case process.RoleRelay:
		return runRelay()
	case process.RoleWorker:
		return runServe(role, os.Args[1:])
	}

	if len(os.Args) < 2 {
		printUsage()
		return errors.New("command required")
	}
	command, args := os.Args[1], os.Args[2:]
	switch command {
	case "serve":
		return runServe(role, args)
	case "check":
		return runCheck(args)
	case "relay":
		return errors.New("relay is started by the master, not by hand")
	case "version", "--version":
		fmt.Printf("lockdownd %s\n", version.Info())
		return nil
	case "help", "--help", "-h":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `lockdownd - serve an application under lockdown

USAGE
    lockdownd <command> [flags]

COMMANDS
    serve     Run the master and its workers
    check     Validate a config and report warnings
    version   Show version

ENVIRONMENT
    LOCKDOWN_CONFIG  Config file, when --config is not given
    LOCKDOWN_DEBUG   Enable debug logging
`)
}

func newLogger(out io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOCKDOWN_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func runCheck(args []string) error {
	var configPath string
	flagSet := pflag.NewFlagSet("lockdownd check", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to lockdown.yaml")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	warnings, err := lockdown.CheckConfig(cfg, nil)
	for _, warning := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s mode, %d workers\n", cfg.App, cfg.Mode(), cfg.Workers)
	return nil
}

func runServe(role process.Role, args []string) error {
	var (
		configPath string
		logToFile  bool
	)
	flagSet := pflag.NewFlagSet("lockdownd serve", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to lockdown.yaml")
	flagSet.BoolVar(&logToFile, "log-file", false, "log to <prefix>/var/log/lockdown/<app>.log instead of stderr")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	executable := os.Getenv(executableEnv)
	if executable == "" {
		executable, err = os.Executable()
		if err != nil {
			return fmt.Errorf("locating executable: %w", err)
		}
	}

	if role == process.RoleMaster {
		if err := retitle(process.Title(cfg.App, string(process.RoleMaster)), executable); err != nil {
			return err
		}
	}

	// Workers and relays write to the stderr they inherit, which is
	// the master's log.
	var logOutput io.Writer = os.Stderr
	if logToFile && role == process.RoleMaster {
		file, err := os.OpenFile(cfg.LogPath(), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0640)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer file.Close()
		logOutput = file
	}
	logger := newLogger(logOutput).With("app", cfg.App, "role", string(role))

	warnings, err := lockdown.CheckConfig(cfg, nil)
	for _, warning := range warnings {
		logger.Warn(warning)
	}
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		App:        cfg.App,
		Workers:    cfg.Workers,
		SocketPath: cfg.SocketPath(),
		Spawner: &server.ExecSpawner{
			App:    cfg.App,
			Path:   executable,
			Args:   args,
			Stdout: logOutput,
			Stderr: logOutput,
		},
		Load:   publicFiles(cfg),
		Logger: logger,
	})

	options := lockdown.Options{
		Config: cfg,
		Relayer: &crash.ExecRelay{
			Path:   executable,
			Args:   []string{"relay"},
			Stderr: logOutput,
		},
		Logger: logger,
	}
	if cfg.Environment == config.Production && cfg.Email != "" {
		options.Middleware = notify.Middleware(notify.Config{
			App:         cfg.App,
			Email:       cfg.Email,
			SMTPAddress: cfg.SMTP.Address,
			Sender:      &crash.SMTPSender{},
			Logger:      logger,
		})
	}
	if _, _, err := lockdown.Install(srv, options); err != nil {
		return err
	}

	ctx := context.Background()
	if role == process.RoleWorker {
		nr, err := process.WorkerNumber()
		if err != nil {
			return err
		}
		listener, err := server.InheritedListener()
		if err != nil {
			return err
		}
		return srv.RunWorker(ctx, nr, listener)
	}
	return srv.RunMaster(ctx)
}

// retitle re-executes the master with argv[0] set to title, so that
// ps, rc.d scripts and lockdown-ctl can find it.
func retitle(title, executable string) error {
	if os.Args[0] == title {
		return nil
	}
	argv := append([]string{title}, os.Args[1:]...)
	env := append(os.Environ(), executableEnv+"="+executable)
	if err := syscall.Exec(executable, argv, env); err != nil {
		return fmt.Errorf("re-executing as %s: %w", title, err)
	}
	return nil
}

// publicFiles serves the application directory's public/ tree. The
// directory is opened by descriptor when the worker loads, so it stays
// reachable after the worker chroots into the application directory.
func publicFiles(cfg *config.Config) func() (http.Handler, error) {
	return func() (http.Handler, error) {
		root, err := os.OpenRoot(filepath.Join(cfg.Paths.AppDir, "public"))
		if err != nil {
			return nil, fmt.Errorf("opening public directory: %w", err)
		}
		return http.FileServerFS(root.FS()), nil
	}
}

// runRelay delivers one crash notification read from stdin.
func runRelay() error {
	logger := newLogger(os.Stderr).With("role", string(process.RoleRelay))
	return crash.RunRelay(context.Background(), os.Stdin, crash.RelayDeps{
		Lockdown: func(request crash.Request) error {
			return lockdown.RelayLockdown(lockdown.Deps{
				Restrictor: restrict.WithFallback(restrict.Native(logger), request.Fallback, logger),
				Logger:     logger,
			})(request)
		},
		Sender: &crash.SMTPSender{},
		Logger: logger,
	})
}
