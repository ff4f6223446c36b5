// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bureau-foundation/lockdown/lib/atomicfile"
)

// PrefixEnv relocates every provisioned path.
const PrefixEnv = "LOCKDOWN_BIN_PREFIX"

// LockdownGroup owns the diagnostic and socket directories and the
// application log files.
const LockdownGroup = "_lockdown"

// Fixed OpenBSD ids.
const (
	rootID   = 0
	daemonID = 1
	binID    = 7
	wwwID    = 67
)

// Runner runs an external command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands with os/exec. Stderr is captured and
// included in errors.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	command := exec.CommandContext(ctx, name, args...)
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return fmt.Errorf("%s %s: %w (stderr: %s)",
			name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Account is a resolved user.
type Account struct {
	UID int
	GID int
}

// Accounts looks up users and groups.
type Accounts interface {
	LookupUser(name string) (Account, error)
	LookupGroup(name string) (int, error)
}

// SystemAccounts resolves through os/user.
type SystemAccounts struct{}

func (SystemAccounts) LookupUser(name string) (Account, error) {
	entry, err := user.Lookup(name)
	if err != nil {
		return Account{}, err
	}
	uid, err := strconv.Atoi(entry.Uid)
	if err != nil {
		return Account{}, fmt.Errorf("user %s: uid %q: %w", name, entry.Uid, err)
	}
	gid, err := strconv.Atoi(entry.Gid)
	if err != nil {
		return Account{}, fmt.Errorf("user %s: gid %q: %w", name, entry.Gid, err)
	}
	return Account{UID: uid, GID: gid}, nil
}

func (SystemAccounts) LookupGroup(name string) (int, error) {
	entry, err := user.LookupGroup(name)
	if err != nil {
		return 0, err
	}
	gid, err := strconv.Atoi(entry.Gid)
	if err != nil {
		return 0, fmt.Errorf("group %s: gid %q: %w", name, entry.Gid, err)
	}
	return gid, nil
}

// System is the host being provisioned.
type System struct {
	// Prefix is prepended to every path.
	Prefix string

	Runner   Runner
	Accounts Accounts

	// Root makes the run set ownership. Defaults to euid 0.
	Root *bool

	// Out receives one line per change, for the operator.
	Out io.Writer

	Logger *slog.Logger
}

// SystemFromEnvironment returns the real host, relocated by
// LOCKDOWN_BIN_PREFIX.
func SystemFromEnvironment(out io.Writer, logger *slog.Logger) *System {
	return &System{Prefix: os.Getenv(PrefixEnv), Out: out, Logger: logger}
}

func (s *System) withDefaults() *System {
	resolved := *s
	if resolved.Runner == nil {
		resolved.Runner = ExecRunner{}
	}
	if resolved.Accounts == nil {
		resolved.Accounts = SystemAccounts{}
	}
	if resolved.Root == nil {
		root := os.Geteuid() == 0
		resolved.Root = &root
	}
	if resolved.Out == nil {
		resolved.Out = io.Discard
	}
	if resolved.Logger == nil {
		resolved.Logger = slog.Default()
	}
	return &resolved
}

// Path is name under the prefix.
func (s *System) Path(name string) string {
	return filepath.Join(s.Prefix, name)
}

func (s *System) note(format string, args ...any) {
	fmt.Fprintf(s.Out, format+"\n", args...)
}

// run prints and runs a command.
func (s *System) run(ctx context.Context, name string, args ...string) error {
	s.note("Running: %s %s", name, strings.Join(args, " "))
	return s.Runner.Run(ctx, name, args...)
}

// ensureGroup returns the gid of group, creating it with groupadd when
// missing.
func (s *System) ensureGroup(ctx context.Context, group string) (int, error) {
	gid, err := s.Accounts.LookupGroup(group)
	if err == nil {
		return gid, nil
	}
	if err := s.run(ctx, "groupadd", group); err != nil {
		return 0, err
	}
	gid, err = s.Accounts.LookupGroup(group)
	if err != nil {
		return 0, fmt.Errorf("group %s missing after groupadd: %w", group, err)
	}
	return gid, nil
}

// ensureDir creates path with mode and owner if it is not a directory.
func (s *System) ensureDir(path string, mode os.FileMode, uid, gid int) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", path)
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	s.note("Creating %s", path)
	if err := os.Mkdir(path, mode); err != nil {
		return err
	}
	// Mkdir applies the umask.
	if err := os.Chmod(path, mode); err != nil {
		return err
	}
	return s.chown(path, uid, gid)
}

// ensureFile writes data to path with mode and owner if no file is
// there.
func (s *System) ensureFile(path string, data []byte, mode os.FileMode, uid, gid int) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%s exists and is not a regular file", path)
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	s.note("Creating %s", path)
	if err := atomicfile.WriteFile(path, data, mode); err != nil {
		return err
	}
	return s.chown(path, uid, gid)
}

func (s *System) chown(path string, uid, gid int) error {
	if !*s.Root {
		return nil
	}
	if err := os.Lchown(path, uid, gid); err != nil {
		return err
	}
	s.Logger.Debug("chown", "path", path, "uid", uid, "gid", gid)
	return nil
}
