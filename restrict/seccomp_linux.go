// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux && cgo

package restrict

import (
	"errors"
	"fmt"
	"log/slog"

	seccomp "github.com/seccomp/libseccomp-golang"
	"golang.org/x/sys/unix"
)

// loadSyscallFilter installs a seccomp allow-list of names on every
// thread of the process. Everything else kills the process, or fails
// with EPERM when errnoOnViolation is set.
func loadSyscallFilter(names []string, errnoOnViolation bool, logger *slog.Logger) error {
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return fmt.Errorf("enable no_new_privs before seccomp: %w", err)
	}

	defaultAction := seccomp.ActKillProcess
	if errnoOnViolation {
		defaultAction = seccomp.ActErrno.SetReturnCode(int16(unix.EPERM))
	}

	filter, err := seccomp.NewFilter(defaultAction)
	if err != nil {
		return fmt.Errorf("create seccomp filter: %w", err)
	}
	defer filter.Release()

	skipped := 0
	for _, name := range names {
		sc, err := seccomp.GetSyscallFromName(name)
		if err != nil {
			if errors.Is(err, seccomp.ErrSyscallDoesNotExist) {
				skipped++
				continue
			}
			return fmt.Errorf("lookup syscall %q: %w", name, err)
		}
		if err := filter.AddRule(sc, seccomp.ActAllow); err != nil {
			return fmt.Errorf("add seccomp rule for %q: %w", name, err)
		}
	}

	if err := filter.SetNoNewPrivsBit(true); err != nil {
		return fmt.Errorf("set seccomp no_new_privs bit: %w", err)
	}
	// Go runs on many threads; a filter on the calling thread alone
	// restricts nothing.
	if err := filter.SetTsync(true); err != nil {
		return fmt.Errorf("enable seccomp thread sync: %w", err)
	}
	if err := filter.Load(); err != nil {
		return fmt.Errorf("load seccomp filter: %w", err)
	}

	logger.Debug("seccomp filter loaded", "allowed", len(names)-skipped, "skipped", skipped)
	return nil
}
