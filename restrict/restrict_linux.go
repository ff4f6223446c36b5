// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package restrict

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/landlock-lsm/go-landlock/landlock"
	llsyscall "github.com/landlock-lsm/go-landlock/landlock/syscall"
	"github.com/syndtr/gocapability/capability"

	"github.com/bureau-foundation/lockdown/policy"
)

type linuxRestrictor struct {
	logger *slog.Logger
}

// Native returns the platform's restrictor: Landlock for visibility,
// seccomp for syscalls.
func Native(logger *slog.Logger) Restrictor {
	if logger == nil {
		logger = slog.Default()
	}
	return &linuxRestrictor{logger: logger}
}

func (r *linuxRestrictor) Name() string { return "landlock+seccomp" }

// Landlock rights that apply to a regular file. Directory-only rights
// on a file rule make the kernel reject the whole ruleset.
const fileRights = llsyscall.AccessFSExecute |
	llsyscall.AccessFSWriteFile |
	llsyscall.AccessFSReadFile |
	llsyscall.AccessFSTruncate

// landlockAccess translates unveil(2) letters to Landlock rights.
func landlockAccess(access policy.Access, directory bool) landlock.AccessFSSet {
	var rights uint64
	if access.Has(policy.Read) {
		rights |= llsyscall.AccessFSReadFile | llsyscall.AccessFSReadDir
	}
	if access.Has(policy.Write) {
		rights |= llsyscall.AccessFSWriteFile | llsyscall.AccessFSTruncate
	}
	if access.Has(policy.Exec) {
		rights |= llsyscall.AccessFSExecute
	}
	if access.Has(policy.Create) {
		rights |= llsyscall.AccessFSMakeReg | llsyscall.AccessFSMakeDir |
			llsyscall.AccessFSMakeSym | llsyscall.AccessFSMakeSock |
			llsyscall.AccessFSMakeFifo | llsyscall.AccessFSRemoveFile |
			llsyscall.AccessFSRemoveDir | llsyscall.AccessFSRefer
	}
	if !directory {
		rights &= fileRights
	}
	return landlock.AccessFSSet(rights)
}

func (r *linuxRestrictor) Unveil(rules []policy.PathRule) error {
	if err := CheckRules(rules); err != nil {
		return err
	}

	landlockRules := make([]landlock.Rule, 0, len(rules))
	for _, rule := range rules {
		info, err := os.Stat(rule.Path)
		if errors.Is(err, fs.ErrNotExist) {
			if rule.Optional {
				r.logger.Debug("skipping missing optional path", "path", rule.Path, "source", rule.Source)
				continue
			}
			return &Error{Op: "unveil", Err: fmt.Errorf("path %s: %w", rule.Path, err)}
		}
		if err != nil {
			return &Error{Op: "unveil", Err: err}
		}
		access := landlockAccess(rule.Access, info.IsDir())
		if access == 0 {
			// Hidden: simply not listed.
			continue
		}
		landlockRules = append(landlockRules, landlock.PathAccess(access, rule.Path))
	}

	// BestEffort degrades to the newest ABI the kernel offers, and to a
	// no-op on kernels without Landlock.
	if err := landlock.V5.BestEffort().RestrictPaths(landlockRules...); err != nil {
		return &Error{Op: "unveil", Err: err}
	}
	return nil
}

func (r *linuxRestrictor) Pledge(promises, execPromises policy.Promises) error {
	if err := CheckPromises(promises, execPromises); err != nil {
		return err
	}

	effective := promises.Union(execPromises)

	if !effective.Has("id") {
		if err := clearBoundingSet(r.logger); err != nil {
			return &Error{Op: "pledge", Err: err}
		}
	}

	// The "error" promise makes violations fail with EPERM instead of
	// killing the process.
	if err := loadSyscallFilter(SyscallsFor(effective), effective.Has("error"), r.logger); err != nil {
		return &Error{Op: "pledge", Err: err}
	}
	return nil
}

// clearBoundingSet empties the capability bounding set so that no
// later exec can regain a capability. Dropping from the bounding set
// needs CAP_SETPCAP; a process that lacks it has nothing to drop that
// no_new_privs does not already cover, so it is skipped.
func clearBoundingSet(logger *slog.Logger) error {
	caps, err := capability.NewPid2(0)
	if err != nil {
		return fmt.Errorf("reading capabilities: %w", err)
	}
	if err := caps.Load(); err != nil {
		return fmt.Errorf("loading capabilities: %w", err)
	}
	if !caps.Get(capability.EFFECTIVE, capability.CAP_SETPCAP) {
		logger.Debug("no CAP_SETPCAP, leaving capability bounding set")
		return nil
	}
	caps.Clear(capability.BOUNDING)
	if err := caps.Apply(capability.BOUNDING); err != nil {
		return fmt.Errorf("clearing capability bounding set: %w", err)
	}
	logger.Debug("cleared capability bounding set")
	return nil
}
