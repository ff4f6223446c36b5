// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lockdown

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/lockdown/policy"
	"github.com/bureau-foundation/lockdown/privilege"
	"github.com/bureau-foundation/lockdown/restrict"
)

// coverageEnv is set when a binary built with -cover is collecting
// coverage. Writing the profile at exit needs more than any
// production pledge allows.
const coverageEnv = "GOCOVERDIR"

// ErrCoverageInChroot is returned by Chroot when a privileged process
// is collecting coverage: the profile could not be written from inside
// the chroot.
var ErrCoverageInChroot = errors.New("cannot collect coverage in chroot mode")

func collectingCoverage() bool {
	return os.Getenv(coverageEnv) != ""
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Dropper == nil {
		d.Dropper = privilege.New(privilege.Config{Logger: d.Logger})
	}
	if d.ForceLoader == nil {
		d.ForceLoader = NewForceLoader(d.Logger)
	}
	if d.Restrictor == nil {
		d.Restrictor = restrict.Native(d.Logger)
	}
	return d
}

// PledgeAndUnveil restricts a program that is not a lockdown server,
// typically a test binary that should run under its production
// policy. paths maps paths (relative to the working directory) to
// access letters; the files of modules are added and their entry
// points force-loaded. The pledge is skipped while collecting
// coverage.
func PledgeAndUnveil(deps Deps, promises string, paths map[string]string, modules []string) error {
	deps = deps.withDefaults()

	declared, err := policy.ParsePaths(paths)
	if err != nil {
		return &restrict.Error{Op: "unveil", Err: err}
	}
	workingDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("working directory: %w", err)
	}
	built := policy.Build(promises, declared, policy.BuildContext{
		Modules: modules,
		Table:   deps.Modules,
		BaseDir: workingDir,
	})

	deps.ForceLoader.Load(policy.ForceLoads(deps.Modules, modules))

	if built.RestrictsVisibility() {
		if err := deps.Restrictor.Unveil(built.Paths); err != nil {
			return err
		}
	}
	if collectingCoverage() {
		deps.Logger.Info("collecting coverage, skipping syscall restriction")
		return nil
	}
	if len(built.Promises) > 0 {
		return deps.Restrictor.Pledge(built.Promises, nil)
	}
	return nil
}

// Chroot confines a program that is not a lockdown server. When
// privileged it force-loads every registered runtime entry point,
// drops to user and group, and chroots to dir (default: the working
// directory). Unprivileged, it only pledges, so the same test binary
// runs both ways. group defaults to user. The pledge is skipped while
// collecting coverage, and collecting coverage while privileged is an
// error.
func Chroot(deps Deps, userName, promises, group, dir string) error {
	deps = deps.withDefaults()
	if group == "" {
		group = userName
	}
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("working directory: %w", err)
		}
	}

	if deps.Dropper.Privileged() {
		if collectingCoverage() {
			return ErrCoverageInChroot
		}
		deps.ForceLoader.Load(deps.ForceLoader.IDs())
		if err := deps.Dropper.DropTo(userName, group, dir); err != nil {
			return err
		}
		deps.Logger.Info("chrooted", "dir", dir, "user", userName)
	}

	if collectingCoverage() {
		deps.Logger.Info("collecting coverage, skipping syscall restriction")
		return nil
	}
	if promises != "" {
		built := policy.Build(promises, nil, policy.BuildContext{})
		return deps.Restrictor.Pledge(built.Promises, nil)
	}
	return nil
}
