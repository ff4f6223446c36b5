// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/bureau-foundation/lockdown/lib/atomicfile"
)

//go:embed templates/rc.lockdown
var rcLockdown []byte

// Setup prepares a host for lockdown applications.
func Setup(ctx context.Context, system *System) error {
	s := system.withDefaults()

	lockdownGID, err := s.ensureGroup(ctx, LockdownGroup)
	if err != nil {
		return err
	}

	directories := []struct {
		path     string
		mode     os.FileMode
		uid, gid int
	}{
		// Crash diagnostics, written by privileged workers.
		{"/var/www/request-error-data", 0o710, rootID, lockdownGID},
		{"/var/www/requests", 0o710, rootID, lockdownGID},
		// Sockets nginx connects to.
		{"/var/www/sockets", 0o770, wwwID, lockdownGID},
		{"/var/log/lockdown", 0o755, rootID, daemonID},
		{"/var/log/nginx", 0o775, wwwID, rootID},
	}
	for _, directory := range directories {
		if err := s.ensureDir(s.Path(directory.path), directory.mode, directory.uid, directory.gid); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
	}

	rcPath := s.Path("/etc/rc.d/rc.lockdown")
	written, err := atomicfile.WriteFileIfChanged(rcPath, rcLockdown, 0o644)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	if written {
		s.note("Writing %s", rcPath)
		if err := s.chown(rcPath, rootID, rootID); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
	}
	return nil
}
