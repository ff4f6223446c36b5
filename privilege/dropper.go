// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package privilege

import (
	"log/slog"
	"path/filepath"
	"slices"
)

// Target is a resolved identity to drop to.
type Target struct {
	User  string
	UID   int
	Group string
	GID   int

	// Groups is the supplementary group list to install: the user's
	// groups plus GID.
	Groups []int
}

// Config configures a Dropper. Zero fields use the real system.
type Config struct {
	Syscalls   Syscalls
	Identities Identities
	Logger     *slog.Logger
}

// Dropper performs privilege transitions for one process.
type Dropper struct {
	syscalls   Syscalls
	identities Identities
	logger     *slog.Logger

	confinedTo string
}

// New creates a Dropper.
func New(config Config) *Dropper {
	dropper := &Dropper{
		syscalls:   config.Syscalls,
		identities: config.Identities,
		logger:     config.Logger,
	}
	if dropper.syscalls == nil {
		dropper.syscalls = OS()
	}
	if dropper.identities == nil {
		dropper.identities = SystemIdentities{}
	}
	if dropper.logger == nil {
		dropper.logger = slog.Default()
	}
	return dropper
}

// Privileged reports whether the process runs as the superuser.
func (d *Dropper) Privileged() bool {
	return d.syscalls.Geteuid() == 0
}

// Resolve looks up user and group. An empty group means the user's
// name is also the group's.
func (d *Dropper) Resolve(userName, groupName string) (Target, error) {
	if groupName == "" {
		groupName = userName
	}

	uid, err := d.identities.LookupUser(userName)
	if err != nil {
		return Target{}, &UnknownIdentityError{Kind: "user", Name: userName, Err: err}
	}
	gid, err := d.identities.LookupGroup(groupName)
	if err != nil {
		return Target{}, &UnknownIdentityError{Kind: "group", Name: groupName, Err: err}
	}
	groups, err := d.identities.GroupIDs(userName)
	if err != nil {
		return Target{}, &UnknownIdentityError{Kind: "user", Name: userName, Err: err}
	}
	if !slices.Contains(groups, gid) {
		groups = append(groups, gid)
	}
	slices.Sort(groups)

	return Target{User: userName, UID: uid, Group: groupName, GID: gid, Groups: groups}, nil
}

// DropGroup installs the target's supplementary groups and sets the
// real, effective and saved gid. Skipped when the effective gid
// already matches.
func (d *Dropper) DropGroup(target Target) error {
	if !d.Privileged() {
		d.logger.Info("not privileged, skipping group drop", "group", target.Group)
		return nil
	}
	if d.syscalls.Getegid() == target.GID {
		d.logger.Debug("effective group already matches", "gid", target.GID)
		return nil
	}

	if err := d.syscalls.Setgroups(target.Groups); err != nil {
		return &InsufficientRightsError{Op: "setgroups", Err: err}
	}
	if err := d.syscalls.Setresgid(target.GID); err != nil {
		return &InsufficientRightsError{Op: "setresgid", Err: err}
	}
	d.logger.Info("dropped group", "group", target.Group, "gid", target.GID)
	return nil
}

// Confine chroots to dir and resets the working directory to the new
// root. dir must be absolute. Confining twice to the same directory
// is a no-op.
func (d *Dropper) Confine(dir string) error {
	if !d.Privileged() {
		d.logger.Info("not privileged, skipping confinement", "dir", dir)
		return nil
	}
	dir = filepath.Clean(dir)
	if d.confinedTo == dir {
		return nil
	}

	if err := d.syscalls.Chroot(dir); err != nil {
		return &InsufficientRightsError{Op: "chroot", Err: err}
	}
	if err := d.syscalls.Chdir("/"); err != nil {
		return &InsufficientRightsError{Op: "chdir", Err: err}
	}
	d.confinedTo = dir
	d.logger.Info("confined", "root", dir)
	return nil
}

// DropUser sets the real, effective and saved uid. Skipped when the
// effective uid already matches. After this the process is no longer
// privileged and every later step is a no-op.
func (d *Dropper) DropUser(target Target) error {
	if !d.Privileged() {
		d.logger.Info("not privileged, skipping user drop", "user", target.User)
		return nil
	}
	if d.syscalls.Geteuid() == target.UID {
		d.logger.Debug("effective user already matches", "uid", target.UID)
		return nil
	}

	if err := d.syscalls.Setresuid(target.UID); err != nil {
		return &InsufficientRightsError{Op: "setresuid", Err: err}
	}
	d.logger.Info("dropped user", "user", target.User, "uid", target.UID)
	return nil
}

// DropTo resolves the identity and drops to it, confining to root
// between the group and user steps when root is non-empty.
func (d *Dropper) DropTo(userName, groupName, root string) error {
	if !d.Privileged() {
		d.logger.Info("not privileged, skipping privilege drop", "user", userName)
		return nil
	}

	target, err := d.Resolve(userName, groupName)
	if err != nil {
		return err
	}
	if err := d.DropGroup(target); err != nil {
		return err
	}
	if root != "" {
		if err := d.Confine(root); err != nil {
			return err
		}
	}
	return d.DropUser(target)
}
