// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package privilege

import (
	"syscall"

	"golang.org/x/sys/unix"
)

type osSyscalls struct{}

// OS returns the running kernel's identity syscalls.
func OS() Syscalls { return osSyscalls{} }

func (osSyscalls) Geteuid() int { return unix.Geteuid() }
func (osSyscalls) Getegid() int { return unix.Getegid() }

func (osSyscalls) Setgroups(gids []int) error { return syscall.Setgroups(gids) }
func (osSyscalls) Setresgid(gid int) error    { return syscall.Setresgid(gid, gid, gid) }
func (osSyscalls) Setresuid(uid int) error    { return syscall.Setresuid(uid, uid, uid) }

func (osSyscalls) Chroot(dir string) error { return unix.Chroot(dir) }
func (osSyscalls) Chdir(dir string) error  { return unix.Chdir(dir) }
