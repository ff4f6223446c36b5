// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package privilege

// Syscalls is the identity and confinement surface of the kernel.
// [OS] returns the real one; tests substitute a fake.
type Syscalls interface {
	Geteuid() int
	Getegid() int

	// Setgroups replaces the supplementary group list.
	Setgroups(gids []int) error

	// Setresgid sets the real, effective and saved gid to gid.
	Setresgid(gid int) error

	// Setresuid sets the real, effective and saved uid to uid.
	Setresuid(uid int) error

	Chroot(dir string) error
	Chdir(dir string) error
}
