// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package privilege moves a process from the privileged identity to an
// unprivileged user and group, optionally confining it to a directory
// subtree on the way.
//
// The [Dropper] exposes three separately callable steps, [Dropper.DropGroup],
// [Dropper.Confine], and [Dropper.DropUser], because callers interleave
// other work between them: chroot needs root, so confinement must
// happen after the group drop but before the user drop, and some
// deployment modes restrict visibility in between as well.
// [Dropper.DropTo] runs all three in that order.
//
// Every step is a logged no-op when the process is not privileged, so
// the same code runs unchanged under a developer's own account.
//
// Failures are fatal by contract. An [UnknownIdentityError] means the
// configured user or group does not exist; an [InsufficientRightsError]
// means a privileged syscall failed while running privileged. Neither
// is retried: a process that dropped its group but not its user is in
// a state nobody planned for.
//
// Identity changes use the syscall package rather than
// golang.org/x/sys/unix. On Linux the kernel applies setresuid(2) and
// friends per thread; the syscall package broadcasts the change to
// every thread of the Go runtime, x/sys/unix does not. OpenBSD changes
// the whole process and its syscall package lacks the setres* calls,
// so there x/sys/unix is used.
package privilege
