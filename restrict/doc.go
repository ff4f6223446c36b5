// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package restrict applies a [policy.Policy] to the calling process
// using the kernel's irreversible restriction primitives.
//
// A [Restrictor] has two operations, matching OpenBSD's two system
// calls:
//
//   - Unveil limits filesystem visibility to a path allow-list and
//     locks it. On OpenBSD this is unveil(2) per rule followed by
//     unveil(NULL, NULL). On Linux it is a Landlock ruleset.
//   - Pledge limits the syscalls the process may issue to those its
//     promises cover. On OpenBSD this is pledge(2). On Linux it is a
//     seccomp allow-list built from a promise-to-syscall table, plus
//     clearing the capability bounding set when the "id" promise is
//     absent.
//
// Both only ever narrow. Once a process has pledged without "unveil",
// it can make no further visibility changes; once it has pledged, later
// pledges can only drop promises. A process that issues a syscall
// outside its promises is killed by the kernel, which the crash
// pipeline then reports.
//
// Linux has no exec promises: a seccomp filter is inherited across
// exec unchanged. The Linux Pledge therefore installs the union of
// promises and exec promises, which is what an exec'd child needs and
// no more than the caller already had.
//
// Where a platform has no equivalent primitive, operations fail with
// an [Error] wrapping [ErrUnsupported]. [WithFallback] turns that into
// a skip or a warning according to configuration. Malformed promise
// tokens are rejected before any system call is made.
//
// The restricttest subpackage provides a recording fake that enforces
// the same narrowing contract, for tests of the code that sequences
// restriction.
package restrict
