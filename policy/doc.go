// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package policy computes the restriction state a lockdown process
// will apply to itself: which syscall promises it keeps, which
// filesystem paths stay visible and with what access, and which
// directory it is confined to.
//
// [Build] is pure. It reads no files and makes no system calls, so the
// same declarations always produce the same [Policy], and the result
// can be inspected in tests before anything irreversible happens. The
// restrict package applies a Policy; the lockdown package decides when.
//
// # Promises
//
// [Promises] is an ordered, duplicate-free set of OpenBSD pledge(2)
// tokens. The vocabulary is fixed ([Vocabulary]); [Promises.Validate]
// rejects anything outside it. "stdio" is always present in a built
// policy: no process can do useful work without it, and pledge(2)
// without it kills the process on its first write.
//
// # Paths
//
// Each [PathRule] names a path, an [Access] (any of r, w, x, c), and
// whether a missing path is skipped rather than treated as an error.
// Relative paths are resolved against [BuildContext].BaseDir, which is
// the application directory.
//
// # Runtime modules
//
// Some standard-library facilities load their data lazily on first
// use: mime types, the zoneinfo database, system TLS roots, resolver
// configuration, the user database. Code that first touches one of
// these after restriction fails, because the files it lazily reads are
// no longer visible. The [ModuleTable] (embedded modules.yaml) lists,
// per module, the installation paths to keep readable and the entry
// points to call before restricting. The table is maintained by hand
// and must follow the standard library's lookup paths.
package policy
