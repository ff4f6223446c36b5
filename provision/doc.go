// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package provision creates the filesystem layout lockdown expects on
// a host, and the per-application files that tie an application into
// it.
//
// [Setup] runs once per host: the _lockdown group, the diagnostic and
// socket directories, the log directories and the shared rc.d library.
// [AddApp] runs once per application: its user, its unprivileged
// diagnostic directory, the application directory, a lockdown.yaml to
// edit, an nginx server block, empty log files and an rc.d script.
//
// Both are idempotent. Existing directories and files are left alone,
// including their modes and owners, so operator edits survive a rerun.
// Ownership is only set when running as root; an unprivileged run (a
// test, or a dry run into a scratch prefix) creates the same tree owned
// by the caller.
//
// Every path is relative to [System.Prefix], which the commands take
// from LOCKDOWN_BIN_PREFIX.
package provision
