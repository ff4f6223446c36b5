// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package diagnostic implements the per-worker diagnostic record: a
// file each worker rewrites before handling a request, so that if the
// worker is killed mid-request the master can report what it was
// doing.
//
// The [Store] names the files. A privileged deployment keeps them in a
// root-only directory, <prefix>/var/www/requests/<app>.<pid>.txt, and
// the worker opens its file while still root, before dropping identity
// or restricting visibility; the open descriptor survives both. An
// unprivileged deployment uses <prefix>/var/www/request-error-data/<app>/<pid>.txt,
// readable only by the application user.
//
// A [Channel] is the worker's side. [Channel.Write] replaces the whole
// record and fsyncs it, so the master never reads a record the kernel
// had not yet flushed when the worker died. A zero-length file means
// the worker died before its first request, typically during startup.
//
// The master's side is [Store.Read] and [Store.Remove], called after
// the worker has exited. There is a single writer and, afterward, a
// single reader, so no locking crosses the process boundary.
//
// Diagnostic failures never stop a worker: it logs a [*Error] and
// serves without forensics.
package diagnostic
