// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package server is a preforking HTTP server: one master process that
// owns the listening socket and N worker processes that accept on it.
//
// Go cannot fork a running process, so workers are fresh executions of
// the same binary. The master starts each with LOCKDOWN_ROLE=worker,
// LOCKDOWN_WORKER=<nr>, argv[0] set to lockdown-<app>-worker[<nr>] and
// the listening socket as file descriptor 3. The binary's main picks
// [Server.RunMaster] or [Server.RunWorker] from the role.
//
// Everything that makes a server a locked-down server is attached
// through hooks rather than subclassing:
//
//   - OnMasterStart runs in the master after the socket is bound and
//     before any worker is started.
//   - OnForkChild runs first thing in a worker, still with the
//     master's identity.
//   - OnWorkerReady runs in a worker after the application handler is
//     loaded and before the first request is accepted. It may wrap the
//     handler.
//   - OnWorkerExit runs in the master for every reaped worker, one at
//     a time; the next exit is not looked at until it returns.
//   - OnPause runs in a worker on SIGUSR2.
//   - OnWorkerStop runs in a worker after it stops serving.
//
// Signals: SIGQUIT stops gracefully (workers finish in-flight
// requests), SIGTERM and SIGINT stop quickly. The master relays the
// same kind of stop to its workers and returns once all have been
// reaped. SIGUSR2 is the pause signal because the Go runtime reserves
// SIGURG for goroutine preemption.
package server
