// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package crash turns abnormal worker exits into operator
// notifications.
//
// A worker that violates its syscall restriction is killed by the
// kernel, not by application code, so the only place the failure can
// be observed is the master's wait for its child. The [Pipeline] runs
// there, once per reaped worker, one exit at a time:
//
//	ExitObserved -> DiagnosticRead -> Decision -> [Relayed] -> RecordDeleted
//
// The decision ([Decide]):
//
//   - no diagnostic file: nothing to report and nothing to clean up
//     ([NoRecord]);
//   - clean exit: log only ([Success]);
//   - failed exit with no notification address: log only ([NoAddress]);
//   - failed exit with a non-empty record: always notify ([Notify]);
//   - failed exit with an empty record: the worker died before its
//     first request, usually during startup, and will do so again on
//     every respawn. Notify only if the [Limiter] allows, at most once
//     per [EmptyCrashCooldown]; otherwise [Suppressed].
//
// The diagnostic file is deleted whenever it existed, whatever was
// decided.
//
// The notification is never sent from the master. A [Relayer] hands
// the record to a separate relay process ([ExecRelay] re-executes the
// lockdown binary in its relay role, writing a CBOR [Request] to its
// stdin) and waits for it to exit. The relay ([RunRelay]) decodes the
// request, locks itself down further than any worker, and delivers the
// message over SMTP. Delivery failures are the relay's to log; the
// master sees at most a failed exit and carries on.
//
// There is no timeout on the relay. A relay stuck on an unresponsive
// mail server holds up the master's processing of later exits.
package crash
