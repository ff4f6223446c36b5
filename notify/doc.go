// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package notify mails the operator about panics that escape a
// worker's handler chain.
//
// [Recoverer] is installed outermost in production workers that have a
// notification address. A panic is composed into a mail message with
// the panic value, the goroutine's stack and the request headers, sent
// through a [crash.Sender], and then re-raised as
// [http.ErrAbortHandler] so net/http aborts the response without
// logging a second stack trace. A token bucket bounds how much mail a
// panicking handler can produce; panics over the limit are logged
// only.
//
// The worker's promises must allow the sender's network access
// ("inet", plus "dns" when the mail server is a host name).
package notify
