// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by lockdown tests.
//
// [SocketDir] makes a short directory under /tmp for Unix sockets, whose
// paths are limited to 108 bytes. [RequireReceive] and [RequireClosed]
// wait on channels with a timeout so a hung master or worker fails the
// test instead of stalling it.
package testutil
