// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for lockdown
// binaries. Errors from run() may arrive before the structured logger
// exists (a config that failed to load) or after the process has given
// up the right to open its log file (a failed pledge), so [Fatal]
// writes straight to stderr.
package process
