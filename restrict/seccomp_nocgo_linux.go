// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux && !cgo

package restrict

import "log/slog"

// loadSyscallFilter needs libseccomp, which needs cgo.
func loadSyscallFilter([]string, bool, *slog.Logger) error {
	return ErrUnsupported
}
