// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X" by release builds.
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info returns the string printed by --version. When GitCommit was not
// injected, the VCS revision recorded by the go command is used.
func Info() string {
	return fmt.Sprintf("%s (%s, %s, %s/%s)", Version, commit(), BuildTime, runtime.GOOS, runtime.GOARCH)
}

func commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return GitCommit
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && len(setting.Value) >= 12 {
			return setting.Value[:12]
		}
	}
	return GitCommit
}
