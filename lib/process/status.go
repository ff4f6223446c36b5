// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"os"
	"syscall"
)

// ExitStatus is how a child process ended.
type ExitStatus struct {
	// Code is the exit code. Meaningful only when Signaled is false.
	Code int

	// Signal killed the process when Signaled is true.
	Signal syscall.Signal

	Signaled   bool
	CoreDumped bool
}

// Success reports a normal exit with code zero.
func (s ExitStatus) Success() bool {
	return !s.Signaled && s.Code == 0
}

func (s ExitStatus) String() string {
	if s.Signaled {
		description := fmt.Sprintf("signal %d (%s)", int(s.Signal), s.Signal)
		if s.CoreDumped {
			description += " (core dumped)"
		}
		return description
	}
	return fmt.Sprintf("exit status %d", s.Code)
}

// StatusFromWait converts a raw wait status.
func StatusFromWait(ws syscall.WaitStatus) ExitStatus {
	if ws.Signaled() {
		return ExitStatus{Signal: ws.Signal(), Signaled: true, CoreDumped: ws.CoreDump()}
	}
	return ExitStatus{Code: ws.ExitStatus()}
}

// StatusFromState converts the state of a waited-for process.
func StatusFromState(state *os.ProcessState) ExitStatus {
	if ws, ok := state.Sys().(syscall.WaitStatus); ok {
		return StatusFromWait(ws)
	}
	return ExitStatus{Code: state.ExitCode()}
}
