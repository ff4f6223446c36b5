// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crash

import (
	"time"

	"github.com/bureau-foundation/lockdown/lib/process"
)

// ExitStatus is how a worker process ended.
type ExitStatus = process.ExitStatus

// ExitEvent is a reaped worker.
type ExitEvent struct {
	PID    int
	Worker int
	Status ExitStatus
}

// Event is a crash correlated with its diagnostic record.
type Event struct {
	PID        int
	Worker     int
	Status     ExitStatus
	Diagnostic []byte
	Timestamp  time.Time
}

// Empty reports whether the worker died before recording anything.
func (e Event) Empty() bool {
	return len(e.Diagnostic) == 0
}
