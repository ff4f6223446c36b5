// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crash

// Decision is what the pipeline does with an exit.
type Decision int

const (
	// NoRecord: no diagnostic file existed. Nothing is sent or deleted.
	NoRecord Decision = iota
	// Success: the worker exited cleanly. Logged, file deleted.
	Success
	// NoAddress: the worker failed but no address is configured.
	// Logged, file deleted.
	NoAddress
	// Notify: a notification is relayed, then the file deleted.
	Notify
	// Suppressed: an empty-record crash inside the cooldown window.
	// Logged, file deleted.
	Suppressed
)

var decisionNames = map[Decision]string{
	NoRecord:   "no-record",
	Success:    "success",
	NoAddress:  "no-address",
	Notify:     "notify",
	Suppressed: "suppressed",
}

func (d Decision) String() string {
	if name, ok := decisionNames[d]; ok {
		return name
	}
	return "unknown"
}

// Decide applies the notification policy. The limiter is consulted,
// and so advanced, only for failed exits with an empty record and an
// address to notify.
func Decide(event Event, exists bool, email string, limiter *Limiter) Decision {
	switch {
	case !exists:
		return NoRecord
	case event.Status.Success():
		return Success
	case email == "":
		return NoAddress
	case !event.Empty():
		return Notify
	case limiter.Allow():
		return Notify
	default:
		return Suppressed
	}
}
