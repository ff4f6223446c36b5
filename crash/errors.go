// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crash

import "fmt"

// TransportError is a failed notification delivery. It is logged where
// it happens and never aborts the master.
type TransportError struct {
	// Stage is the step that failed, such as "relay" or "rcpt".
	Stage string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("notification transport (%s): %v", e.Stage, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
