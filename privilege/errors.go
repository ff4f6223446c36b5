// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package privilege

import "fmt"

// UnknownIdentityError is returned when a user or group name does not
// resolve in the system identity database.
type UnknownIdentityError struct {
	// Kind is "user" or "group".
	Kind string
	Name string
	Err  error
}

func (e *UnknownIdentityError) Error() string {
	return fmt.Sprintf("unknown %s %q: %v", e.Kind, e.Name, e.Err)
}

func (e *UnknownIdentityError) Unwrap() error { return e.Err }

// InsufficientRightsError is returned when an identity or confinement
// syscall fails even though the process is privileged.
type InsufficientRightsError struct {
	// Op is the failed operation: "setgroups", "setresgid", "chroot",
	// "chdir", or "setresuid".
	Op  string
	Err error
}

func (e *InsufficientRightsError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InsufficientRightsError) Unwrap() error { return e.Err }
