// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package restrict

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/bureau-foundation/lockdown/policy"
)

// Restrictor applies restrictions to the calling process.
type Restrictor interface {
	// Name identifies the mechanism ("pledge", "landlock+seccomp").
	Name() string

	// Unveil restricts filesystem visibility to rules and locks it.
	// Optional rules whose path does not exist are skipped.
	Unveil(rules []policy.PathRule) error

	// Pledge restricts the process to promises. execPromises bound
	// what an exec'd program starts with; empty leaves them unset.
	Pledge(promises, execPromises policy.Promises) error
}

var (
	// ErrUnsupported means the platform has no equivalent primitive.
	ErrUnsupported = errors.New("not supported on this platform")

	// ErrWidening means a request would grant something an earlier
	// restriction removed.
	ErrWidening = errors.New("request would widen an applied restriction")
)

// Error is a failure to apply a restriction. The process must not
// proceed to serve requests after one.
type Error struct {
	// Op is "unveil" or "pledge".
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// CheckPromises validates both promise sets against the vocabulary.
func CheckPromises(promises, execPromises policy.Promises) error {
	if err := promises.Validate(); err != nil {
		return &Error{Op: "pledge", Err: err}
	}
	if err := execPromises.Validate(); err != nil {
		return &Error{Op: "pledge", Err: fmt.Errorf("exec promises: %w", err)}
	}
	return nil
}

// CheckRules validates that every rule names an absolute path.
func CheckRules(rules []policy.PathRule) error {
	for _, rule := range rules {
		if !filepath.IsAbs(rule.Path) {
			return &Error{Op: "unveil", Err: fmt.Errorf("path %q is not absolute", rule.Path)}
		}
	}
	return nil
}

func unsupported(op string) error {
	return &Error{Op: op, Err: ErrUnsupported}
}
