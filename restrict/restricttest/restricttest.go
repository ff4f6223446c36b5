// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package restricttest provides a fake [restrict.Restrictor] that
// enforces the narrowing contract of the real primitives and records
// every call, so tests can assert both what was applied and in what
// order relative to other steps.
package restricttest

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bureau-foundation/lockdown/policy"
	"github.com/bureau-foundation/lockdown/restrict"
)

// Log is an ordered record of calls shared between fakes. The lockdown
// tests hand the same Log to a Recorder and a fake privilege dropper
// and compare the interleaving.
type Log struct {
	mu      sync.Mutex
	entries []string
}

// Record appends an entry.
func (l *Log) Record(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

// Entries returns a copy of the entries so far.
func (l *Log) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

// Recorder is a fake Restrictor. Its zero value is not usable; create
// one with New.
type Recorder struct {
	log *Log

	// Unsupported makes every call fail with restrict.ErrUnsupported
	// after recording it, like a platform without the primitive.
	Unsupported bool

	mu           sync.Mutex
	pledged      bool
	promises     policy.Promises
	execPromises policy.Promises
	unveiled     bool
	visible      map[string]policy.Access
}

var _ restrict.Restrictor = (*Recorder)(nil)

// New creates a Recorder writing to log. A nil log gets a fresh one.
func New(log *Log) *Recorder {
	if log == nil {
		log = &Log{}
	}
	return &Recorder{log: log}
}

// Log returns the recorder's call log.
func (r *Recorder) Log() *Log { return r.log }

func (r *Recorder) Name() string { return "recorder" }

// Unveil accepts a first allow-list unconditionally. Later calls must
// only narrow: every path must already be visible (itself or through a
// visible ancestor) with at least the requested access. After a pledge
// without "unveil", any call is rejected.
func (r *Recorder) Unveil(rules []policy.PathRule) error {
	r.log.Record("unveil %s", describeRules(rules))
	if r.Unsupported {
		return &restrict.Error{Op: "unveil", Err: restrict.ErrUnsupported}
	}
	if err := restrict.CheckRules(rules); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pledged && !r.promises.Has("unveil") {
		return &restrict.Error{Op: "unveil", Err: fmt.Errorf("%w: pledged without unveil", restrict.ErrWidening)}
	}
	if r.unveiled {
		for _, rule := range rules {
			current, ok := r.visibleAccess(rule.Path)
			if !ok || !rule.Access.Narrows(current) {
				return &restrict.Error{Op: "unveil", Err: fmt.Errorf("%w: %s %q", restrict.ErrWidening, rule.Path, rule.Access)}
			}
		}
	}

	next := make(map[string]policy.Access, len(rules))
	for _, rule := range rules {
		next[rule.Path] = rule.Access
	}
	r.visible = next
	r.unveiled = true
	return nil
}

// visibleAccess returns the access in force for path: its own rule, or
// the nearest ancestor's.
func (r *Recorder) visibleAccess(path string) (policy.Access, bool) {
	for candidate := filepath.Clean(path); ; candidate = filepath.Dir(candidate) {
		if access, ok := r.visible[candidate]; ok {
			return access, true
		}
		if candidate == "/" || candidate == "." {
			return 0, false
		}
	}
}

// Pledge validates tokens, then accepts a first pledge unconditionally.
// Later pledges must not add promises or exec promises.
func (r *Recorder) Pledge(promises, execPromises policy.Promises) error {
	if len(execPromises) > 0 {
		r.log.Record("pledge %s exec=%s", promises, execPromises)
	} else {
		r.log.Record("pledge %s", promises)
	}
	if r.Unsupported {
		return &restrict.Error{Op: "pledge", Err: restrict.ErrUnsupported}
	}
	if err := restrict.CheckPromises(promises, execPromises); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pledged {
		if !r.promises.Covers(promises) {
			return &restrict.Error{Op: "pledge", Err: fmt.Errorf("%w: promises %q after %q", restrict.ErrWidening, promises, r.promises)}
		}
		if len(r.execPromises) > 0 && !r.execPromises.Covers(execPromises) {
			return &restrict.Error{Op: "pledge", Err: fmt.Errorf("%w: exec promises %q after %q", restrict.ErrWidening, execPromises, r.execPromises)}
		}
	}

	r.pledged = true
	r.promises = append(policy.Promises(nil), promises...)
	if len(execPromises) > 0 {
		r.execPromises = append(policy.Promises(nil), execPromises...)
	}
	return nil
}

// Promises returns the promises in force, or nil before any pledge.
func (r *Recorder) Promises() policy.Promises {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append(policy.Promises(nil), r.promises...)
}

// Visible returns the access in force for path and whether the process
// can see it at all. Before any unveil everything is visible.
func (r *Recorder) Visible(path string) (policy.Access, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.unveiled {
		return policy.Read | policy.Write | policy.Exec | policy.Create, true
	}
	return r.visibleAccess(path)
}

func describeRules(rules []policy.PathRule) string {
	parts := make([]string, 0, len(rules))
	for _, rule := range rules {
		parts = append(parts, rule.Path+":"+rule.Access.String())
	}
	return strings.Join(parts, ",")
}
