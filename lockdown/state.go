// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lockdown

import (
	"fmt"
	"slices"

	"github.com/bureau-foundation/lockdown/lib/config"
	"github.com/bureau-foundation/lockdown/lib/process"
)

// State is a point in a process's lockdown sequence.
type State int

const (
	Spawned State = iota
	PolicyComputed
	Confined
	VisibilityRestricted
	IdentityDropped
	SyscallRestricted
	Active
	Terminated
)

var stateNames = [...]string{
	Spawned:              "spawned",
	PolicyComputed:       "policy-computed",
	Confined:             "confined",
	VisibilityRestricted: "visibility-restricted",
	IdentityDropped:      "identity-dropped",
	SyscallRestricted:    "syscall-restricted",
	Active:               "active",
	Terminated:           "terminated",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Mode is the deployment mode.
type Mode = config.Mode

const (
	ModeConfinement = config.ModeConfinement
	ModeVisibility  = config.ModeVisibility
	ModeHybrid      = config.ModeHybrid
)

// Role is the part a process plays.
type Role = process.Role

const (
	RoleMaster = process.RoleMaster
	RoleWorker = process.RoleWorker
	RoleRelay  = process.RoleRelay
)

// Plan returns the states a process visits, from Spawned to
// Terminated. unveilFirst applies only to visibility-mode workers.
func Plan(mode Mode, role Role, unveilFirst bool) []State {
	var middle []State
	switch role {
	case RoleMaster:
		if mode == ModeHybrid {
			middle = []State{SyscallRestricted}
		}
		return join(middle, Active)

	case RoleRelay:
		if mode == ModeHybrid {
			middle = []State{IdentityDropped, SyscallRestricted}
		} else {
			middle = []State{Confined, IdentityDropped, SyscallRestricted}
		}

	default:
		switch mode {
		case ModeVisibility:
			if unveilFirst {
				middle = []State{VisibilityRestricted, IdentityDropped, SyscallRestricted}
			} else {
				middle = []State{IdentityDropped, VisibilityRestricted, SyscallRestricted}
			}
		case ModeHybrid:
			middle = []State{VisibilityRestricted, IdentityDropped, SyscallRestricted}
		default:
			middle = []State{Confined, IdentityDropped, SyscallRestricted}
		}
	}
	return join(middle, Active)
}

func join(middle []State, last State) []State {
	plan := make([]State, 0, len(middle)+4)
	plan = append(plan, Spawned, PolicyComputed)
	plan = append(plan, middle...)
	return append(plan, last, Terminated)
}

// SequenceError is a lockdown step attempted out of order. Nothing was
// applied.
type SequenceError struct {
	Mode Mode
	Role Role

	// Step is set when the attempt was not itself a state transition
	// (opening diagnostics).
	Step string

	From      State
	Attempted State
	Expected  State
}

func (e *SequenceError) Error() string {
	attempted := e.Attempted.String()
	if e.Step != "" {
		attempted = e.Step
	}
	return fmt.Sprintf("lockdown sequence violation (%s %s): %s attempted in state %s, next step is %s",
		e.Mode, e.Role, attempted, e.From, e.Expected)
}

// Tracker enforces a plan. It is not safe for concurrent use; a
// process locks itself down from one goroutine.
type Tracker struct {
	mode  Mode
	role  Role
	plan  []State
	index int
}

// NewTracker starts a tracker in Spawned.
func NewTracker(mode Mode, role Role, unveilFirst bool) *Tracker {
	return &Tracker{mode: mode, role: role, plan: Plan(mode, role, unveilFirst)}
}

// State returns the current state.
func (t *Tracker) State() State { return t.plan[t.index] }

// Plan returns the full plan.
func (t *Tracker) Plan() []State { return append([]State(nil), t.plan...) }

// Next returns the state after the current one. ok is false once
// Terminated.
func (t *Tracker) Next() (next State, ok bool) {
	if t.index+1 >= len(t.plan) {
		return Terminated, false
	}
	return t.plan[t.index+1], true
}

// Expect checks that next may be entered now, without entering it.
// Terminated may be entered from any state but itself.
func (t *Tracker) Expect(next State) error {
	expected, ok := t.Next()
	if next == Terminated && ok {
		return nil
	}
	if !ok || next != expected {
		return &SequenceError{
			Mode:      t.mode,
			Role:      t.role,
			From:      t.State(),
			Attempted: next,
			Expected:  expected,
		}
	}
	return nil
}

// Advance enters next.
func (t *Tracker) Advance(next State) error {
	if err := t.Expect(next); err != nil {
		return err
	}
	if next == Terminated {
		t.index = len(t.plan) - 1
		return nil
	}
	t.index++
	return nil
}

// Includes reports whether the plan visits s.
func (t *Tracker) Includes(s State) bool {
	return slices.Contains(t.plan, s)
}
