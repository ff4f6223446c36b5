// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lockdown

import (
	"errors"
	"slices"
	"testing"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name        string
		mode        Mode
		role        Role
		unveilFirst bool
		want        []State
	}{
		{
			"confinement worker", ModeConfinement, RoleWorker, false,
			[]State{Spawned, PolicyComputed, Confined, IdentityDropped, SyscallRestricted, Active, Terminated},
		},
		{
			"visibility worker", ModeVisibility, RoleWorker, false,
			[]State{Spawned, PolicyComputed, IdentityDropped, VisibilityRestricted, SyscallRestricted, Active, Terminated},
		},
		{
			"visibility worker unveiling first", ModeVisibility, RoleWorker, true,
			[]State{Spawned, PolicyComputed, VisibilityRestricted, IdentityDropped, SyscallRestricted, Active, Terminated},
		},
		{
			"hybrid worker", ModeHybrid, RoleWorker, false,
			[]State{Spawned, PolicyComputed, VisibilityRestricted, IdentityDropped, SyscallRestricted, Active, Terminated},
		},
		{
			"hybrid master", ModeHybrid, RoleMaster, false,
			[]State{Spawned, PolicyComputed, SyscallRestricted, Active, Terminated},
		},
		{
			"confinement master", ModeConfinement, RoleMaster, false,
			[]State{Spawned, PolicyComputed, Active, Terminated},
		},
		{
			"visibility master", ModeVisibility, RoleMaster, false,
			[]State{Spawned, PolicyComputed, Active, Terminated},
		},
		{
			"confinement relay", ModeConfinement, RoleRelay, false,
			[]State{Spawned, PolicyComputed, Confined, IdentityDropped, SyscallRestricted, Active, Terminated},
		},
		{
			"hybrid relay", ModeHybrid, RoleRelay, false,
			[]State{Spawned, PolicyComputed, IdentityDropped, SyscallRestricted, Active, Terminated},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Plan(test.mode, test.role, test.unveilFirst); !slices.Equal(got, test.want) {
				t.Errorf("Plan() = %v, want %v", got, test.want)
			}
		})
	}
}

func TestTrackerFollowsPlan(t *testing.T) {
	tracker := NewTracker(ModeConfinement, RoleWorker, false)
	for _, state := range tracker.Plan()[1:] {
		if err := tracker.Advance(state); err != nil {
			t.Fatalf("Advance(%v): %v", state, err)
		}
	}
	if tracker.State() != Terminated {
		t.Errorf("State() = %v, want terminated", tracker.State())
	}
	if _, ok := tracker.Next(); ok {
		t.Error("Next() ok after Terminated")
	}
}

func TestTrackerRejectsOutOfOrder(t *testing.T) {
	tracker := NewTracker(ModeConfinement, RoleWorker, false)
	if err := tracker.Advance(PolicyComputed); err != nil {
		t.Fatal(err)
	}

	err := tracker.Advance(SyscallRestricted)
	var sequence *SequenceError
	if !errors.As(err, &sequence) {
		t.Fatalf("Advance(out of order) = %v, want *SequenceError", err)
	}
	if sequence.From != PolicyComputed || sequence.Attempted != SyscallRestricted || sequence.Expected != Confined {
		t.Errorf("SequenceError = %+v", sequence)
	}
	if tracker.State() != PolicyComputed {
		t.Errorf("state moved to %v after a rejected step", tracker.State())
	}
}

func TestTrackerNeverRevisits(t *testing.T) {
	tracker := NewTracker(ModeVisibility, RoleWorker, false)
	tracker.Advance(PolicyComputed)
	tracker.Advance(IdentityDropped)

	if err := tracker.Advance(PolicyComputed); err == nil {
		t.Error("re-entering PolicyComputed accepted")
	}
	if err := tracker.Advance(IdentityDropped); err == nil {
		t.Error("re-entering IdentityDropped accepted")
	}
}

func TestTrackerTerminateFromAnywhere(t *testing.T) {
	for _, steps := range []int{0, 1, 3} {
		tracker := NewTracker(ModeConfinement, RoleWorker, false)
		for _, state := range tracker.Plan()[1 : 1+steps] {
			tracker.Advance(state)
		}
		if err := tracker.Advance(Terminated); err != nil {
			t.Errorf("Terminate after %d steps: %v", steps, err)
		}
		if err := tracker.Advance(Terminated); err == nil {
			t.Errorf("second Terminate after %d steps accepted", steps)
		}
		if err := tracker.Advance(Active); err == nil {
			t.Error("Advance after Terminated accepted")
		}
	}
}

func TestStateString(t *testing.T) {
	if got := VisibilityRestricted.String(); got != "visibility-restricted" {
		t.Errorf("String() = %q", got)
	}
	if got := State(42).String(); got != "state(42)" {
		t.Errorf("String() = %q", got)
	}
}
