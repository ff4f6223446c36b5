// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lockdown

import (
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/lockdown/diagnostic"
	"github.com/bureau-foundation/lockdown/policy"
	"github.com/bureau-foundation/lockdown/privilege"
	"github.com/bureau-foundation/lockdown/restrict"
)

// Deps are the mechanisms a Session drives.
type Deps struct {
	Restrictor restrict.Restrictor
	Dropper    *privilege.Dropper

	// Modules defines runtime modules. Nil uses policy.DefaultModules.
	Modules policy.ModuleTable

	// ForceLoader runs module entry points. Nil uses NewForceLoader.
	ForceLoader *ForceLoader

	Logger *slog.Logger
}

// Session locks down one process according to its profile.
type Session struct {
	profile Profile
	deps    Deps
	tracker *Tracker
	logger  *slog.Logger

	policy   policy.Policy
	target   privilege.Target
	resolved bool
	channel  *diagnostic.Channel
}

// NewSession creates a session in Spawned. Nil dependencies get the
// real system's.
func NewSession(profile Profile, deps Deps) *Session {
	deps = deps.withDefaults()
	return &Session{
		profile: profile,
		deps:    deps,
		tracker: NewTracker(profile.Mode, profile.Role, profile.UnveilFirst),
		logger:  deps.Logger.With("role", string(profile.Role), "mode", string(profile.Mode)),
	}
}

// State returns the current state.
func (s *Session) State() State { return s.tracker.State() }

// Plan returns the session's plan.
func (s *Session) Plan() []State { return s.tracker.Plan() }

// Policy returns the computed policy. It is the zero Policy before
// ComputePolicy.
func (s *Session) Policy() policy.Policy { return s.policy }

// Channel returns the diagnostic channel, or nil if none is open.
func (s *Session) Channel() *diagnostic.Channel { return s.channel }

// OpenDiagnostics opens this process's diagnostic file. It must run
// in Spawned, while the process still has the master's identity and
// full view of the filesystem. A failure is returned for logging; the
// process carries on without a channel.
func (s *Session) OpenDiagnostics(store *diagnostic.Store, pid int) error {
	if s.State() != Spawned {
		next, _ := s.tracker.Next()
		return &SequenceError{
			Mode:     s.profile.Mode,
			Role:     s.profile.Role,
			Step:     "open-diagnostics",
			From:     s.State(),
			Expected: next,
		}
	}
	channel, err := store.Open(pid)
	if err != nil {
		return err
	}
	s.channel = channel
	s.logger.Debug("diagnostic channel open", "path", channel.Path())
	return nil
}

// ComputePolicy builds the policy, resolves the target identity if
// the process is privileged and will drop it, and force-loads the
// profile's runtime modules.
func (s *Session) ComputePolicy() error {
	if err := s.tracker.Expect(PolicyComputed); err != nil {
		return err
	}

	s.policy = s.profile.buildPolicy(s.deps.Modules)

	if s.tracker.Includes(IdentityDropped) && s.deps.Dropper.Privileged() {
		target, err := s.deps.Dropper.Resolve(s.profile.User, s.profile.Group)
		if err != nil {
			return err
		}
		s.target = target
		s.resolved = true
	}

	if len(s.profile.Modules) > 0 {
		s.deps.ForceLoader.Load(policy.ForceLoads(s.deps.Modules, s.profile.Modules))
	}

	s.logger.Info("policy computed",
		"promises", s.policy.Promises.String(),
		"exec_promises", s.policy.ExecPromises.String(),
		"paths", len(s.policy.Paths),
		"root", s.policy.ConfinementRoot,
	)
	return s.tracker.Advance(PolicyComputed)
}

// Confine drops the group and chroots to the confinement root. The
// user is dropped later, by DropIdentity: chroot needs the superuser.
func (s *Session) Confine() error {
	if err := s.tracker.Expect(Confined); err != nil {
		return err
	}
	root := s.policy.ConfinementRoot
	if root == "" {
		return ErrNoConfinementRoot
	}

	if s.resolved {
		if err := s.deps.Dropper.DropGroup(s.target); err != nil {
			return err
		}
	}
	if err := s.deps.Dropper.Confine(root); err != nil {
		return err
	}
	return s.tracker.Advance(Confined)
}

// RestrictVisibility applies the path allow-list. A policy without
// paths leaves visibility unrestricted.
func (s *Session) RestrictVisibility() error {
	if err := s.tracker.Expect(VisibilityRestricted); err != nil {
		return err
	}
	if s.policy.RestrictsVisibility() {
		if err := s.deps.Restrictor.Unveil(s.policy.Paths); err != nil {
			return err
		}
		s.logger.Info("visibility restricted", "paths", len(s.policy.Paths), "mechanism", s.deps.Restrictor.Name())
	} else {
		s.logger.Info("no paths declared, visibility unrestricted")
	}
	return s.tracker.Advance(VisibilityRestricted)
}

// DropIdentity drops group (if not already dropped) and user.
func (s *Session) DropIdentity() error {
	if err := s.tracker.Expect(IdentityDropped); err != nil {
		return err
	}
	if s.resolved {
		if err := s.deps.Dropper.DropGroup(s.target); err != nil {
			return err
		}
		if err := s.deps.Dropper.DropUser(s.target); err != nil {
			return err
		}
	} else {
		s.logger.Info("not privileged, keeping identity", "user", s.profile.User)
	}
	return s.tracker.Advance(IdentityDropped)
}

// RestrictSyscalls applies the promises. A policy without promises
// leaves syscalls unrestricted.
func (s *Session) RestrictSyscalls() error {
	if err := s.tracker.Expect(SyscallRestricted); err != nil {
		return err
	}
	if len(s.policy.Promises) > 0 || len(s.policy.ExecPromises) > 0 {
		if err := s.deps.Restrictor.Pledge(s.policy.Promises, s.policy.ExecPromises); err != nil {
			return err
		}
		s.logger.Info("syscalls restricted",
			"promises", s.policy.Promises.String(),
			"exec_promises", s.policy.ExecPromises.String(),
			"mechanism", s.deps.Restrictor.Name(),
		)
	} else {
		s.logger.Info("no promises declared, syscalls unrestricted")
	}
	return s.tracker.Advance(SyscallRestricted)
}

// Activate marks the process ready for work.
func (s *Session) Activate() error {
	if err := s.tracker.Advance(Active); err != nil {
		return err
	}
	s.logger.Info("lockdown active")
	return nil
}

// Terminate ends the session and closes the diagnostic channel. The
// record stays on disk for the master.
func (s *Session) Terminate() {
	if s.State() == Terminated {
		return
	}
	_ = s.tracker.Advance(Terminated)
	if err := s.channel.Close(); err != nil {
		s.logger.Warn("closing diagnostic channel failed", "error", err)
	}
}

// Run takes every remaining step up to Active. The first error stops
// the sequence; the process must not continue.
func (s *Session) Run() error {
	for {
		next, ok := s.tracker.Next()
		if !ok || next == Terminated {
			return nil
		}
		var err error
		switch next {
		case PolicyComputed:
			err = s.ComputePolicy()
		case Confined:
			err = s.Confine()
		case VisibilityRestricted:
			err = s.RestrictVisibility()
		case IdentityDropped:
			err = s.DropIdentity()
		case SyscallRestricted:
			err = s.RestrictSyscalls()
		case Active:
			return s.Activate()
		}
		if err != nil {
			return fmt.Errorf("%s: %w", next, err)
		}
	}
}
