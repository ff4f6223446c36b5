// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lockdown

import (
	"fmt"
	"net"
	"path/filepath"

	"github.com/bureau-foundation/lockdown/crash"
	"github.com/bureau-foundation/lockdown/lib/config"
	"github.com/bureau-foundation/lockdown/policy"
)

// RelayPromises is what a relay keeps: enough to write to stderr and
// talk to the mail server.
const RelayPromises = "stdio inet"

// Profile is everything a [Session] needs to know about the process
// it locks down.
type Profile struct {
	Mode Mode
	Role Role

	// UnveilFirst restricts visibility before dropping identity.
	UnveilFirst bool

	// User and Group are the identity to drop to. Empty Group means
	// the user's name.
	User  string
	Group string

	Promises     string
	ExecPromises string

	// Paths is the visibility allow-list. Relative paths resolve
	// against BaseDir.
	Paths    map[string]policy.Access
	DevPaths map[string]policy.Access
	DevMode  bool
	BaseDir  string

	// Modules are the runtime modules to allow-list and force-load.
	Modules []string

	// ConfinementRoot is the chroot directory for plans that include
	// Confined.
	ConfinementRoot string
}

// WorkerProfile derives a worker's profile from the deployment config.
func WorkerProfile(cfg *config.Config) (Profile, error) {
	profile := Profile{
		Mode:     cfg.Mode(),
		Role:     RoleWorker,
		User:     cfg.User,
		Group:    cfg.Group.Primary,
		Promises: cfg.Pledge,
		DevMode:  cfg.DevMode(),
		BaseDir:  cfg.Paths.AppDir,
		Modules:  cfg.RuntimeModules,
	}

	switch profile.Mode {
	case ModeConfinement:
		profile.ConfinementRoot = cfg.Paths.AppDir
	default:
		paths, err := policy.ParsePaths(cfg.Unveil)
		if err != nil {
			return Profile{}, fmt.Errorf("unveil: %w", err)
		}
		devPaths, err := policy.ParsePaths(cfg.DevUnveil)
		if err != nil {
			return Profile{}, fmt.Errorf("dev_unveil: %w", err)
		}
		profile.Paths = paths
		profile.DevPaths = devPaths
		profile.UnveilFirst = cfg.UnveilBeforeDrop && profile.Mode == ModeVisibility
	}
	return profile, nil
}

// MasterProfile derives the master's profile. Only a hybrid master
// restricts itself.
func MasterProfile(cfg *config.Config) Profile {
	profile := Profile{
		Mode:  cfg.Mode(),
		Role:  RoleMaster,
		User:  cfg.User,
		Group: cfg.Group.Primary,
	}
	if profile.Mode == ModeHybrid {
		profile.Promises = cfg.MasterPledge
		profile.ExecPromises = cfg.MasterExecPledge
	}
	return profile
}

// RelayRequest is the request template the master's crash pipeline
// fills in for each notification.
func RelayRequest(cfg *config.Config) crash.Request {
	request := crash.Request{
		App:         cfg.App,
		Mode:        string(cfg.Mode()),
		User:        cfg.User,
		Group:       cfg.Group.Primary,
		Promises:    relayPromises(cfg.SMTP.Address),
		Fallback:    cfg.Fallback.Unsupported,
		SMTPAddress: cfg.SMTP.Address,
	}
	if cfg.Mode() != ModeHybrid {
		request.ConfineRoot = cfg.Paths.AppDir
	}
	return request
}

// relayPromises adds "dns" when the mail server is named by host name
// rather than address.
func relayPromises(address string) string {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	if net.ParseIP(host) == nil {
		return RelayPromises + " dns"
	}
	return RelayPromises
}

// RelayProfile derives a relay's profile from the request it was
// started with.
func RelayProfile(request crash.Request) Profile {
	mode := Mode(request.Mode)
	if mode == "" {
		mode = ModeConfinement
	}
	profile := Profile{
		Mode:     mode,
		Role:     RoleRelay,
		User:     request.User,
		Group:    request.Group,
		Promises: request.Promises,
	}
	if mode != ModeHybrid {
		profile.ConfinementRoot = request.ConfineRoot
	}
	return profile
}

// buildPolicy computes the profile's policy.
func (p Profile) buildPolicy(table policy.ModuleTable) policy.Policy {
	root := p.ConfinementRoot
	if root != "" {
		root = filepath.Clean(root)
	}
	return policy.Build(p.Promises, p.Paths, policy.BuildContext{
		DevMode:         p.DevMode,
		DevPaths:        p.DevPaths,
		Modules:         p.Modules,
		Table:           table,
		BaseDir:         p.BaseDir,
		ExecPromises:    p.ExecPromises,
		ConfinementRoot: root,
	})
}
