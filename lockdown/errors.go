// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lockdown

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/lockdown/lib/config"
	"github.com/bureau-foundation/lockdown/policy"
	"github.com/bureau-foundation/lockdown/privilege"
	"github.com/bureau-foundation/lockdown/restrict"
)

// ErrNoConfinementRoot means a plan that chroots has no directory to
// chroot to.
var ErrNoConfinementRoot = errors.New("no confinement root configured")

// IsFatal reports whether err leaves the process in a state it must
// not continue from: an unresolvable identity, a failed privilege
// transition, a rejected restriction, or a step out of sequence.
// Diagnostic and notification failures are not fatal.
func IsFatal(err error) bool {
	var (
		identity    *privilege.UnknownIdentityError
		rights      *privilege.InsufficientRightsError
		restriction *restrict.Error
		sequence    *SequenceError
	)
	return errors.As(err, &identity) ||
		errors.As(err, &rights) ||
		errors.As(err, &restriction) ||
		errors.As(err, &sequence) ||
		errors.Is(err, ErrNoConfinementRoot)
}

// CheckConfig validates a deployment config beyond [config.Config.Validate]:
// every promise string against the vocabulary, and in hybrid mode that
// the master's exec promises leave workers and relays room to finish
// locking down. Runtime modules missing from table are returned as
// warnings; a nil table is the default one.
func CheckConfig(cfg *config.Config, table policy.ModuleTable) (warnings []string, err error) {
	if table == nil {
		table = policy.DefaultModules()
	}
	var errs []error
	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}

	promiseFields := []struct {
		name  string
		value string
	}{
		{"pledge", cfg.Pledge},
		{"master_pledge", cfg.MasterPledge},
		{"master_exec_pledge", cfg.MasterExecPledge},
	}
	for _, field := range promiseFields {
		if err := policy.ParsePromises(field.value).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field.name, err))
		}
	}

	if cfg.Mode() == ModeHybrid {
		exec := policy.ParsePromises(cfg.MasterExecPledge)
		if len(exec) == 0 {
			errs = append(errs, errors.New("master_exec_pledge is required in hybrid mode"))
		} else {
			// A worker unveils and drops identity under the inherited
			// promises before narrowing them.
			for _, required := range []string{"unveil", "id"} {
				if !exec.Has(required) {
					errs = append(errs, fmt.Errorf("master_exec_pledge must include %q in hybrid mode", required))
				}
			}
			worker := policy.Promises{"stdio"}.Union(policy.ParsePromises(cfg.Pledge))
			if !exec.Covers(worker) {
				errs = append(errs, fmt.Errorf("master_exec_pledge %q does not cover pledge %q", exec.String(), worker.String()))
			}
			relay := policy.ParsePromises(relayPromises(cfg.SMTP.Address))
			if cfg.Email != "" && !exec.Covers(relay) {
				errs = append(errs, fmt.Errorf("master_exec_pledge %q does not cover the crash relay's %q", exec.String(), relay.String()))
			}
		}
	}

	for _, name := range table.Unknown(cfg.RuntimeModules) {
		warnings = append(warnings, fmt.Sprintf("runtime module %q is not defined, its files will not be allow-listed", name))
	}

	return warnings, errors.Join(errs...)
}
