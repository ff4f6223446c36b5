// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package restrict

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/lockdown/policy"
)

type openbsdRestrictor struct {
	logger *slog.Logger
}

// Native returns the platform's restrictor: pledge(2) and unveil(2).
func Native(logger *slog.Logger) Restrictor {
	if logger == nil {
		logger = slog.Default()
	}
	return &openbsdRestrictor{logger: logger}
}

func (r *openbsdRestrictor) Name() string { return "pledge+unveil" }

func (r *openbsdRestrictor) Unveil(rules []policy.PathRule) error {
	if err := CheckRules(rules); err != nil {
		return err
	}
	for _, rule := range rules {
		if rule.Optional {
			if _, err := os.Stat(rule.Path); errors.Is(err, fs.ErrNotExist) {
				r.logger.Debug("skipping missing optional path", "path", rule.Path, "source", rule.Source)
				continue
			}
		}
		if err := unix.Unveil(rule.Path, rule.Access.String()); err != nil {
			return &Error{Op: "unveil", Err: err}
		}
	}
	if err := unix.UnveilBlock(); err != nil {
		return &Error{Op: "unveil", Err: err}
	}
	return nil
}

func (r *openbsdRestrictor) Pledge(promises, execPromises policy.Promises) error {
	if err := CheckPromises(promises, execPromises); err != nil {
		return err
	}
	var err error
	if len(execPromises) == 0 {
		err = unix.PledgePromises(promises.String())
	} else {
		err = unix.Pledge(promises.String(), execPromises.String())
	}
	if err != nil {
		return &Error{Op: "pledge", Err: err}
	}
	return nil
}
