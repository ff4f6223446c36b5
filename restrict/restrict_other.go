// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux && !openbsd

package restrict

import (
	"log/slog"

	"github.com/bureau-foundation/lockdown/policy"
)

type unsupportedRestrictor struct{}

// Native returns the platform's restrictor. This platform has none;
// every operation fails with ErrUnsupported after validation.
func Native(*slog.Logger) Restrictor { return unsupportedRestrictor{} }

func (unsupportedRestrictor) Name() string { return "none" }

func (unsupportedRestrictor) Unveil(rules []policy.PathRule) error {
	if err := CheckRules(rules); err != nil {
		return err
	}
	return unsupported("unveil")
}

func (unsupportedRestrictor) Pledge(promises, execPromises policy.Promises) error {
	if err := CheckPromises(promises, execPromises); err != nil {
		return err
	}
	return unsupported("pledge")
}
