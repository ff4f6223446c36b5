// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package restrict

import (
	"errors"
	"log/slog"

	"github.com/bureau-foundation/lockdown/lib/config"
	"github.com/bureau-foundation/lockdown/policy"
)

// fallback wraps a Restrictor and downgrades ErrUnsupported according
// to the configured fallback.unsupported value.
type fallback struct {
	inner  Restrictor
	mode   string
	logger *slog.Logger
}

// WithFallback wraps inner so that unsupported operations are skipped
// silently ("skip"), logged and skipped ("warn"), or returned ("error").
// Any other failure is always returned.
func WithFallback(inner Restrictor, mode string, logger *slog.Logger) Restrictor {
	if logger == nil {
		logger = slog.Default()
	}
	return &fallback{inner: inner, mode: mode, logger: logger}
}

func (f *fallback) Name() string { return f.inner.Name() }

func (f *fallback) Unveil(rules []policy.PathRule) error {
	return f.handle("unveil", f.inner.Unveil(rules))
}

func (f *fallback) Pledge(promises, execPromises policy.Promises) error {
	return f.handle("pledge", f.inner.Pledge(promises, execPromises))
}

func (f *fallback) handle(op string, err error) error {
	if err == nil || !errors.Is(err, ErrUnsupported) {
		return err
	}
	switch f.mode {
	case config.FallbackSkip:
		return nil
	case config.FallbackWarn:
		f.logger.Warn("restriction unavailable, continuing without it",
			"op", op,
			"mechanism", f.inner.Name(),
			"error", err,
		)
		return nil
	default:
		return err
	}
}
