// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lockdown

import (
	"crypto/x509"
	"log/slog"
	"mime"
	"net"
	"os/user"
	"sort"
	"time"
)

// ForceLoader runs the entry points of runtime modules so that the
// files they read lazily are read before restriction hides them. Each
// standard-library facility here caches what it reads for the life of
// the process.
type ForceLoader struct {
	entries map[string]func() error
	logger  *slog.Logger
}

// NewForceLoader returns a loader with the entry points named in the
// default module table.
func NewForceLoader(logger *slog.Logger) *ForceLoader {
	if logger == nil {
		logger = slog.Default()
	}
	loader := &ForceLoader{entries: make(map[string]func() error), logger: logger}
	loader.Register("mime.TypeByExtension", func() error {
		mime.TypeByExtension(".html")
		return nil
	})
	loader.Register("time.Local", func() error {
		// The first use of time.Local reads TZ or /etc/localtime.
		_ = time.Now().In(time.Local).Location().String()
		return nil
	})
	loader.Register("crypto/x509.SystemCertPool", func() error {
		_, err := x509.SystemCertPool()
		return err
	})
	loader.Register("net.LookupHost", func() error {
		// Reads resolv.conf, nsswitch.conf and hosts; the answer does
		// not matter.
		_, _ = net.LookupHost("localhost")
		return nil
	})
	loader.Register("os/user.Current", func() error {
		_, err := user.Current()
		return err
	})
	return loader
}

// Register adds or replaces an entry point.
func (f *ForceLoader) Register(id string, fn func() error) {
	f.entries[id] = fn
}

// IDs returns the registered entry point identifiers, sorted.
func (f *ForceLoader) IDs() []string {
	ids := make([]string, 0, len(f.entries))
	for id := range f.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Load runs the named entry points in order. Unknown identifiers are
// logged and skipped, and so are failures: a facility that cannot load
// now fails later, at first real use, where the application handles it.
func (f *ForceLoader) Load(ids []string) {
	for _, id := range ids {
		fn, ok := f.entries[id]
		if !ok {
			f.logger.Warn("unknown force-load entry point, skipping", "id", id)
			continue
		}
		if err := fn(); err != nil {
			f.logger.Warn("force-load failed", "id", id, "error", err)
			continue
		}
		f.logger.Debug("force-loaded", "id", id)
	}
}
