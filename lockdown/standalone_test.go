// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lockdown

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/bureau-foundation/lockdown/policy"
)

// quietLoader replaces the harness loader with one that has only the
// test entry point, so nothing touches the real system.
func quietLoader(h *harness) {
	loader := &ForceLoader{entries: make(map[string]func() error), logger: discardLogger()}
	loader.Register("test.mime", func() error {
		h.log.Record("forceload test.mime")
		return nil
	})
	h.deps.ForceLoader = loader
}

func TestPledgeAndUnveil(t *testing.T) {
	t.Setenv(coverageEnv, "")
	h := newHarness(1001)
	workingDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	err = PledgeAndUnveil(h.deps, "rpath", map[string]string{"testdata": "r"}, []string{"mime"})
	if err != nil {
		t.Fatalf("PledgeAndUnveil: %v", err)
	}
	rules := []string{"/etc/mime.types:r", filepath.Join(workingDir, "testdata") + ":r"}
	sort.Strings(rules)
	requireLog(t, h, []string{
		"forceload test.mime",
		"unveil " + strings.Join(rules, ","),
		"pledge stdio rpath",
	})
}

func TestPledgeAndUnveilSkipsPledgeUnderCoverage(t *testing.T) {
	t.Setenv(coverageEnv, t.TempDir())
	h := newHarness(1001)

	if err := PledgeAndUnveil(h.deps, "rpath", map[string]string{"/srv": "r"}, nil); err != nil {
		t.Fatalf("PledgeAndUnveil: %v", err)
	}
	requireLog(t, h, []string{"unveil /srv:r"})
}

func TestPledgeAndUnveilRejectsBadAccess(t *testing.T) {
	t.Setenv(coverageEnv, "")
	h := newHarness(1001)

	err := PledgeAndUnveil(h.deps, "rpath", map[string]string{"/srv": "rq"}, nil)
	if !IsFatal(err) {
		t.Fatalf("PledgeAndUnveil(bad access) = %v, want a restriction error", err)
	}
	requireLog(t, h, nil)
}

func TestChrootPrivileged(t *testing.T) {
	t.Setenv(coverageEnv, "")
	h := newHarness(0)
	quietLoader(h)

	if err := Chroot(h.deps, "_blog", "rpath", "", "/var/www/blog"); err != nil {
		t.Fatalf("Chroot: %v", err)
	}
	requireLog(t, h, []string{
		"forceload test.mime",
		"lookup user _blog",
		"lookup group _blog",
		"setgroups 900,1001",
		"setresgid 1001",
		"chroot /var/www/blog",
		"chdir /",
		"setresuid 1001",
		"pledge stdio rpath",
	})
}

func TestChrootUnprivilegedOnlyPledges(t *testing.T) {
	t.Setenv(coverageEnv, "")
	h := newHarness(1001)
	quietLoader(h)

	if err := Chroot(h.deps, "_blog", "rpath", "", "/var/www/blog"); err != nil {
		t.Fatalf("Chroot: %v", err)
	}
	requireLog(t, h, []string{"pledge stdio rpath"})
}

func TestChrootRefusesCoverageWhenPrivileged(t *testing.T) {
	t.Setenv(coverageEnv, t.TempDir())
	h := newHarness(0)
	quietLoader(h)

	if err := Chroot(h.deps, "_blog", "rpath", "", "/var/www/blog"); !errors.Is(err, ErrCoverageInChroot) {
		t.Fatalf("Chroot under coverage = %v, want ErrCoverageInChroot", err)
	}
	requireLog(t, h, nil)
}

func TestChrootUnprivilegedCoverageSkipsPledge(t *testing.T) {
	t.Setenv(coverageEnv, t.TempDir())
	h := newHarness(1001)
	quietLoader(h)

	if err := Chroot(h.deps, "_blog", "rpath", "", "/var/www/blog"); err != nil {
		t.Fatalf("Chroot: %v", err)
	}
	requireLog(t, h, nil)
}

func TestForceLoaderSkipsUnknownAndFailing(t *testing.T) {
	var ran []string
	loader := &ForceLoader{entries: make(map[string]func() error), logger: discardLogger()}
	loader.Register("b", func() error {
		ran = append(ran, "b")
		return errors.New("missing file")
	})
	loader.Register("a", func() error {
		ran = append(ran, "a")
		return nil
	})

	loader.Load([]string{"b", "unknown", "a"})

	if len(ran) != 2 || ran[0] != "b" || ran[1] != "a" {
		t.Errorf("ran %v, want [b a]", ran)
	}
	if ids := loader.IDs(); len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("IDs() = %v, want [a b]", ids)
	}
}

func TestDefaultForceLoaderCoversDefaultModules(t *testing.T) {
	loader := NewForceLoader(discardLogger())
	registered := make(map[string]bool)
	for _, id := range loader.IDs() {
		registered[id] = true
	}
	for _, module := range policy.DefaultModules() {
		for _, id := range module.ForceLoad {
			if !registered[id] {
				t.Errorf("default module entry point %q has no loader", id)
			}
		}
	}
}
