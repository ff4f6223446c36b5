// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"reflect"
	"testing"
)

func TestDefaultModules(t *testing.T) {
	table := DefaultModules()

	want := []string{"mime", "resolver", "tls-roots", "userdb", "zoneinfo"}
	if got := table.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for _, name := range want {
		module := table[name]
		if module.Name != name {
			t.Errorf("module %s has Name %q", name, module.Name)
		}
		if len(module.ForceLoad) == 0 {
			t.Errorf("module %s has no force-load entry points", name)
		}
		for _, path := range module.Paths {
			if path == "" || path[0] != '/' {
				t.Errorf("module %s: path %q is not absolute", name, path)
			}
		}
	}
}

func TestParseModuleTableRejectsEmptyPaths(t *testing.T) {
	if _, err := ParseModuleTable([]byte("broken:\n  force_load: [x]\n")); err == nil {
		t.Fatal("expected error for a module without paths")
	}
	if _, err := ParseModuleTable([]byte("- not a map\n")); err == nil {
		t.Fatal("expected error for a non-mapping document")
	}
}

func TestModuleTableUnknown(t *testing.T) {
	got := DefaultModules().Unknown([]string{"mime", "rack", "mail"})
	if !reflect.DeepEqual(got, []string{"rack", "mail"}) {
		t.Errorf("Unknown = %v", got)
	}
}
