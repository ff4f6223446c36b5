// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed modules.yaml
var defaultModulesYAML []byte

// Module is one lazily-loading runtime facility.
type Module struct {
	// Name is the key in the table, filled in by ParseModuleTable.
	Name string `yaml:"-"`

	// Description is for operators reading lockdown-ctl output.
	Description string `yaml:"description"`

	// Paths are the files and directories the facility reads on first
	// use. Each becomes a read-only, optional PathRule.
	Paths []string `yaml:"paths"`

	// ForceLoad names the entry points to call before restriction, as
	// identifiers in the lockdown package's force-load registry.
	ForceLoad []string `yaml:"force_load"`
}

// ModuleTable maps module names to their definitions.
type ModuleTable map[string]Module

// ParseModuleTable parses a module table in the modules.yaml format.
func ParseModuleTable(data []byte) (ModuleTable, error) {
	var table ModuleTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing module table: %w", err)
	}
	for name, module := range table {
		if len(module.Paths) == 0 {
			return nil, fmt.Errorf("module %s: no paths", name)
		}
		module.Name = name
		table[name] = module
	}
	return table, nil
}

var defaultModules = sync.OnceValue(func() ModuleTable {
	table, err := ParseModuleTable(defaultModulesYAML)
	if err != nil {
		panic("policy: embedded modules.yaml: " + err.Error())
	}
	return table
})

// DefaultModules returns the built-in module table. Callers must not
// modify it.
func DefaultModules() ModuleTable {
	return defaultModules()
}

// Present returns the modules named in names that the table knows,
// sorted by name. Unknown names are skipped; see [ModuleTable.Unknown].
func (t ModuleTable) Present(names []string) []Module {
	var modules []Module
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		module, ok := t[name]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		modules = append(modules, module)
	}
	sort.Slice(modules, func(i, j int) bool {
		return modules[i].Name < modules[j].Name
	})
	return modules
}

// Unknown returns the names the table does not define, in input order.
func (t ModuleTable) Unknown(names []string) []string {
	var unknown []string
	for _, name := range names {
		if _, ok := t[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// Names returns the table's module names, sorted.
func (t ModuleTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
