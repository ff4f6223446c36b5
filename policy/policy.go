// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"path/filepath"
	"sort"
)

// PathRule is one entry of a visibility allow-list.
type PathRule struct {
	// Path is absolute and cleaned.
	Path string

	// Access is what the process may do at Path.
	Access Access

	// Optional rules are skipped when Path does not exist. Module
	// paths are optional because installations differ between hosts.
	Optional bool

	// Source records where the rule came from: "declared", "dev", or
	// "module:<name>".
	Source string
}

// Policy is the resolved restriction state for one process role.
type Policy struct {
	// Promises are kept after the syscall restriction is applied.
	Promises Promises

	// ExecPromises are what a process exec'd by this one starts with.
	// Empty means exec'd processes are not restricted by this policy.
	ExecPromises Promises

	// Paths is the visibility allow-list, sorted by path. Empty means
	// visibility is not restricted.
	Paths []PathRule

	// ConfinementRoot is the chroot directory, or empty.
	ConfinementRoot string
}

// Rule returns the rule for path, if any.
func (p Policy) Rule(path string) (PathRule, bool) {
	index := sort.Search(len(p.Paths), func(i int) bool {
		return p.Paths[i].Path >= path
	})
	if index < len(p.Paths) && p.Paths[index].Path == path {
		return p.Paths[index], true
	}
	return PathRule{}, false
}

// RestrictsVisibility reports whether applying p hides anything.
func (p Policy) RestrictsVisibility() bool {
	return len(p.Paths) > 0
}

// BuildContext carries the inputs to [Build] beyond the declarations.
type BuildContext struct {
	// DevMode merges DevPaths over the declared paths.
	DevMode bool

	// DevPaths are extra paths for development (dev_unveil).
	DevPaths map[string]Access

	// Modules names the runtime modules the application uses.
	Modules []string

	// Table defines the modules. Nil uses DefaultModules.
	Table ModuleTable

	// BaseDir resolves relative paths. Usually the application directory.
	BaseDir string

	// ExecPromises is the space-separated exec promise string, or empty.
	ExecPromises string

	// ConfinementRoot is copied to the policy unchanged.
	ConfinementRoot string
}

// Build computes a policy from declarations. It performs no I/O and
// cannot fail: unknown promise tokens pass through for the restriction
// step to reject, and unknown modules are skipped.
//
// Module paths are only added when declaredPaths or the dev paths are
// non-empty. A process that does not restrict visibility has nothing
// to allow-list.
func Build(declaredPromises string, declaredPaths map[string]Access, ctx BuildContext) Policy {
	policy := Policy{
		ConfinementRoot: ctx.ConfinementRoot,
	}

	promises := ParsePromises(declaredPromises)
	if len(promises) > 0 {
		policy.Promises = Promises{"stdio"}.Union(promises)
	}
	policy.ExecPromises = ParsePromises(ctx.ExecPromises)

	rules := make(map[string]PathRule)
	add := func(path string, access Access, optional bool, source string) {
		resolved := resolvePath(ctx.BaseDir, path)
		if existing, ok := rules[resolved]; ok && !existing.Optional {
			// Declared entries win over module entries for the same path.
			if optional {
				return
			}
		}
		rules[resolved] = PathRule{Path: resolved, Access: access, Optional: optional, Source: source}
	}

	for path, access := range declaredPaths {
		add(path, access, false, "declared")
	}
	if ctx.DevMode {
		for path, access := range ctx.DevPaths {
			add(path, access, false, "dev")
		}
	}

	if len(rules) > 0 {
		table := ctx.Table
		if table == nil {
			table = DefaultModules()
		}
		for _, module := range table.Present(ctx.Modules) {
			for _, path := range module.Paths {
				add(path, Read, true, "module:"+module.Name)
			}
		}
	}

	policy.Paths = make([]PathRule, 0, len(rules))
	for _, rule := range rules {
		policy.Paths = append(policy.Paths, rule)
	}
	sort.Slice(policy.Paths, func(i, j int) bool {
		return policy.Paths[i].Path < policy.Paths[j].Path
	})
	if len(policy.Paths) == 0 {
		policy.Paths = nil
	}

	return policy
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(baseDir, path)
}

// ForceLoads returns the entry points to call before restriction for
// the named modules, in module-name order without duplicates.
func ForceLoads(table ModuleTable, names []string) []string {
	if table == nil {
		table = DefaultModules()
	}
	var entries []string
	seen := make(map[string]bool)
	for _, module := range table.Present(names) {
		for _, entry := range module.ForceLoad {
			if !seen[entry] {
				seen[entry] = true
				entries = append(entries, entry)
			}
		}
	}
	return entries
}
