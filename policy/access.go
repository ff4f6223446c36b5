// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"fmt"
	"strings"
)

// Access is a set of unveil(2) permissions.
type Access uint8

const (
	// Read allows reading files and listing directories.
	Read Access = 1 << iota
	// Write allows writing to existing files.
	Write
	// Exec allows executing files.
	Exec
	// Create allows creating and removing files.
	Create
)

// NoAccess hides a path entirely.
const NoAccess Access = 0

var accessLetters = []struct {
	bit    Access
	letter byte
}{
	{Read, 'r'},
	{Write, 'w'},
	{Exec, 'x'},
	{Create, 'c'},
}

// ParseAccess parses unveil(2) permission letters. The empty string is
// NoAccess.
func ParseAccess(s string) (Access, error) {
	var access Access
	for i := 0; i < len(s); i++ {
		matched := false
		for _, entry := range accessLetters {
			if s[i] == entry.letter {
				access |= entry.bit
				matched = true
				break
			}
		}
		if !matched {
			return 0, fmt.Errorf("invalid access letter %q in %q", s[i], s)
		}
	}
	return access, nil
}

// MustParseAccess is ParseAccess for constant strings.
func MustParseAccess(s string) Access {
	access, err := ParseAccess(s)
	if err != nil {
		panic(err)
	}
	return access
}

// ParsePaths parses a declared path map, as found in configuration.
func ParsePaths(declared map[string]string) (map[string]Access, error) {
	if len(declared) == 0 {
		return nil, nil
	}
	paths := make(map[string]Access, len(declared))
	for path, letters := range declared {
		access, err := ParseAccess(letters)
		if err != nil {
			return nil, fmt.Errorf("path %s: %w", path, err)
		}
		paths[path] = access
	}
	return paths, nil
}

// String returns the letters in canonical rwxc order.
func (a Access) String() string {
	var builder strings.Builder
	for _, entry := range accessLetters {
		if a&entry.bit != 0 {
			builder.WriteByte(entry.letter)
		}
	}
	return builder.String()
}

// Has reports whether every bit of other is in a.
func (a Access) Has(other Access) bool {
	return a&other == other
}

// Narrows reports whether moving from previous to a gives up access
// without gaining any.
func (a Access) Narrows(previous Access) bool {
	return previous.Has(a)
}
