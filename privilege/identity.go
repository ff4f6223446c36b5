// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package privilege

import (
	"fmt"
	"os/user"
	"strconv"
)

// Identities resolves names against the system identity database.
type Identities interface {
	// LookupUser returns the uid of the named user.
	LookupUser(name string) (uid int, err error)

	// LookupGroup returns the gid of the named group.
	LookupGroup(name string) (gid int, err error)

	// GroupIDs returns the gids the named user belongs to.
	GroupIDs(name string) ([]int, error)
}

// SystemIdentities reads /etc/passwd and /etc/group (or the platform
// equivalent) through os/user.
type SystemIdentities struct{}

var _ Identities = SystemIdentities{}

func (SystemIdentities) LookupUser(name string) (int, error) {
	account, err := user.Lookup(name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(account.Uid)
}

func (SystemIdentities) LookupGroup(name string) (int, error) {
	group, err := user.LookupGroup(name)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(group.Gid)
}

func (SystemIdentities) GroupIDs(name string) ([]int, error) {
	account, err := user.Lookup(name)
	if err != nil {
		return nil, err
	}
	ids, err := account.GroupIds()
	if err != nil {
		return nil, fmt.Errorf("listing groups of %s: %w", name, err)
	}
	gids := make([]int, 0, len(ids))
	for _, id := range ids {
		gid, err := strconv.Atoi(id)
		if err != nil {
			return nil, fmt.Errorf("group id %q of %s: %w", id, name, err)
		}
		gids = append(gids, gid)
	}
	return gids, nil
}
