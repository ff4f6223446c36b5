// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"errors"
	"fmt"
	"strings"
)

// Vocabulary is the set of promise tokens pledge(2) accepts.
var Vocabulary = map[string]bool{
	"stdio":     true,
	"rpath":     true,
	"wpath":     true,
	"cpath":     true,
	"dpath":     true,
	"tmppath":   true,
	"inet":      true,
	"mcast":     true,
	"fattr":     true,
	"chown":     true,
	"flock":     true,
	"unix":      true,
	"dns":       true,
	"getpw":     true,
	"sendfd":    true,
	"recvfd":    true,
	"tape":      true,
	"tty":       true,
	"proc":      true,
	"exec":      true,
	"prot_exec": true,
	"settime":   true,
	"ps":        true,
	"vminfo":    true,
	"id":        true,
	"pf":        true,
	"route":     true,
	"wroute":    true,
	"audio":     true,
	"video":     true,
	"bpf":       true,
	"unveil":    true,
	"error":     true,
}

// Promises is an ordered set of promise tokens. Order is the order of
// first appearance and only matters for display.
type Promises []string

// ParsePromises splits a space-separated promise string. Duplicates
// are dropped. Tokens are not checked; see [Promises.Validate].
func ParsePromises(s string) Promises {
	var promises Promises
	for _, token := range strings.Fields(s) {
		if !promises.Has(token) {
			promises = append(promises, token)
		}
	}
	return promises
}

// String joins the tokens with single spaces, the form pledge(2) takes.
func (p Promises) String() string {
	return strings.Join(p, " ")
}

// Has reports whether token is in the set.
func (p Promises) Has(token string) bool {
	for _, existing := range p {
		if existing == token {
			return true
		}
	}
	return false
}

// Union returns p followed by the tokens of other not already in p.
func (p Promises) Union(other Promises) Promises {
	result := make(Promises, 0, len(p)+len(other))
	result = append(result, p...)
	for _, token := range other {
		if !result.Has(token) {
			result = append(result, token)
		}
	}
	return result
}

// Without returns p minus the named tokens.
func (p Promises) Without(tokens ...string) Promises {
	var result Promises
	for _, token := range p {
		drop := false
		for _, removed := range tokens {
			if token == removed {
				drop = true
				break
			}
		}
		if !drop {
			result = append(result, token)
		}
	}
	return result
}

// Covers reports whether every token of other is in p. A restriction
// from p to other is a narrowing exactly when p covers other.
func (p Promises) Covers(other Promises) bool {
	for _, token := range other {
		if !p.Has(token) {
			return false
		}
	}
	return true
}

// Validate reports every token outside [Vocabulary].
func (p Promises) Validate() error {
	var errs []error
	for _, token := range p {
		if !Vocabulary[token] {
			errs = append(errs, fmt.Errorf("unknown promise %q", token))
		}
	}
	return errors.Join(errs...)
}
