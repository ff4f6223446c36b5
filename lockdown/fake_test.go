// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lockdown

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bureau-foundation/lockdown/policy"
	"github.com/bureau-foundation/lockdown/privilege"
	"github.com/bureau-foundation/lockdown/restrict/restricttest"
)

// loggedSyscalls is a privilege.Syscalls that writes every identity
// transition to the same log as the restriction recorder, so tests see
// one interleaved sequence.
type loggedSyscalls struct {
	log  *restricttest.Log
	euid int
	egid int
	fail map[string]error
}

func (s *loggedSyscalls) Geteuid() int { return s.euid }
func (s *loggedSyscalls) Getegid() int { return s.egid }

func (s *loggedSyscalls) call(op, arg string) error {
	s.log.Record("%s %s", op, arg)
	if err := s.fail[op]; err != nil {
		return err
	}
	if s.euid != 0 {
		return errors.New("operation not permitted")
	}
	return nil
}

func (s *loggedSyscalls) Setgroups(gids []int) error {
	ids := make([]string, len(gids))
	for i, gid := range gids {
		ids[i] = strconv.Itoa(gid)
	}
	return s.call("setgroups", strings.Join(ids, ","))
}

func (s *loggedSyscalls) Setresgid(gid int) error {
	if err := s.call("setresgid", strconv.Itoa(gid)); err != nil {
		return err
	}
	s.egid = gid
	return nil
}

func (s *loggedSyscalls) Setresuid(uid int) error {
	if err := s.call("setresuid", strconv.Itoa(uid)); err != nil {
		return err
	}
	s.euid = uid
	return nil
}

func (s *loggedSyscalls) Chroot(dir string) error { return s.call("chroot", dir) }
func (s *loggedSyscalls) Chdir(dir string) error  { return s.call("chdir", dir) }

// loggedIdentities resolves from a fixed table and logs each lookup.
type loggedIdentities struct {
	log *restricttest.Log
}

var (
	testUsers  = map[string]int{"_blog": 1001, "root": 0}
	testGroups = map[string]int{"_blog": 1001, "_lockdown": 900}
)

func (i loggedIdentities) LookupUser(name string) (int, error) {
	i.log.Record("lookup user %s", name)
	uid, ok := testUsers[name]
	if !ok {
		return 0, fmt.Errorf("user: unknown user %s", name)
	}
	return uid, nil
}

func (i loggedIdentities) LookupGroup(name string) (int, error) {
	i.log.Record("lookup group %s", name)
	gid, ok := testGroups[name]
	if !ok {
		return 0, fmt.Errorf("group: unknown group %s", name)
	}
	return gid, nil
}

func (i loggedIdentities) GroupIDs(name string) ([]int, error) {
	if name == "_blog" {
		return []int{1001, 900}, nil
	}
	return nil, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testTable is a module table with one module whose paths and entry
// point are test-controlled.
var testTable = policy.ModuleTable{
	"mime": {
		Name:      "mime",
		Paths:     []string{"/etc/mime.types"},
		ForceLoad: []string{"test.mime"},
	},
}

type harness struct {
	log      *restricttest.Log
	recorder *restricttest.Recorder
	syscalls *loggedSyscalls
	deps     Deps
}

// newHarness builds session dependencies around a shared log. euid 0
// makes the process privileged.
func newHarness(euid int) *harness {
	log := &restricttest.Log{}
	syscalls := &loggedSyscalls{log: log, euid: euid, egid: euid}
	logger := discardLogger()
	loader := NewForceLoader(logger)
	loader.Register("test.mime", func() error {
		log.Record("forceload test.mime")
		return nil
	})
	h := &harness{
		log:      log,
		recorder: restricttest.New(log),
		syscalls: syscalls,
	}
	h.deps = Deps{
		Restrictor: h.recorder,
		Dropper: privilege.New(privilege.Config{
			Syscalls:   syscalls,
			Identities: loggedIdentities{log: log},
			Logger:     logger,
		}),
		Modules:     testTable,
		ForceLoader: loader,
		Logger:      logger,
	}
	return h
}
