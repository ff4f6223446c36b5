// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux && !openbsd

package privilege

import (
	"errors"
	"os"
)

var errUnsupported = errors.New("identity changes are not supported on this platform")

type osSyscalls struct{}

// OS returns the running kernel's identity syscalls. On this platform
// only the read side works; every change fails.
func OS() Syscalls { return osSyscalls{} }

func (osSyscalls) Geteuid() int { return os.Geteuid() }
func (osSyscalls) Getegid() int { return os.Getegid() }

func (osSyscalls) Setgroups([]int) error  { return errUnsupported }
func (osSyscalls) Setresgid(int) error    { return errUnsupported }
func (osSyscalls) Setresuid(int) error    { return errUnsupported }
func (osSyscalls) Chroot(string) error    { return errUnsupported }
func (osSyscalls) Chdir(dir string) error { return os.Chdir(dir) }
