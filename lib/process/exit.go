// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors from run().
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// Title is the process title for one lockdown process:
// lockdown-<app>-<tag>, where tag is "master", "relay", or
// "worker[N]". Operators and lockdown-ctl find processes by it.
func Title(app, tag string) string {
	return "lockdown-" + app + "-" + tag
}

// WorkerTag is the title tag for worker nr.
func WorkerTag(nr int) string {
	return fmt.Sprintf("worker[%d]", nr)
}

var titlePattern = regexp.MustCompile(`^lockdown-(.+)-(master|relay|worker\[(\d+)\])$`)

// ParseTitle splits a process title made by [Title]. worker is the
// worker number, or -1 for the master and relays.
func ParseTitle(title string) (app string, role Role, worker int, ok bool) {
	match := titlePattern.FindStringSubmatch(title)
	if match == nil {
		return "", "", 0, false
	}
	if match[3] == "" {
		return match[1], Role(match[2]), -1, true
	}
	worker, err := strconv.Atoi(match[3])
	if err != nil {
		return "", "", 0, false
	}
	return match[1], RoleWorker, worker, true
}
