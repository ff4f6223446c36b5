// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import "testing"

func TestTitle(t *testing.T) {
	if got := Title("blog", "master"); got != "lockdown-blog-master" {
		t.Errorf("Title = %q", got)
	}
	if got := Title("blog", WorkerTag(2)); got != "lockdown-blog-worker[2]" {
		t.Errorf("Title = %q", got)
	}
}

func TestParseTitle(t *testing.T) {
	tests := []struct {
		title  string
		app    string
		role   Role
		worker int
		ok     bool
	}{
		{"lockdown-blog-master", "blog", RoleMaster, -1, true},
		{"lockdown-blog-relay", "blog", RoleRelay, -1, true},
		{"lockdown-blog-worker[3]", "blog", RoleWorker, 3, true},
		{"lockdown-my-blog-worker[0]", "my-blog", RoleWorker, 0, true},
		{"lockdown-blog-worker", "", "", 0, false},
		{"lockdownd", "", "", 0, false},
		{"nginx: worker process", "", "", 0, false},
	}
	for _, test := range tests {
		app, role, worker, ok := ParseTitle(test.title)
		if app != test.app || role != test.role || worker != test.worker || ok != test.ok {
			t.Errorf("ParseTitle(%q) = %q, %q, %d, %v", test.title, app, role, worker, ok)
		}
	}
}
