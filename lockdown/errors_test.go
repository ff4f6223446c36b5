// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lockdown

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bureau-foundation/lockdown/diagnostic"
	"github.com/bureau-foundation/lockdown/lib/config"
	"github.com/bureau-foundation/lockdown/privilege"
	"github.com/bureau-foundation/lockdown/restrict"
)

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"unknown identity", &privilege.UnknownIdentityError{Kind: "user", Name: "_x", Err: errors.New("unknown")}, true},
		{"insufficient rights", &privilege.InsufficientRightsError{Op: "chroot", Err: errors.New("EPERM")}, true},
		{"restriction", &restrict.Error{Op: "pledge", Err: restrict.ErrUnsupported}, true},
		{"sequence", &SequenceError{Attempted: SyscallRestricted, Expected: Confined}, true},
		{"wrapped", fmt.Errorf("confined: %w", ErrNoConfinementRoot), true},
		{"diagnostic", &diagnostic.Error{Op: "open", Path: "/x", Err: errors.New("ENOENT")}, false},
		{"plain", errors.New("smtp: connection refused"), false},
		{"nil", nil, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsFatal(test.err); got != test.fatal {
				t.Errorf("IsFatal(%v) = %v, want %v", test.err, got, test.fatal)
			}
		})
	}
}

func parseConfig(t *testing.T, data string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return cfg
}

func TestCheckConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr []string
	}{
		{
			name: "confinement",
			yaml: "app: blog\nuser: _blog\npledge: rpath inet\n",
		},
		{
			name:    "unknown promise",
			yaml:    "app: blog\nuser: _blog\npledge: rpath teleport\n",
			wantErr: []string{"pledge:", "teleport"},
		},
		{
			name: "hybrid",
			yaml: "app: blog\nuser: _blog\nemail: root\npledge: rpath\nunveil: {views: r}\n" +
				"master_pledge: rpath proc exec\nmaster_exec_pledge: stdio rpath inet unveil id\n",
		},
		{
			name:    "hybrid without exec promises",
			yaml:    "app: blog\nuser: _blog\nunveil: {views: r}\nmaster_pledge: rpath proc exec\n",
			wantErr: []string{"master_exec_pledge is required"},
		},
		{
			name: "hybrid exec promises without id",
			yaml: "app: blog\nuser: _blog\npledge: rpath\nunveil: {views: r}\n" +
				"master_pledge: rpath proc exec\nmaster_exec_pledge: stdio rpath unveil\n",
			wantErr: []string{`must include "id"`},
		},
		{
			name: "hybrid exec promises narrower than worker",
			yaml: "app: blog\nuser: _blog\npledge: rpath wpath\nunveil: {views: r}\n" +
				"master_pledge: rpath proc exec\nmaster_exec_pledge: stdio rpath unveil id\n",
			wantErr: []string{"does not cover pledge"},
		},
		{
			name: "hybrid exec promises narrower than relay",
			yaml: "app: blog\nuser: _blog\nemail: root\npledge: rpath\nunveil: {views: r}\n" +
				"master_pledge: rpath proc exec\nmaster_exec_pledge: stdio rpath unveil id\n",
			wantErr: []string{"crash relay"},
		},
		{
			name:    "shape errors pass through",
			yaml:    "app: blog\nworkers: 0\n",
			wantErr: []string{"user is required", "workers must be at least 1"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := CheckConfig(parseConfig(t, test.yaml), testTable)
			if len(test.wantErr) == 0 {
				if err != nil {
					t.Fatalf("CheckConfig: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("CheckConfig succeeded, want errors containing %q", test.wantErr)
			}
			for _, want := range test.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %q", err, want)
				}
			}
		})
	}
}

func TestCheckConfigWarnsAboutUnknownModules(t *testing.T) {
	cfg := parseConfig(t, "app: blog\nuser: _blog\nruntime_modules: [mime, imagemagick]\n")
	warnings, err := CheckConfig(cfg, testTable)
	if err != nil {
		t.Fatalf("CheckConfig: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "imagemagick") {
		t.Errorf("warnings = %q, want one about imagemagick", warnings)
	}
}

func TestSequenceErrorMessage(t *testing.T) {
	err := &SequenceError{
		Mode:      ModeConfinement,
		Role:      RoleWorker,
		From:      PolicyComputed,
		Attempted: SyscallRestricted,
		Expected:  Confined,
	}
	message := err.Error()
	for _, want := range []string{"confinement", "worker", "syscall-restricted", "confined"} {
		if !strings.Contains(message, want) {
			t.Errorf("%q does not mention %q", message, want)
		}
	}
}
