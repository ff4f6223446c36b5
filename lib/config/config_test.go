// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.SMTP.Address != "127.0.0.1:25" {
		t.Errorf("expected smtp.address=127.0.0.1:25, got %s", cfg.SMTP.Address)
	}
	if cfg.Fallback.Unsupported != FallbackWarn {
		t.Errorf("expected fallback.unsupported=warn, got %s", cfg.Fallback.Unsupported)
	}
	if cfg.Workers != 1 {
		t.Errorf("expected workers=1, got %d", cfg.Workers)
	}
	if len(cfg.RuntimeModules) != 2 || cfg.RuntimeModules[0] != "mime" || cfg.RuntimeModules[1] != "zoneinfo" {
		t.Errorf("expected runtime_modules=[mime zoneinfo], got %v", cfg.RuntimeModules)
	}
}

func TestRuntimeModulesReplacedNotMerged(t *testing.T) {
	cfg, err := Parse([]byte("app: blog\nuser: _blog\nruntime_modules: [tls-roots]\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.RuntimeModules) != 1 || cfg.RuntimeModules[0] != "tls-roots" {
		t.Errorf("runtime_modules = %v, want [tls-roots]", cfg.RuntimeModules)
	}
}

func TestLoad_RequiresLockdownConfig(t *testing.T) {
	t.Setenv("LOCKDOWN_CONFIG", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when LOCKDOWN_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "LOCKDOWN_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_WithLockdownConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "lockdown.yaml")
	configContent := `
environment: staging
app: blog
user: _blog
email: root
workers: 3
pledge: "rpath prot_exec inet unix"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("LOCKDOWN_CONFIG", configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}
	if cfg.Workers != 3 {
		t.Errorf("expected workers=3, got %d", cfg.Workers)
	}
	if cfg.Group.Primary != "_blog" {
		t.Errorf("expected group to default to user, got %q", cfg.Group.Primary)
	}
	if cfg.Paths.AppDir != "/var/www/blog" {
		t.Errorf("expected app_dir=/var/www/blog, got %s", cfg.Paths.AppDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestGroupSpec(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		primary string
		log     string
		wantErr bool
	}{
		{name: "scalar", input: "group: _blog", primary: "_blog"},
		{name: "single element", input: "group: [_blog]", primary: "_blog"},
		{name: "primary and log", input: "group: [_blog, _lockdown]", primary: "_blog", log: "_lockdown"},
		{name: "empty list", input: "group: []", wantErr: true},
		{name: "three names", input: "group: [a, b, c]", wantErr: true},
		{name: "mapping", input: "group: {a: b}", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var cfg Config
			err := yaml.Unmarshal([]byte(test.input), &cfg)
			if test.wantErr {
				if err == nil {
					t.Fatalf("expected error, got group %+v", cfg.Group)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if cfg.Group.Primary != test.primary || cfg.Group.Log != test.log {
				t.Errorf("group = %+v, want {%s %s}", cfg.Group, test.primary, test.log)
			}
		})
	}
}

func TestGroupSpecMarshal(t *testing.T) {
	data, err := yaml.Marshal(struct {
		Group GroupSpec `yaml:"group"`
	}{GroupSpec{Primary: "_blog", Log: "_lockdown"}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), "_lockdown") {
		t.Errorf("log group missing from %q", data)
	}
}

func TestMode(t *testing.T) {
	tests := []struct {
		name   string
		config string
		want   Mode
	}{
		{
			name:   "no unveil is confinement",
			config: "app: blog\nuser: _blog\npledge: rpath\n",
			want:   ModeConfinement,
		},
		{
			name:   "unveil is visibility",
			config: "app: blog\nuser: _blog\nunveil: {views: r}\n",
			want:   ModeVisibility,
		},
		{
			name:   "unveil and master pledge is hybrid",
			config: "app: blog\nuser: _blog\nunveil: {views: r}\nmaster_pledge: rpath proc exec\n",
			want:   ModeHybrid,
		},
		{
			name:   "master pledge alone is still confinement",
			config: "app: blog\nuser: _blog\nmaster_pledge: rpath proc exec\n",
			want:   ModeConfinement,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg, err := Parse([]byte(test.config))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got := cfg.Mode(); got != test.want {
				t.Errorf("Mode() = %s, want %s", got, test.want)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
environment: development
app: blog
user: _blog
email: root
development:
  email: dev@example.org
  workers: 4
  smtp:
    address: 127.0.0.1:2525
  fallback:
    unsupported: skip
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Email != "dev@example.org" {
		t.Errorf("email = %q, want override", cfg.Email)
	}
	if cfg.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Workers)
	}
	if cfg.SMTP.Address != "127.0.0.1:2525" {
		t.Errorf("smtp.address = %q", cfg.SMTP.Address)
	}
	if cfg.Fallback.Unsupported != FallbackSkip {
		t.Errorf("fallback.unsupported = %q, want skip", cfg.Fallback.Unsupported)
	}
}

func TestProductionDefaultsAreStrict(t *testing.T) {
	cfg, err := Parse([]byte("environment: production\napp: blog\nuser: _blog\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Fallback.Unsupported != FallbackError {
		t.Errorf("fallback.unsupported = %q, want error", cfg.Fallback.Unsupported)
	}
	if cfg.DevMode() {
		t.Error("production must not be dev mode")
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("LOCKDOWN_TEST_ROOT", "/scratch")

	tests := []struct {
		input string
		vars  map[string]string
		want  string
	}{
		{"${LOCKDOWN_TEST_ROOT}/www", nil, "/scratch/www"},
		{"${LOCKDOWN_TEST_UNSET:-/fallback}", nil, "/fallback"},
		{"${LOCKDOWN_PREFIX}/var/www", map[string]string{"LOCKDOWN_PREFIX": "/tmp/x"}, "/tmp/x/var/www"},
		{"/plain/path", nil, "/plain/path"},
	}

	for _, test := range tests {
		if got := expandVars(test.input, test.vars); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestPrefixRelocatesDerivedPaths(t *testing.T) {
	cfg, err := Parse([]byte(`
app: blog
user: _blog
paths:
  prefix: /tmp/lockdown
  app_dir: ${LOCKDOWN_PREFIX}/srv/blog
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Paths.AppDir != "/tmp/lockdown/srv/blog" {
		t.Errorf("app_dir = %q", cfg.Paths.AppDir)
	}
	if cfg.SocketPath() != "/tmp/lockdown/var/www/sockets/blog.sock" {
		t.Errorf("SocketPath() = %q", cfg.SocketPath())
	}
	if cfg.LogPath() != "/tmp/lockdown/var/log/lockdown/blog.log" {
		t.Errorf("LogPath() = %q", cfg.LogPath())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr []string
	}{
		{
			name:   "valid confinement",
			config: "app: blog\nuser: _blog\n",
		},
		{
			name:    "missing app and user",
			config:  "workers: 1\n",
			wantErr: []string{"app is required", "user is required"},
		},
		{
			name:    "bad access letters",
			config:  "app: blog\nuser: _blog\nunveil: {views: rq}\n",
			wantErr: []string{"unveil[views]"},
		},
		{
			name:    "unveil_before_drop without unveil",
			config:  "app: blog\nuser: _blog\nunveil_before_drop: true\n",
			wantErr: []string{"unveil_before_drop requires unveil"},
		},
		{
			name:    "unknown fallback",
			config:  "app: blog\nuser: _blog\nfallback: {unsupported: ignore}\n",
			wantErr: []string{"fallback.unsupported"},
		},
		{
			name:    "zero workers",
			config:  "app: blog\nuser: _blog\nworkers: -1\n",
			wantErr: []string{"workers must be at least 1"},
		},
		{
			name:    "app with slash",
			config:  "app: ../blog\nuser: _blog\n",
			wantErr: []string{"plain file name"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg, err := Parse([]byte(test.config))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			err = cfg.Validate()
			if len(test.wantErr) == 0 {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			for _, fragment := range test.wantErr {
				if !strings.Contains(err.Error(), fragment) {
					t.Errorf("error %q does not mention %q", err, fragment)
				}
			}
		})
	}
}

func TestIdentity(t *testing.T) {
	cfg, err := Parse([]byte("app: blog\nowner: alice\nuser: _blog\ngroup: [_blog, _lockdown]\nemail: root\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	identity := cfg.Identity()
	if identity.Name != "blog" || identity.Owner != "alice" || identity.User != "_blog" || identity.Email != "root" {
		t.Errorf("identity = %+v", identity)
	}
	if identity.Group.Log != "_lockdown" {
		t.Errorf("log group = %q", identity.Group.Log)
	}
}
