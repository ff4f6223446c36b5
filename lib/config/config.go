// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines. dev_unveil paths
	// are merged into the worker's visibility policy.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Mode is the deployment mode, selected by the shape of the config.
type Mode string

const (
	// ModeConfinement chroots each worker into the application
	// directory before dropping identity and pledging.
	ModeConfinement Mode = "confinement"
	// ModeVisibility keeps the real root but restricts each worker to
	// an explicit path allow-list.
	ModeVisibility Mode = "visibility"
	// ModeHybrid pledges the master before spawning workers, and each
	// worker applies its allow-list and pledge after loading.
	ModeHybrid Mode = "hybrid"
)

// Fallback values for capabilities the platform does not provide.
const (
	FallbackSkip  = "skip"
	FallbackWarn  = "warn"
	FallbackError = "error"
)

// Config is a single lockdown deployment.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// App is the application name. It names the socket, the log file,
	// the diagnostic files, and the process titles.
	App string `yaml:"app"`

	// Owner owns the application directory. Only provisioning uses it.
	Owner string `yaml:"owner"`

	// User is the unprivileged user workers run as.
	User string `yaml:"user"`

	// Group is the group workers run as. Defaults to User.
	Group GroupSpec `yaml:"group"`

	// Email receives crash and unhandled-error notifications. Empty
	// disables notification; crashes are still logged.
	Email string `yaml:"email"`

	// Workers is the number of worker processes the master keeps alive.
	Workers int `yaml:"workers"`

	// Pledge is the worker's syscall promise string.
	Pledge string `yaml:"pledge"`

	// MasterPledge is the master's own promise string. Setting it
	// together with Unveil selects hybrid mode.
	MasterPledge string `yaml:"master_pledge"`

	// MasterExecPledge is the promise set inherited by processes the
	// master execs, covering a worker until it applies its own policy.
	MasterExecPledge string `yaml:"master_exec_pledge"`

	// Unveil maps paths (relative to Paths.AppDir unless absolute) to
	// access letters (r, w, x, c). Setting it selects visibility mode.
	Unveil map[string]string `yaml:"unveil"`

	// DevUnveil is merged over Unveil in the development environment.
	DevUnveil map[string]string `yaml:"dev_unveil"`

	// UnveilBeforeDrop applies the visibility allow-list while still
	// privileged, before identity drop. Visibility mode only.
	UnveilBeforeDrop bool `yaml:"unveil_before_drop"`

	// RuntimeModules lists the lazily-loaded runtime facilities the
	// application uses. Their files are allow-listed and their entry
	// points force-loaded before restriction.
	RuntimeModules []string `yaml:"runtime_modules"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// SMTP configures the mail relay notifications are sent through.
	SMTP SMTPConfig `yaml:"smtp"`

	// Fallback configures behavior when a restriction primitive is
	// unavailable on this platform.
	Fallback FallbackConfig `yaml:"fallback"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Email    string          `yaml:"email,omitempty"`
	Workers  int             `yaml:"workers,omitempty"`
	Paths    *PathsConfig    `yaml:"paths,omitempty"`
	SMTP     *SMTPConfig     `yaml:"smtp,omitempty"`
	Fallback *FallbackConfig `yaml:"fallback,omitempty"`
}

// GroupSpec is the worker group. In YAML it is either a single group
// name or a two-element list of [primary, log-group], where the log
// group owns the application's log files.
type GroupSpec struct {
	Primary string
	Log     string
}

// UnmarshalYAML accepts a scalar or a one- or two-element sequence.
func (g *GroupSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		g.Primary = node.Value
		g.Log = ""
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return fmt.Errorf("group: %w", err)
		}
		if len(names) == 0 || len(names) > 2 {
			return fmt.Errorf("group: expected 1 or 2 names, got %d", len(names))
		}
		g.Primary = names[0]
		g.Log = ""
		if len(names) == 2 {
			g.Log = names[1]
		}
		return nil
	default:
		return fmt.Errorf("group: expected a name or a [primary, log] list at line %d", node.Line)
	}
}

// MarshalYAML writes the scalar form when there is no log group.
func (g GroupSpec) MarshalYAML() (any, error) {
	if g.Log == "" {
		return g.Primary, nil
	}
	return []string{g.Primary, g.Log}, nil
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Prefix relocates every system directory (/var/www, /var/log,
	// /etc). Empty in production; tests and development point it at a
	// scratch tree.
	Prefix string `yaml:"prefix"`

	// AppDir is the application directory: the confinement root, the
	// base for relative unveil paths, and the worker's working
	// directory. Default: <prefix>/var/www/<app>.
	AppDir string `yaml:"app_dir"`
}

// SMTPConfig configures notification delivery.
type SMTPConfig struct {
	// Address is the host:port of the local mail relay.
	// Default: 127.0.0.1:25
	Address string `yaml:"address"`
}

// FallbackConfig configures graceful degradation when capabilities are missing.
type FallbackConfig struct {
	// Unsupported specifies behavior when the platform has no
	// equivalent of a restriction primitive.
	// Values: "skip" (continue without), "warn" (warn and continue), "error" (fail)
	// Default: warn (development), error (production)
	Unsupported string `yaml:"unsupported"`
}

// Identity is the immutable per-deployment application identity.
type Identity struct {
	Name  string
	Owner string
	User  string
	Group GroupSpec
	Email string
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
func Default() *Config {
	return &Config{
		Environment:    Development,
		Workers:        1,
		RuntimeModules: []string{"mime", "zoneinfo"},
		SMTP: SMTPConfig{
			Address: "127.0.0.1:25",
		},
		Fallback: FallbackConfig{
			Unsupported: FallbackWarn,
		},
	}
}

// Load loads configuration from LOCKDOWN_CONFIG environment variable.
//
// There are no fallbacks or defaults - if LOCKDOWN_CONFIG is not set,
// this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("LOCKDOWN_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("LOCKDOWN_CONFIG environment variable not set; " +
			"set it to the path of your lockdown.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	cfg.fillDerived()

	return cfg, nil
}

// Parse loads configuration from YAML bytes, with the same override
// and expansion steps as [LoadFile].
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	cfg.fillDerived()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: an unenforced policy is a failure.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Fallback: &FallbackConfig{Unsupported: FallbackError},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Email != "" {
		c.Email = overrides.Email
	}
	if overrides.Workers != 0 {
		c.Workers = overrides.Workers
	}

	if overrides.Paths != nil {
		if overrides.Paths.Prefix != "" {
			c.Paths.Prefix = overrides.Paths.Prefix
		}
		if overrides.Paths.AppDir != "" {
			c.Paths.AppDir = overrides.Paths.AppDir
		}
	}

	if overrides.SMTP != nil && overrides.SMTP.Address != "" {
		c.SMTP.Address = overrides.SMTP.Address
	}

	if overrides.Fallback != nil && overrides.Fallback.Unsupported != "" {
		c.Fallback.Unsupported = overrides.Fallback.Unsupported
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Paths.Prefix = expandVars(c.Paths.Prefix, vars)
	vars["LOCKDOWN_PREFIX"] = c.Paths.Prefix

	c.Paths.AppDir = expandVars(c.Paths.AppDir, vars)
}

func (c *Config) fillDerived() {
	if c.Group.Primary == "" {
		c.Group.Primary = c.User
	}
	if c.Paths.AppDir == "" && c.App != "" {
		c.Paths.AppDir = filepath.Join(c.Paths.Prefix, "/var/www", c.App)
	}
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

var appNamePattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)

// Validate checks the configuration for errors. Promise vocabulary is
// checked by the policy package; here only the shape is checked.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.App == "" {
		errs = append(errs, fmt.Errorf("app is required"))
	} else if !appNamePattern.MatchString(c.App) {
		errs = append(errs, fmt.Errorf("app %q must be a plain file name", c.App))
	}

	if c.User == "" {
		errs = append(errs, fmt.Errorf("user is required"))
	}

	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}

	if c.MasterPledge != "" && len(c.Unveil) == 0 {
		errs = append(errs, fmt.Errorf("master_pledge requires unveil (hybrid mode)"))
	}

	if c.UnveilBeforeDrop && len(c.Unveil) == 0 {
		errs = append(errs, fmt.Errorf("unveil_before_drop requires unveil"))
	}

	for path, access := range c.Unveil {
		if err := checkAccess(access); err != nil {
			errs = append(errs, fmt.Errorf("unveil[%s]: %w", path, err))
		}
	}
	for path, access := range c.DevUnveil {
		if err := checkAccess(access); err != nil {
			errs = append(errs, fmt.Errorf("dev_unveil[%s]: %w", path, err))
		}
	}

	fallbackValues := []string{FallbackSkip, FallbackWarn, FallbackError}
	if !contains(fallbackValues, c.Fallback.Unsupported) {
		errs = append(errs, fmt.Errorf("fallback.unsupported must be one of: %v", fallbackValues))
	}

	if c.Email != "" && c.SMTP.Address == "" {
		errs = append(errs, fmt.Errorf("smtp.address is required when email is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func checkAccess(access string) error {
	if access == "" {
		return fmt.Errorf("access is empty")
	}
	if strings.Trim(access, "rwxc") != "" {
		return fmt.Errorf("access %q may only contain r, w, x, c", access)
	}
	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}

// Mode reports the deployment mode implied by the config's shape.
func (c *Config) Mode() Mode {
	switch {
	case len(c.Unveil) > 0 && c.MasterPledge != "":
		return ModeHybrid
	case len(c.Unveil) > 0:
		return ModeVisibility
	default:
		return ModeConfinement
	}
}

// Identity returns the application identity.
func (c *Config) Identity() Identity {
	group := c.Group
	if group.Primary == "" {
		group.Primary = c.User
	}
	return Identity{
		Name:  c.App,
		Owner: c.Owner,
		User:  c.User,
		Group: group,
		Email: c.Email,
	}
}

// DevMode reports whether development-only paths apply.
func (c *Config) DevMode() bool {
	return c.Environment == Development
}

// SocketPath is the unix socket the master listens on.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.Prefix, "/var/www/sockets", c.App+".sock")
}

// LogPath is the daemonized log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.Prefix, "/var/log/lockdown", c.App+".log")
}
