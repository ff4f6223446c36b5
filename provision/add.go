// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package provision

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// DefaultConfigFile is the config's name inside the application
// directory.
const DefaultConfigFile = "lockdown.yaml"

// AppOptions describes an application to add.
type AppOptions struct {
	// App is the application name.
	App string

	// Owner owns the application directory and its configuration.
	// Must already exist.
	Owner string

	// User runs the application. Created when missing.
	User string

	// Dir is the directory name under /var/www. Defaults to App.
	Dir string

	// ConfigFile is the config path relative to the application
	// directory. Defaults to DefaultConfigFile.
	ConfigFile string

	// UID is the uid for a newly created User. Zero lets useradd pick.
	UID int
}

// Validate reports missing required options.
func (o AppOptions) Validate() error {
	var errs []error
	if o.App == "" {
		errs = append(errs, errors.New("application name is required"))
	} else if strings.ContainsAny(o.App, "/ ") {
		errs = append(errs, fmt.Errorf("application name %q must be a plain file name", o.App))
	}
	if o.Owner == "" || o.User == "" {
		errs = append(errs, errors.New("owner and user are required"))
	}
	if o.UID < 0 {
		errs = append(errs, fmt.Errorf("uid %d is negative", o.UID))
	}
	return errors.Join(errs...)
}

// appFiles are the paths AddApp manages for one application.
type appFiles struct {
	App        string
	Owner      string
	User       string
	Prefix     string
	DirName    string
	Dir        string
	ConfigPath string
	AccessLog  string
	ErrorLog   string
	AppLog     string
	RCFile     string
	NginxFile  string
	Diagnostic string
}

func (s *System) appFiles(opts AppOptions) appFiles {
	dirName := opts.Dir
	if dirName == "" {
		dirName = opts.App
	}
	configFile := opts.ConfigFile
	if configFile == "" {
		configFile = DefaultConfigFile
	}
	dir := s.Path(filepath.Join("/var/www", dirName))
	return appFiles{
		App:        opts.App,
		Owner:      opts.Owner,
		User:       opts.User,
		Prefix:     s.Prefix,
		DirName:    dirName,
		Dir:        dir,
		ConfigPath: filepath.Join(dir, configFile),
		AccessLog:  s.Path("/var/log/nginx/" + opts.App + ".access.log"),
		ErrorLog:   s.Path("/var/log/nginx/" + opts.App + ".error.log"),
		AppLog:     s.Path("/var/log/lockdown/" + opts.App + ".log"),
		RCFile:     s.Path("/etc/rc.d/lockdown_" + strings.ReplaceAll(opts.App, "-", "_")),
		NginxFile:  s.Path("/etc/nginx/" + opts.App + ".conf"),
		Diagnostic: s.Path("/var/www/request-error-data/" + opts.App),
	}
}

// AddApp provisions one application. Setup must have run.
func AddApp(ctx context.Context, system *System, opts AppOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	s := system.withDefaults()
	files := s.appFiles(opts)

	owner, err := s.Accounts.LookupUser(opts.Owner)
	if err != nil {
		return fmt.Errorf("owner %s: %w", opts.Owner, err)
	}
	app, err := s.ensureUser(ctx, opts.User, opts.UID)
	if err != nil {
		return err
	}
	lockdownGID, err := s.Accounts.LookupGroup(LockdownGroup)
	if err != nil {
		return fmt.Errorf("group %s (run lockdown-setup first): %w", LockdownGroup, err)
	}

	// Diagnostics for an unprivileged master.
	if err := s.ensureDir(files.Diagnostic, 0o700, app.UID, app.UID); err != nil {
		return err
	}

	for _, dir := range []string{files.Dir, filepath.Join(files.Dir, "public"), filepath.Dir(files.ConfigPath)} {
		if err := s.ensureDir(dir, 0o755, owner.UID, owner.GID); err != nil {
			return err
		}
	}

	generated := []struct {
		path     string
		template string
		mode     os.FileMode
		uid, gid int
	}{
		{files.ConfigPath, "lockdown.yaml.tmpl", 0o644, owner.UID, owner.GID},
		{files.NginxFile, "nginx.conf.tmpl", 0o644, owner.UID, owner.GID},
		{files.RCFile, "app.rc.tmpl", 0o755, rootID, binID},
	}
	for _, file := range generated {
		data, err := render(file.template, files)
		if err != nil {
			return err
		}
		if err := s.ensureFile(file.path, data, file.mode, file.uid, file.gid); err != nil {
			return err
		}
	}

	for _, log := range []string{files.AccessLog, files.ErrorLog} {
		if err := s.ensureFile(log, nil, 0o644, wwwID, rootID); err != nil {
			return err
		}
	}
	return s.ensureFile(files.AppLog, nil, 0o640, app.UID, lockdownGID)
}

// ensureUser returns the account of name, creating it with useradd
// when missing.
func (s *System) ensureUser(ctx context.Context, name string, uid int) (Account, error) {
	account, err := s.Accounts.LookupUser(name)
	if err == nil {
		return account, nil
	}
	args := []string{"-d", "/var/empty", "-g", "=uid", "-G", LockdownGroup, "-L", "daemon", "-s", "/sbin/nologin"}
	if uid > 0 {
		args = append(args, "-u", strconv.Itoa(uid))
	}
	args = append(args, name)
	if err := s.run(ctx, "/usr/sbin/useradd", args...); err != nil {
		return Account{}, err
	}
	account, err = s.Accounts.LookupUser(name)
	if err != nil {
		return Account{}, fmt.Errorf("user %s missing after useradd: %w", name, err)
	}
	return account, nil
}

func render(name string, files appFiles) ([]byte, error) {
	var buffer bytes.Buffer
	if err := templates.ExecuteTemplate(&buffer, name, files); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", name, err)
	}
	return buffer.Bytes(), nil
}
