// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package diagnostic

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
)

// Error is a failure to open, write, read or remove a diagnostic file.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("diagnostic %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Store locates diagnostic files for one application.
type Store struct {
	prefix     string
	app        string
	privileged bool
}

// NewStore creates a Store. privileged selects the root-only layout
// and must match between the master and its workers.
func NewStore(prefix, app string, privileged bool) *Store {
	return &Store{prefix: prefix, app: app, privileged: privileged}
}

// Dir is the directory holding this application's files.
func (s *Store) Dir() string {
	if s.privileged {
		return filepath.Join(s.prefix, "/var/www/requests")
	}
	return filepath.Join(s.prefix, "/var/www/request-error-data", s.app)
}

// Path is the diagnostic file for the worker with pid.
func (s *Store) Path(pid int) string {
	if s.privileged {
		return filepath.Join(s.Dir(), s.app+"."+strconv.Itoa(pid)+".txt")
	}
	return filepath.Join(s.Dir(), strconv.Itoa(pid)+".txt")
}

// Open creates (or truncates) the diagnostic file for pid, write-only,
// mode 0600. Symlinks are not followed.
func (s *Store) Open(pid int) (*Channel, error) {
	path := s.Path(pid)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|syscall.O_NOFOLLOW, 0600)
	if err != nil {
		return nil, &Error{Op: "open", Path: path, Err: err}
	}
	return &Channel{file: file, path: path}, nil
}

// Read returns the record for pid. exists is false when there is no
// file, which is not an error.
func (s *Store) Read(pid int) (data []byte, exists bool, err error) {
	path := s.Path(pid)
	data, err = os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, true, &Error{Op: "read", Path: path, Err: err}
	}
	return data, true, nil
}

// Remove deletes the record for pid. A missing file is not an error.
func (s *Store) Remove(pid int) error {
	path := s.Path(pid)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &Error{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// Channel is a worker's open diagnostic file.
type Channel struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	paused atomic.Bool
}

// Path is the file the channel writes.
func (c *Channel) Path() string { return c.path }

// Write replaces the record: seek to the start, truncate, write, fsync.
// A paused or closed channel discards the record.
func (c *Channel) Write(record []byte) error {
	if c == nil || c.paused.Load() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}

	if _, err := c.file.Seek(0, io.SeekStart); err != nil {
		return &Error{Op: "seek", Path: c.path, Err: err}
	}
	if err := c.file.Truncate(0); err != nil {
		return &Error{Op: "truncate", Path: c.path, Err: err}
	}
	if _, err := c.file.Write(record); err != nil {
		return &Error{Op: "write", Path: c.path, Err: err}
	}
	if err := c.file.Sync(); err != nil {
		return &Error{Op: "sync", Path: c.path, Err: err}
	}
	return nil
}

// Pause stops recording. The file keeps its last record. Used when a
// worker's requests are instrumentation the operator should not be
// mailed about.
func (c *Channel) Pause() {
	if c != nil {
		c.paused.Store(true)
	}
}

// Paused reports whether Pause was called.
func (c *Channel) Paused() bool {
	return c != nil && c.paused.Load()
}

// Close closes the file. The record stays on disk for the master.
func (c *Channel) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}
