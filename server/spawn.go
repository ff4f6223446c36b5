// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"

	"github.com/bureau-foundation/lockdown/lib/process"
)

// ListenerFD is the descriptor a worker finds the listening socket on:
// the first of exec.Cmd.ExtraFiles.
const ListenerFD = 3

// Process is a started worker.
type Process interface {
	PID() int
	Signal(os.Signal) error

	// Wait blocks until the process exits. An error means the process
	// could not be waited for at all, not that it failed.
	Wait() (process.ExitStatus, error)
}

// Spawner starts worker processes.
type Spawner interface {
	// Spawn starts worker nr with listener as its inherited socket.
	Spawn(nr int, listener *os.File) (Process, error)
}

// ExecSpawner starts workers by executing a binary, normally the
// running one.
type ExecSpawner struct {
	App string

	// Path is the executable. Empty means os.Executable().
	Path string

	// Args follow argv[0].
	Args []string

	// Env is the base environment. Nil means os.Environ().
	Env []string

	Stdout io.Writer
	Stderr io.Writer
}

// Spawn implements [Spawner].
func (s *ExecSpawner) Spawn(nr int, listener *os.File) (Process, error) {
	path := s.Path
	if path == "" {
		var err error
		path, err = os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locating executable: %w", err)
		}
	}
	env := s.Env
	if env == nil {
		env = os.Environ()
	}

	command := exec.Command(path, s.Args...)
	command.Args[0] = process.Title(s.App, process.WorkerTag(nr))
	command.Env = process.RoleEnviron(env, process.RoleWorker, nr)
	command.ExtraFiles = []*os.File{listener} // becomes fd 3 in the worker
	command.Stdout = s.Stdout
	command.Stderr = s.Stderr
	if command.Stderr == nil {
		command.Stderr = os.Stderr
	}

	if err := command.Start(); err != nil {
		return nil, fmt.Errorf("starting worker %d: %w", nr, err)
	}
	return &execProcess{command: command}, nil
}

type execProcess struct {
	command *exec.Cmd
}

func (p *execProcess) PID() int { return p.command.Process.Pid }

func (p *execProcess) Signal(sig os.Signal) error {
	return p.command.Process.Signal(sig)
}

func (p *execProcess) Wait() (process.ExitStatus, error) {
	err := p.command.Wait()
	if p.command.ProcessState != nil {
		return process.StatusFromState(p.command.ProcessState), nil
	}
	return process.ExitStatus{}, err
}

// InheritedListener returns the listening socket a worker was started
// with.
func InheritedListener() (net.Listener, error) {
	file := os.NewFile(uintptr(ListenerFD), "listener")
	if file == nil {
		return nil, errors.New("no listener on fd 3")
	}
	listener, err := net.FileListener(file)
	file.Close()
	if err != nil {
		return nil, fmt.Errorf("inherited listener: %w", err)
	}
	return listener, nil
}
