// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/lockdown/lib/process"
)

// socketMode is applied to the master's unix socket. Access is
// controlled by the sockets directory.
const socketMode = 0666

type exitNotice struct {
	nr     int
	pid    int
	status process.ExitStatus
	err    error
}

type stopKind int

const (
	running stopKind = iota
	graceful
	quick
)

// RunMaster binds the socket, runs the master-start hooks, keeps
// Workers workers running and handles their exits until stopped by a
// signal or ctx. It returns once every worker has been reaped.
func (s *Server) RunMaster(ctx context.Context) error {
	listener, err := s.masterListener()
	if err != nil {
		return err
	}
	defer listener.Close()

	listenerFile, err := listenerFile(listener)
	if err != nil {
		return err
	}
	defer listenerFile.Close()

	signals := s.config.Signals
	if signals == nil {
		channel := make(chan os.Signal, 4)
		signal.Notify(channel, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(channel)
		signals = channel
	}

	for _, hook := range s.masterStart {
		if err := hook(ctx); err != nil {
			return fmt.Errorf("master start: %w", err)
		}
	}

	spawner := s.config.Spawner
	if spawner == nil {
		spawner = &ExecSpawner{App: s.config.App}
	}

	exits := make(chan exitNotice)
	processes := make(map[int]Process)
	start := func(nr int) error {
		proc, err := spawner.Spawn(nr, listenerFile)
		if err != nil {
			return err
		}
		processes[nr] = proc
		s.setWorker(WorkerInfo{Nr: nr, PID: proc.PID()})
		s.logger.Info("spawned worker", "worker", nr, "pid", proc.PID())
		go func() {
			status, err := proc.Wait()
			exits <- exitNotice{nr: nr, pid: proc.PID(), status: status, err: err}
		}()
		return nil
	}

	for nr := range s.config.Workers {
		if err := start(nr); err != nil {
			s.stopAll(processes, syscall.SIGTERM)
			s.drain(ctx, exits, processes)
			return err
		}
	}
	s.logger.Info("master ready",
		"app", s.config.App,
		"workers", s.config.Workers,
		"address", listener.Addr().String(),
	)
	s.markReady()

	stopping := running
	done := ctx.Done()
	for {
		if stopping != running && len(processes) == 0 {
			s.logger.Info("master stopped", "app", s.config.App)
			return nil
		}

		select {
		case notice := <-exits:
			delete(processes, notice.nr)
			s.clearWorker(notice.nr)
			s.handleExit(ctx, notice)
			if stopping != running {
				continue
			}
			if err := start(notice.nr); err != nil {
				s.logger.Error("respawning worker failed", "worker", notice.nr, "error", err)
				if len(processes) == 0 {
					return fmt.Errorf("no workers left: %w", err)
				}
			}

		case sig := <-signals:
			switch sig {
			case syscall.SIGQUIT:
				if stopping == running {
					s.logger.Info("graceful stop", "workers", len(processes))
					stopping = graceful
					s.stopAll(processes, syscall.SIGQUIT)
				}
			case syscall.SIGTERM, syscall.SIGINT:
				if stopping != quick {
					s.logger.Info("quick stop", "signal", sig.String(), "workers", len(processes))
					stopping = quick
					s.stopAll(processes, syscall.SIGTERM)
				}
			}

		case <-done:
			done = nil
			if stopping != quick {
				stopping = quick
				s.stopAll(processes, syscall.SIGTERM)
			}
		}
	}
}

// drain reaps every remaining worker after a failed startup. Exit
// hooks still run: a worker that crashed during startup has a record.
func (s *Server) drain(ctx context.Context, exits <-chan exitNotice, processes map[int]Process) {
	for len(processes) > 0 {
		notice := <-exits
		delete(processes, notice.nr)
		s.clearWorker(notice.nr)
		s.handleExit(ctx, notice)
	}
}

func (s *Server) handleExit(ctx context.Context, notice exitNotice) {
	if notice.err != nil {
		s.logger.Error("waiting for worker failed", "worker", notice.nr, "pid", notice.pid, "error", notice.err)
	}
	exit := WorkerExit{
		WorkerInfo: WorkerInfo{Nr: notice.nr, PID: notice.pid},
		Status:     notice.status,
	}
	for _, hook := range s.workerExit {
		hook(ctx, exit)
	}
}

func (s *Server) stopAll(processes map[int]Process, sig os.Signal) {
	for nr, proc := range processes {
		if err := proc.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.logger.Warn("signalling worker failed", "worker", nr, "pid", proc.PID(), "error", err)
		}
	}
}

func (s *Server) setWorker(info WorkerInfo) {
	s.mu.Lock()
	s.workers[info.Nr] = info
	s.mu.Unlock()
}

func (s *Server) clearWorker(nr int) {
	s.mu.Lock()
	delete(s.workers, nr)
	s.mu.Unlock()
}

func (s *Server) masterListener() (net.Listener, error) {
	if s.config.Listener != nil {
		return s.config.Listener, nil
	}
	if s.config.SocketPath == "" {
		return nil, errors.New("master: no socket path or listener configured")
	}
	// A socket left behind by a previous master that did not exit
	// cleanly.
	if info, err := os.Lstat(s.config.SocketPath); err == nil && info.Mode().Type() == fs.ModeSocket {
		if err := os.Remove(s.config.SocketPath); err != nil {
			return nil, fmt.Errorf("removing stale socket: %w", err)
		}
	}
	listener, err := net.Listen("unix", s.config.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", s.config.SocketPath, err)
	}
	if err := os.Chmod(s.config.SocketPath, socketMode); err != nil {
		listener.Close()
		return nil, fmt.Errorf("setting socket mode: %w", err)
	}
	return listener, nil
}

func listenerFile(listener net.Listener) (*os.File, error) {
	filer, ok := listener.(interface{ File() (*os.File, error) })
	if !ok {
		return nil, fmt.Errorf("listener %T cannot be shared with workers", listener)
	}
	file, err := filer.File()
	if err != nil {
		return nil, fmt.Errorf("duplicating listener: %w", err)
	}
	return file, nil
}
