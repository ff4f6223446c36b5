// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/bureau-foundation/lockdown/lib/process"
)

// Config configures a Server. The master uses App, Workers,
// SocketPath or Listener, and Spawner; a worker uses App and Load.
type Config struct {
	App string

	// Workers is the number of worker processes to keep running.
	Workers int

	// SocketPath is the unix socket the master listens on. Ignored
	// when Listener is set.
	SocketPath string

	// Listener is a pre-bound listener for the master.
	Listener net.Listener

	// Spawner starts worker processes. Nil means an [ExecSpawner] for
	// the running executable.
	Spawner Spawner

	// Load builds the application handler in a worker.
	Load func() (http.Handler, error)

	// Signals replaces the process's signal delivery (tests). Nil
	// means signal.Notify for the signals the role handles.
	Signals <-chan os.Signal

	Logger *slog.Logger
}

// WorkerInfo identifies a worker process.
type WorkerInfo struct {
	Nr  int
	PID int
}

// WorkerExit is a reaped worker.
type WorkerExit struct {
	WorkerInfo
	Status process.ExitStatus
}

// Server holds a configuration and its hooks. The same Server value
// serves either role; which one is up to the caller.
type Server struct {
	config Config
	logger *slog.Logger

	masterStart []func(context.Context) error
	forkChild   []func(context.Context, WorkerInfo) error
	workerReady []func(context.Context, *Worker) error
	workerExit  []func(context.Context, WorkerExit)
	pause       []func()
	workerStop  []func()

	ready     chan struct{}
	readyOnce sync.Once

	mu      sync.Mutex
	workers map[int]WorkerInfo
}

// New creates a Server.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Server{
		config:  config,
		logger:  logger,
		ready:   make(chan struct{}),
		workers: make(map[int]WorkerInfo),
	}
}

// App returns the application name.
func (s *Server) App() string { return s.config.App }

// OnMasterStart registers a hook run in the master before workers
// start. An error aborts the master.
func (s *Server) OnMasterStart(fn func(context.Context) error) {
	s.masterStart = append(s.masterStart, fn)
}

// OnForkChild registers a hook run first in every worker. An error
// aborts the worker.
func (s *Server) OnForkChild(fn func(context.Context, WorkerInfo) error) {
	s.forkChild = append(s.forkChild, fn)
}

// OnWorkerReady registers a hook run in every worker before it
// accepts. An error aborts the worker.
func (s *Server) OnWorkerReady(fn func(context.Context, *Worker) error) {
	s.workerReady = append(s.workerReady, fn)
}

// OnWorkerExit registers a hook run in the master for each reaped
// worker.
func (s *Server) OnWorkerExit(fn func(context.Context, WorkerExit)) {
	s.workerExit = append(s.workerExit, fn)
}

// OnPause registers a hook run in a worker on the pause signal.
func (s *Server) OnPause(fn func()) {
	s.pause = append(s.pause, fn)
}

// OnWorkerStop registers a hook run in a worker after it stops serving.
func (s *Server) OnWorkerStop(fn func()) {
	s.workerStop = append(s.workerStop, fn)
}

// Ready is closed once the master has started its initial workers, or
// once a worker is accepting.
func (s *Server) Ready() <-chan struct{} { return s.ready }

func (s *Server) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Workers returns the master's live workers.
func (s *Server) Workers() []WorkerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]WorkerInfo, 0, len(s.workers))
	for nr := range s.config.Workers {
		if info, ok := s.workers[nr]; ok {
			result = append(result, info)
		}
	}
	return result
}
