// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

// Worker is one worker process as seen by its ready hooks.
type Worker struct {
	info    WorkerInfo
	handler http.Handler
	logger  *slog.Logger
}

// Info identifies the worker.
func (w *Worker) Info() WorkerInfo { return w.info }

// Handler returns the handler the worker will serve.
func (w *Worker) Handler() http.Handler { return w.handler }

// Wrap replaces the handler with middleware(handler). Hooks registered
// later wrap outside earlier ones.
func (w *Worker) Wrap(middleware func(http.Handler) http.Handler) {
	w.handler = middleware(w.handler)
}

// Logger returns the worker's logger.
func (w *Worker) Logger() *slog.Logger { return w.logger }

// RunWorker runs worker nr on listener: fork hooks, application load,
// ready hooks, then serving until a stop signal or ctx.
func (s *Server) RunWorker(ctx context.Context, nr int, listener net.Listener) error {
	info := WorkerInfo{Nr: nr, PID: os.Getpid()}
	logger := s.logger.With("worker", nr)

	signals := s.config.Signals
	if signals == nil {
		channel := make(chan os.Signal, 4)
		signal.Notify(channel, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT, syscall.SIGUSR2)
		defer signal.Stop(channel)
		signals = channel
	}

	for _, hook := range s.forkChild {
		if err := hook(ctx, info); err != nil {
			return fmt.Errorf("worker %d fork: %w", nr, err)
		}
	}

	if s.config.Load == nil {
		return errors.New("worker: no application loader configured")
	}
	handler, err := s.config.Load()
	if err != nil {
		return fmt.Errorf("loading application: %w", err)
	}

	worker := &Worker{info: info, handler: handler, logger: logger}
	for _, hook := range s.workerReady {
		if err := hook(ctx, worker); err != nil {
			return fmt.Errorf("worker %d ready: %w", nr, err)
		}
	}

	httpServer := &http.Server{
		Handler:  worker.handler,
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	served := make(chan error, 1)
	go func() {
		served <- httpServer.Serve(listener)
	}()
	logger.Info("worker ready", "pid", info.PID)
	s.markReady()

	defer func() {
		for _, hook := range s.workerStop {
			hook()
		}
	}()

	for {
		select {
		case err := <-served:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("serving: %w", err)

		case sig := <-signals:
			switch sig {
			case syscall.SIGUSR2:
				logger.Info("pausing diagnostics")
				for _, hook := range s.pause {
					hook()
				}
			case syscall.SIGQUIT:
				logger.Info("graceful stop")
				if err := httpServer.Shutdown(context.WithoutCancel(ctx)); err != nil {
					return fmt.Errorf("shutdown: %w", err)
				}
				return nil
			default:
				logger.Info("quick stop", "signal", sig.String())
				httpServer.Close()
				return nil
			}

		case <-ctx.Done():
			httpServer.Close()
			return nil
		}
	}
}
