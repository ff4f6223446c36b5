// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package lockdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bureau-foundation/lockdown/crash"
	"github.com/bureau-foundation/lockdown/diagnostic"
	"github.com/bureau-foundation/lockdown/lib/clock"
	"github.com/bureau-foundation/lockdown/lib/config"
	"github.com/bureau-foundation/lockdown/policy"
	"github.com/bureau-foundation/lockdown/privilege"
	"github.com/bureau-foundation/lockdown/restrict"
	"github.com/bureau-foundation/lockdown/server"
)

// Options configures [Install]. Only Config is required.
type Options struct {
	Config *config.Config

	// Restrictor defaults to the platform's primitives behind the
	// configured fallback policy.
	Restrictor restrict.Restrictor

	Dropper *privilege.Dropper

	// Store defaults to the layout matching the process's privilege.
	Store *diagnostic.Store

	// Relayer defaults to re-executing this binary as a relay.
	Relayer crash.Relayer

	Clock       clock.Clock
	Modules     policy.ModuleTable
	ForceLoader *ForceLoader

	// Middleware, if set, wraps each worker's application handler
	// inside the diagnostic recorder.
	Middleware func(http.Handler) http.Handler

	Logger *slog.Logger
}

// MasterState is the master process's lockdown state.
type MasterState struct {
	Session  *Session
	Pipeline *crash.Pipeline
}

// Limiter returns the empty-crash limiter shared by every exit the
// master handles.
func (m *MasterState) Limiter() *crash.Limiter { return m.Pipeline.Limiter() }

// WorkerState is a worker process's lockdown state. Its fields are set
// by the fork hook.
type WorkerState struct {
	Session *Session
	Channel *diagnostic.Channel
	Info    server.WorkerInfo
}

// Install registers the lockdown hooks on srv. The master's session
// runs at master start; each worker opens its diagnostic channel at
// fork, still privileged, and runs its session once the application
// is loaded; every reaped worker goes through the crash pipeline.
func Install(srv *server.Server, opts Options) (*MasterState, *WorkerState, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, nil, errors.New("lockdown: no config")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dropper := opts.Dropper
	if dropper == nil {
		dropper = privilege.New(privilege.Config{Logger: logger})
	}
	restrictor := opts.Restrictor
	if restrictor == nil {
		restrictor = restrict.WithFallback(restrict.Native(logger), cfg.Fallback.Unsupported, logger)
	}
	store := opts.Store
	if store == nil {
		store = diagnostic.NewStore(cfg.Paths.Prefix, cfg.App, dropper.Privileged())
	}
	relayer := opts.Relayer
	if relayer == nil {
		relayer = &crash.ExecRelay{Args: []string{"relay"}}
	}
	forceLoader := opts.ForceLoader
	if forceLoader == nil {
		forceLoader = NewForceLoader(logger)
	}
	deps := Deps{
		Restrictor:  restrictor,
		Dropper:     dropper,
		Modules:     opts.Modules,
		ForceLoader: forceLoader,
		Logger:      logger,
	}

	workerProfile, err := WorkerProfile(cfg)
	if err != nil {
		return nil, nil, err
	}

	master := &MasterState{
		Session: NewSession(MasterProfile(cfg), deps),
		Pipeline: crash.NewPipeline(crash.PipelineConfig{
			Email:   cfg.Email,
			Store:   store,
			Relayer: relayer,
			Clock:   opts.Clock,
			Relay:   RelayRequest(cfg),
			Logger:  logger,
		}),
	}
	worker := &WorkerState{}

	srv.OnMasterStart(func(context.Context) error {
		return master.Session.Run()
	})

	srv.OnWorkerExit(func(ctx context.Context, exit server.WorkerExit) {
		master.Pipeline.HandleExit(ctx, crash.ExitEvent{
			PID:    exit.PID,
			Worker: exit.Nr,
			Status: exit.Status,
		})
	})

	srv.OnForkChild(func(_ context.Context, info server.WorkerInfo) error {
		worker.Info = info
		worker.Session = NewSession(workerProfile, deps)
		if err := worker.Session.OpenDiagnostics(store, info.PID); err != nil {
			if IsFatal(err) {
				return err
			}
			logger.Error("worker running without crash diagnostics", "worker", info.Nr, "error", err)
			return nil
		}
		worker.Channel = worker.Session.Channel()
		return nil
	})

	srv.OnWorkerReady(func(_ context.Context, w *server.Worker) error {
		if worker.Session == nil {
			return fmt.Errorf("worker %d: ready before fork", w.Info().Nr)
		}
		if opts.Middleware != nil {
			w.Wrap(opts.Middleware)
		}
		w.Wrap(func(next http.Handler) http.Handler {
			return diagnostic.Middleware(worker.Channel, cfg.App, cfg.Email, logger, next)
		})
		return worker.Session.Run()
	})

	srv.OnPause(func() {
		worker.Channel.Pause()
	})

	srv.OnWorkerStop(func() {
		if worker.Session != nil {
			worker.Session.Terminate()
		}
	})

	return master, worker, nil
}

// RelayLockdown returns the lockdown step for a relay process: a
// session built from the request's relay profile, run to Active.
func RelayLockdown(deps Deps) func(crash.Request) error {
	return func(request crash.Request) error {
		return NewSession(RelayProfile(request), deps).Run()
	}
}
