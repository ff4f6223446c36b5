// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crash

import (
	"context"
	"log/slog"

	"github.com/bureau-foundation/lockdown/lib/clock"
)

// Store is the master's view of the diagnostic records.
type Store interface {
	// Read returns the record for pid; exists is false when there is
	// no record.
	Read(pid int) (data []byte, exists bool, err error)
	Remove(pid int) error
}

// Relayer delivers one notification from outside the master's address
// space and returns once delivery has finished or failed.
type Relayer interface {
	Relay(ctx context.Context, request Request) error
}

// PipelineConfig holds the dependencies of a [Pipeline].
type PipelineConfig struct {
	// Email is the notification address. Empty disables notification
	// but not cleanup.
	Email string

	Store   Store
	Relayer Relayer
	Limiter *Limiter
	Clock   clock.Clock

	// Relay is the request template: the app, identity, confinement
	// and SMTP address every relay is started with. Email and Body are
	// filled in per crash.
	Relay Request

	Logger *slog.Logger
}

// Outcome is what HandleExit did with one exit.
type Outcome struct {
	Event    Event
	Decision Decision

	// Relayed is true when the relay ran and reported success.
	Relayed  bool
	RelayErr error

	// Removed is true when the diagnostic record was deleted.
	Removed bool
}

// Pipeline turns reaped workers into notifications. HandleExit must
// not be called concurrently; the master reaps one worker at a time.
type Pipeline struct {
	email   string
	store   Store
	relayer Relayer
	limiter *Limiter
	clock   clock.Clock
	relay   Request
	logger  *slog.Logger
}

// NewPipeline creates a Pipeline. A nil Clock is the real clock and a
// nil Limiter is a fresh one on that clock.
func NewPipeline(config PipelineConfig) *Pipeline {
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	limiter := config.Limiter
	if limiter == nil {
		limiter = NewLimiter(clk)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		email:   config.Email,
		store:   config.Store,
		relayer: config.Relayer,
		limiter: limiter,
		clock:   clk,
		relay:   config.Relay,
		logger:  logger,
	}
}

// Limiter returns the empty-crash limiter.
func (p *Pipeline) Limiter() *Limiter { return p.limiter }

// HandleExit processes one reaped worker. Nothing here is fatal to the
// master: read and delete failures are logged, relay failures are
// logged as transport errors.
func (p *Pipeline) HandleExit(ctx context.Context, exit ExitEvent) Outcome {
	level := slog.LevelInfo
	if !exit.Status.Success() {
		level = slog.LevelError
	}
	p.logger.Log(ctx, level, "reaped worker",
		"status", exit.Status.String(),
		"worker", exit.Worker,
		"pid", exit.PID,
	)

	data, exists, err := p.store.Read(exit.PID)
	if err != nil {
		// The file is there but unreadable: report the crash without
		// request context.
		p.logger.Warn("reading diagnostic record failed", "pid", exit.PID, "error", err)
		data = nil
	}

	event := Event{
		PID:        exit.PID,
		Worker:     exit.Worker,
		Status:     exit.Status,
		Diagnostic: data,
		Timestamp:  p.clock.Now(),
	}
	outcome := Outcome{
		Event:    event,
		Decision: Decide(event, exists, p.email, p.limiter),
	}

	switch outcome.Decision {
	case NoRecord:
		return outcome
	case Notify:
		outcome.RelayErr = p.relayEvent(ctx, event)
		outcome.Relayed = outcome.RelayErr == nil
	case Suppressed:
		p.logger.Info("crash notification suppressed",
			"pid", exit.PID,
			"worker", exit.Worker,
			"last_notified", p.limiter.Last(),
		)
	}

	if err := p.store.Remove(exit.PID); err != nil {
		p.logger.Warn("removing diagnostic record failed", "pid", exit.PID, "error", err)
	} else {
		outcome.Removed = true
	}
	return outcome
}

func (p *Pipeline) relayEvent(ctx context.Context, event Event) error {
	request := p.relay
	request.Email = p.email
	request.Body = event.Diagnostic

	err := p.relayer.Relay(ctx, request)
	if err != nil {
		p.logger.Error("crash notification relay failed",
			"pid", event.PID,
			"worker", event.Worker,
			"error", err,
		)
		return err
	}
	p.logger.Info("crash notification relayed",
		"pid", event.PID,
		"worker", event.Worker,
		"empty", event.Empty(),
	)
	return nil
}
