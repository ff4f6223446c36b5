// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crash

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/bureau-foundation/lockdown/lib/codec"
	"github.com/bureau-foundation/lockdown/lib/process"
)

// ExecRelay runs each notification in a fresh copy of the lockdown
// binary started in the relay role. The request travels on the
// child's stdin; nothing else of the master's is inherited except the
// environment and stderr.
type ExecRelay struct {
	// Path is the executable. Empty means os.Executable().
	Path string

	// Args follow argv[0]. Nil means {"relay"}.
	Args []string

	// Env is the base environment. Nil means os.Environ().
	Env []string

	// Stderr receives the relay's log. Nil means os.Stderr.
	Stderr io.Writer
}

// Relay starts the relay and waits for it to exit. There is no timeout
// beyond ctx.
func (e *ExecRelay) Relay(ctx context.Context, request Request) error {
	payload, err := EncodeRequest(request)
	if err != nil {
		return &TransportError{Stage: "spawn", Err: err}
	}

	path := e.Path
	if path == "" {
		path, err = os.Executable()
		if err != nil {
			return &TransportError{Stage: "spawn", Err: fmt.Errorf("locating executable: %w", err)}
		}
	}
	args := e.Args
	if args == nil {
		args = []string{"relay"}
	}
	env := e.Env
	if env == nil {
		env = os.Environ()
	}
	stderr := e.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Args[0] = process.Title(request.App, string(process.RoleRelay))
	cmd.Env = process.RoleEnviron(env, process.RoleRelay, -1)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = stderr
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return &TransportError{Stage: "relay", Err: err}
	}
	return nil
}

// RelayDeps holds what [RunRelay] needs besides the request.
type RelayDeps struct {
	// Lockdown confines, drops identity and restricts syscalls for
	// the relay. It runs after the request is read and before any
	// network activity.
	Lockdown func(Request) error

	Sender Sender
	Logger *slog.Logger
}

// maxRequestSize bounds the stdin read: one maximal body plus the
// small fixed fields.
const maxRequestSize = codec.MaxByteStringLength + 64<<10

// RunRelay is the body of the relay process. It returns an error
// only for failures the relay's exit status should reflect; the master
// logs the failure and moves on either way.
func RunRelay(ctx context.Context, stdin io.Reader, deps RelayDeps) error {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	data, err := io.ReadAll(io.LimitReader(stdin, maxRequestSize))
	if err != nil {
		return fmt.Errorf("reading relay request: %w", err)
	}
	request, err := DecodeRequest(data)
	if err != nil {
		return err
	}

	if deps.Lockdown != nil {
		if err := deps.Lockdown(request); err != nil {
			return fmt.Errorf("locking down relay: %w", err)
		}
	}

	message := MessageBody(request.App, request.Body)
	envelope := Envelope{
		Address: request.SMTPAddress,
		From:    request.Email,
		To:      request.Email,
	}
	if err := deps.Sender.Send(ctx, envelope, message); err != nil {
		logger.Error("crash notification not delivered",
			"app", request.App,
			"address", request.SMTPAddress,
			"error", err,
		)
		return err
	}
	logger.Info("crash notification delivered",
		"app", request.App,
		"to", request.Email,
		"bytes", len(message),
	)
	return nil
}
