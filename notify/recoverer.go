// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bureau-foundation/lockdown/crash"
	"github.com/bureau-foundation/lockdown/lib/clock"
)

// Default throttle: one message every ten seconds on average, bursts
// of five.
const (
	DefaultInterval = 10 * time.Second
	DefaultBurst    = 5
)

// sendTimeout bounds the SMTP exchange so a dead mail server does not
// hold the panicking request open.
const sendTimeout = 30 * time.Second

// Config configures a [Recoverer].
type Config struct {
	// App names the application in the subject line.
	App string

	// Email is both sender and recipient.
	Email string

	// SMTPAddress is the mail server, host:port.
	SMTPAddress string

	Sender crash.Sender

	// Limiter throttles messages. Nil uses DefaultInterval and
	// DefaultBurst.
	Limiter *rate.Limiter

	Clock  clock.Clock
	Logger *slog.Logger
}

// Recoverer is http middleware that mails about panics.
type Recoverer struct {
	config Config
	next   http.Handler
}

// New wraps next.
func New(config Config, next http.Handler) *Recoverer {
	if config.Limiter == nil {
		config.Limiter = rate.NewLimiter(rate.Every(DefaultInterval), DefaultBurst)
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Recoverer{config: config, next: next}
}

// Middleware returns New as a handler wrapper.
func Middleware(config Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return New(config, next)
	}
}

func (rec *Recoverer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		value := recover()
		if value == nil {
			return
		}
		if err, ok := value.(error); ok && errors.Is(err, http.ErrAbortHandler) {
			panic(value)
		}
		rec.report(r, value, debug.Stack())
		panic(http.ErrAbortHandler)
	}()
	rec.next.ServeHTTP(w, r)
}

func (rec *Recoverer) report(r *http.Request, value any, stack []byte) {
	logger := rec.config.Logger.With("method", r.Method, "uri", r.URL.RequestURI())
	logger.Error("unhandled panic", "panic", fmt.Sprint(value))

	if !rec.config.Limiter.AllowN(rec.config.Clock.Now(), 1) {
		logger.Warn("unhandled error notification throttled")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), sendTimeout)
	defer cancel()

	envelope := crash.Envelope{
		Address: rec.config.SMTPAddress,
		From:    rec.config.Email,
		To:      rec.config.Email,
	}
	if err := rec.config.Sender.Send(ctx, envelope, Compose(rec.config.App, rec.config.Email, r, value, stack)); err != nil {
		logger.Error("unhandled error notification failed", "error", err)
		return
	}
	logger.Info("unhandled error notification sent", "email", rec.config.Email)
}

// Compose builds the notification message: headers, the panic value,
// the stack, and the request line and headers sorted by name.
func Compose(app, email string, r *http.Request, value any, stack []byte) []byte {
	var buffer bytes.Buffer
	buffer.WriteString("From: " + email + "\r\n")
	buffer.WriteString("To: " + email + "\r\n")
	buffer.WriteString("Subject: [" + app + "] Unhandled Error Raised by Application\r\n")
	buffer.WriteString("\r\n")

	fmt.Fprintf(&buffer, "Error: %T: %v\n\n", value, value)
	buffer.WriteString("Backtrace:\n\n")
	buffer.Write(bytes.TrimRight(stack, "\n"))
	buffer.WriteString("\n\nRequest:\n\n")
	buffer.WriteString(r.Method + " " + r.URL.RequestURI() + " " + r.Proto + "\n")

	lines := make([]string, 0, len(r.Header)+2)
	lines = append(lines, "Host: "+r.Host)
	if r.RemoteAddr != "" {
		lines = append(lines, "Remote-Addr: "+r.RemoteAddr)
	}
	for name, values := range r.Header {
		for _, value := range values {
			lines = append(lines, name+": "+value)
		}
	}
	slices.Sort(lines)
	buffer.WriteString(strings.Join(lines, "\n"))
	buffer.WriteString("\n")
	return buffer.Bytes()
}
