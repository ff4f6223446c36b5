// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crash

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"

	"github.com/bureau-foundation/lockdown/lib/clock"
)

// Envelope addresses one message.
type Envelope struct {
	// Address is the SMTP server, host:port.
	Address string
	From    string
	To      string
}

// Sender delivers a complete message.
type Sender interface {
	Send(ctx context.Context, envelope Envelope, message []byte) error
}

// SMTPSender delivers over plain SMTP to a local mail relay.
type SMTPSender struct {
	// LocalName is sent in HELO/EHLO. Empty means "localhost".
	LocalName string

	// Clock stamps the Date header. Nil means the real clock.
	Clock clock.Clock
}

// Send completes the message headers and submits it.
func (s *SMTPSender) Send(ctx context.Context, envelope Envelope, message []byte) error {
	if err := ctx.Err(); err != nil {
		return &TransportError{Stage: "dial", Err: err}
	}
	clk := s.Clock
	if clk == nil {
		clk = clock.Real()
	}
	localName := s.LocalName
	if localName == "" {
		localName = "localhost"
	}

	message = CompleteHeaders(message, envelope, clk.Now(), uuid.NewString())

	client, err := smtp.Dial(envelope.Address)
	if err != nil {
		return &TransportError{Stage: "dial", Err: err}
	}
	defer client.Close()

	if err := client.Hello(localName); err != nil {
		return &TransportError{Stage: "hello", Err: err}
	}
	if err := client.Mail(envelope.From, nil); err != nil {
		return &TransportError{Stage: "mail", Err: err}
	}
	if err := client.Rcpt(envelope.To, nil); err != nil {
		return &TransportError{Stage: "rcpt", Err: err}
	}
	writer, err := client.Data()
	if err != nil {
		return &TransportError{Stage: "data", Err: err}
	}
	if _, err := writer.Write(message); err != nil {
		writer.Close()
		return &TransportError{Stage: "data", Err: err}
	}
	if err := writer.Close(); err != nil {
		return &TransportError{Stage: "data", Err: err}
	}
	if err := client.Quit(); err != nil {
		return &TransportError{Stage: "quit", Err: err}
	}
	return nil
}

// CompleteHeaders prepends the From, To, Date and Message-ID headers a
// message is missing. Records written by workers carry From and To
// already; the placeholder body carries only a Subject.
func CompleteHeaders(message []byte, envelope Envelope, now time.Time, id string) []byte {
	var header bytes.Buffer
	if !hasHeader(message, "From") && envelope.From != "" {
		fmt.Fprintf(&header, "From: %s\r\n", envelope.From)
	}
	if !hasHeader(message, "To") && envelope.To != "" {
		fmt.Fprintf(&header, "To: %s\r\n", envelope.To)
	}
	if !hasHeader(message, "Date") {
		fmt.Fprintf(&header, "Date: %s\r\n", now.Format(time.RFC1123Z))
	}
	if !hasHeader(message, "Message-ID") {
		fmt.Fprintf(&header, "Message-ID: <%s@lockdown>\r\n", id)
	}
	if header.Len() == 0 {
		return message
	}
	return append(header.Bytes(), message...)
}
