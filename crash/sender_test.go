// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crash

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-smtp"

	"github.com/bureau-foundation/lockdown/lib/clock"
	"github.com/bureau-foundation/lockdown/lib/testutil"
)

type receivedMessage struct {
	from string
	to   []string
	data string
}

type testBackend struct {
	received chan receivedMessage
}

func (b *testBackend) NewSession(*smtp.Conn) (smtp.Session, error) {
	return &testSession{backend: b}, nil
}

type testSession struct {
	backend *testBackend
	current receivedMessage
}

func (s *testSession) Reset()        { s.current = receivedMessage{} }
func (s *testSession) Logout() error { return nil }

func (s *testSession) Mail(from string, _ *smtp.MailOptions) error {
	s.current.from = from
	return nil
}

func (s *testSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	if to == "nobody@localhost" {
		return &smtp.SMTPError{Code: 550, Message: "no such user"}
	}
	s.current.to = append(s.current.to, to)
	return nil
}

func (s *testSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.current.data = string(data)
	s.backend.received <- s.current
	return nil
}

func startSMTPServer(t *testing.T) (string, <-chan receivedMessage) {
	t.Helper()
	backend := &testBackend{received: make(chan receivedMessage, 4)}
	server := smtp.NewServer(backend)
	server.Domain = "localhost"

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go server.Serve(listener)
	t.Cleanup(func() { server.Close() })
	return listener.Addr().String(), backend.received
}

func TestSMTPSenderDelivers(t *testing.T) {
	address, received := startSMTPServer(t)
	sender := &SMTPSender{Clock: clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))}

	envelope := Envelope{Address: address, From: "root@localhost", To: "root@localhost"}
	if err := sender.Send(context.Background(), envelope, MessageBody("blog", []byte("GET /slow"))); err != nil {
		t.Fatalf("Send: %v", err)
	}

	message := testutil.RequireReceive(t, received, 5*time.Second, "waiting for delivered message")
	if message.from != "root@localhost" || len(message.to) != 1 || message.to[0] != "root@localhost" {
		t.Errorf("envelope from=%q to=%v", message.from, message.to)
	}
	for _, want := range []string{"Subject: [blog] Worker Process Crash", "GET /slow", "Message-ID: <", "Date: Sun, 01 Mar 2026"} {
		if !strings.Contains(message.data, want) {
			t.Errorf("delivered message lacks %q:\n%s", want, message.data)
		}
	}
}

func TestSMTPSenderRejectedRecipient(t *testing.T) {
	address, _ := startSMTPServer(t)
	sender := &SMTPSender{}

	err := sender.Send(context.Background(), Envelope{Address: address, From: "root@localhost", To: "nobody@localhost"}, []byte("Subject: x\r\n\r\ny"))
	var transport *TransportError
	if !errors.As(err, &transport) || transport.Stage != "rcpt" {
		t.Fatalf("Send() error = %v, want rcpt TransportError", err)
	}
}

func TestSMTPSenderUnreachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	address := listener.Addr().String()
	listener.Close()

	err = (&SMTPSender{}).Send(context.Background(), Envelope{Address: address, From: "root", To: "root"}, []byte("x"))
	var transport *TransportError
	if !errors.As(err, &transport) || transport.Stage != "dial" {
		t.Fatalf("Send() error = %v, want dial TransportError", err)
	}
}
