// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package diagnostic

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func TestFormatRecord(t *testing.T) {
	request := httptest.NewRequest("GET", "/slow?n=1", nil)
	request.Header.Set("User-Agent", "probe")
	request.Header.Set("Cookie", "session=secret")

	record := string(FormatRecord("blog", "root", request))

	headers, body, found := strings.Cut(record, "\r\n\r\n")
	if !found {
		t.Fatalf("record has no header/body separator: %q", record)
	}
	for _, want := range []string{"From: root", "To: root", "Subject: [blog] Worker Crash: GET /slow?n=1"} {
		if !strings.Contains(headers, want) {
			t.Errorf("headers %q lack %q", headers, want)
		}
	}
	if !strings.HasPrefix(body, "GET /slow?n=1\r\n") {
		t.Errorf("body %q does not start with the request line", body)
	}
	if !strings.Contains(body, "User-Agent: probe") {
		t.Errorf("body %q lacks User-Agent", body)
	}
	if strings.Contains(record, "secret") {
		t.Errorf("record leaks cookies: %q", record)
	}
}

func TestFormatRecordStripsHeaderInjection(t *testing.T) {
	request := httptest.NewRequest("GET", "/", nil)
	request.Header["User-Agent"] = []string{"x\r\nBcc: victim@example.org"}

	record := string(FormatRecord("blog", "", request))
	if strings.Contains(record, "\r\nBcc:") {
		t.Errorf("header injection survived: %q", record)
	}
	if strings.Contains(record, "From:") {
		t.Errorf("no email configured but From present: %q", record)
	}
}

func TestMiddlewareWritesBeforeHandler(t *testing.T) {
	store := newStore(t, false)
	channel, err := store.Open(os.Getpid())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer channel.Close()

	var seenDuringHandler string
	handler := Middleware(channel, "blog", "root", slog.New(slog.NewTextHandler(io.Discard, nil)),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, _, _ := store.Read(os.Getpid())
			seenDuringHandler = string(data)
			w.WriteHeader(http.StatusNoContent)
		}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest("GET", "/slow", nil))

	if recorder.Code != http.StatusNoContent {
		t.Errorf("status = %d", recorder.Code)
	}
	if !strings.Contains(seenDuringHandler, "GET /slow") {
		t.Errorf("record during handler = %q, want GET /slow", seenDuringHandler)
	}
}

func TestMiddlewareServesWithoutChannel(t *testing.T) {
	called := false
	handler := Middleware(nil, "blog", "", nil, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if !called {
		t.Error("handler not called when no channel is installed")
	}
}
