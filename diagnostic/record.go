// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package diagnostic

import (
	"bytes"
	"log/slog"
	"net/http"
)

// recordHeaders are the request headers copied into a record. Cookies
// and authorization are left out: records are mailed.
var recordHeaders = []string{
	"Host",
	"User-Agent",
	"Referer",
	"Content-Type",
	"Content-Length",
	"X-Forwarded-For",
	"X-Real-Ip",
}

// FormatRecord composes a diagnostic record for r as a complete mail
// message, so the relay can send the file contents unchanged. The body
// starts with the request line, "METHOD URI".
func FormatRecord(app, email string, r *http.Request) []byte {
	var buffer bytes.Buffer
	requestLine := r.Method + " " + r.URL.RequestURI()

	if email != "" {
		buffer.WriteString("From: " + email + "\r\n")
		buffer.WriteString("To: " + email + "\r\n")
	}
	buffer.WriteString("Subject: [" + app + "] Worker Crash: " + sanitizeHeader(requestLine) + "\r\n")
	buffer.WriteString("\r\n")

	buffer.WriteString(requestLine + "\r\n")
	for _, name := range recordHeaders {
		if value := r.Header.Get(name); value != "" {
			buffer.WriteString(name + ": " + sanitizeHeader(value) + "\r\n")
		}
	}
	if r.RemoteAddr != "" {
		buffer.WriteString("Remote-Addr: " + sanitizeHeader(r.RemoteAddr) + "\r\n")
	}
	return buffer.Bytes()
}

// sanitizeHeader keeps request data from injecting mail headers.
func sanitizeHeader(value string) string {
	return string(bytes.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, []byte(value)))
}

// Middleware writes a record for every request to channel before
// calling next. Write failures are logged and the request is served
// anyway.
func Middleware(channel *Channel, app, email string, logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := channel.Write(FormatRecord(app, email, r)); err != nil {
			logger.Warn("diagnostic record not written", "error", err)
		}
		next.ServeHTTP(w, r)
	})
}
