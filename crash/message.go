// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crash

import (
	"bytes"
	"fmt"
)

// PlaceholderBody is the message sent for a worker that died before
// recording a request.
func PlaceholderBody(app string) []byte {
	return fmt.Appendf(nil,
		"Subject: [%s] Worker Process Crash\r\n\r\nNo diagnostic content provided for app: %s", app, app)
}

// MessageBody returns the message the relay delivers for a record.
// Records are normally already mail-formatted; a record without a
// header block gets a subject prepended so it is still a valid message.
func MessageBody(app string, record []byte) []byte {
	if len(record) == 0 {
		return PlaceholderBody(app)
	}
	if hasHeaderBlock(record) {
		return record
	}
	header := fmt.Appendf(nil, "Subject: [%s] Worker Process Crash\r\n\r\n", app)
	return append(header, record...)
}

// hasHeaderBlock reports whether message starts with RFC 5322 style
// "Name: value" lines terminated by a blank line.
func hasHeaderBlock(message []byte) bool {
	end := bytes.Index(message, []byte("\r\n\r\n"))
	if end < 0 {
		end = bytes.Index(message, []byte("\n\n"))
	}
	if end <= 0 {
		return false
	}
	for _, line := range bytes.Split(message[:end], []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 {
			return false
		}
		if line[0] == ' ' || line[0] == '\t' {
			// Folded continuation.
			continue
		}
		colon := bytes.IndexByte(line, ':')
		if colon <= 0 || bytes.ContainsAny(line[:colon], " \t") {
			return false
		}
	}
	return true
}

// hasHeader reports whether the header block of message contains name.
func hasHeader(message []byte, name string) bool {
	end := bytes.Index(message, []byte("\r\n\r\n"))
	if end < 0 {
		end = bytes.Index(message, []byte("\n\n"))
	}
	if end < 0 {
		return false
	}
	prefix := []byte(name + ":")
	for _, line := range bytes.Split(message[:end], []byte("\n")) {
		if len(line) >= len(prefix) && bytes.EqualFold(line[:len(prefix)], prefix) {
			return true
		}
	}
	return false
}
