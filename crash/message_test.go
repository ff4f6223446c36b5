// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crash

import (
	"strings"
	"testing"
	"time"
)

func TestMessageBody(t *testing.T) {
	tests := []struct {
		name   string
		record string
		want   string
	}{
		{
			name:   "empty",
			record: "",
			want:   "Subject: [blog] Worker Process Crash\r\n\r\nNo diagnostic content provided for app: blog",
		},
		{
			name:   "formatted record",
			record: "From: root\r\nTo: root\r\nSubject: [blog] Worker Crash: GET /slow\r\n\r\nGET /slow\r\n",
			want:   "From: root\r\nTo: root\r\nSubject: [blog] Worker Crash: GET /slow\r\n\r\nGET /slow\r\n",
		},
		{
			name:   "bare request line",
			record: "GET /slow",
			want:   "Subject: [blog] Worker Process Crash\r\n\r\nGET /slow",
		},
		{
			name:   "request line with blank line is not a header block",
			record: "GET /slow HTTP/1.1\r\n\r\nbody",
			want:   "Subject: [blog] Worker Process Crash\r\n\r\nGET /slow HTTP/1.1\r\n\r\nbody",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := string(MessageBody("blog", []byte(test.record))); got != test.want {
				t.Errorf("MessageBody() = %q, want %q", got, test.want)
			}
		})
	}
}

func TestCompleteHeaders(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	envelope := Envelope{From: "root", To: "root"}

	got := string(CompleteHeaders(PlaceholderBody("blog"), envelope, now, "abc"))
	for _, header := range []string{
		"From: root\r\n",
		"To: root\r\n",
		"Date: Sun, 01 Mar 2026 12:00:00 +0000\r\n",
		"Message-ID: <abc@lockdown>\r\n",
	} {
		if !strings.Contains(got, header) {
			t.Errorf("completed message lacks %q:\n%s", header, got)
		}
	}
	if !strings.HasSuffix(got, "No diagnostic content provided for app: blog") {
		t.Errorf("body altered:\n%s", got)
	}

	complete := "From: a\r\nTo: b\r\nDate: x\r\nMessage-Id: <y>\r\n\r\nbody"
	if got := string(CompleteHeaders([]byte(complete), envelope, now, "abc")); got != complete {
		t.Errorf("complete message changed:\n%s", got)
	}
}
