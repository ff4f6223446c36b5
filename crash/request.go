// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package crash

import (
	"fmt"

	"github.com/bureau-foundation/lockdown/lib/codec"
)

// Request is everything a relay process needs: the record to deliver
// and the identity and restriction it must take on before touching the
// network. The master writes it to the relay's stdin as CBOR.
type Request struct {
	App   string `cbor:"app"`
	Email string `cbor:"email"`
	Body  []byte `cbor:"body"`

	// Mode is the deployment mode ("confinement", "visibility",
	// "hybrid"). A hybrid relay inherits the master's pledge and cannot
	// chroot.
	Mode string `cbor:"mode"`

	User        string `cbor:"user"`
	Group       string `cbor:"group"`
	ConfineRoot string `cbor:"confine_root,omitempty"`
	Promises    string `cbor:"promises"`

	// Fallback is the master's fallback.unsupported setting, applied
	// to the relay's own restriction.
	Fallback string `cbor:"fallback,omitempty"`

	SMTPAddress string `cbor:"smtp_address"`
}

// Validate checks the fields the relay cannot work without.
func (r Request) Validate() error {
	switch {
	case r.App == "":
		return fmt.Errorf("relay request: app is required")
	case r.Email == "":
		return fmt.Errorf("relay request: email is required")
	case r.SMTPAddress == "":
		return fmt.Errorf("relay request: smtp address is required")
	}
	return nil
}

// EncodeRequest serializes a request for the relay's stdin.
func EncodeRequest(r Request) ([]byte, error) {
	data, err := codec.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding relay request: %w", err)
	}
	return data, nil
}

// DecodeRequest parses a request read from stdin and validates it.
func DecodeRequest(data []byte) (Request, error) {
	var r Request
	if err := codec.Unmarshal(data, &r); err != nil {
		return Request{}, fmt.Errorf("decoding relay request: %w", err)
	}
	if len(r.Body) > codec.MaxByteStringLength {
		return Request{}, fmt.Errorf("relay request body is %d bytes, limit %d", len(r.Body), codec.MaxByteStringLength)
	}
	if err := r.Validate(); err != nil {
		return Request{}, err
	}
	return r, nil
}
