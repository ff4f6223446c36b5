// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration shared by every lockdown
// process boundary.
//
// The master never delivers a crash notification itself. It spawns a
// relay process and writes the request to the relay's stdin as a
// single CBOR item; the relay decodes it before it drops privileges.
// Both sides must agree on the encoding, so the modes live here rather
// than in either caller.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// decoder rejects trailing data after the first item and caps byte
// string length, since the relay decodes its request before it is
// sandboxed.
//
// Types that only cross a lockdown process boundary carry `cbor` struct
// tags. Types that are also printed by CLIs carry `json` tags, which
// fxamacker/cbor reads as a fallback.
package codec
