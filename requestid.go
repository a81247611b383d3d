// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"crypto/rand"
	"encoding/binary"
	"sync/atomic"
)

// requestIDCounter is the process-wide, randomly-seeded 31-bit monotonic
// counter backing every PDU's RequestID (spec.md §3, invariant: request IDs
// are unique for the lifetime of an in-flight request so responses
// correlate unambiguously). Seeding from crypto/rand instead of starting at
// zero means two client processes started back to back don't hand out the
// same early IDs to the same agent.
var requestIDCounter uint32

func init() {
	var seed [4]byte
	if _, err := rand.Read(seed[:]); err == nil {
		requestIDCounter = binary.BigEndian.Uint32(seed[:]) & 0x7FFFFFFF
	}
}

// nextRequestID returns the next request ID, wrapping within the 31-bit
// non-negative range a v1/v2c/v3 INTEGER request-id field allows.
func nextRequestID() int32 {
	v := atomic.AddUint32(&requestIDCounter, 1) & 0x7FFFFFFF
	return int32(v)
}
