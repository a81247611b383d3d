// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

// Package snmpcore implements the message-processing and security pipeline
// of an SNMP client: version-agnostic get/getnext/set/bulk operations, the
// SNMPv3 User-based Security Model (authentication and privacy), and the
// walk/table iterators that traverse a MIB subtree in the face of
// device quirks (non-increasing OIDs, truncated bulk responses, premature
// end-of-MIB).
//
// The UDP transport is pluggable and the cryptographic primitives backing
// USM come from the standard library; the BER codec for SNMP values and
// PDUs is implemented in this package. This package wires them into a
// coherent client.
package snmpcore
