// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"encoding/asn1"
	"strconv"
	"strings"
)

// ObjectIdentifier is an ordered sequence of non-negative integers naming a
// position in the MIB tree. Treat values as immutable once constructed;
// callers must not mutate a slice obtained from an ObjectIdentifier.
type ObjectIdentifier []int

// ParseOID parses a dotted-decimal OID string such as "1.3.6.1.2.1.1.1.0".
// A leading dot is tolerated, matching the teacher family's oidToString
// convention of rendering OIDs with a leading separator.
func ParseOID(s string) (ObjectIdentifier, error) {
	s = strings.TrimPrefix(s, ".")
	if s == "" {
		return ObjectIdentifier{}, nil
	}
	parts := strings.Split(s, ".")
	oid := make(ObjectIdentifier, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, &EncodingError{Op: "ParseOID", Reason: "invalid arc " + strconv.Quote(p)}
		}
		oid[i] = n
	}
	return oid, nil
}

// MustParseOID is ParseOID but panics on malformed input. Intended for
// literal OIDs known at compile time.
func MustParseOID(s string) ObjectIdentifier {
	oid, err := ParseOID(s)
	if err != nil {
		panic(err)
	}
	return oid
}

// String renders the OID in dotted-decimal form with a leading dot, the
// same shape produced by the teacher family's oidToString helper.
func (o ObjectIdentifier) String() string {
	var b strings.Builder
	for _, arc := range o {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(arc))
	}
	return b.String()
}

// Len returns the number of arcs (node count) in the OID.
func (o ObjectIdentifier) Len() int {
	return len(o)
}

// Clone returns an independent copy of the OID.
func (o ObjectIdentifier) Clone() ObjectIdentifier {
	out := make(ObjectIdentifier, len(o))
	copy(out, o)
	return out
}

// Equal reports whether o and other name the same node.
func (o ObjectIdentifier) Equal(other ObjectIdentifier) bool {
	if len(o) != len(other) {
		return false
	}
	for i := range o {
		if o[i] != other[i] {
			return false
		}
	}
	return true
}

// Less reports whether o sorts lexicographically before other, comparing
// arc by arc and treating a shorter OID as less than a longer one that
// shares its prefix.
func (o ObjectIdentifier) Less(other ObjectIdentifier) bool {
	n := len(o)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		if o[i] != other[i] {
			return o[i] < other[i]
		}
	}
	return len(o) < len(other)
}

// Contains reports whether o is a strict prefix of other: every arc of o
// matches the corresponding arc of other, other is at least as long, and
// the two are not equal.
func (o ObjectIdentifier) Contains(other ObjectIdentifier) bool {
	if len(other) <= len(o) {
		return false
	}
	for i := range o {
		if o[i] != other[i] {
			return false
		}
	}
	return true
}

// asn1OID converts to the representation github.com/geoffgarside/ber and
// encoding/asn1 operate on.
func (o ObjectIdentifier) asn1OID() asn1.ObjectIdentifier {
	return asn1.ObjectIdentifier(o)
}

func oidFromAsn1(a asn1.ObjectIdentifier) ObjectIdentifier {
	return ObjectIdentifier(a)
}
