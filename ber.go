// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

// Wire codec adapter (spec.md C1). This file supplies the SNMP-specific
// tagged-value encode/decode that github.com/geoffgarside/ber's generic BER
// unmarshaler doesn't know about (application-class Counter32/IPAddress/
// Gauge32/TimeTicks/Opaque/Counter64, and the context-class exception
// markers and PDU tags) on top of the generic TLV primitives below, which
// the teacher family hand-rolls the same way (sipsolutions-gosnmp/v3.go
// calls marshalLength/parseLength/marshalUvarInt without redefining BER
// from scratch each time; this file is that helper layer).
//
// Only the v1/v2c outer envelope (message.go) uses
// github.com/geoffgarside/ber, via asn1.RawValue staging in the style of
// damianoneill-net/v2/snmp: the envelope is unmarshalled with the PDU left
// as a raw value, and the raw PDU bytes are then parsed, tag included, by
// PDUFromBytes. The v3 message, the PDU and its varbinds (OIDs included)
// are encoded and decoded with the helpers in this file.

import (
	"encoding/binary"
)

// encodeLength produces a definite-length BER length octet(s) for the
// given content length.
func encodeLength(length int) []byte {
	if length < 0 {
		panic("snmpcore: negative BER length")
	}
	if length < 0x80 {
		return []byte{byte(length)}
	}
	var content []byte
	for n := length; n > 0; n >>= 8 {
		content = append([]byte{byte(n & 0xFF)}, content...)
	}
	return append([]byte{0x80 | byte(len(content))}, content...)
}

// decodeLength parses a definite-length BER length field, returning the
// decoded length and the number of bytes it occupied.
func decodeLength(data []byte) (length int, consumed int, err error) {
	if len(data) == 0 {
		return 0, 0, &DecodingError{Op: "decodeLength", Reason: "empty input"}
	}
	if data[0] < 0x80 {
		return int(data[0]), 1, nil
	}
	numOctets := int(data[0] & 0x7F)
	if numOctets == 0 {
		return 0, 0, &DecodingError{Op: "decodeLength", Reason: "indefinite length not supported"}
	}
	if len(data) < 1+numOctets {
		return 0, 0, &DecodingError{Op: "decodeLength", Reason: "truncated length field"}
	}
	for i := 0; i < numOctets; i++ {
		length = length<<8 | int(data[1+i])
	}
	return length, 1 + numOctets, nil
}

// encodeTLV wraps content in a tag+length+content envelope.
func encodeTLV(tag Tag, content []byte) []byte {
	out := make([]byte, 0, 2+len(content))
	out = append(out, byte(tag))
	out = append(out, encodeLength(len(content))...)
	out = append(out, content...)
	return out
}

// decodeTLV splits the next tag+length+content triple off data, returning
// the remainder.
func decodeTLV(data []byte) (tag Tag, content []byte, rest []byte, err error) {
	if len(data) == 0 {
		return 0, nil, nil, &DecodingError{Op: "decodeTLV", Reason: "empty input"}
	}
	tag = Tag(data[0])
	length, consumed, err := decodeLength(data[1:])
	if err != nil {
		return 0, nil, nil, err
	}
	start := 1 + consumed
	if len(data) < start+length {
		return 0, nil, nil, &DecodingError{Op: "decodeTLV", Reason: "truncated content"}
	}
	return tag, data[start : start+length], data[start+length:], nil
}

// encodeSignedInt produces the minimal two's-complement big-endian
// representation BER requires for INTEGER content.
func encodeSignedInt(v int64) []byte {
	if v == 0 {
		return []byte{0x00}
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	start := 0
	for start < 7 {
		b := buf[start]
		next := buf[start+1]
		// Strip redundant leading 0x00 (positive) or 0xFF (negative)
		// octets, but keep one octet so the sign bit is unambiguous.
		if (b == 0x00 && next&0x80 == 0) || (b == 0xFF && next&0x80 != 0) {
			start++
			continue
		}
		break
	}
	return buf[start:]
}

func decodeSignedInt(content []byte) int64 {
	if len(content) == 0 {
		return 0
	}
	var v int64
	if content[0]&0x80 != 0 {
		v = -1
	}
	for _, b := range content {
		v = v<<8 | int64(b)
	}
	return v
}

// encodeUnsignedInt produces the minimal BER content for a non-negative
// value whose tag (Counter32/Gauge32/TimeTicks/Counter64) is always
// interpreted as unsigned; a leading 0x00 pad is still required whenever
// the high bit of the first significant octet is set, so the value is not
// misread as negative by a peer that treats the content as INTEGER-shaped.
func encodeUnsignedInt(v uint64) []byte {
	if v == 0 {
		return []byte{0x00}
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	start := 0
	for start < 7 && buf[start] == 0x00 {
		start++
	}
	content := buf[start:]
	if content[0]&0x80 != 0 {
		content = append([]byte{0x00}, content...)
	}
	return content
}

func decodeUnsignedInt(content []byte) uint64 {
	var v uint64
	for _, b := range content {
		v = v<<8 | uint64(b)
	}
	return v
}

// encodeOIDArcs renders the X.690 §8.19 encoding of an OID's arcs: the
// first two arcs collapse into one octet (40*arc0 + arc1), every
// subsequent arc uses base-128 continuation-bit encoding.
func encodeOIDArcs(oid ObjectIdentifier) ([]byte, error) {
	if len(oid) < 2 {
		return nil, &EncodingError{Op: "encodeOIDArcs", Reason: "OID needs at least two arcs"}
	}
	out := []byte{byte(40*oid[0] + oid[1])}
	for _, arc := range oid[2:] {
		out = append(out, encodeBase128(uint32(arc))...)
	}
	return out, nil
}

func encodeBase128(v uint32) []byte {
	if v == 0 {
		return []byte{0x00}
	}
	var groups []byte
	for n := v; n > 0; n >>= 7 {
		groups = append([]byte{byte(n & 0x7F)}, groups...)
	}
	for i := 0; i < len(groups)-1; i++ {
		groups[i] |= 0x80
	}
	return groups
}

func decodeOIDArcs(content []byte) (ObjectIdentifier, error) {
	if len(content) == 0 {
		return nil, &DecodingError{Op: "decodeOIDArcs", Reason: "empty OID content"}
	}
	oid := ObjectIdentifier{int(content[0]) / 40, int(content[0]) % 40}
	var acc uint32
	have := false
	for _, b := range content[1:] {
		acc = acc<<7 | uint32(b&0x7F)
		have = true
		if b&0x80 == 0 {
			oid = append(oid, int(acc))
			acc = 0
			have = false
		}
	}
	if have {
		return nil, &DecodingError{Op: "decodeOIDArcs", Reason: "truncated base-128 arc"}
	}
	return oid, nil
}

// encodeValue renders a Value as a full tag+length+content TLV, the
// SNMP-specific half of the codec adapter that a generic ASN.1 library
// (including github.com/geoffgarside/ber) has no built-in knowledge of.
func encodeValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Integer:
		return encodeTLV(TagInteger, encodeSignedInt(int64(val))), nil
	case OctetString:
		return encodeTLV(TagOctetString, []byte(val)), nil
	case Null:
		return encodeTLV(TagNull, nil), nil
	case OID:
		content, err := encodeOIDArcs(val.ObjectIdentifier)
		if err != nil {
			return nil, wrap(err, "encodeValue(OID)")
		}
		return encodeTLV(TagObjectIdentifier, content), nil
	case IPAddress:
		return encodeTLV(TagIPAddress, val[:]), nil
	case Counter32:
		return encodeTLV(TagCounter32, encodeUnsignedInt(uint64(val))), nil
	case Gauge32:
		return encodeTLV(TagGauge32, encodeUnsignedInt(uint64(val))), nil
	case TimeTicks:
		return encodeTLV(TagTimeTicks, encodeUnsignedInt(uint64(val))), nil
	case Opaque:
		return encodeTLV(TagOpaque, []byte(val)), nil
	case Counter64:
		return encodeTLV(TagCounter64, encodeUnsignedInt(uint64(val))), nil
	case NoSuchObject:
		return encodeTLV(TagNoSuchObject, nil), nil
	case NoSuchInstance:
		return encodeTLV(TagNoSuchInstance, nil), nil
	case EndOfMibView:
		return encodeTLV(TagEndOfMibView, nil), nil
	default:
		return nil, &TypeError{Reason: "value has no wire encoding"}
	}
}

// decodeValue parses a tag+content pair produced by decodeTLV back into a
// typed Value.
func decodeValue(tag Tag, content []byte) (Value, error) {
	switch tag {
	case TagInteger:
		return Integer(decodeSignedInt(content)), nil
	case TagOctetString:
		return OctetString(append([]byte(nil), content...)), nil
	case TagNull:
		return Null{}, nil
	case TagObjectIdentifier:
		oid, err := decodeOIDArcs(content)
		if err != nil {
			return nil, wrap(err, "decodeValue(OID)")
		}
		return OID{oid}, nil
	case TagIPAddress:
		if len(content) != 4 {
			return nil, &DecodingError{Op: "decodeValue", Reason: "IpAddress content must be 4 octets"}
		}
		var ip IPAddress
		copy(ip[:], content)
		return ip, nil
	case TagCounter32:
		return Counter32(decodeUnsignedInt(content)), nil
	case TagGauge32:
		return Gauge32(decodeUnsignedInt(content)), nil
	case TagTimeTicks:
		return TimeTicks(decodeUnsignedInt(content)), nil
	case TagOpaque:
		return Opaque(append([]byte(nil), content...)), nil
	case TagCounter64:
		return Counter64(decodeUnsignedInt(content)), nil
	case TagNoSuchObject:
		return NoSuchObject{}, nil
	case TagNoSuchInstance:
		return NoSuchInstance{}, nil
	case TagEndOfMibView:
		return EndOfMibView{}, nil
	default:
		return nil, &DecodingError{Op: "decodeValue", Reason: "unrecognised tag"}
	}
}
