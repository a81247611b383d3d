// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import "fmt"

// Tag identifies the wire representation of an SNMP value: the universal
// ASN.1 tags plus the SNMP application-class and context-class tags listed
// in spec.md §4.1.
type Tag byte

// Universal ASN.1 tags used by SNMP values.
const (
	TagInteger          Tag = 0x02
	TagOctetString      Tag = 0x04
	TagNull             Tag = 0x05
	TagObjectIdentifier Tag = 0x06
	TagSequence         Tag = 0x30
)

// SNMP application-class tags (spec.md §4.1).
const (
	TagIPAddress  Tag = 0x40
	TagCounter32  Tag = 0x41
	TagGauge32    Tag = 0x42 // a.k.a. Unsigned32
	TagTimeTicks  Tag = 0x43
	TagOpaque     Tag = 0x44
	TagCounter64  Tag = 0x46
)

// SNMP context-class exception markers. These appear only in responses.
const (
	TagNoSuchObject   Tag = 0x80
	TagNoSuchInstance Tag = 0x81
	TagEndOfMibView   Tag = 0x82
)

// PDU tags (spec.md §4.1), context-class constructed.
const (
	TagGetRequest      Tag = 0xA0
	TagGetNextRequest  Tag = 0xA1
	TagResponse        Tag = 0xA2
	TagSetRequest      Tag = 0xA3
	TagGetBulkRequest  Tag = 0xA5
	TagInformRequest   Tag = 0xA6
	TagTrap            Tag = 0xA7
	TagReport          Tag = 0xA8
)

// Value is a tagged SNMP data item: one of the concrete scalar types below
// or one of the exceptional markers NoSuchObject/NoSuchInstance/
// EndOfMibView. Exceptional markers are only ever produced by decoding a
// response; the client never constructs one to send.
type Value interface {
	// Tag returns the wire tag this value encodes as.
	Tag() Tag
	// String renders the value for logging/debugging.
	String() string

	isSnmpValue()
}

// Integer is the SNMP/ASN.1 INTEGER type, used for plain integers and for
// v1/v2c error-status & error-index fields.
type Integer int64

func (Integer) Tag() Tag        { return TagInteger }
func (v Integer) String() string { return fmt.Sprintf("%d", int64(v)) }
func (Integer) isSnmpValue()    {}

// OctetString is an arbitrary byte string.
type OctetString []byte

func (OctetString) Tag() Tag          { return TagOctetString }
func (v OctetString) String() string   { return fmt.Sprintf("%q", []byte(v)) }
func (OctetString) isSnmpValue()      {}

// Null represents the ASN.1 NULL value, used as the placeholder value of a
// varbind in an outgoing get/getnext/bulk request.
type Null struct{}

func (Null) Tag() Tag        { return TagNull }
func (Null) String() string  { return "Null" }
func (Null) isSnmpValue()    {}

// OID wraps an ObjectIdentifier so it can be carried as a varbind Value
// (e.g. the result of a get against a column that itself holds an OID, or
// sysObjectID).
type OID struct{ ObjectIdentifier }

func (OID) Tag() Tag          { return TagObjectIdentifier }
func (v OID) String() string  { return v.ObjectIdentifier.String() }
func (OID) isSnmpValue()      {}

// IPAddress is a 4-octet IPv4 address carried with application tag 0x40.
type IPAddress [4]byte

func (IPAddress) Tag() Tag { return TagIPAddress }
func (v IPAddress) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v[0], v[1], v[2], v[3])
}
func (IPAddress) isSnmpValue() {}

// Counter32 is a monotonically increasing 32-bit wrapping counter.
type Counter32 uint32

func (Counter32) Tag() Tag         { return TagCounter32 }
func (v Counter32) String() string { return fmt.Sprintf("%d", uint32(v)) }
func (Counter32) isSnmpValue()     {}

// Gauge32 is a 32-bit value that may increase or decrease (a.k.a. Unsigned32).
type Gauge32 uint32

func (Gauge32) Tag() Tag         { return TagGauge32 }
func (v Gauge32) String() string { return fmt.Sprintf("%d", uint32(v)) }
func (Gauge32) isSnmpValue()     {}

// TimeTicks is a 32-bit count of hundredths of a second since some epoch.
type TimeTicks uint32

func (TimeTicks) Tag() Tag         { return TagTimeTicks }
func (v TimeTicks) String() string { return fmt.Sprintf("%d", uint32(v)) }
func (TimeTicks) isSnmpValue()     {}

// Opaque carries an arbitrarily-encoded octet string, conventionally a
// BER-encoded value of a type this library doesn't otherwise model.
type Opaque []byte

func (Opaque) Tag() Tag          { return TagOpaque }
func (v Opaque) String() string   { return fmt.Sprintf("opaque(%d bytes)", len(v)) }
func (Opaque) isSnmpValue()      {}

// Counter64 is a monotonically increasing 64-bit wrapping counter (SMIv2).
type Counter64 uint64

func (Counter64) Tag() Tag         { return TagCounter64 }
func (v Counter64) String() string { return fmt.Sprintf("%d", uint64(v)) }
func (Counter64) isSnmpValue()     {}

// NoSuchObject is the exceptional marker returned when the requested OID
// does not exist in the agent's MIB at all.
type NoSuchObject struct{}

func (NoSuchObject) Tag() Tag       { return TagNoSuchObject }
func (NoSuchObject) String() string { return "NoSuchObject" }
func (NoSuchObject) isSnmpValue()   {}

// NoSuchInstance is the exceptional marker returned when the OID names a
// known object but no instance of it exists.
type NoSuchInstance struct{}

func (NoSuchInstance) Tag() Tag       { return TagNoSuchInstance }
func (NoSuchInstance) String() string { return "NoSuchInstance" }
func (NoSuchInstance) isSnmpValue()   {}

// EndOfMibView is the sentinel value returned by getnext/bulk past the
// last OID in the agent's MIB view.
type EndOfMibView struct{}

func (EndOfMibView) Tag() Tag       { return TagEndOfMibView }
func (EndOfMibView) String() string { return "EndOfMibView" }
func (EndOfMibView) isSnmpValue()   {}

// IsException reports whether v is one of the three exceptional markers
// that only ever appear in a response, never a request.
func IsException(v Value) bool {
	switch v.(type) {
	case NoSuchObject, NoSuchInstance, EndOfMibView:
		return true
	default:
		return false
	}
}
