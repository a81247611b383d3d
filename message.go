// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"encoding/asn1"

	"github.com/geoffgarside/ber"
)

// SnmpVersion is the wire value of the outer message's version field.
type SnmpVersion int

const (
	V1  SnmpVersion = 0
	V2c SnmpVersion = 1
	V3  SnmpVersion = 3
)

// V3Flags are the per-message security flags carried in HeaderData.
// Invariant (spec.md §3): Priv implies Auth.
type V3Flags struct {
	Auth       bool
	Priv       bool
	Reportable bool
}

func (f V3Flags) valid() bool {
	return !f.Priv || f.Auth
}

func (f V3Flags) byte() byte {
	var b byte
	if f.Auth {
		b |= 0x1
	}
	if f.Priv {
		b |= 0x2
	}
	if f.Reportable {
		b |= 0x4
	}
	return b
}

func v3FlagsFromByte(b byte) V3Flags {
	return V3Flags{Auth: b&0x1 != 0, Priv: b&0x2 != 0, Reportable: b&0x4 != 0}
}

// HeaderData is the v3 globalData field (spec.md §3).
type HeaderData struct {
	MsgID         int32
	MsgMaxSize    uint32
	Flags         V3Flags
	SecurityModel int
}

// ScopedPDU pairs a PDU with its v3 context (spec.md §3).
type ScopedPDU struct {
	ContextEngineID []byte
	ContextName     []byte
	PDU             PDU
}

// Message is a v3 SNMP message. When privacy is in effect the scoped PDU is
// carried opaque (EncryptedScopedPDU set, ScopedPDU zero); otherwise
// ScopedPDU is populated and EncryptedScopedPDU is nil.
type Message struct {
	Version             SnmpVersion
	GlobalData          HeaderData
	SecurityParameters  []byte
	ScopedPDU           ScopedPDU
	EncryptedScopedPDU  []byte
}

func (m Message) isEncrypted() bool { return m.EncryptedScopedPDU != nil }

func encodeHeaderData(h HeaderData) []byte {
	content := encodeTLV(TagInteger, encodeSignedInt(int64(h.MsgID)))
	content = append(content, encodeTLV(TagInteger, encodeSignedInt(int64(h.MsgMaxSize)))...)
	content = append(content, encodeTLV(TagOctetString, []byte{h.Flags.byte()})...)
	content = append(content, encodeTLV(TagInteger, encodeSignedInt(int64(h.SecurityModel)))...)
	return encodeTLV(TagSequence, content)
}

func decodeHeaderData(data []byte) (HeaderData, []byte, error) {
	tag, content, rest, err := decodeTLV(data)
	if err != nil || tag != TagSequence {
		return HeaderData{}, nil, &DecodingError{Op: "decodeHeaderData", Reason: "expected SEQUENCE"}
	}
	idTag, idContent, content, err := decodeTLV(content)
	if err != nil || idTag != TagInteger {
		return HeaderData{}, nil, &DecodingError{Op: "decodeHeaderData", Reason: "missing msgID"}
	}
	sizeTag, sizeContent, content, err := decodeTLV(content)
	if err != nil || sizeTag != TagInteger {
		return HeaderData{}, nil, &DecodingError{Op: "decodeHeaderData", Reason: "missing msgMaxSize"}
	}
	flagsTag, flagsContent, content, err := decodeTLV(content)
	if err != nil || flagsTag != TagOctetString || len(flagsContent) != 1 {
		return HeaderData{}, nil, &DecodingError{Op: "decodeHeaderData", Reason: "malformed msgFlags"}
	}
	modelTag, modelContent, content, err := decodeTLV(content)
	if err != nil || modelTag != TagInteger {
		return HeaderData{}, nil, &DecodingError{Op: "decodeHeaderData", Reason: "missing msgSecurityModel"}
	}
	if len(content) != 0 {
		return HeaderData{}, nil, &DecodingError{Op: "decodeHeaderData", Reason: "trailing bytes in globalData"}
	}
	h := HeaderData{
		MsgID:         int32(decodeSignedInt(idContent)),
		MsgMaxSize:    uint32(decodeSignedInt(sizeContent)),
		Flags:         v3FlagsFromByte(flagsContent[0]),
		SecurityModel: int(decodeSignedInt(modelContent)),
	}
	return h, rest, nil
}

func encodeScopedPDU(s ScopedPDU) ([]byte, error) {
	pduBytes, err := s.PDU.ToBytes()
	if err != nil {
		return nil, wrap(err, "encodeScopedPDU")
	}
	content := encodeTLV(TagOctetString, s.ContextEngineID)
	content = append(content, encodeTLV(TagOctetString, s.ContextName)...)
	content = append(content, pduBytes...)
	return encodeTLV(TagSequence, content), nil
}

func decodeScopedPDU(data []byte) (ScopedPDU, error) {
	tag, content, rest, err := decodeTLV(data)
	if err != nil || tag != TagSequence || len(rest) != 0 {
		return ScopedPDU{}, &DecodingError{Op: "decodeScopedPDU", Reason: "expected SEQUENCE"}
	}
	engTag, engContent, content, err := decodeTLV(content)
	if err != nil || engTag != TagOctetString {
		return ScopedPDU{}, &DecodingError{Op: "decodeScopedPDU", Reason: "missing contextEngineID"}
	}
	nameTag, nameContent, content, err := decodeTLV(content)
	if err != nil || nameTag != TagOctetString {
		return ScopedPDU{}, &DecodingError{Op: "decodeScopedPDU", Reason: "missing contextName"}
	}
	pdu, err := PDUFromBytes(content)
	if err != nil {
		return ScopedPDU{}, wrap(err, "decodeScopedPDU")
	}
	return ScopedPDU{ContextEngineID: engContent, ContextName: nameContent, PDU: pdu}, nil
}

// encodeMessage renders the full v3 message to wire bytes.
func encodeMessage(m Message) ([]byte, error) {
	if !m.GlobalData.Flags.valid() {
		return nil, &UsmError{Kind: UnsupportedSecurityLevel, Cause: &TypeError{Reason: "priv requires auth"}}
	}
	var scopedBytes []byte
	if m.isEncrypted() {
		scopedBytes = encodeTLV(TagOctetString, m.EncryptedScopedPDU)
	} else {
		b, err := encodeScopedPDU(m.ScopedPDU)
		if err != nil {
			return nil, err
		}
		scopedBytes = b
	}
	content := encodeTLV(TagInteger, encodeSignedInt(int64(m.Version)))
	content = append(content, encodeHeaderData(m.GlobalData)...)
	content = append(content, encodeTLV(TagOctetString, m.SecurityParameters)...)
	content = append(content, scopedBytes...)
	return encodeTLV(TagSequence, content), nil
}

// decodeMessage parses a v3 message from wire bytes.
func decodeMessage(data []byte) (Message, error) {
	tag, content, rest, err := decodeTLV(data)
	if err != nil || tag != TagSequence || len(rest) != 0 {
		return Message{}, &DecodingError{Op: "decodeMessage", Reason: "expected outer SEQUENCE"}
	}
	verTag, verContent, content, err := decodeTLV(content)
	if err != nil || verTag != TagInteger {
		return Message{}, &DecodingError{Op: "decodeMessage", Reason: "missing version"}
	}
	header, content, err := decodeHeaderData(content)
	if err != nil {
		return Message{}, err
	}
	secTag, secContent, content, err := decodeTLV(content)
	if err != nil || secTag != TagOctetString {
		return Message{}, &DecodingError{Op: "decodeMessage", Reason: "missing securityParameters"}
	}
	if len(content) == 0 {
		return Message{}, &DecodingError{Op: "decodeMessage", Reason: "missing scopedPDU"}
	}

	msg := Message{
		Version:            SnmpVersion(decodeSignedInt(verContent)),
		GlobalData:          header,
		SecurityParameters:  secContent,
	}
	switch Tag(content[0]) {
	case TagOctetString:
		scTag, scContent, scRest, err := decodeTLV(content)
		if err != nil || scTag != TagOctetString || len(scRest) != 0 {
			return Message{}, &DecodingError{Op: "decodeMessage", Reason: "malformed encrypted scopedPDU"}
		}
		msg.EncryptedScopedPDU = scContent
	case TagSequence:
		scoped, err := decodeScopedPDU(content)
		if err != nil {
			return Message{}, err
		}
		msg.ScopedPDU = scoped
	default:
		return Message{}, &DecodingError{Op: "decodeMessage", Reason: "scopedPDU is neither SEQUENCE nor OCTET STRING"}
	}
	return msg, nil
}

// v1v2cEnvelope is the outer SEQUENCE{version, community, pdu} shape of a
// v1/v2c message. It is marshalled/unmarshalled with
// github.com/geoffgarside/ber the way damianoneill-net/v2/snmp's
// session.go does: the PDU is staged through asn1.RawValue so its
// non-standard application-class tag (0xA0/0xA1/.../0xA8) survives the
// generic BER round trip untouched, and this package's own tag-aware
// PDUFromBytes/ToBytes take it from there.
type v1v2cEnvelope struct {
	Version   int
	Community []byte
	PDU       asn1.RawValue
}

func encodeV1V2C(version SnmpVersion, community []byte, pdu PDU) ([]byte, error) {
	pduBytes, err := pdu.ToBytes()
	if err != nil {
		return nil, wrap(err, "encodeV1V2C")
	}
	env := v1v2cEnvelope{
		Version:   int(version),
		Community: community,
		PDU:       asn1.RawValue{FullBytes: pduBytes},
	}
	out, err := ber.Marshal(env)
	if err != nil {
		return nil, wrap(err, "encodeV1V2C")
	}
	return out, nil
}

func decodeV1V2C(data []byte) (version SnmpVersion, community []byte, pdu PDU, err error) {
	var env v1v2cEnvelope
	if _, err = ber.Unmarshal(data, &env); err != nil {
		return 0, nil, PDU{}, wrap(err, "decodeV1V2C")
	}
	pdu, err = PDUFromBytes(env.PDU.FullBytes)
	if err != nil {
		return 0, nil, PDU{}, wrap(err, "decodeV1V2C")
	}
	return SnmpVersion(env.Version), env.Community, pdu, nil
}
