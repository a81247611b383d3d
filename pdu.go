// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

// PDU model (spec.md C2). A PDU is represented as a single tagged struct —
// the Kind discriminant says which wire shape applies — rather than a Go
// interface hierarchy, the same shape the teacher family uses (a PDUType
// byte alongside one SnmpPDU/SnmpPacket struct) since Go has no native sum
// types and this is the idiom the whole pack reaches for.
//
// GetBulkRequest reuses the error-status/error-index wire slots for
// non-repeaters/max-repetitions per RFC 3416 §4.2.3; NonRepeaters/
// MaxRepetitions are populated on encode and decode instead of
// ErrorStatus/ErrorIndex when Kind == KindGetBulkRequest.

import "fmt"

// Kind discriminates which PDU shape a PDU value holds.
type Kind Tag

const (
	KindGetRequest     Kind = Kind(TagGetRequest)
	KindGetNextRequest Kind = Kind(TagGetNextRequest)
	KindResponse       Kind = Kind(TagResponse)
	KindSetRequest     Kind = Kind(TagSetRequest)
	KindGetBulkRequest Kind = Kind(TagGetBulkRequest)
	KindInformRequest  Kind = Kind(TagInformRequest)
	KindTrap           Kind = Kind(TagTrap)
	KindReport         Kind = Kind(TagReport)
)

func (k Kind) String() string {
	switch k {
	case KindGetRequest:
		return "GetRequest"
	case KindGetNextRequest:
		return "GetNextRequest"
	case KindResponse:
		return "Response"
	case KindSetRequest:
		return "SetRequest"
	case KindGetBulkRequest:
		return "GetBulkRequest"
	case KindInformRequest:
		return "InformRequest"
	case KindTrap:
		return "Trap"
	case KindReport:
		return "Report"
	default:
		return fmt.Sprintf("Kind(0x%02x)", byte(k))
	}
}

// PDU is the request-ID-carrying payload of every SNMP operation.
// RequestID is a 31-bit non-negative integer (spec.md §3).
type PDU struct {
	Kind       Kind
	RequestID  int32
	VarBinds   []VarBind

	// Meaningful only when Kind == KindResponse or KindReport.
	ErrorStatus ErrorStatus
	ErrorIndex  int

	// Meaningful only when Kind == KindGetBulkRequest.
	NonRepeaters   uint32
	MaxRepetitions uint32
}

// NewGetRequest builds a GetRequest PDU with Null-valued varbinds for the
// given OIDs.
func NewGetRequest(requestID int32, oids []ObjectIdentifier) PDU {
	return PDU{Kind: KindGetRequest, RequestID: requestID, VarBinds: nullVarBinds(oids)}
}

// NewGetNextRequest builds a GetNextRequest PDU.
func NewGetNextRequest(requestID int32, oids []ObjectIdentifier) PDU {
	return PDU{Kind: KindGetNextRequest, RequestID: requestID, VarBinds: nullVarBinds(oids)}
}

// NewSetRequest builds a SetRequest PDU carrying the caller-supplied typed
// values.
func NewSetRequest(requestID int32, varbinds []VarBind) PDU {
	return PDU{Kind: KindSetRequest, RequestID: requestID, VarBinds: append([]VarBind(nil), varbinds...)}
}

// NewGetBulkRequest builds a GetBulkRequest PDU. nonRepeaters is clamped to
// len(oids) per spec.md §4.2; maxRepetitions has no upper bound (the
// response size bound in spec.md §4.7 is enforced by the client, not here).
func NewGetBulkRequest(requestID int32, oids []ObjectIdentifier, nonRepeaters, maxRepetitions uint32) PDU {
	if int(nonRepeaters) > len(oids) {
		nonRepeaters = uint32(len(oids))
	}
	return PDU{
		Kind:           KindGetBulkRequest,
		RequestID:      requestID,
		VarBinds:       nullVarBinds(oids),
		NonRepeaters:   nonRepeaters,
		MaxRepetitions: maxRepetitions,
	}
}

// NewResponse builds a Response PDU echoing requestID.
func NewResponse(requestID int32, status ErrorStatus, errorIndex int, varbinds []VarBind) PDU {
	return PDU{
		Kind:        KindResponse,
		RequestID:   requestID,
		ErrorStatus: status,
		ErrorIndex:  errorIndex,
		VarBinds:    append([]VarBind(nil), varbinds...),
	}
}

func nullVarBinds(oids []ObjectIdentifier) []VarBind {
	vbs := make([]VarBind, len(oids))
	for i, oid := range oids {
		vbs[i] = VarBind{OID: oid, Value: Null{}}
	}
	return vbs
}

// ToBytes renders the PDU as a BER tag+length+content triple. Encode then
// decode is the identity on any PDU this package constructs (spec.md §8
// invariant 1).
func (p PDU) ToBytes() ([]byte, error) {
	slot2, slot3 := int64(p.ErrorStatus), int64(p.ErrorIndex)
	if p.Kind == KindGetBulkRequest {
		slot2, slot3 = int64(p.NonRepeaters), int64(p.MaxRepetitions)
	}

	vbListContent := make([]byte, 0, 32*len(p.VarBinds))
	for _, vb := range p.VarBinds {
		oidContent, err := encodeOIDArcs(vb.OID)
		if err != nil {
			return nil, wrap(err, "PDU.ToBytes")
		}
		valueBytes, err := encodeValue(vb.Value)
		if err != nil {
			return nil, wrap(err, "PDU.ToBytes")
		}
		vbContent := append(encodeTLV(TagObjectIdentifier, oidContent), valueBytes...)
		vbListContent = append(vbListContent, encodeTLV(TagSequence, vbContent)...)
	}

	content := encodeTLV(TagInteger, encodeSignedInt(int64(p.RequestID)))
	content = append(content, encodeTLV(TagInteger, encodeSignedInt(slot2))...)
	content = append(content, encodeTLV(TagInteger, encodeSignedInt(slot3))...)
	content = append(content, encodeTLV(TagSequence, vbListContent)...)

	return encodeTLV(Tag(p.Kind), content), nil
}

// PDUFromBytes parses a PDU previously produced by ToBytes.
func PDUFromBytes(data []byte) (PDU, error) {
	tag, content, rest, err := decodeTLV(data)
	if err != nil {
		return PDU{}, wrap(err, "PDUFromBytes")
	}
	if len(rest) != 0 {
		return PDU{}, &DecodingError{Op: "PDUFromBytes", Reason: "trailing bytes after PDU"}
	}

	reqIDTag, reqIDContent, rest, err := decodeTLV(content)
	if err != nil || reqIDTag != TagInteger {
		return PDU{}, &DecodingError{Op: "PDUFromBytes", Reason: "missing request-id"}
	}
	slot2Tag, slot2Content, rest, err := decodeTLV(rest)
	if err != nil || slot2Tag != TagInteger {
		return PDU{}, &DecodingError{Op: "PDUFromBytes", Reason: "missing error-status/non-repeaters"}
	}
	slot3Tag, slot3Content, rest, err := decodeTLV(rest)
	if err != nil || slot3Tag != TagInteger {
		return PDU{}, &DecodingError{Op: "PDUFromBytes", Reason: "missing error-index/max-repetitions"}
	}
	vbListTag, vbListContent, rest, err := decodeTLV(rest)
	if err != nil || vbListTag != TagSequence {
		return PDU{}, &DecodingError{Op: "PDUFromBytes", Reason: "missing varbind list"}
	}
	if len(rest) != 0 {
		return PDU{}, &DecodingError{Op: "PDUFromBytes", Reason: "trailing bytes after varbind list"}
	}

	var varbinds []VarBind
	for len(vbListContent) > 0 {
		var vbTag Tag
		var vbContent []byte
		vbTag, vbContent, vbListContent, err = decodeTLV(vbListContent)
		if err != nil || vbTag != TagSequence {
			return PDU{}, &DecodingError{Op: "PDUFromBytes", Reason: "malformed varbind"}
		}
		oidTag, oidContent, valueBytes, err := decodeTLV(vbContent)
		if err != nil || oidTag != TagObjectIdentifier {
			return PDU{}, &DecodingError{Op: "PDUFromBytes", Reason: "malformed varbind OID"}
		}
		oid, err := decodeOIDArcs(oidContent)
		if err != nil {
			return PDU{}, wrap(err, "PDUFromBytes")
		}
		valTag, valContent, trailing, err := decodeTLV(valueBytes)
		if err != nil {
			return PDU{}, &DecodingError{Op: "PDUFromBytes", Reason: "malformed varbind value"}
		}
		if len(trailing) != 0 {
			return PDU{}, &DecodingError{Op: "PDUFromBytes", Reason: "trailing bytes after varbind value"}
		}
		value, err := decodeValue(valTag, valContent)
		if err != nil {
			return PDU{}, wrap(err, "PDUFromBytes")
		}
		varbinds = append(varbinds, VarBind{OID: oid, Value: value})
	}

	pdu := PDU{
		Kind:      Kind(tag),
		RequestID: int32(decodeSignedInt(reqIDContent)),
		VarBinds:  varbinds,
	}
	if pdu.Kind == KindGetBulkRequest {
		pdu.NonRepeaters = uint32(decodeSignedInt(slot2Content))
		pdu.MaxRepetitions = uint32(decodeSignedInt(slot3Content))
	} else {
		pdu.ErrorStatus = ErrorStatus(decodeSignedInt(slot2Content))
		pdu.ErrorIndex = int(decodeSignedInt(slot3Content))
	}
	return pdu, nil
}
