// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

// USM security-parameters wire shape (RFC 3414 §2.4), grounded on
// sipsolutions-gosnmp/v3.go's marshalV3UsmSecurityParameters/
// unmarshalUsmSecurityParameters. UsmSecurityParameters itself is carried
// inside a v3 Message as an opaque OCTET STRING whose content is in turn a
// SEQUENCE of four OCTET STRINGs and two INTEGERs; it gets its own
// hand-rolled codec here rather than going through github.com/geoffgarside/ber
// because authParams must be locatable and overwritable in place after the
// fact (see patchUsmAuthParams/zeroUsmAuthParams), which a reflection-driven
// marshaller doesn't give a convenient hook for.
type usmSecurityParameters struct {
	AuthoritativeEngineID []byte
	EngineBoots           uint32
	EngineTime            uint32
	Username              []byte
	AuthParams            []byte // always 0 or 12 bytes
	PrivacyParameters     []byte // always 0 or 8 bytes
}

func encodeUsmSecurityParameters(p usmSecurityParameters) ([]byte, error) {
	authParams := p.AuthParams
	if authParams == nil {
		authParams = make([]byte, 12)
	}
	content := encodeTLV(TagOctetString, p.AuthoritativeEngineID)
	content = append(content, encodeTLV(TagInteger, encodeSignedInt(int64(p.EngineBoots)))...)
	content = append(content, encodeTLV(TagInteger, encodeSignedInt(int64(p.EngineTime)))...)
	content = append(content, encodeTLV(TagOctetString, p.Username)...)
	content = append(content, encodeTLV(TagOctetString, authParams)...)
	content = append(content, encodeTLV(TagOctetString, p.PrivacyParameters)...)
	return encodeTLV(TagSequence, content), nil
}

func decodeUsmSecurityParameters(data []byte) (usmSecurityParameters, error) {
	tag, content, rest, err := decodeTLV(data)
	if err != nil || tag != TagSequence || len(rest) != 0 {
		return usmSecurityParameters{}, &DecodingError{Op: "decodeUsmSecurityParameters", Reason: "expected SEQUENCE"}
	}
	var p usmSecurityParameters
	var fTag Tag
	var fContent []byte

	fTag, fContent, content, err = decodeTLV(content)
	if err != nil || fTag != TagOctetString {
		return usmSecurityParameters{}, &DecodingError{Op: "decodeUsmSecurityParameters", Reason: "missing authoritativeEngineID"}
	}
	p.AuthoritativeEngineID = fContent

	fTag, fContent, content, err = decodeTLV(content)
	if err != nil || fTag != TagInteger {
		return usmSecurityParameters{}, &DecodingError{Op: "decodeUsmSecurityParameters", Reason: "missing engineBoots"}
	}
	p.EngineBoots = uint32(decodeSignedInt(fContent))

	fTag, fContent, content, err = decodeTLV(content)
	if err != nil || fTag != TagInteger {
		return usmSecurityParameters{}, &DecodingError{Op: "decodeUsmSecurityParameters", Reason: "missing engineTime"}
	}
	p.EngineTime = uint32(decodeSignedInt(fContent))

	fTag, fContent, content, err = decodeTLV(content)
	if err != nil || fTag != TagOctetString {
		return usmSecurityParameters{}, &DecodingError{Op: "decodeUsmSecurityParameters", Reason: "missing userName"}
	}
	p.Username = fContent

	fTag, fContent, content, err = decodeTLV(content)
	if err != nil || fTag != TagOctetString {
		return usmSecurityParameters{}, &DecodingError{Op: "decodeUsmSecurityParameters", Reason: "missing authenticationParameters"}
	}
	p.AuthParams = fContent

	fTag, fContent, content, err = decodeTLV(content)
	if err != nil || fTag != TagOctetString {
		return usmSecurityParameters{}, &DecodingError{Op: "decodeUsmSecurityParameters", Reason: "missing privacyParameters"}
	}
	p.PrivacyParameters = fContent

	if len(content) != 0 {
		return usmSecurityParameters{}, &DecodingError{Op: "decodeUsmSecurityParameters", Reason: "trailing bytes in usmSecurityParameters"}
	}
	return p, nil
}

// patchUsmAuthParams overwrites the 12-octet authParams field inside the
// securityParameters OCTET STRING of an already-encoded v3 message with
// digest, returning the patched message. It relies on encodeMessage having
// placed securityParameters as the third element of the outer SEQUENCE and
// encodeUsmSecurityParameters having zero-filled a 12-byte authParams
// placeholder at encode time, so the slot exists at a fixed, locatable
// offset and patching never changes any length prefix.
func patchUsmAuthParams(wireBytes []byte, digest []byte) ([]byte, error) {
	offset, err := locateUsmAuthParams(wireBytes)
	if err != nil {
		return nil, err
	}
	if len(digest) != 12 {
		return nil, &EncodingError{Op: "patchUsmAuthParams", Reason: "digest must be 12 bytes"}
	}
	out := append([]byte(nil), wireBytes...)
	copy(out[offset:offset+12], digest)
	return out, nil
}

// zeroUsmAuthParams returns a copy of wireBytes with the authParams slot
// zero-filled, the exact bytes that were originally signed (authParams is
// always zero at signing time).
func zeroUsmAuthParams(wireBytes []byte) ([]byte, error) {
	offset, err := locateUsmAuthParams(wireBytes)
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), wireBytes...)
	for i := offset; i < offset+12; i++ {
		out[i] = 0
	}
	return out, nil
}

// contentOffset decodes one TLV off data (itself located at absoluteStart
// within the top-level buffer) and returns the absolute offset of its
// content plus the absolute offset of whatever follows it.
func contentOffset(data []byte, absoluteStart int) (tag Tag, content []byte, contentAt int, restAt int, err error) {
	tag, content, rest, err := decodeTLV(data)
	if err != nil {
		return 0, nil, 0, 0, err
	}
	headerLen := len(data) - len(content) - len(rest)
	return tag, content, absoluteStart + headerLen, absoluteStart + headerLen + len(content), nil
}

// locateUsmAuthParams walks the outer message and securityParameters
// structure to find the byte offset (within wireBytes) of the 12-byte
// authParams content.
func locateUsmAuthParams(wireBytes []byte) (int, error) {
	tag, outerContent, outerAt, _, err := contentOffset(wireBytes, 0)
	if err != nil || tag != TagSequence {
		return 0, &DecodingError{Op: "locateUsmAuthParams", Reason: "expected outer SEQUENCE"}
	}

	// version
	_, _, _, afterVersionAt, err := contentOffset(outerContent, outerAt)
	if err != nil {
		return 0, &DecodingError{Op: "locateUsmAuthParams", Reason: "missing version"}
	}
	globalData := wireBytes[afterVersionAt:]
	_, _, _, afterGlobalAt, err := contentOffset(globalData, afterVersionAt)
	if err != nil {
		return 0, &DecodingError{Op: "locateUsmAuthParams", Reason: "missing globalData"}
	}
	secField := wireBytes[afterGlobalAt:]
	secTag, secContent, secContentAt, _, err := contentOffset(secField, afterGlobalAt)
	if err != nil || secTag != TagOctetString {
		return 0, &DecodingError{Op: "locateUsmAuthParams", Reason: "missing securityParameters"}
	}

	// secContent is itself SEQUENCE{engineID, boots, time, username, authParams, privParams}
	innerTag, innerContent, innerAt, _, err := contentOffset(secContent, secContentAt)
	if err != nil || innerTag != TagSequence {
		return 0, &DecodingError{Op: "locateUsmAuthParams", Reason: "malformed securityParameters"}
	}
	cursor, cursorAt := innerContent, innerAt
	for i := 0; i < 4; i++ {
		_, _, _, nextAt, err := contentOffset(cursor, cursorAt)
		if err != nil {
			return 0, &DecodingError{Op: "locateUsmAuthParams", Reason: "malformed securityParameters field"}
		}
		cursor, cursorAt = wireBytes[nextAt:], nextAt
	}
	authTag, authContent, authContentAt, _, err := contentOffset(cursor, cursorAt)
	if err != nil || authTag != TagOctetString || len(authContent) != 12 {
		return 0, &DecodingError{Op: "locateUsmAuthParams", Reason: "authenticationParameters is not a 12-byte OCTET STRING"}
	}
	return authContentAt, nil
}
