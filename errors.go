// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"fmt"

	"github.com/pkg/errors"
)

// TimeoutError reports that the transport exhausted its retry budget
// without a correlated response.
type TimeoutError struct {
	Endpoint string
	Attempts int
	Cause    error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("snmpcore: timeout after %d attempt(s) to %s: %v", e.Attempts, e.Endpoint, e.Cause)
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

// EncodingError reports malformed input to the wire codec while building a
// request.
type EncodingError struct {
	Op     string
	Reason string
	Cause  error
}

func (e *EncodingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("snmpcore: encoding error in %s: %s: %v", e.Op, e.Reason, e.Cause)
	}
	return fmt.Sprintf("snmpcore: encoding error in %s: %s", e.Op, e.Reason)
}

func (e *EncodingError) Unwrap() error { return e.Cause }

// DecodingError reports malformed wire bytes received from a peer.
type DecodingError struct {
	Op     string
	Reason string
	Cause  error
}

func (e *DecodingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("snmpcore: decoding error in %s: %s: %v", e.Op, e.Reason, e.Cause)
	}
	return fmt.Sprintf("snmpcore: decoding error in %s: %s", e.Op, e.Reason)
}

func (e *DecodingError) Unwrap() error { return e.Cause }

// ErrorStatus mirrors the SNMP error-status field (RFC 1157 §4.1.1, RFC
// 3416 §3 extends it for v2c/v3).
type ErrorStatus int

const (
	NoError ErrorStatus = iota
	TooBig
	NoSuchName
	BadValue
	ReadOnly
	GenErr
	NoAccess
	WrongType
	WrongLength
	WrongEncoding
	WrongValue
	NoCreation
	InconsistentValue
	ResourceUnavailable
	CommitFailed
	UndoFailed
	AuthorizationError
	NotWritable
	InconsistentName
)

func (s ErrorStatus) String() string {
	switch s {
	case NoError:
		return "noError"
	case TooBig:
		return "tooBig"
	case NoSuchName:
		return "noSuchName"
	case BadValue:
		return "badValue"
	case ReadOnly:
		return "readOnly"
	case GenErr:
		return "genErr"
	case NoAccess:
		return "noAccess"
	case WrongType:
		return "wrongType"
	case WrongLength:
		return "wrongLength"
	case WrongEncoding:
		return "wrongEncoding"
	case WrongValue:
		return "wrongValue"
	case NoCreation:
		return "noCreation"
	case InconsistentValue:
		return "inconsistentValue"
	case ResourceUnavailable:
		return "resourceUnavailable"
	case CommitFailed:
		return "commitFailed"
	case UndoFailed:
		return "undoFailed"
	case AuthorizationError:
		return "authorizationError"
	case NotWritable:
		return "notWritable"
	case InconsistentName:
		return "inconsistentName"
	default:
		return fmt.Sprintf("errorStatus(%d)", int(s))
	}
}

// SnmpError covers server-side error-status responses, unexpected response
// shapes, request-id mismatches, and cardinality mismatches.
type SnmpError struct {
	Message    string
	Status     ErrorStatus
	ErrorIndex int
	OID        ObjectIdentifier // nil if ErrorIndex is 0 or out of range
}

func (e *SnmpError) Error() string {
	if e.Status == NoError && e.Message != "" {
		return "snmpcore: " + e.Message
	}
	if e.OID != nil {
		return fmt.Sprintf("snmpcore: %s at %s (index %d)", e.Status, e.OID, e.ErrorIndex)
	}
	return fmt.Sprintf("snmpcore: %s (index %d)", e.Status, e.ErrorIndex)
}

// NoSuchOID reports that the device returned NoSuchObject/NoSuchInstance
// for a specifically requested OID.
type NoSuchOID struct {
	OID ObjectIdentifier
}

func (e *NoSuchOID) Error() string {
	return fmt.Sprintf("snmpcore: no such object/instance at %s", e.OID)
}

// FaultySNMPImplementation reports a protocol violation that would cause a
// walk to loop forever if not caught: a getnext/bulk response OID that is
// not strictly greater than the OID requested.
type FaultySNMPImplementation struct {
	Requested ObjectIdentifier
	Returned  ObjectIdentifier
}

func (e *FaultySNMPImplementation) Error() string {
	return fmt.Sprintf("snmpcore: faulty agent: requested %s, got non-increasing %s", e.Requested, e.Returned)
}

// TypeError reports client API misuse, such as a Set value lacking tag
// information.
type TypeError struct {
	Reason string
}

func (e *TypeError) Error() string {
	return "snmpcore: type error: " + e.Reason
}

// UsmErrorKind enumerates the USM failure subkinds from spec.md §7.
type UsmErrorKind int

const (
	UnknownUser UsmErrorKind = iota
	UnsupportedSecurityLevel
	AuthFailure
	DecryptionError
	NotInTimeWindow
	UnknownEngineID
)

func (k UsmErrorKind) String() string {
	switch k {
	case UnknownUser:
		return "UnknownUser"
	case UnsupportedSecurityLevel:
		return "UnsupportedSecurityLevel"
	case AuthFailure:
		return "AuthFailure"
	case DecryptionError:
		return "DecryptionError"
	case NotInTimeWindow:
		return "NotInTimeWindow"
	case UnknownEngineID:
		return "UnknownEngineID"
	default:
		return fmt.Sprintf("UsmErrorKind(%d)", int(k))
	}
}

// UsmError covers SNMPv3 User-based Security Model failures.
type UsmError struct {
	Kind  UsmErrorKind
	User  string
	Cause error
}

func (e *UsmError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("snmpcore: usm %s for user %q: %v", e.Kind, e.User, e.Cause)
	}
	return fmt.Sprintf("snmpcore: usm %s for user %q", e.Kind, e.User)
}

func (e *UsmError) Unwrap() error { return e.Cause }

// wrap attaches op-level context to a lower-level cause while preserving
// errors.Cause() access to the root failure, matching the damianoneill-net
// convention of wrapping I/O and codec errors with github.com/pkg/errors.
func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "snmpcore: %s", op)
}
