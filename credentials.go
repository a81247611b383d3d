// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import "time"

// Credentials bundles everything needed to authenticate and, optionally,
// encrypt a v3 message for one user (spec.md §3). For v1/v2c targets only
// Community is meaningful.
type Credentials struct {
	Community string

	Username     string
	AuthProto    AuthProtocol
	AuthPassword string
	PrivProto    PrivProtocol
	PrivPassword string
}

// level reports the USM security level these credentials imply.
func (c Credentials) level() V3Flags {
	auth := c.AuthProto != AuthNone && c.AuthPassword != ""
	priv := auth && c.PrivProto != PrivNone && c.PrivPassword != ""
	return V3Flags{Auth: auth, Priv: priv, Reportable: true}
}

// Context names the v3 contextEngineID/contextName pair a request targets
// (spec.md §3). Zero value addresses the agent's default context.
type Context struct {
	EngineID []byte
	Name     []byte
}

// ClientConfig parameterizes a Client (spec.md §3, §4.8). A zero-value
// ClientConfig is not usable; see internal/snmpconfig for defaults and
// external loading.
type ClientConfig struct {
	Endpoint string
	Version  SnmpVersion

	Creds Credentials

	Timeout    time.Duration
	Retries    int
	MaxMsgSize uint32

	// DefaultContext is used when an operation doesn't specify one.
	DefaultContext Context
}

// BulkResult is the outcome of a single GetBulk wire exchange used by the
// walk engine's bulk fetcher (spec.md §4.8).
type BulkResult struct {
	VarBinds []VarBind
	// Exhausted reports whether the agent signalled end-of-MIB
	// (EndOfMibView) anywhere in the response.
	Exhausted bool
}
