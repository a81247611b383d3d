// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

// VarBind is an (OID, value) pair, the atomic payload unit of every SNMP
// PDU. In a request the Value is conventionally Null{}; in a response it is
// a typed value or one of the exceptional markers.
type VarBind struct {
	OID   ObjectIdentifier
	Value Value
}

func (vb VarBind) String() string {
	return vb.OID.String() + " = " + vb.Value.String()
}
