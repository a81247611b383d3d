// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"context"
	"net"
	"sort"
	"time"
)

// fakeTransport is an in-process Transport stub: Send hands the raw request
// payload to handle and returns whatever it produces, with no actual
// networking. Used by client_test.go/walk_test.go so the client/walk engine
// can be exercised without a real UDP agent.
type fakeTransport struct {
	handle func(payload []byte) ([]byte, error)
}

func (f *fakeTransport) Send(_ context.Context, _ string, payload []byte, _ time.Duration, _ int) ([]byte, error) {
	return f.handle(payload)
}

func (f *fakeTransport) Listen(_ context.Context, _ string, _ func(net.Addr, []byte)) error {
	return nil
}

// fakeAgentV2c simulates a v2c agent over a fixed, sorted set of varbinds:
// Get returns an exact match or a NoSuchObject value; GetNext returns the
// lexicographically next entry or EndOfMibView; GetBulk repeats GetNext up
// to maxRepetitions times starting from the first requested OID only,
// stopping after an EndOfMibView and ignoring nonRepeaters (every tested
// bulk request has a single, repeating OID).
type fakeAgentV2c struct {
	community string
	entries   []VarBind // must be pre-sorted by OID
}

func newFakeAgentV2c(community string, entries []VarBind) *fakeTransport {
	sorted := append([]VarBind(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OID.Less(sorted[j].OID) })
	agent := &fakeAgentV2c{community: community, entries: sorted}
	return &fakeTransport{handle: agent.respond}
}

func (a *fakeAgentV2c) get(oid ObjectIdentifier) VarBind {
	for _, e := range a.entries {
		if e.OID.Equal(oid) {
			return e
		}
	}
	return VarBind{OID: oid, Value: NoSuchObject{}}
}

func (a *fakeAgentV2c) next(oid ObjectIdentifier) VarBind {
	for _, e := range a.entries {
		if oid.Less(e.OID) {
			return e
		}
	}
	return VarBind{OID: oid, Value: EndOfMibView{}}
}

func (a *fakeAgentV2c) respond(payload []byte) ([]byte, error) {
	_, _, pdu, err := decodeV1V2C(payload)
	if err != nil {
		return nil, err
	}

	var responseVBs []VarBind
	switch pdu.Kind {
	case KindGetRequest:
		for _, vb := range pdu.VarBinds {
			responseVBs = append(responseVBs, a.get(vb.OID))
		}
	case KindGetNextRequest:
		for _, vb := range pdu.VarBinds {
			responseVBs = append(responseVBs, a.next(vb.OID))
		}
	case KindGetBulkRequest:
		cursor := pdu.VarBinds[0].OID
		for i := uint32(0); i < pdu.MaxRepetitions; i++ {
			next := a.next(cursor)
			responseVBs = append(responseVBs, next)
			if _, exhausted := next.Value.(EndOfMibView); exhausted {
				break
			}
			cursor = next.OID
		}
	case KindSetRequest:
		responseVBs = pdu.VarBinds
	}

	response := NewResponse(pdu.RequestID, NoError, 0, responseVBs)
	return encodeV1V2C(V2c, []byte(a.community), response)
}
