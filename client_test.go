// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfigV2c() ClientConfig {
	return ClientConfig{
		Endpoint: "unused:161",
		Version:  V2c,
		Creds:    Credentials{Community: "public"},
		Timeout:  time.Second,
		Retries:  1,
	}
}

func TestClientGetRoundTrip(t *testing.T) {
	sysDescr := MustParseOID("1.3.6.1.2.1.1.1.0")
	transport := newFakeAgentV2c("public", []VarBind{
		{OID: sysDescr, Value: OctetString("test box")},
	})
	client := NewClient(testConfigV2c(), transport, nil)

	vb, err := client.Get(context.Background(), sysDescr)
	require.NoError(t, err)
	require.Equal(t, OctetString("test box"), vb.Value)
}

func TestClientMultiGetPreservesOrder(t *testing.T) {
	a, b := MustParseOID("1.3.6.1.2.1.1.1.0"), MustParseOID("1.3.6.1.2.1.1.5.0")
	transport := newFakeAgentV2c("public", []VarBind{
		{OID: a, Value: OctetString("descr")},
		{OID: b, Value: OctetString("name")},
	})
	client := NewClient(testConfigV2c(), transport, nil)

	vbs, err := client.MultiGet(context.Background(), []ObjectIdentifier{b, a})
	require.NoError(t, err)
	require.Len(t, vbs, 2)
	require.Equal(t, OctetString("name"), vbs[0].Value)
	require.Equal(t, OctetString("descr"), vbs[1].Value)
}

func TestClientGetUnknownOIDReturnsNoSuchOIDError(t *testing.T) {
	transport := newFakeAgentV2c("public", nil)
	client := NewClient(testConfigV2c(), transport, nil)

	// v2c Get on a missing OID gets back noSuchObject as a varbind value, not
	// an error status; Get (unlike MultiGet) turns that into NoSuchOID
	// (spec.md §4.7, original_source/puresnmp/api/raw.py's get()).
	_, err := client.Get(context.Background(), MustParseOID("1.3.6.1.2.1.99.0"))
	require.Error(t, err)
	var notFound *NoSuchOID
	require.ErrorAs(t, err, &notFound)
}

func TestClientSetRoundTrip(t *testing.T) {
	contact := MustParseOID("1.3.6.1.2.1.1.4.0")
	transport := newFakeAgentV2c("public", []VarBind{{OID: contact, Value: OctetString("old")}})
	client := NewClient(testConfigV2c(), transport, nil)

	vb, err := client.Set(context.Background(), VarBind{OID: contact, Value: OctetString("new")})
	require.NoError(t, err)
	require.Equal(t, OctetString("new"), vb.Value)
}

func TestClientBulkGetReportsExhausted(t *testing.T) {
	root := MustParseOID("1.3.6.1.2.1.2.2.1.2")
	transport := newFakeAgentV2c("public", []VarBind{
		{OID: append(root.Clone(), 1), Value: OctetString("eth0")},
		{OID: append(root.Clone(), 2), Value: OctetString("eth1")},
	})
	client := NewClient(testConfigV2c(), transport, nil)

	result, err := client.BulkGet(context.Background(), []ObjectIdentifier{root}, 0, 10)
	require.NoError(t, err)
	require.True(t, result.Exhausted)
	require.Len(t, result.VarBinds, 3) // eth0, eth1, then EndOfMibView
}

func TestClientReconfigureRestoresOriginalConfig(t *testing.T) {
	transport := newFakeAgentV2c("public", nil)
	client := NewClient(testConfigV2c(), transport, nil)
	original := client.snapshot()

	scoped := original
	scoped.Endpoint = "other:161"
	err := client.Reconfigure(scoped, func() error {
		require.Equal(t, "other:161", client.snapshot().Endpoint)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, original.Endpoint, client.snapshot().Endpoint)
}

func TestClientReconfigureRestoresOnError(t *testing.T) {
	transport := newFakeAgentV2c("public", nil)
	client := NewClient(testConfigV2c(), transport, nil)
	original := client.snapshot()

	scoped := original
	scoped.Endpoint = "broken:161"
	err := client.Reconfigure(scoped, func() error {
		return &SnmpError{Message: "boom"}
	})
	require.Error(t, err)
	require.Equal(t, original.Endpoint, client.snapshot().Endpoint)
}

func testConfigV3() ClientConfig {
	return ClientConfig{
		Endpoint: "unused:161",
		Version:  V3,
		Creds:    Credentials{Username: "alice"},
		Timeout:  time.Second,
		Retries:  1,
	}
}

// v3DiscoveryReply builds the Report an agent sends back for the blank-engine
// discovery probe, carrying engineID/boots/time for msgID.
func v3DiscoveryReply(msgID int32, engineID []byte, boots, engTime uint32) ([]byte, error) {
	reply := Message{
		Version:    V3,
		GlobalData: HeaderData{MsgID: msgID, Flags: V3Flags{Reportable: true}, SecurityModel: 3},
		ScopedPDU:  ScopedPDU{PDU: PDU{Kind: KindReport, RequestID: msgID}},
	}
	secParams, err := encodeUsmSecurityParameters(usmSecurityParameters{
		AuthoritativeEngineID: engineID,
		EngineBoots:           boots,
		EngineTime:            engTime,
	})
	if err != nil {
		return nil, err
	}
	reply.SecurityParameters = secParams
	return encodeMessage(reply)
}

func TestClientDiscoverReturnsEngineData(t *testing.T) {
	transport := &fakeTransport{handle: func(payload []byte) ([]byte, error) {
		msg, err := decodeMessage(payload)
		if err != nil {
			return nil, err
		}
		return v3DiscoveryReply(msg.GlobalData.MsgID, []byte("engine-v3"), 5, 1000)
	}}
	client := NewClient(testConfigV3(), transport, nil)

	disco, err := client.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("engine-v3"), disco.AuthoritativeEngineID)
	require.Equal(t, uint32(5), disco.Boots)
	require.Equal(t, uint32(1000), disco.Time)

	state, ok := client.mpm.usm.lcd.lookup([]byte("engine-v3"))
	require.True(t, ok)
	require.Equal(t, uint32(5), state.Boots)
}

// TestClientRoundTripRetriesAfterUnknownEngineID exercises the cached-engine
// path going stale mid-session: the first attempt is authenticated against a
// cached engine ID the agent no longer recognises, the agent reports
// usmStatsUnknownEngineIDs, the client forgets that engine and rediscovers,
// and the retried request succeeds under the freshly discovered engine.
func TestClientRoundTripRetriesAfterUnknownEngineID(t *testing.T) {
	cfg := testConfigV3()
	cfg.DefaultContext.EngineID = []byte("stale-engine")
	sysDescr := MustParseOID("1.3.6.1.2.1.1.1.0")

	transport := &fakeTransport{handle: func(payload []byte) ([]byte, error) {
		msg, err := decodeMessage(payload)
		if err != nil {
			return nil, err
		}
		secParams, err := decodeUsmSecurityParameters(msg.SecurityParameters)
		if err != nil {
			return nil, err
		}

		if len(secParams.AuthoritativeEngineID) == 0 {
			return v3DiscoveryReply(msg.GlobalData.MsgID, []byte("fresh-engine"), 9, 500)
		}

		if string(secParams.AuthoritativeEngineID) == "stale-engine" {
			reply := Message{
				Version:    V3,
				GlobalData: HeaderData{MsgID: msg.GlobalData.MsgID, Flags: V3Flags{Reportable: true}, SecurityModel: 3},
				ScopedPDU: ScopedPDU{PDU: PDU{
					Kind:      KindReport,
					RequestID: msg.ScopedPDU.PDU.RequestID,
					VarBinds:  []VarBind{{OID: usmStatsUnknownEngineIDs, Value: Counter32(1)}},
				}},
			}
			sp, err := encodeUsmSecurityParameters(usmSecurityParameters{
				AuthoritativeEngineID: []byte("stale-engine"), EngineBoots: 1, EngineTime: 100,
			})
			if err != nil {
				return nil, err
			}
			reply.SecurityParameters = sp
			return encodeMessage(reply)
		}

		request := msg.ScopedPDU.PDU
		response := NewResponse(request.RequestID, NoError, 0, []VarBind{
			{OID: sysDescr, Value: OctetString("recovered box")},
		})
		reply := Message{
			Version:    V3,
			GlobalData: HeaderData{MsgID: msg.GlobalData.MsgID, Flags: V3Flags{Reportable: true}, SecurityModel: 3},
			ScopedPDU:  ScopedPDU{PDU: response},
		}
		sp, err := encodeUsmSecurityParameters(usmSecurityParameters{
			AuthoritativeEngineID: []byte("fresh-engine"), EngineBoots: 9, EngineTime: 500,
			Username: []byte(cfg.Creds.Username),
		})
		if err != nil {
			return nil, err
		}
		reply.SecurityParameters = sp
		return encodeMessage(reply)
	}}

	client := NewClient(cfg, transport, nil)
	client.mpm.usm.lcd.update([]byte("stale-engine"), 1, 100)

	vb, err := client.Get(context.Background(), sysDescr)
	require.NoError(t, err)
	require.Equal(t, OctetString("recovered box"), vb.Value)

	_, stillKnown := client.mpm.usm.lcd.lookup([]byte("stale-engine"))
	require.False(t, stillKnown)
	_, freshKnown := client.mpm.usm.lcd.lookup([]byte("fresh-engine"))
	require.True(t, freshKnown)
}

func TestClientRoundTripRejectsMismatchedRequestID(t *testing.T) {
	transport := &fakeTransport{handle: func(payload []byte) ([]byte, error) {
		_, community, pdu, err := decodeV1V2C(payload)
		if err != nil {
			return nil, err
		}
		response := NewResponse(pdu.RequestID+1, NoError, 0, pdu.VarBinds)
		return encodeV1V2C(V2c, community, response)
	}}
	client := NewClient(testConfigV2c(), transport, nil)

	_, err := client.Get(context.Background(), MustParseOID("1.3.6.1.2.1.1.1.0"))
	require.Error(t, err)
}

// TestClientRoundTripRetriesAfterNotInTimeWindow exercises the clock-drift
// recovery path: the first attempt is authenticated against boots/time the
// agent considers stale, the agent reports usmStatsNotInTimeWindows, the
// client refreshes the cached engine's boots/time via one re-discovery round
// trip, and the retried request succeeds.
func TestClientRoundTripRetriesAfterNotInTimeWindow(t *testing.T) {
	cfg := testConfigV3()
	cfg.DefaultContext.EngineID = []byte("drifted-engine")
	sysDescr := MustParseOID("1.3.6.1.2.1.1.1.0")

	rediscovered := false
	transport := &fakeTransport{handle: func(payload []byte) ([]byte, error) {
		msg, err := decodeMessage(payload)
		if err != nil {
			return nil, err
		}
		secParams, err := decodeUsmSecurityParameters(msg.SecurityParameters)
		if err != nil {
			return nil, err
		}

		if len(secParams.AuthoritativeEngineID) == 0 {
			rediscovered = true
			return v3DiscoveryReply(msg.GlobalData.MsgID, []byte("drifted-engine"), 4, 9000)
		}

		if !rediscovered {
			reply := Message{
				Version:    V3,
				GlobalData: HeaderData{MsgID: msg.GlobalData.MsgID, Flags: V3Flags{Reportable: true}, SecurityModel: 3},
				ScopedPDU: ScopedPDU{PDU: PDU{
					Kind:      KindReport,
					RequestID: msg.ScopedPDU.PDU.RequestID,
					VarBinds:  []VarBind{{OID: usmStatsNotInTimeWindows, Value: Counter32(1)}},
				}},
			}
			sp, err := encodeUsmSecurityParameters(usmSecurityParameters{
				AuthoritativeEngineID: []byte("drifted-engine"), EngineBoots: 4, EngineTime: 9000,
			})
			if err != nil {
				return nil, err
			}
			reply.SecurityParameters = sp
			return encodeMessage(reply)
		}

		request := msg.ScopedPDU.PDU
		response := NewResponse(request.RequestID, NoError, 0, []VarBind{
			{OID: sysDescr, Value: OctetString("resynced box")},
		})
		reply := Message{
			Version:    V3,
			GlobalData: HeaderData{MsgID: msg.GlobalData.MsgID, Flags: V3Flags{Reportable: true}, SecurityModel: 3},
			ScopedPDU:  ScopedPDU{PDU: response},
		}
		sp, err := encodeUsmSecurityParameters(usmSecurityParameters{
			AuthoritativeEngineID: []byte("drifted-engine"), EngineBoots: 4, EngineTime: 9000,
			Username: []byte(cfg.Creds.Username),
		})
		if err != nil {
			return nil, err
		}
		reply.SecurityParameters = sp
		return encodeMessage(reply)
	}}

	client := NewClient(cfg, transport, nil)
	client.mpm.usm.lcd.update([]byte("drifted-engine"), 3, 1)

	vb, err := client.Get(context.Background(), sysDescr)
	require.NoError(t, err)
	require.Equal(t, OctetString("resynced box"), vb.Value)
	require.True(t, rediscovered)
}

// TestClientRejectsMismatchedCommunity exercises spec.md §4.5's community
// validation on decode: an agent that echoes back the wrong community is
// treated as a decode failure, not a successful response.
func TestClientRejectsMismatchedCommunity(t *testing.T) {
	transport := &fakeTransport{handle: func(payload []byte) ([]byte, error) {
		_, _, pdu, err := decodeV1V2C(payload)
		if err != nil {
			return nil, err
		}
		response := NewResponse(pdu.RequestID, NoError, 0, pdu.VarBinds)
		return encodeV1V2C(V2c, []byte("wrong-community"), response)
	}}
	client := NewClient(testConfigV2c(), transport, nil)

	_, err := client.Get(context.Background(), MustParseOID("1.3.6.1.2.1.1.1.0"))
	require.Error(t, err)
	var decErr *DecodingError
	require.ErrorAs(t, err, &decErr)
}
