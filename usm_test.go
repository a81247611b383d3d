// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateRequestMessageRejectsPrivWithoutAuth(t *testing.T) {
	usm := NewUSM(NewLCD(), nil)
	creds := Credentials{Username: "bob", PrivProto: PrivAES, PrivPassword: "privpw"}
	_, err := usm.generateRequestMessage([]byte("engine-1"), creds, Context{}, 1, NewGetRequest(1, oids("1.3.6.1")))
	require.Error(t, err)
	var usmErr *UsmError
	require.ErrorAs(t, err, &usmErr)
	require.Equal(t, UnsupportedSecurityLevel, usmErr.Kind)
}

func TestGenerateAndProcessMessageAuthNoPriv(t *testing.T) {
	lcd := NewLCD()
	engineID := []byte("engine-auth-test")
	lcd.update(engineID, 2, 9000)

	usm := NewUSM(lcd, nil)
	creds := Credentials{Username: "alice", AuthProto: AuthSHA, AuthPassword: "authpassword"}
	pdu := NewGetRequest(77, oids("1.3.6.1.2.1.1.1.0"))

	wireBytes, err := usm.generateRequestMessage(engineID, creds, Context{}, 77, pdu)
	require.NoError(t, err)

	recoveredPDU, err := usm.processIncomingMessage(wireBytes, creds)
	require.NoError(t, err)
	require.Equal(t, pdu, recoveredPDU)
}

func TestProcessIncomingMessageRejectsTamperedAuth(t *testing.T) {
	lcd := NewLCD()
	engineID := []byte("engine-tamper")
	usm := NewUSM(lcd, nil)
	creds := Credentials{Username: "alice", AuthProto: AuthMD5, AuthPassword: "password123"}
	pdu := NewGetRequest(1, oids("1.3.6.1"))

	wireBytes, err := usm.generateRequestMessage(engineID, creds, Context{}, 1, pdu)
	require.NoError(t, err)

	tampered := append([]byte(nil), wireBytes...)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = usm.processIncomingMessage(tampered, creds)
	require.Error(t, err)
}

func TestGenerateAndProcessMessageAuthPriv(t *testing.T) {
	lcd := NewLCD()
	engineID := []byte("engine-priv-test")
	lcd.update(engineID, 1, 500)

	usm := NewUSM(lcd, nil)
	creds := Credentials{
		Username: "carol", AuthProto: AuthSHA, AuthPassword: "authpassword",
		PrivProto: PrivAES, PrivPassword: "privpassword",
	}
	pdu := NewSetRequest(5, []VarBind{{OID: MustParseOID("1.3.6.1.2.1.1.6.0"), Value: OctetString("closet")}})

	wireBytes, err := usm.generateRequestMessage(engineID, creds, Context{}, 5, pdu)
	require.NoError(t, err)

	recoveredPDU, err := usm.processIncomingMessage(wireBytes, creds)
	require.NoError(t, err)
	require.Equal(t, pdu, recoveredPDU)
}

func TestSendDiscoveryMessageParsesUnknownEngineIDsCounter(t *testing.T) {
	lcd := NewLCD()
	usm := NewUSM(lcd, nil)

	reportPDU := PDU{Kind: KindReport, RequestID: 1, VarBinds: []VarBind{
		{OID: usmStatsUnknownEngineIDs, Value: Counter32(3)},
	}}
	report := Message{
		Version:    V3,
		GlobalData: HeaderData{MsgID: 1, Flags: V3Flags{Reportable: true}, SecurityModel: 3},
		ScopedPDU:  ScopedPDU{PDU: reportPDU},
	}
	secParams, err := encodeUsmSecurityParameters(usmSecurityParameters{
		AuthoritativeEngineID: []byte("engine-disco"),
		EngineBoots:           2,
		EngineTime:            99,
	})
	require.NoError(t, err)
	report.SecurityParameters = secParams
	reportBytes, err := encodeMessage(report)
	require.NoError(t, err)

	send := func(_ context.Context, _ []byte) ([]byte, error) { return reportBytes, nil }
	disco, err := usm.sendDiscoveryMessage(context.Background(), send, 1)
	require.NoError(t, err)
	require.Equal(t, []byte("engine-disco"), disco.AuthoritativeEngineID)
	require.Equal(t, uint64(3), disco.UnknownEngineIDs)

	state, ok := lcd.lookup([]byte("engine-disco"))
	require.True(t, ok)
	require.Equal(t, uint32(2), state.Boots)
}

func TestProcessIncomingMessageRejectsUsernameMismatch(t *testing.T) {
	lcd := NewLCD()
	engineID := []byte("engine-user-mismatch")
	usm := NewUSM(lcd, nil)
	creds := Credentials{Username: "alice", AuthProto: AuthSHA, AuthPassword: "authpassword"}
	pdu := NewGetRequest(1, oids("1.3.6.1"))

	wireBytes, err := usm.generateRequestMessage(engineID, creds, Context{}, 1, pdu)
	require.NoError(t, err)

	_, err = usm.processIncomingMessage(wireBytes, Credentials{Username: "mallory", AuthProto: AuthSHA, AuthPassword: "authpassword"})
	require.Error(t, err)
	var usmErr *UsmError
	require.ErrorAs(t, err, &usmErr)
	require.Equal(t, UnknownUser, usmErr.Kind)
}

func TestProcessIncomingMessageDetectsNotInTimeWindowReport(t *testing.T) {
	usm := NewUSM(NewLCD(), nil)
	creds := Credentials{Username: "alice"}

	reportPDU := PDU{Kind: KindReport, RequestID: 1, VarBinds: []VarBind{
		{OID: usmStatsNotInTimeWindows, Value: Counter32(1)},
	}}
	report := Message{
		Version:    V3,
		GlobalData: HeaderData{MsgID: 1, Flags: V3Flags{Reportable: true}, SecurityModel: 3},
		ScopedPDU:  ScopedPDU{PDU: reportPDU},
	}
	secParams, err := encodeUsmSecurityParameters(usmSecurityParameters{
		AuthoritativeEngineID: []byte("engine-time-drift"), EngineBoots: 2, EngineTime: 1,
	})
	require.NoError(t, err)
	report.SecurityParameters = secParams
	reportBytes, err := encodeMessage(report)
	require.NoError(t, err)

	_, err = usm.processIncomingMessage(reportBytes, creds)
	require.Error(t, err)
	var usmErr *UsmError
	require.ErrorAs(t, err, &usmErr)
	require.Equal(t, NotInTimeWindow, usmErr.Kind)
}

func TestLCDUpdateAndLookup(t *testing.T) {
	lcd := NewLCD()
	_, ok := lcd.lookup([]byte("unknown"))
	require.False(t, ok)

	lcd.update([]byte("engine-1"), 4, 1000)
	state, ok := lcd.lookup([]byte("engine-1"))
	require.True(t, ok)
	require.Equal(t, uint32(4), state.Boots)
	require.Equal(t, uint32(1000), state.Time)
	require.GreaterOrEqual(t, state.currentTime(), state.Time)
}
