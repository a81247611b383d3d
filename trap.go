// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"context"
	"net"

	"go.uber.org/zap"
)

// TrapHandler is invoked once per successfully decoded trap/inform PDU.
type TrapHandler func(from net.Addr, version SnmpVersion, pdu PDU)

// TrapListener binds a UDP socket (conventionally port 162) and dispatches
// incoming Trap/InformRequest PDUs to a user callback. It is the one piece
// of server-side surface this package carries — SNMP traps are
// fire-and-forget datagrams sent by an agent to a manager, not a
// request/response exchange, so they need their own decode path rather
// than going through Client.roundTrip.
type TrapListener struct {
	transport Transport
	mpm       *MPM
	cfg       ClientConfig
	log       *zap.Logger
}

// NewTrapListener builds a TrapListener that decodes incoming datagrams
// using cfg's version/credentials (a v3 trap is authenticated the same way
// a v3 response is, against the sender's claimed security parameters).
func NewTrapListener(cfg ClientConfig, transport Transport, log *zap.Logger) *TrapListener {
	if log == nil {
		log = zap.NewNop()
	}
	if transport == nil {
		transport = NewUDPTransport(log)
	}
	lcd := NewLCD()
	usm := NewUSM(lcd, log)
	return &TrapListener{transport: transport, mpm: NewMPM(usm, log), cfg: cfg, log: log}
}

// Listen blocks, dispatching decoded traps to handle, until ctx is
// cancelled or the underlying socket errors. A datagram that fails to
// decode is logged and dropped — one malformed or maliciously crafted trap
// must never take the listener down.
func (t *TrapListener) Listen(ctx context.Context, bindAddr string, handle TrapHandler) error {
	return t.transport.Listen(ctx, bindAddr, func(from net.Addr, payload []byte) {
		pdu, version, err := t.decode(payload)
		if err != nil {
			t.log.Warn("dropping undecodable trap", zap.Stringer("from", from), zap.Error(err))
			return
		}
		if pdu.Kind != KindTrap && pdu.Kind != KindInformRequest {
			t.log.Debug("dropping non-trap PDU received on trap listener",
				zap.Stringer("from", from), zap.Stringer("kind", pdu.Kind))
			return
		}
		handle(from, version, pdu)
	})
}

func (t *TrapListener) decode(payload []byte) (PDU, SnmpVersion, error) {
	if len(payload) == 0 {
		return PDU{}, 0, &DecodingError{Op: "TrapListener.decode", Reason: "empty datagram"}
	}
	// Peek the version without committing to a codec: v1/v2c and v3 share
	// the same outer SEQUENCE{INTEGER version, ...} shape, so a throwaway
	// decode of just the version field tells us which path to take.
	version, err := peekVersion(payload)
	if err != nil {
		return PDU{}, 0, err
	}
	cfg := t.cfg
	cfg.Version = version
	pdu, err := t.mpm.decode(cfg, payload)
	if err != nil {
		return PDU{}, 0, err
	}
	return pdu, version, nil
}

func peekVersion(payload []byte) (SnmpVersion, error) {
	tag, content, _, err := decodeTLV(payload)
	if err != nil || tag != TagSequence {
		return 0, &DecodingError{Op: "peekVersion", Reason: "expected outer SEQUENCE"}
	}
	verTag, verContent, _, err := decodeTLV(content)
	if err != nil || verTag != TagInteger {
		return 0, &DecodingError{Op: "peekVersion", Reason: "missing version"}
	}
	return SnmpVersion(decodeSignedInt(verContent)), nil
}
