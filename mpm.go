// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"context"

	"go.uber.org/zap"
)

// MPM is the version-agnostic Message Processing Model (spec.md C5): it
// turns a PDU plus a target's ClientConfig into wire bytes on the way out,
// and wire bytes back into a PDU on the way in, delegating to USM only for
// v3. v1/v2c use the trivial community-string envelope from message.go.
type MPM struct {
	usm *USM
	log *zap.Logger
}

// NewMPM returns an MPM backed by usm for v3 dispatch.
func NewMPM(usm *USM, log *zap.Logger) *MPM {
	if log == nil {
		log = zap.NewNop()
	}
	return &MPM{usm: usm, log: log}
}

// encode renders pdu as the wire bytes appropriate to cfg's version. For v3
// it first resolves the engine ID with resolveEngineID, which runs a
// discovery round trip only when the LCD holds no engine at all.
func (m *MPM) encode(ctx context.Context, cfg ClientConfig, msgID int32, pdu PDU,
	send func(context.Context, []byte) ([]byte, error)) ([]byte, error) {
	switch cfg.Version {
	case V1, V2c:
		return encodeV1V2C(cfg.Version, []byte(cfg.Creds.Community), pdu)
	case V3:
		engineID, err := m.resolveEngineID(ctx, cfg, msgID, send)
		if err != nil {
			return nil, wrap(err, "MPM.encode")
		}
		return m.usm.generateRequestMessage(engineID, cfg.Creds, cfg.DefaultContext, msgID, pdu)
	default:
		return nil, &TypeError{Reason: "unsupported SNMP version"}
	}
}

// decode parses wire bytes produced by an agent back into a PDU.
func (m *MPM) decode(cfg ClientConfig, data []byte) (PDU, error) {
	switch cfg.Version {
	case V1, V2c:
		_, community, pdu, err := decodeV1V2C(data)
		if err != nil {
			return PDU{}, wrap(err, "MPM.decode")
		}
		// spec.md §4.5: decode validates the community the agent echoed back
		// matches the one the request was sent under.
		if string(community) != cfg.Creds.Community {
			return PDU{}, &DecodingError{Op: "MPM.decode", Reason: "community mismatch"}
		}
		return pdu, nil
	case V3:
		pdu, err := m.usm.processIncomingMessage(data, cfg.Creds)
		if err != nil {
			return PDU{}, wrap(err, "MPM.decode")
		}
		return pdu, nil
	default:
		return PDU{}, &TypeError{Reason: "unsupported SNMP version"}
	}
}

// resolveEngineID returns cfg.DefaultContext.EngineID if the LCD holds it,
// otherwise any engine ID already cached in the LCD, and runs a discovery
// handshake over send only when the LCD is empty (spec.md §4.7, lazy
// discovery-on-first-use). The LCD is not keyed by endpoint, so an engine
// learned from one agent is reused for requests to another.
func (m *MPM) resolveEngineID(ctx context.Context, cfg ClientConfig, msgID int32,
	send func(context.Context, []byte) ([]byte, error)) ([]byte, error) {
	if len(cfg.DefaultContext.EngineID) > 0 {
		if _, known := m.usm.lcd.lookup(cfg.DefaultContext.EngineID); known {
			return cfg.DefaultContext.EngineID, nil
		}
	}
	for _, id := range m.usm.lcd.knownEngineIDs() {
		return id, nil
	}
	disco, err := m.usm.sendDiscoveryMessage(ctx, send, msgID)
	if err != nil {
		return nil, wrap(err, "resolveEngineID")
	}
	m.log.Debug("discovered authoritative engine", zap.Binary("engineID", disco.AuthoritativeEngineID))
	return disco.AuthoritativeEngineID, nil
}
