// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Client is the version-agnostic façade over get/getnext/set/bulk
// operations (spec.md §4.8). It owns one Transport, one LCD, and the MPM
// built on top of them; ClientConfig can be swapped out for the duration of
// a function via Reconfigure. The swap applies to the whole Client: any
// call that starts while the override is in effect uses it too.
type Client struct {
	mu        sync.RWMutex
	cfg       ClientConfig
	transport Transport
	mpm       *MPM
	log       *zap.Logger
}

// NewClient builds a Client. transport and log may be nil, in which case
// NewUDPTransport(nil) and zap.NewNop() are installed.
func NewClient(cfg ClientConfig, transport Transport, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if transport == nil {
		transport = NewUDPTransport(log)
	}
	lcd := NewLCD()
	usm := NewUSM(lcd, log)
	return &Client{
		cfg:       cfg,
		transport: transport,
		mpm:       NewMPM(usm, log),
		log:       log,
	}
}

func (c *Client) snapshot() ClientConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// Reconfigure runs fn with cfg temporarily in effect, restoring the
// original configuration before returning — even if fn panics or errors
// (spec.md §4.8 reconfiguration-scope pattern). Concurrent calls against
// the Client while a Reconfigure is in flight observe whichever
// configuration held the lock at the moment they started; Reconfigure does
// not serialize unrelated calls beyond that.
func (c *Client) Reconfigure(cfg ClientConfig, fn func() error) error {
	c.mu.Lock()
	previous := c.cfg
	c.cfg = cfg
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.cfg = previous
		c.mu.Unlock()
	}()
	return fn()
}

// Discover runs the v3 USM discovery handshake against the current
// configuration's endpoint and returns what was learned about the agent's
// authoritative engine. Every v3 operation already discovers lazily on its
// own first use; Discover exists for callers that want to inspect the
// result directly (e.g. the usmStatsUnknownEngineIDs counter) or warm the
// LCD ahead of time.
func (c *Client) Discover(ctx context.Context) (DiscoData, error) {
	cfg := c.snapshot()
	send := func(ctx context.Context, payload []byte) ([]byte, error) {
		return c.transport.Send(ctx, cfg.Endpoint, payload, cfg.Timeout, cfg.Retries)
	}
	return c.mpm.usm.sendDiscoveryMessage(ctx, send, nextRequestID())
}

func (c *Client) roundTrip(ctx context.Context, pdu PDU) (PDU, error) {
	cfg := c.snapshot()
	msgID := pdu.RequestID

	send := func(ctx context.Context, payload []byte) ([]byte, error) {
		return c.transport.Send(ctx, cfg.Endpoint, payload, cfg.Timeout, cfg.Retries)
	}

	response, err := c.roundTripOnce(ctx, cfg, msgID, pdu, send)
	var usmErr *UsmError
	if errors.As(err, &usmErr) && cfg.Version == V3 {
		switch usmErr.Kind {
		case UnknownEngineID:
			// puresnmp's raw.py wraps every v3 operation, not just the
			// explicit discovery call, in one retry after an
			// UnknownEngineID report: drop the cached engines (the stale
			// one is among them) and rediscover before resending once.
			for _, id := range c.mpm.usm.lcd.knownEngineIDs() {
				c.mpm.usm.lcd.forget(id)
			}
			response, err = c.roundTripOnce(ctx, cfg, msgID, pdu, send)
		case NotInTimeWindow:
			// spec.md §7: NotInTimeWindow is recovered locally by one round
			// of re-discovery refreshing the cached engine's boots/time,
			// then resent once; if it recurs it is surfaced as-is.
			if _, discErr := c.mpm.usm.sendDiscoveryMessage(ctx, send, msgID); discErr == nil {
				response, err = c.roundTripOnce(ctx, cfg, msgID, pdu, send)
			}
		}
	}
	if err != nil {
		return PDU{}, err
	}
	return response, nil
}

func (c *Client) roundTripOnce(ctx context.Context, cfg ClientConfig, msgID int32, pdu PDU,
	send func(context.Context, []byte) ([]byte, error)) (PDU, error) {
	wireBytes, err := c.mpm.encode(ctx, cfg, msgID, pdu, send)
	if err != nil {
		return PDU{}, errors.Wrap(err, "snmpcore: encode request")
	}
	reply, err := send(ctx, wireBytes)
	if err != nil {
		return PDU{}, errors.Wrap(err, "snmpcore: send request")
	}
	response, err := c.mpm.decode(cfg, reply)
	if err != nil {
		return PDU{}, errors.Wrap(err, "snmpcore: decode response")
	}
	if response.RequestID != msgID {
		return PDU{}, &SnmpError{Message: "response request-id does not match request", Status: response.ErrorStatus}
	}
	return response, nil
}

// Get retrieves the value at oid. Unlike MultiGet, a singular get checks the
// returned value itself: raw.py's get() inspects result[0] for NoSuchObject/
// NoSuchInstance and raises NoSuchOID rather than handing the exception value
// back to the caller (spec.md §4.7).
func (c *Client) Get(ctx context.Context, oid ObjectIdentifier) (VarBind, error) {
	vbs, err := c.MultiGet(ctx, []ObjectIdentifier{oid})
	if err != nil {
		return VarBind{}, err
	}
	if IsException(vbs[0].Value) {
		return VarBind{}, &NoSuchOID{OID: oid}
	}
	return vbs[0], nil
}

// MultiGet retrieves the values at oids in a single request (spec.md §9
// Open Question 2: every varbind in the request shares one request ID).
// Unlike Get, it does not inspect the returned values for NoSuchObject/
// NoSuchInstance — raw.py's multiget is likewise exception-check-free,
// leaving that to the singular get.
func (c *Client) MultiGet(ctx context.Context, oids []ObjectIdentifier) ([]VarBind, error) {
	reqID := nextRequestID()
	response, err := c.roundTrip(ctx, NewGetRequest(reqID, oids))
	if err != nil {
		return nil, err
	}
	return checkedVarBinds(response)
}

// GetNext retrieves the lexicographically next OID/value after oid.
func (c *Client) GetNext(ctx context.Context, oid ObjectIdentifier) (VarBind, error) {
	vbs, err := c.MultiGetNext(ctx, []ObjectIdentifier{oid})
	if err != nil {
		return VarBind{}, err
	}
	if len(vbs) == 0 || IsException(vbs[0].Value) {
		return VarBind{}, &NoSuchOID{OID: oid}
	}
	return vbs[0], nil
}

// MultiGetNext retrieves the next OID/value after each of oids. Mirrors
// raw.py's multigetnext: the response is truncated at the first
// EndOfMibView encountered (an agent may legitimately run out of MIB for a
// trailing root before the others), and every surviving result must carry a
// strictly greater OID than the root it answers — an agent violating that
// is FaultySNMPImplementation, not a caller error (spec.md §4.7,
// original_source/puresnmp/api/raw.py:513-526).
func (c *Client) MultiGetNext(ctx context.Context, oids []ObjectIdentifier) ([]VarBind, error) {
	vbs, err := c.multiGetNextRaw(ctx, oids)
	if err != nil {
		return nil, err
	}
	truncated := vbs
	for i, vb := range vbs {
		if _, ok := vb.Value.(EndOfMibView); ok {
			truncated = vbs[:i]
			break
		}
	}
	for i, vb := range truncated {
		if !oids[i].Less(vb.OID) {
			return nil, &FaultySNMPImplementation{Requested: oids[i], Returned: vb.OID}
		}
	}
	return truncated, nil
}

// multiGetNextRaw is the bare GetNextRequest round trip, with none of
// MultiGetNext's EndOfMibView-truncation or increasing-OID check applied.
// walk.go's walkOnce drives its own boundary/termination logic directly off
// the raw exception values and needs them untouched.
func (c *Client) multiGetNextRaw(ctx context.Context, oids []ObjectIdentifier) ([]VarBind, error) {
	reqID := nextRequestID()
	response, err := c.roundTrip(ctx, NewGetNextRequest(reqID, oids))
	if err != nil {
		return nil, err
	}
	return checkedVarBinds(response)
}

// Set writes a single varbind.
func (c *Client) Set(ctx context.Context, vb VarBind) (VarBind, error) {
	vbs, err := c.MultiSet(ctx, []VarBind{vb})
	if err != nil {
		return VarBind{}, err
	}
	return vbs[0], nil
}

// MultiSet writes every varbind in a single request, all-or-nothing per
// RFC 3416 §4.2.5.
func (c *Client) MultiSet(ctx context.Context, varbinds []VarBind) ([]VarBind, error) {
	reqID := nextRequestID()
	response, err := c.roundTrip(ctx, NewSetRequest(reqID, varbinds))
	if err != nil {
		return nil, err
	}
	return checkedVarBinds(response)
}

// BulkGet issues one GetBulkRequest. The response may carry up to
// nonRepeaters + maxRepetitions*len(oids[nonRepeaters:]) varbinds — spec.md
// §9 Open Question 3 treats that as a ceiling an agent may legitimately
// fall short of (e.g. at end-of-MIB), never a count the caller should
// assert on. A response carrying more varbinds than the ceiling is
// rejected with an SnmpError.
func (c *Client) BulkGet(ctx context.Context, oids []ObjectIdentifier, nonRepeaters, maxRepetitions uint32) (BulkResult, error) {
	reqID := nextRequestID()
	request := NewGetBulkRequest(reqID, oids, nonRepeaters, maxRepetitions)
	response, err := c.roundTrip(ctx, request)
	if err != nil {
		return BulkResult{}, err
	}
	n := int(request.NonRepeaters)
	if ceiling := n + int(request.MaxRepetitions)*(len(oids)-n); len(response.VarBinds) > ceiling {
		return BulkResult{}, &SnmpError{Message: "bulk response carries more varbinds than non-repeaters + max-repetitions*repeaters"}
	}
	exhausted := false
	for _, vb := range response.VarBinds {
		if _, ok := vb.Value.(EndOfMibView); ok {
			exhausted = true
			break
		}
	}
	return BulkResult{VarBinds: response.VarBinds, Exhausted: exhausted}, nil
}

// checkedVarBinds surfaces a v1/v2c-style ErrorStatus as a Go error and
// otherwise returns the response's varbinds unchanged.
func checkedVarBinds(response PDU) ([]VarBind, error) {
	if response.ErrorStatus != NoError {
		oid := ObjectIdentifier(nil)
		if response.ErrorIndex >= 1 && response.ErrorIndex <= len(response.VarBinds) {
			oid = response.VarBinds[response.ErrorIndex-1].OID
		}
		return nil, &SnmpError{
			Message:    "agent returned " + response.ErrorStatus.String(),
			Status:     response.ErrorStatus,
			ErrorIndex: response.ErrorIndex,
			OID:        oid,
		}
	}
	return response.VarBinds, nil
}
