// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
)

// Transport is the pluggable network collaborator (spec.md C3): something
// that can send a datagram to endpoint and wait for exactly one reply,
// honouring timeout per attempt and giving up after one initial attempt
// plus up to retries further attempts. The
// client never constructs a Transport directly for requests that aren't
// retried; the retry/timeout loop lives here, mirroring the
// executeGet retry loop in damianoneill-net/v2/snmp's session.go
// (for i := 0; ; i++ { ... if netErr.Timeout() && i < retries { continue } }).
type Transport interface {
	Send(ctx context.Context, endpoint string, payload []byte, timeout time.Duration, retries int) ([]byte, error)
	// Listen opens a receive-only socket for unsolicited traffic (traps,
	// informs) and delivers each datagram to handle until ctx is cancelled.
	Listen(ctx context.Context, bindAddr string, handle func(from net.Addr, payload []byte)) error
}

// udpTransport is the default Transport, a thin wrapper over net.Dial/net.ListenPacket.
type udpTransport struct {
	log *zap.Logger
}

// NewUDPTransport returns the default UDP Transport. A nil logger installs
// zap.NewNop().
func NewUDPTransport(log *zap.Logger) Transport {
	if log == nil {
		log = zap.NewNop()
	}
	return &udpTransport{log: log}
}

func (t *udpTransport) Send(ctx context.Context, endpoint string, payload []byte, timeout time.Duration, retries int) ([]byte, error) {
	conn, err := net.Dial("udp", endpoint)
	if err != nil {
		return nil, &TimeoutError{Endpoint: endpoint, Attempts: 0, Cause: err}
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	buf := make([]byte, 65507)
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, &TimeoutError{Endpoint: endpoint, Attempts: attempt, Cause: err}
		}
		conn.SetWriteDeadline(time.Now().Add(timeout))
		if _, err := conn.Write(payload); err != nil {
			return nil, &TimeoutError{Endpoint: endpoint, Attempts: attempt, Cause: err}
		}
		conn.SetReadDeadline(time.Now().Add(timeout))
		n, err := conn.Read(buf)
		if err == nil {
			return append([]byte(nil), buf[:n]...), nil
		}
		netErr, isNetErr := err.(net.Error)
		if isNetErr && netErr.Timeout() && attempt < retries {
			t.log.Debug("snmp request timed out, retrying",
				zap.String("endpoint", endpoint), zap.Int("attempt", attempt))
			continue
		}
		return nil, &TimeoutError{Endpoint: endpoint, Attempts: attempt + 1, Cause: err}
	}
}

func (t *udpTransport) Listen(ctx context.Context, bindAddr string, handle func(from net.Addr, payload []byte)) error {
	conn, err := net.ListenPacket("udp", bindAddr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 65507)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			t.log.Warn("trap listener read error", zap.Error(err))
			continue
		}
		payload := append([]byte(nil), buf[:n]...)
		go handle(addr, payload)
	}
}
