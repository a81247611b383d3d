// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"sync"
	"time"
)

// engineState is one LCD entry: everything USM needs to remember about an
// authoritative engine between requests (spec.md §4.6, §4.7). EngineBoots
// and EngineTime are the values last reported by that engine; LastSync
// records when we last trusted them, so elapsed wall-clock time can be
// added to EngineTime to keep it current without another discovery round
// trip (RFC 3414 §2.3).
type engineState struct {
	EngineID   []byte
	Boots      uint32
	Time       uint32
	LastSync   time.Time
}

// currentTime estimates the engine's current engineTime by adding elapsed
// wall-clock time since the last sync.
func (e engineState) currentTime() uint32 {
	return e.Time + uint32(time.Since(e.LastSync).Seconds())
}

// LCD is the Local Configuration Datastore (spec.md §3): a mutex-guarded
// table of per-engine boots/time state, keyed by the hex-ish raw engine ID
// string. A Client keeps one LCD for its lifetime and Reconfigure does not
// replace it, so engine-time learned under one credential set benefits
// requests made under another.
type LCD struct {
	mu      sync.Mutex
	engines map[string]*engineState
}

// NewLCD returns an empty LCD.
func NewLCD() *LCD {
	return &LCD{engines: make(map[string]*engineState)}
}

func (l *LCD) lookup(engineID []byte) (engineState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.engines[string(engineID)]
	if !ok {
		return engineState{}, false
	}
	return *e, true
}

// update records boots/time as just reported by engineID, timestamped now.
func (l *LCD) update(engineID []byte, boots, engTime uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.engines[string(engineID)] = &engineState{
		EngineID: append([]byte(nil), engineID...),
		Boots:    boots,
		Time:     engTime,
		LastSync: time.Now(),
	}
}

// forget drops a cached engine, forcing the next request against it to
// rediscover boots/time (used when an agent reports usmStatsUnknownEngineIDs
// against our cached value — RFC 3414 §4, puresnmp's retry-on-
// UnknownEngineID wrapper).
func (l *LCD) forget(engineID []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.engines, string(engineID))
}

// knownEngineIDs lists every engine currently cached, for diagnostics.
func (l *LCD) knownEngineIDs() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, 0, len(l.engines))
	for _, e := range l.engines {
		out = append(out, e.EngineID)
	}
	return out
}
