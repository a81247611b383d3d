// Copyright 2012-2016 The GoSNMP Authors. All rights reserved.  Use of this
// source code is governed by a BSD-style license that can be found in the
// LICENSE file.

package snmpcore

import (
	"context"

	"go.uber.org/zap"
)

// WalkFunc is called once per varbind a walk yields, in traversal order.
// Returning a non-nil error stops the walk early and that error becomes the
// walk's return value.
type WalkFunc func(VarBind) error

// ErrorMode controls how a walk reacts to an agent violating the
// strictly-increasing-OID invariant mid-traversal (spec.md §4.8 scenario
// S6). ErrorsStrict is the default puresnmp/raw.py behaviour of raising
// FaultySNMPImplementation; ErrorsWarn logs the violation and ends the walk
// silently, keeping whatever was already yielded.
type ErrorMode int

const (
	// ErrorsStrict raises FaultySNMPImplementation on a non-increasing OID.
	ErrorsStrict ErrorMode = iota
	// ErrorsWarn logs a non-increasing OID and ends the walk without error.
	ErrorsWarn
)

const defaultMaxRepetitions = 25

// walkOnce issues a single GetNext request for oid and classifies the
// result against root: whether it is still inside root's subtree, and
// whether the agent signalled end-of-MIB. Grounded on
// kokizzu-gosnmp/walk.go's walk(): the HasPrefix boundary check and the
// EndOfMibView/NoSuchObject/NoSuchInstance early-stop are both taken from
// there, generalized from a single running root to any one root passed in.
// Uses multiGetNextRaw rather than the public MultiGetNext: walkOnce drives
// its own boundary/termination logic directly off the raw exception value,
// which the public operation's EndOfMibView-truncation would otherwise hide.
func (c *Client) walkOnce(ctx context.Context, root, oid ObjectIdentifier) (VarBind, bool, error) {
	vbs, err := c.multiGetNextRaw(ctx, []ObjectIdentifier{oid})
	if err != nil {
		return VarBind{}, false, err
	}
	vb := vbs[0]
	if IsException(vb.Value) {
		return vb, false, nil
	}
	if !root.Contains(vb.OID) && !vb.OID.Equal(root) {
		return vb, false, nil
	}
	return vb, true, nil
}

// Walk traverses the subtree rooted at root using repeated GetNext calls,
// calling fn for each in-subtree varbind until the subtree is exhausted, an
// exception value is hit, or fn returns an error. mode controls what
// happens when the agent violates the strictly-increasing-OID invariant.
func (c *Client) Walk(ctx context.Context, root ObjectIdentifier, mode ErrorMode, fn WalkFunc) error {
	return c.multiWalkGetNext(ctx, []ObjectIdentifier{root}, mode, fn)
}

// MultiWalk traverses several subtrees with one interleaved GetNext loop
// per root (spec.md §4.8 walk state machine: {fetcher, user_roots,
// yielded_set, unfinished}). A varbind already yielded under one root is
// never yielded again under another — the dedup rule — which matters when
// roots overlap or a device aliases one subtree under two OIDs.
func (c *Client) MultiWalk(ctx context.Context, roots []ObjectIdentifier, mode ErrorMode, fn WalkFunc) error {
	return c.multiWalkGetNext(ctx, roots, mode, fn)
}

func (c *Client) multiWalkGetNext(ctx context.Context, roots []ObjectIdentifier, mode ErrorMode, fn WalkFunc) error {
	cursor := make([]ObjectIdentifier, len(roots))
	copy(cursor, roots)
	unfinished := make(map[int]bool, len(roots))
	for i := range roots {
		unfinished[i] = true
	}
	yielded := make(map[string]bool)

	for len(unfinished) > 0 {
		for i := range roots {
			if !unfinished[i] {
				continue
			}
			vb, inSubtree, err := c.walkOnce(ctx, roots[i], cursor[i])
			if err != nil {
				return err
			}
			if !inSubtree {
				delete(unfinished, i)
				continue
			}
			if !cursor[i].Less(vb.OID) {
				if mode == ErrorsWarn {
					c.log.Warn("walk: agent returned a non-increasing OID, ending walk",
						zap.String("requested", cursor[i].String()), zap.String("returned", vb.OID.String()))
					return nil
				}
				return &FaultySNMPImplementation{Requested: cursor[i], Returned: vb.OID}
			}
			key := vb.OID.String()
			cursor[i] = vb.OID
			if yielded[key] {
				continue
			}
			yielded[key] = true
			if err := fn(vb); err != nil {
				return err
			}
		}
	}
	return nil
}

// bulkFetcher pipelines GetBulk requests against a single root, feeding
// walkOnce-equivalent decisions from one wire round trip's worth of
// varbinds instead of one GetNext at a time (spec.md §4.8 bulk fetcher).
type bulkFetcher struct {
	client         *Client
	root           ObjectIdentifier
	maxRepetitions uint32
}

func (c *Client) newBulkFetcher(root ObjectIdentifier, maxRepetitions uint32) *bulkFetcher {
	if maxRepetitions == 0 {
		maxRepetitions = defaultMaxRepetitions
	}
	return &bulkFetcher{client: c, root: root, maxRepetitions: maxRepetitions}
}

// fetch returns the in-subtree prefix of one GetBulk response starting at
// oid, plus whether the subtree is exhausted (end-of-MIB or boundary hit
// within this batch).
func (f *bulkFetcher) fetch(ctx context.Context, oid ObjectIdentifier) (vbs []VarBind, exhausted bool, err error) {
	result, err := f.client.BulkGet(ctx, []ObjectIdentifier{oid}, 0, f.maxRepetitions)
	if err != nil {
		return nil, false, err
	}
	if len(result.VarBinds) == 0 {
		return nil, true, nil
	}
	for _, vb := range result.VarBinds {
		if IsException(vb.Value) {
			return vbs, true, nil
		}
		if !f.root.Contains(vb.OID) && !vb.OID.Equal(f.root) {
			return vbs, true, nil
		}
		vbs = append(vbs, vb)
	}
	return vbs, result.Exhausted, nil
}

// BulkWalk traverses the subtree rooted at root using GetBulk pipelining
// instead of GetNext, fetching maxRepetitions varbinds per wire round trip
// (0 selects defaultMaxRepetitions). Semantics otherwise match Walk.
func (c *Client) BulkWalk(ctx context.Context, root ObjectIdentifier, maxRepetitions uint32, mode ErrorMode, fn WalkFunc) error {
	fetcher := c.newBulkFetcher(root, maxRepetitions)
	cursor := root
	for {
		vbs, exhausted, err := fetcher.fetch(ctx, cursor)
		if err != nil {
			return err
		}
		for _, vb := range vbs {
			if !cursor.Less(vb.OID) {
				if mode == ErrorsWarn {
					c.log.Warn("bulk walk: agent returned a non-increasing OID, ending walk",
						zap.String("requested", cursor.String()), zap.String("returned", vb.OID.String()))
					return nil
				}
				return &FaultySNMPImplementation{Requested: cursor, Returned: vb.OID}
			}
			cursor = vb.OID
			if err := fn(vb); err != nil {
				return err
			}
		}
		if exhausted || len(vbs) == 0 {
			return nil
		}
	}
}

// Table walks tableOid (conventionally an entry OID, e.g. ifEntry) and
// groups the varbinds it yields into per-row VarBind slices keyed by the
// row index — the OID suffix after stripping the table's own two-arc
// (entry, column) prefix. fn is called once per complete row, in the order
// rows are first observed.
func (c *Client) Table(ctx context.Context, tableOid ObjectIdentifier, fn func(index string, row []VarBind) error) error {
	return c.tableWalk(ctx, tableOid, fn, func(ctx context.Context, root ObjectIdentifier, wf WalkFunc) error {
		return c.Walk(ctx, root, ErrorsStrict, wf)
	})
}

// BulkTable is Table, but pipelined with GetBulk like BulkWalk.
func (c *Client) BulkTable(ctx context.Context, tableOid ObjectIdentifier, maxRepetitions uint32, fn func(index string, row []VarBind) error) error {
	return c.tableWalk(ctx, tableOid, fn, func(ctx context.Context, root ObjectIdentifier, wf WalkFunc) error {
		return c.BulkWalk(ctx, root, maxRepetitions, ErrorsStrict, wf)
	})
}

func (c *Client) tableWalk(ctx context.Context, tableOid ObjectIdentifier, fn func(index string, row []VarBind) error,
	walk func(context.Context, ObjectIdentifier, WalkFunc) error) error {
	rows := make(map[string][]VarBind)
	order := make([]string, 0)

	err := walk(ctx, tableOid, func(vb VarBind) error {
		if vb.OID.Len() <= tableOid.Len()+1 {
			c.log.Warn("table walk produced a non-columnar OID, skipping", zap.String("oid", vb.OID.String()))
			return nil
		}
		index := vb.OID[tableOid.Len()+1:].String()
		if _, ok := rows[index]; !ok {
			order = append(order, index)
		}
		rows[index] = append(rows[index], vb)
		return nil
	})
	if err != nil {
		return err
	}
	for _, index := range order {
		if err := fn(index, rows[index]); err != nil {
			return err
		}
	}
	return nil
}
