// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

// Package committee implements the Committee entity from §3: an ordered,
// duplicate-free sequence of node ids with set-based membership checks,
// plus the bytewise-ascending sort used for seed construction (§4.4).
//
// Grounded on tss.SortPartyIDs (tss/party_id.go), which sorts *PartyID by
// key and assigns indices; this package generalizes that to plain NodeID
// strings sorted lexicographically, since this protocol has no notion of
// a party index.
package committee

import (
	"sort"

	"github.com/entropybeacon/beacon/internal/apierror"
	"github.com/entropybeacon/beacon/internal/wire"
)

// Committee is a validated, ordered list of NodeIDs for one round.
type Committee struct {
	members []wire.NodeID
	index   map[wire.NodeID]struct{}
}

// New validates members (non-empty, no duplicates) and returns a Committee.
// The input order is preserved for StartCommitmentMsg broadcast;
// membership lookups go through a set, and seed construction sorts
// separately via SortNodeIDs.
func New(members []wire.NodeID) (*Committee, error) {
	if len(members) == 0 {
		return nil, apierror.New(apierror.ConfigError, "committee_new")
	}
	index := make(map[wire.NodeID]struct{}, len(members))
	for _, m := range members {
		if _, dup := index[m]; dup {
			return nil, apierror.New(apierror.ConfigError, "committee_new")
		}
		index[m] = struct{}{}
	}
	cp := make([]wire.NodeID, len(members))
	copy(cp, members)
	return &Committee{members: cp, index: index}, nil
}

// Contains reports whether nodeID is a member of the committee.
func (c *Committee) Contains(nodeID wire.NodeID) bool {
	_, ok := c.index[nodeID]
	return ok
}

// Size returns the number of committee members.
func (c *Committee) Size() int {
	return len(c.members)
}

// Members returns the committee in its original broadcast order. The
// returned slice must not be mutated.
func (c *Committee) Members() []wire.NodeID {
	return c.members
}

// ValidateThreshold enforces 1 <= threshold <= len(committee), the
// construction-time invariant from §4.3; violations are a ConfigError.
func ValidateThreshold(threshold, committeeSize int) error {
	if threshold < 1 || threshold > committeeSize {
		return apierror.New(apierror.ConfigError, "validate_threshold")
	}
	return nil
}

// SortNodeIDs returns a freshly sorted, bytewise-ascending copy of ids.
// This is the ordering used to build the TEE seed in §4.4, so that any two
// honest aggregators that accept the same set of reveals produce
// byte-identical seeds regardless of arrival order.
func SortNodeIDs(ids []wire.NodeID) []wire.NodeID {
	sorted := make([]wire.NodeID, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	return sorted
}
