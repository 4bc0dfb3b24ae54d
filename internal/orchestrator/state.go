// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

// Package orchestrator implements the aggregator's single-round state
// machine: commit collection, reveal collection, TEE aggregation, and
// publication to the beacon ledger.
//
// Grounded on v2/tss/round.go and v2/tss/party.go (BaseParty.Update /
// advance / CanProceed), which advance protocol progress as a round index
// under a mutex, one step at a time, never holding the lock across network
// I/O. This package keeps that discipline but replaces a multi-round MPC
// advance with a closed sum type of five phases. The state is modeled as a
// Go interface with an unexported marker method so the only
// implementations are the ones in this file — the original Rust source's
// bug of keeping commit/reveal maps both inside the active variant and in
// separate side-maps is avoided by giving each variant sole ownership of
// the maps it needs.
package orchestrator

import "github.com/entropybeacon/beacon/internal/wire"

// commitRecord is the accepted commitment for one node in the current
// round.
type commitRecord struct {
	commitment [32]byte
}

// revealRecord is the accepted reveal for one node in the current round.
type revealRecord struct {
	secret [32]byte
}

// aggregatorState is the closed sum type of aggregator phases. Only the
// types in this file may implement it.
type aggregatorState interface {
	isAggregatorState()
}

// idleState is the phase between rounds and the terminal phase of a
// completed or abandoned round.
type idleState struct{}

func (idleState) isAggregatorState() {}

// collectingCommitmentsState holds the commit map for the round currently
// gathering commitments. It is the sole owner of commits for this phase.
type collectingCommitmentsState struct {
	roundID   uint64
	committee []wire.NodeID
	threshold int
	commits   map[wire.NodeID]commitRecord
}

func (*collectingCommitmentsState) isAggregatorState() {}

// isMember reports whether nodeID was named in this round's committee,
// mirroring worker.Engine.HandleStartCommitment's own membership check on
// the other side of the wire.
func (s *collectingCommitmentsState) isMember(nodeID wire.NodeID) bool {
	for _, id := range s.committee {
		if id == nodeID {
			return true
		}
	}
	return false
}

// collectingRevealsState carries the commits forward (needed to validate
// each reveal against its stored commitment) and is the sole owner of the
// reveal map.
type collectingRevealsState struct {
	roundID   uint64
	threshold int
	commits   map[wire.NodeID]commitRecord
	reveals   map[wire.NodeID]revealRecord
}

func (*collectingRevealsState) isAggregatorState() {}

// aggregatingState holds the accepted reveals while seed construction and
// TEE aggregation run.
type aggregatingState struct {
	roundID uint64
	reveals map[wire.NodeID]revealRecord
}

func (*aggregatingState) isAggregatorState() {}

// publishingState holds the TEE's output while the randomness event is
// signed and submitted to the beacon ledger.
type publishingState struct {
	roundID      uint64
	randomNumber [32]byte
	nonce        [16]byte
	attestation  []byte
}

func (*publishingState) isAggregatorState() {}
