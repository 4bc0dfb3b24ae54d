// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

// Package ledger implements the beacon ledger contract: an append-only,
// admin-authenticated store of RandomnessEvents, at most one per round_id.
//
// Grounded on original_source/beacon-microchain/src/{lib.rs,state.rs}'s
// BeaconState/BeaconContract (admin_public_key, current_round_id, an
// events map, and an Instantiate/SubmitRandomness/GetRandomness
// operation set). The original's signature verification is a stub that
// always returns true and its SubmitRandomness silently overwrites an
// existing round_id; this package fixes both: VerifyDigest is used for
// real, and a duplicate round_id is rejected rather than overwritten.
package ledger

import (
	"sync"

	"github.com/entropybeacon/beacon/internal/apierror"
	"github.com/entropybeacon/beacon/internal/cryptoprimitives"
	"github.com/entropybeacon/beacon/internal/wire"
)

// State is the beacon ledger's persisted contents: the admin key set at
// Instantiate time, the highest round_id ever accepted, and every
// accepted event keyed by round_id.
type State struct {
	mu sync.RWMutex

	instantiated   bool
	adminPublicKey []byte
	currentRoundID uint64
	events         map[uint64]wire.RandomnessEvent
}

// New constructs an empty, uninstantiated ledger state.
func New() *State {
	return &State{events: make(map[uint64]wire.RandomnessEvent)}
}

// Instantiate sets the ledger's admin public key. It is one-shot:
// subsequent calls fail with ConfigError regardless of whether the key
// matches.
func (s *State) Instantiate(adminPublicKey []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.instantiated {
		return apierror.New(apierror.ConfigError, "instantiate")
	}
	key := make([]byte, len(adminPublicKey))
	copy(key, adminPublicKey)
	s.adminPublicKey = key
	s.instantiated = true
	return nil
}

// SubmitRandomness authenticates callerPublicKey against the admin key,
// verifies signature over wire.EventDigest(event), and inserts event if
// its round_id has not already been stored.
//
// Rejections: Unauthorized (caller is not the admin, or the ledger has
// not been instantiated), InvalidSignature, DuplicateSubmission (round_id
// already present — this is the taxonomy's name for what §4.4 calls
// DuplicateRound).
func (s *State) SubmitRandomness(callerPublicKey []byte, event wire.RandomnessEvent, signature []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.instantiated {
		return apierror.New(apierror.Unauthorized, "submit_randomness").WithRound(event.RoundID)
	}
	if !equalKeys(callerPublicKey, s.adminPublicKey) {
		return apierror.New(apierror.Unauthorized, "submit_randomness").WithRound(event.RoundID)
	}

	digest, err := wire.EventDigest(event)
	if err != nil {
		return apierror.Wrap(apierror.ConfigError, "submit_randomness", err).WithRound(event.RoundID)
	}
	if !cryptoprimitives.VerifyDigest(s.adminPublicKey, digest, signature) {
		return apierror.New(apierror.InvalidSignature, "submit_randomness").WithRound(event.RoundID)
	}

	if _, exists := s.events[event.RoundID]; exists {
		return apierror.New(apierror.DuplicateSubmission, "submit_randomness").WithRound(event.RoundID)
	}

	s.events[event.RoundID] = event
	if event.RoundID > s.currentRoundID {
		s.currentRoundID = event.RoundID
	}
	return nil
}

// GetRandomness is a pure query for the event stored under roundID, if
// any.
func (s *State) GetRandomness(roundID uint64) (wire.RandomnessEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[roundID]
	return event, ok
}

// CurrentRoundID returns the highest round_id ever accepted.
func (s *State) CurrentRoundID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRoundID
}

func equalKeys(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
