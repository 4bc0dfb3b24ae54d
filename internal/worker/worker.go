// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

// Package worker implements per-node secret generation, commitment
// binding, deterministic reveal, and signed message construction.
//
// Grounded on entropy-worker/src/worker.rs for the per-node state machine
// (current round/secret/commitment, reset-on-idempotent-call semantics),
// generalized from the original's TcpStream-holding struct to a
// connection-agnostic engine — internal/worker/client.go owns the network
// side separately, following this module's "don't hold a mutex/connection
// across unrelated concerns" layering (tss.Party keeps round state and
// network transport separate too).
package worker

import (
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/entropybeacon/beacon/internal/apierror"
	"github.com/entropybeacon/beacon/internal/cryptoprimitives"
	"github.com/entropybeacon/beacon/internal/logging"
	"github.com/entropybeacon/beacon/internal/wire"
)

var log = logging.Logger("worker")

// roundState is the worker's in-memory state for the round it is currently
// participating in. A worker owns at most one at a time.
type roundState struct {
	roundID    uint64
	secret     [cryptoprimitives.SecretSize]byte
	commitment [32]byte
}

// Engine is one worker node's protocol state: a long-term keypair plus the
// (at most one) round it is currently participating in.
type Engine struct {
	nodeID wire.NodeID
	sk     *btcec.PrivateKey
	pk     *btcec.PublicKey

	mu      sync.Mutex
	current *roundState
}

// New creates a worker engine with a freshly generated long-term keypair.
func New(nodeID wire.NodeID) (*Engine, error) {
	sk, pk, err := cryptoprimitives.GenerateKeypair()
	if err != nil {
		return nil, apierror.Wrap(apierror.ConfigError, "worker_new", err)
	}
	return &Engine{nodeID: nodeID, sk: sk, pk: pk}, nil
}

// NodeID returns the worker's identity.
func (e *Engine) NodeID() wire.NodeID { return e.nodeID }

// PublicKeyBytes returns the worker's compressed secp256k1 public key.
func (e *Engine) PublicKeyBytes() []byte { return e.pk.SerializeCompressed() }

// IsParticipating reports whether the worker currently holds round state.
func (e *Engine) IsParticipating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// CurrentRoundID returns the round the worker is participating in, if any.
func (e *Engine) CurrentRoundID() (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return 0, false
	}
	return e.current.roundID, true
}

// HandleStartCommitment handles a StartCommitmentMsg: it fails with
// NotInCommittee if the worker is not named in msg.Committee,
// fails with AlreadyParticipating if the worker already holds state for a
// different round, and otherwise samples a fresh secret, binds it to a
// commitment, signs the commitment, stores the round state, and returns
// the payload to send to the aggregator.
func (e *Engine) HandleStartCommitment(msg wire.StartCommitmentMsg) (wire.CommitmentPayload, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inCommittee := false
	for _, id := range msg.Committee {
		if id == e.nodeID {
			inCommittee = true
			break
		}
	}
	if !inCommittee {
		return wire.CommitmentPayload{}, apierror.New(apierror.NotInCommittee, "handle_start_commitment").
			WithRound(msg.RoundID).WithNode(e.nodeID)
	}

	if e.current != nil && e.current.roundID != msg.RoundID {
		return wire.CommitmentPayload{}, apierror.New(apierror.AlreadyParticipating, "handle_start_commitment").
			WithRound(msg.RoundID).WithNode(e.nodeID)
	}

	secret, err := cryptoprimitives.GenerateSecret()
	if err != nil {
		return wire.CommitmentPayload{}, apierror.Wrap(apierror.ConfigError, "handle_start_commitment", err).WithRound(msg.RoundID)
	}
	commitment := cryptoprimitives.Commit(secret, msg.RoundID)
	sig, err := cryptoprimitives.Sign(e.sk, msg.RoundID, commitment)
	if err != nil {
		return wire.CommitmentPayload{}, apierror.Wrap(apierror.ConfigError, "handle_start_commitment", err).WithRound(msg.RoundID)
	}

	e.current = &roundState{roundID: msg.RoundID, secret: secret, commitment: commitment}

	log.Infow("produced commitment", "node_id", e.nodeID, "round_id", msg.RoundID)

	return wire.CommitmentPayload{
		RoundID:    msg.RoundID,
		Commitment: commitment,
		Signature:  sig,
	}, nil
}

// CreateRevealMessage implements create_reveal_message: it requires
// current round state and returns the reveal envelope. It does not clear
// state; the caller resets via ResetState once the reveal has been sent.
func (e *Engine) CreateRevealMessage(now time.Time) (wire.RevealMsg, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return wire.RevealMsg{}, apierror.New(apierror.NotParticipating, "create_reveal_message").WithNode(e.nodeID)
	}

	return wire.RevealMsg{
		RoundID: e.current.roundID,
		Payload: wire.RevealPayload{
			RoundID: e.current.roundID,
			Secret:  e.current.secret,
		},
		NodeID:       e.nodeID,
		TimestampSec: uint64(now.Unix()),
	}, nil
}

// ResetState zeroes the worker's round state. Idempotent.
func (e *Engine) ResetState() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil {
		e.current.secret = [cryptoprimitives.SecretSize]byte{}
		e.current = nil
	}
}
