// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

// Package wire defines the on-the-wire message types exchanged between
// workers and the aggregator, and between the aggregator and the beacon
// ledger. Types here are pure data: validation and protocol semantics live
// in internal/worker, internal/orchestrator, and internal/beacon.
package wire

// NodeID identifies a committee member. Comparison is bytewise
// lexicographic; equality defines committee membership.
type NodeID = string

// ProtocolVersion is bumped whenever a wire-incompatible change is made to
// the message types below.
const ProtocolVersion uint32 = 1

// CommitmentPayload is the signed portion of a worker's commitment. The
// signed digest is SHA-256(round_id_le_8 || commitment) — Signature is
// deliberately excluded from its own preimage (see DESIGN.md, "self
// referential signed payload").
type CommitmentPayload struct {
	RoundID    uint64 `json:"round_id"`
	Commitment [32]byte `json:"commitment"`
	Signature  []byte `json:"signature"`
}

// RevealPayload carries the revealed secret for a round. Valid iff
// SHA-256(secret || round_id_le_8) equals the previously stored commitment
// for (round_id, node_id).
type RevealPayload struct {
	RoundID uint64   `json:"round_id"`
	Secret  [32]byte `json:"secret"`
}

// CommitmentMsg envelopes a CommitmentPayload with sender identity and an
// advisory timestamp. Trust comes from the signature and the
// commitment/reveal binding, never from the timestamp.
type CommitmentMsg struct {
	RoundID      uint64            `json:"round_id"`
	Payload      CommitmentPayload `json:"payload"`
	NodeID       NodeID            `json:"node_id"`
	TimestampSec uint64            `json:"timestamp_secs"`
}

// RevealMsg envelopes a RevealPayload with sender identity and an advisory
// timestamp.
type RevealMsg struct {
	RoundID      uint64        `json:"round_id"`
	Payload      RevealPayload `json:"payload"`
	NodeID       NodeID        `json:"node_id"`
	TimestampSec uint64        `json:"timestamp_secs"`
}

// StartCommitmentMsg is broadcast by the aggregator to begin the commitment
// phase of a round.
type StartCommitmentMsg struct {
	RoundID   uint64   `json:"round_id"`
	Committee []NodeID `json:"committee"`
}

// StartRevealMsg is broadcast by the aggregator to begin the reveal phase
// of a round, once quorum commitments have been accepted.
type StartRevealMsg struct {
	RoundID uint64 `json:"round_id"`
}

// HeartbeatMsg is an advisory liveness probe from a worker. It never
// affects round progression; the aggregator logs it and replies ACK.
//
// Supplements spec.md's distilled message set with
// original_source/types/src/lib.rs's HeartbeatMsg (dropped by the
// distillation, not excluded by any Non-goal).
type HeartbeatMsg struct {
	NodeID       NodeID `json:"node_id"`
	TimestampSec uint64 `json:"timestamp_secs"`
	Status       string `json:"status"`
}

// RoundCompletionMsg describes a round that finished publishing
// successfully. It is informational only: the aggregator does not construct
// or send it, and nothing in the protocol depends on it.
//
// Supplements spec.md with original_source/types/src/lib.rs's
// RoundCompletionMsg.
type RoundCompletionMsg struct {
	RoundID      uint64   `json:"round_id"`
	RandomNumber [32]byte `json:"random_number"`
	Participants []NodeID `json:"participants"`
	TimestampSec uint64   `json:"timestamp_secs"`
}

// ErrorMessage is a structured error detail: an error Kind string plus a
// human-readable message. The aggregator's acceptor does not send it; its
// ERROR reply is the bare response token alone.
type ErrorMessage struct {
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	TimestampSec uint64 `json:"timestamp_secs"`
}

// RandomnessEvent is the artifact published per round: the aggregated
// random number, the TEE nonce that was mixed into it, and the attestation
// report binding the two. Persisted on the beacon ledger, immutable once
// accepted.
type RandomnessEvent struct {
	RoundID      uint64   `json:"round_id"`
	RandomNumber [32]byte `json:"random_number"`
	Nonce        [16]byte `json:"nonce"`
	Attestation  []byte   `json:"attestation"`
}

// SubmitRandomness is the signed event pair submitted to the beacon ledger.
// The HTTP transport in internal/beacon does not send this type directly:
// its request body carries the same event and signature plus the caller's
// public key.
type SubmitRandomness struct {
	Event     RandomnessEvent `json:"event"`
	Signature []byte          `json:"signature"`
}
