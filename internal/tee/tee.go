// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

// Package tee defines the TEE enclave capability contract from §4.4: a
// seed-based aggregation that produces a random number, a nonce, and an
// attestation report binding them, plus attestation verification.
//
// Grounded on entropy-aggregator/src/tee/{mod,mock}.rs: the Enclave
// interface is the Go equivalent of the Rust TEEEnclave trait, substitutable
// between Mock and production implementations with callers never branching
// on which one is in use (spec.md §9, "TEE as an interface").
package tee

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"
)

// NonceSize is the length in bytes of the TEE-produced nonce.
const NonceSize = 16

// RandomSize is the length in bytes of the produced random number.
const RandomSize = 32

// CodeMeasurementSize is the length in bytes of the enclave code
// measurement carried in an AttestationReport.
const CodeMeasurementSize = 32

// AttestationReport is the structural content of a TEE attestation: the
// bytes it cryptographically binds, plus metadata a verifier checks for
// well-formedness and freshness.
type AttestationReport struct {
	RandomNumber    [RandomSize]byte
	Nonce           [NonceSize]byte
	CodeMeasurement [CodeMeasurementSize]byte
	TimestampUnix   uint64
}

// Result is the tuple an Enclave.Aggregate call returns.
type Result struct {
	RandomNumber [RandomSize]byte
	Nonce        [NonceSize]byte
	Report       []byte // opaque encoding of AttestationReport (see ParseReport); carries no signature
}

// Enclave abstracts in-enclave aggregation, opaque to the orchestrator.
// Implementations: Mock for development, SGX-equivalent for production.
type Enclave interface {
	// Aggregate binds seed and a fresh intra-enclave entropy source into a
	// random number, and returns an attestation report covering it.
	Aggregate(ctx context.Context, seed []byte) (Result, error)

	// VerifyAttestation validates report's structural fields (sizes,
	// non-zero code measurement, timestamp within tolerance of now) and,
	// in a production implementation, the vendor quote signature.
	VerifyAttestation(report []byte) (bool, error)
}

// maxAttestationAge bounds how stale a timestamp inside a report may be
// before VerifyAttestation rejects it.
const maxAttestationAge = 5 * time.Minute

// ParseReport decodes a mock/structural attestation report. Production
// implementations encode the vendor quote instead and must supply their
// own decoder.
func ParseReport(report []byte) (AttestationReport, error) {
	const encodedLen = RandomSize + NonceSize + CodeMeasurementSize + 8
	if len(report) < encodedLen {
		return AttestationReport{}, fmt.Errorf("tee: report too short: %d bytes", len(report))
	}
	var out AttestationReport
	off := 0
	copy(out.RandomNumber[:], report[off:off+RandomSize])
	off += RandomSize
	copy(out.Nonce[:], report[off:off+NonceSize])
	off += NonceSize
	copy(out.CodeMeasurement[:], report[off:off+CodeMeasurementSize])
	off += CodeMeasurementSize
	out.TimestampUnix = beUint64(report[off : off+8])
	return out, nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// structurallyValid implements the shared, mode-independent half of
// VerifyAttestation: non-zero code measurement and a timestamp within
// maxAttestationAge of now. Mock uses this as its whole check; a
// production implementation layers vendor quote verification on top.
func structurallyValid(report AttestationReport, now time.Time) bool {
	var zero [CodeMeasurementSize]byte
	if report.CodeMeasurement == zero {
		return false
	}
	reportedAt := time.Unix(int64(report.TimestampUnix), 0)
	age := now.Sub(reportedAt)
	if age < 0 {
		age = -age
	}
	return age <= maxAttestationAge
}

func encodeReport(r AttestationReport) []byte {
	out := make([]byte, 0, RandomSize+NonceSize+CodeMeasurementSize+8)
	out = append(out, r.RandomNumber[:]...)
	out = append(out, r.Nonce[:]...)
	out = append(out, r.CodeMeasurement[:]...)
	var ts [8]byte
	for i := 7; i >= 0; i-- {
		ts[i] = byte(r.TimestampUnix)
		r.TimestampUnix >>= 8
	}
	out = append(out, ts[:]...)
	return out
}

// SeedCommitment returns SHA-256(seed), for binding the enclave's output to
// the seed without replaying the whole seed through the report. Neither
// MockEnclave nor SGXEnclave calls it.
func SeedCommitment(seed []byte) [32]byte {
	return sha256.Sum256(seed)
}
