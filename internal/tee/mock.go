// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

package tee

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"sync/atomic"
	"time"
)

// MockEnclave simulates TEE behavior without requiring real hardware, for
// local development. Grounded on entropy-aggregator/src/tee/mock.rs:
// random_number = SHA-256(seed), nonce is fresh per call, and the
// attestation report deterministically covers (random_number, nonce, a
// fixed code measurement, now), as spec.md §4.4 specifies for the mock.
type MockEnclave struct {
	codeMeasurement [CodeMeasurementSize]byte
	counter         uint64
	now             func() time.Time
}

// NewMockEnclave constructs a MockEnclave with a fixed, non-zero code
// measurement standing in for a real enclave's measured code identity.
func NewMockEnclave() *MockEnclave {
	var measurement [CodeMeasurementSize]byte
	h := sha256.Sum256([]byte("entropybeacon-mock-tee-v1"))
	copy(measurement[:], h[:])
	return &MockEnclave{codeMeasurement: measurement, now: time.Now}
}

var _ Enclave = (*MockEnclave)(nil)

// Aggregate returns random_number = SHA-256(seed) and a monotonic
// counter-derived nonce, per spec.md §4.4's normative mock contract.
func (m *MockEnclave) Aggregate(ctx context.Context, seed []byte) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	randomNumber := sha256.Sum256(seed)

	n := atomic.AddUint64(&m.counter, 1)
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:8]); err != nil {
		return Result{}, fmt.Errorf("tee: mock nonce entropy unavailable: %w", err)
	}
	for i := 0; i < 8; i++ {
		nonce[8+i] = byte(n >> (8 * (7 - i)))
	}

	report := AttestationReport{
		RandomNumber:    randomNumber,
		Nonce:           nonce,
		CodeMeasurement: m.codeMeasurement,
		TimestampUnix:   uint64(m.now().Unix()),
	}

	return Result{
		RandomNumber: randomNumber,
		Nonce:        nonce,
		Report:       encodeReport(report),
	}, nil
}

// VerifyAttestation performs the mock's structural check: well-formed
// fields, non-zero code measurement, fresh timestamp. It does not verify a
// vendor quote, since the mock has none.
func (m *MockEnclave) VerifyAttestation(report []byte) (bool, error) {
	parsed, err := ParseReport(report)
	if err != nil {
		return false, err
	}
	if parsed.CodeMeasurement != m.codeMeasurement {
		return false, nil
	}
	return structurallyValid(parsed, m.now()), nil
}
