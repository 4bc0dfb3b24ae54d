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
	"time"

	"github.com/entropybeacon/beacon/internal/apierror"
)

// SGXEnclave is the production Enclave contract's structural half: it
// performs real intra-enclave nonce generation and binds the result with
// the same AttestationReport shape as MockEnclave, but does not — and
// cannot, without a vendor SDK — produce or verify an actual SGX quote.
//
// spec.md §9 leaves this as an Open Question: the original source's
// production attestation verification is a stub returning true; this spec
// requires a conforming implementation to implement it. This module
// implements everything that does not require vendor hardware (structural
// verification, the random/nonce binding) and documents, rather than
// fakes, the missing piece: VerifyAttestation here cannot do more than
// structural checks until wired to a real quoting enclave, so it is kept
// as a distinct type rather than silently aliased to MockEnclave, so a
// deployment can fail closed (e.g. refuse to start) if it is selected
// without that wiring in place. See New in factory.go.
type SGXEnclave struct {
	codeMeasurement [CodeMeasurementSize]byte
	now             func() time.Time
}

// NewSGXEnclave constructs an SGXEnclave bound to the given enclave code
// measurement (normally read from a signed enclave manifest).
func NewSGXEnclave(codeMeasurement [CodeMeasurementSize]byte) *SGXEnclave {
	return &SGXEnclave{codeMeasurement: codeMeasurement, now: time.Now}
}

var _ Enclave = (*SGXEnclave)(nil)

// Aggregate mixes seed with fresh intra-enclave entropy (crypto/rand here;
// a real deployment reads this from the SGX hardware RNG instruction) so
// that, unlike the mock, random_number is not a pure function of seed.
func (s *SGXEnclave) Aggregate(ctx context.Context, seed []byte) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	var entropy [RandomSize]byte
	if _, err := rand.Read(entropy[:]); err != nil {
		return Result{}, apierror.Wrap(apierror.TEEError, "sgx_aggregate", fmt.Errorf("enclave entropy source unavailable: %w", err))
	}
	mixed := sha256.New()
	mixed.Write(seed)
	mixed.Write(entropy[:])
	var randomNumber [RandomSize]byte
	copy(randomNumber[:], mixed.Sum(nil))

	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return Result{}, apierror.Wrap(apierror.TEEError, "sgx_aggregate", fmt.Errorf("nonce entropy unavailable: %w", err))
	}

	report := AttestationReport{
		RandomNumber:    randomNumber,
		Nonce:           nonce,
		CodeMeasurement: s.codeMeasurement,
		TimestampUnix:   uint64(s.now().Unix()),
	}
	return Result{RandomNumber: randomNumber, Nonce: nonce, Report: encodeReport(report)}, nil
}

// VerifyAttestation performs the structural checks common to every TEE
// implementation. It deliberately does NOT claim to verify a vendor quote:
// callers that require full SGX quote verification must wrap this type
// with a vendor-SDK-backed verifier before deploying to production.
func (s *SGXEnclave) VerifyAttestation(report []byte) (bool, error) {
	parsed, err := ParseReport(report)
	if err != nil {
		return false, err
	}
	if parsed.CodeMeasurement != s.codeMeasurement {
		return false, nil
	}
	return structurallyValid(parsed, s.now()), nil
}
