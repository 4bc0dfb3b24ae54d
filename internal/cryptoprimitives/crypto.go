// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

// Package cryptoprimitives implements secret generation, commitment
// hashing, and secp256k1 recoverable-signature sign/verify for the
// commit-reveal protocol.
//
// Grounded on github.com/btcsuite/btcd/btcec/v2 (see tss/curve.go) for
// secp256k1, generalized from threshold-ECDSA signing to single-key
// recoverable commitment signatures. SHA-256 domain separation
// follows entropy-worker/src/crypto.rs's compute_commitment/sign_commitment
// exactly (round_id little-endian bytes bound into both the commitment and
// the signed digest).
package cryptoprimitives

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/entropybeacon/beacon/internal/apierror"
)

// SecretSize is the length in bytes of a worker's per-round secret.
const SecretSize = 32

// SignatureSize is the length in bytes of a recoverable secp256k1
// signature: 64 compact bytes (R || S) followed by a 1-byte recovery id.
const SignatureSize = 65

// PublicKeySize is the length in bytes of a compressed secp256k1 public key.
const PublicKeySize = 33

// GenerateSecret draws SecretSize bytes from the OS CSPRNG. It fails only
// if the OS RNG is unavailable, which this module treats as fatal to the
// calling worker.
func GenerateSecret() ([SecretSize]byte, error) {
	var secret [SecretSize]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return secret, fmt.Errorf("cryptoprimitives: OS RNG unavailable: %w", err)
	}
	return secret, nil
}

// Commit returns SHA-256(secret || round_id_le_8). The round_id binding is
// the domain separator that prevents a commitment from one round being
// replayed as valid in another.
func Commit(secret [SecretSize]byte, roundID uint64) [32]byte {
	h := sha256.New()
	h.Write(secret[:])
	var roundBytes [8]byte
	binary.LittleEndian.PutUint64(roundBytes[:], roundID)
	h.Write(roundBytes[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// GenerateKeypair generates a secp256k1 long-term keypair for a worker or
// the aggregator, rejection-sampled by btcec into the curve order.
func GenerateKeypair() (*btcec.PrivateKey, *btcec.PublicKey, error) {
	sk, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, nil, fmt.Errorf("cryptoprimitives: generate keypair: %w", err)
	}
	return sk, sk.PubKey(), nil
}

// signedDigest computes SHA-256(round_id_le_8 || commitment), the only
// bytes that are ever signed. The CommitmentPayload's own Signature field
// is never part of this digest — see DESIGN.md "self-referential signed
// payload".
func signedDigest(roundID uint64, commitment [32]byte) [32]byte {
	h := sha256.New()
	var roundBytes [8]byte
	binary.LittleEndian.PutUint64(roundBytes[:], roundID)
	h.Write(roundBytes[:])
	h.Write(commitment[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// SignDigest produces a 65-byte recoverable ECDSA signature over an
// arbitrary 32-byte digest: 64 compact bytes followed by a 1-byte recovery
// id in [0, 3].
//
// btcec's ecdsa.SignCompact returns a recovery-code-prefixed 65-byte
// format (code || R || S); this function re-orders those bytes to a
// sig(64) || recovery_id(1) layout so every caller in this module only
// ever sees that layout on the wire.
func SignDigest(sk *btcec.PrivateKey, digest [32]byte) ([]byte, error) {
	compact := ecdsa.SignCompact(sk, digest[:], false)
	if len(compact) != SignatureSize {
		return nil, fmt.Errorf("cryptoprimitives: unexpected compact signature length %d", len(compact))
	}
	recoveryCode := compact[0]
	recoveryID := recoveryCode - 27
	if recoveryID >= 4 {
		recoveryID -= 4 // compressed-pubkey marker bit
	}
	out := make([]byte, SignatureSize)
	copy(out[0:64], compact[1:65])
	out[64] = recoveryID
	return out, nil
}

// VerifyDigest checks a 65-byte recoverable signature over an arbitrary
// 32-byte digest against pubKeyBytes (a compressed secp256k1 public key).
// It rejects length != 65, an invalid recovery id, a malformed public key,
// or a failed recovery/verify.
func VerifyDigest(pubKeyBytes []byte, digest [32]byte, sig []byte) bool {
	if len(sig) != SignatureSize {
		return false
	}
	recoveryID := sig[64]
	if recoveryID > 3 {
		return false
	}
	expectedPub, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false
	}
	compact := make([]byte, SignatureSize)
	compact[0] = 27 + recoveryID + 4 // always request the compressed recovered key
	copy(compact[1:65], sig[0:64])

	recoveredPub, _, err := ecdsa.RecoverCompact(compact, digest[:])
	if err != nil {
		return false
	}
	return recoveredPub.IsEqual(expectedPub)
}

// Sign signs signedDigest(roundID, commitment). See SignDigest.
func Sign(sk *btcec.PrivateKey, roundID uint64, commitment [32]byte) ([]byte, error) {
	return SignDigest(sk, signedDigest(roundID, commitment))
}

// Verify checks a signature over signedDigest(roundID, commitment). See
// VerifyDigest.
func Verify(pubKeyBytes []byte, roundID uint64, commitment [32]byte, sig []byte) bool {
	return VerifyDigest(pubKeyBytes, signedDigest(roundID, commitment), sig)
}

// VerifyOrError is Verify wrapped in the module's typed error, for callers
// (the orchestrator) that need a rejection reason rather than a bool.
func VerifyOrError(pubKeyBytes []byte, roundID uint64, commitment [32]byte, sig []byte) error {
	if !Verify(pubKeyBytes, roundID, commitment, sig) {
		return apierror.New(apierror.InvalidSignature, "verify_commitment_signature").WithRound(roundID)
	}
	return nil
}
