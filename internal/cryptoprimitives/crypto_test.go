// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

package cryptoprimitives

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommit_Deterministic(t *testing.T) {
	var secret [SecretSize]byte
	secret[0] = 0xAB

	a := Commit(secret, 7)
	b := Commit(secret, 7)
	assert.Equal(t, a, b, "committing the same secret and round twice must yield the same commitment")

	diffRound := Commit(secret, 8)
	assert.NotEqual(t, a, diffRound, "round_id is a domain separator")

	var otherSecret [SecretSize]byte
	otherSecret[0] = 0xCD
	diffSecret := Commit(otherSecret, 7)
	assert.NotEqual(t, a, diffSecret)
}

func TestSignVerify_RoundTrip(t *testing.T) {
	sk, pk, err := GenerateKeypair()
	require.NoError(t, err)

	var secret [SecretSize]byte
	secret[0] = 0x01
	roundID := uint64(42)
	commitment := Commit(secret, roundID)

	sig, err := Sign(sk, roundID, commitment)
	require.NoError(t, err)
	require.Len(t, sig, SignatureSize)

	assert.True(t, Verify(pk.SerializeCompressed(), roundID, commitment, sig))
}

func TestVerify_RejectsWrongRoundOrCommitment(t *testing.T) {
	sk, pk, err := GenerateKeypair()
	require.NoError(t, err)

	var secret [SecretSize]byte
	secret[0] = 0x02
	roundID := uint64(1)
	commitment := Commit(secret, roundID)

	sig, err := Sign(sk, roundID, commitment)
	require.NoError(t, err)

	assert.False(t, Verify(pk.SerializeCompressed(), roundID+1, commitment, sig), "signature is bound to round_id")

	var otherCommitment [32]byte
	otherCommitment[0] = 0xFF
	assert.False(t, Verify(pk.SerializeCompressed(), roundID, otherCommitment, sig), "signature is bound to the commitment")

	_, otherPk, err := GenerateKeypair()
	require.NoError(t, err)
	assert.False(t, Verify(otherPk.SerializeCompressed(), roundID, commitment, sig), "signature does not verify under an unrelated public key")
}

func TestVerifyDigest_RecoveryByteBoundary(t *testing.T) {
	sk, pk, err := GenerateKeypair()
	require.NoError(t, err)

	var digest [32]byte
	digest[0] = 0x11
	sig, err := SignDigest(sk, digest)
	require.NoError(t, err)
	require.Len(t, sig, SignatureSize)

	actualRecoveryID := sig[64]
	require.LessOrEqual(t, actualRecoveryID, byte(3), "SignDigest always produces a recovery id in [0, 3]")
	assert.True(t, VerifyDigest(pk.SerializeCompressed(), digest, sig), "the recovery id SignDigest actually produced must verify")

	for candidate := byte(0); candidate <= 3; candidate++ {
		trial := make([]byte, SignatureSize)
		copy(trial, sig)
		trial[64] = candidate
		// Every id in [0, 3] must clear the range check and reach recovery;
		// only the id matching the real signature is expected to verify.
		got := VerifyDigest(pk.SerializeCompressed(), digest, trial)
		if candidate == actualRecoveryID {
			assert.True(t, got, "recovery id %d is the correct one and must verify", candidate)
		}
	}

	for _, candidate := range []byte{4, 255} {
		trial := make([]byte, SignatureSize)
		copy(trial, sig)
		trial[64] = candidate
		assert.False(t, VerifyDigest(pk.SerializeCompressed(), digest, trial), "recovery id %d is out of range and must be rejected", candidate)
	}
}

func TestVerifyDigest_RejectsWrongLengthSignature(t *testing.T) {
	_, pk, err := GenerateKeypair()
	require.NoError(t, err)

	var digest [32]byte
	pubKeyBytes := pk.SerializeCompressed()

	assert.False(t, VerifyDigest(pubKeyBytes, digest, nil))
	assert.False(t, VerifyDigest(pubKeyBytes, digest, make([]byte, SignatureSize-1)))
	assert.False(t, VerifyDigest(pubKeyBytes, digest, make([]byte, SignatureSize+1)))
}

func TestVerifyDigest_RejectsMalformedPublicKey(t *testing.T) {
	sk, _, err := GenerateKeypair()
	require.NoError(t, err)

	var digest [32]byte
	digest[0] = 0x22
	sig, err := SignDigest(sk, digest)
	require.NoError(t, err)

	assert.False(t, VerifyDigest(nil, digest, sig))
	assert.False(t, VerifyDigest([]byte{0x01, 0x02, 0x03}, digest, sig))
	assert.False(t, VerifyDigest(make([]byte, PublicKeySize), digest, sig), "all-zero bytes are not a valid compressed point")
}

func TestVerifyOrError(t *testing.T) {
	sk, pk, err := GenerateKeypair()
	require.NoError(t, err)

	var secret [SecretSize]byte
	roundID := uint64(3)
	commitment := Commit(secret, roundID)
	sig, err := Sign(sk, roundID, commitment)
	require.NoError(t, err)

	assert.NoError(t, VerifyOrError(pk.SerializeCompressed(), roundID, commitment, sig))

	badSig := make([]byte, SignatureSize)
	copy(badSig, sig)
	badSig[0] ^= 0xFF
	require.Error(t, VerifyOrError(pk.SerializeCompressed(), roundID, commitment, badSig))
}
