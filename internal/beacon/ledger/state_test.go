// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entropybeacon/beacon/internal/apierror"
	"github.com/entropybeacon/beacon/internal/cryptoprimitives"
	"github.com/entropybeacon/beacon/internal/wire"
)

func testEvent(roundID uint64) wire.RandomnessEvent {
	var rn [32]byte
	rn[0] = byte(roundID)
	return wire.RandomnessEvent{RoundID: roundID, RandomNumber: rn}
}

func signEvent(t *testing.T, event wire.RandomnessEvent) ([]byte /*sk pub*/, []byte /*sig*/) {
	t.Helper()
	sk, pk, err := cryptoprimitives.GenerateKeypair()
	require.NoError(t, err)
	digest, err := wire.EventDigest(event)
	require.NoError(t, err)
	sig, err := cryptoprimitives.SignDigest(sk, digest)
	require.NoError(t, err)
	return pk.SerializeCompressed(), sig
}

func TestSubmitRandomness_RequiresInstantiation(t *testing.T) {
	s := New()
	event := testEvent(1)
	pub, sig := signEvent(t, event)
	err := s.SubmitRandomness(pub, event, sig)
	require.Error(t, err)
	kind, ok := apierror.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apierror.Unauthorized, kind)
}

func TestInstantiate_OneShot(t *testing.T) {
	s := New()
	require.NoError(t, s.Instantiate([]byte("admin-key")))
	err := s.Instantiate([]byte("admin-key"))
	require.Error(t, err)
	kind, ok := apierror.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apierror.ConfigError, kind)
}

func TestSubmitRandomness_RejectsNonAdminCaller(t *testing.T) {
	s := New()
	require.NoError(t, s.Instantiate([]byte("admin-key")))

	event := testEvent(1)
	pub, sig := signEvent(t, event)
	err := s.SubmitRandomness(pub, event, sig)
	require.Error(t, err)
	kind, ok := apierror.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apierror.Unauthorized, kind)
}

func TestSubmitRandomness_RejectsBadSignature(t *testing.T) {
	s := New()
	sk, pk, err := cryptoprimitives.GenerateKeypair()
	require.NoError(t, err)
	require.NoError(t, s.Instantiate(pk.SerializeCompressed()))

	event := testEvent(1)
	otherDigest, err := wire.EventDigest(testEvent(2))
	require.NoError(t, err)
	badSig, err := cryptoprimitives.SignDigest(sk, otherDigest)
	require.NoError(t, err)

	err = s.SubmitRandomness(pk.SerializeCompressed(), event, badSig)
	require.Error(t, err)
	kind, ok := apierror.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apierror.InvalidSignature, kind)
}

func TestBeaconIdempotency(t *testing.T) {
	s := New()
	sk, pk, err := cryptoprimitives.GenerateKeypair()
	require.NoError(t, err)
	require.NoError(t, s.Instantiate(pk.SerializeCompressed()))

	event := testEvent(7)
	digest, err := wire.EventDigest(event)
	require.NoError(t, err)
	sig, err := cryptoprimitives.SignDigest(sk, digest)
	require.NoError(t, err)

	require.NoError(t, s.SubmitRandomness(pk.SerializeCompressed(), event, sig))

	dup := testEvent(7)
	dup.RandomNumber[0] = 0xFF
	dupDigest, err := wire.EventDigest(dup)
	require.NoError(t, err)
	dupSig, err := cryptoprimitives.SignDigest(sk, dupDigest)
	require.NoError(t, err)

	err = s.SubmitRandomness(pk.SerializeCompressed(), dup, dupSig)
	require.Error(t, err)
	kind, ok := apierror.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apierror.DuplicateSubmission, kind)

	stored, ok := s.GetRandomness(7)
	require.True(t, ok)
	assert.Equal(t, event.RandomNumber, stored.RandomNumber, "the original event must be unchanged")
}

func TestGetRandomness_Unknown(t *testing.T) {
	s := New()
	_, ok := s.GetRandomness(999)
	assert.False(t, ok)
}
