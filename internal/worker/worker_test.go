// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entropybeacon/beacon/internal/apierror"
	"github.com/entropybeacon/beacon/internal/cryptoprimitives"
	"github.com/entropybeacon/beacon/internal/wire"
)

func TestHandleStartCommitment_NotInCommittee(t *testing.T) {
	e, err := New("node-1")
	require.NoError(t, err)

	_, err = e.HandleStartCommitment(wire.StartCommitmentMsg{
		RoundID:   1,
		Committee: []wire.NodeID{"node-2", "node-3"},
	})
	require.Error(t, err)
	kind, ok := apierror.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apierror.NotInCommittee, kind)
}

func TestHandleStartCommitment_ProducesVerifiableSignature(t *testing.T) {
	e, err := New("node-1")
	require.NoError(t, err)

	payload, err := e.HandleStartCommitment(wire.StartCommitmentMsg{
		RoundID:   42,
		Committee: []wire.NodeID{"node-1", "node-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), payload.RoundID)

	ok := cryptoprimitives.Verify(e.PublicKeyBytes(), payload.RoundID, payload.Commitment, payload.Signature)
	assert.True(t, ok)
}

func TestHandleStartCommitment_AlreadyParticipatingDifferentRound(t *testing.T) {
	e, err := New("node-1")
	require.NoError(t, err)

	_, err = e.HandleStartCommitment(wire.StartCommitmentMsg{RoundID: 1, Committee: []wire.NodeID{"node-1"}})
	require.NoError(t, err)

	_, err = e.HandleStartCommitment(wire.StartCommitmentMsg{RoundID: 2, Committee: []wire.NodeID{"node-1"}})
	require.Error(t, err)
	kind, ok := apierror.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apierror.AlreadyParticipating, kind)
}

func TestHandleStartCommitment_SameRoundResamplesSecret(t *testing.T) {
	e, err := New("node-1")
	require.NoError(t, err)

	first, err := e.HandleStartCommitment(wire.StartCommitmentMsg{RoundID: 1, Committee: []wire.NodeID{"node-1"}})
	require.NoError(t, err)

	second, err := e.HandleStartCommitment(wire.StartCommitmentMsg{RoundID: 1, Committee: []wire.NodeID{"node-1"}})
	require.NoError(t, err)
	assert.NotEqual(t, first.Commitment, second.Commitment, "a fresh secret is sampled on each call")
}

func TestCreateRevealMessage_NotParticipating(t *testing.T) {
	e, err := New("node-1")
	require.NoError(t, err)

	_, err = e.CreateRevealMessage(time.Now())
	require.Error(t, err)
	kind, ok := apierror.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apierror.NotParticipating, kind)
}

func TestRevealMatchesCommitment(t *testing.T) {
	e, err := New("node-1")
	require.NoError(t, err)

	payload, err := e.HandleStartCommitment(wire.StartCommitmentMsg{RoundID: 7, Committee: []wire.NodeID{"node-1"}})
	require.NoError(t, err)

	reveal, err := e.CreateRevealMessage(time.Now())
	require.NoError(t, err)
	assert.Equal(t, payload.Commitment, cryptoprimitives.Commit(reveal.Payload.Secret, reveal.RoundID))
}

func TestResetState(t *testing.T) {
	e, err := New("node-1")
	require.NoError(t, err)

	_, err = e.HandleStartCommitment(wire.StartCommitmentMsg{RoundID: 1, Committee: []wire.NodeID{"node-1"}})
	require.NoError(t, err)
	assert.True(t, e.IsParticipating())

	e.ResetState()
	assert.False(t, e.IsParticipating())

	e.ResetState()
	assert.False(t, e.IsParticipating())
}
