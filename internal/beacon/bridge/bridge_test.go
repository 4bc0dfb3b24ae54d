// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

package bridge

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entropybeacon/beacon/internal/apierror"
	"github.com/entropybeacon/beacon/internal/beacon/ledger"
	"github.com/entropybeacon/beacon/internal/cryptoprimitives"
	"github.com/entropybeacon/beacon/internal/wire"
)

func TestClient_SubmitAndGetRandomness(t *testing.T) {
	state := ledger.New()
	sk, pk, err := cryptoprimitives.GenerateKeypair()
	require.NoError(t, err)
	require.NoError(t, state.Instantiate(pk.SerializeCompressed()))

	srv := httptest.NewServer(ledger.NewServer(state).Handler())
	defer srv.Close()

	client := New(srv.URL, pk.SerializeCompressed(), srv.Client())

	event := wire.RandomnessEvent{RoundID: 1, RandomNumber: [32]byte{1, 2, 3}}
	digest, err := wire.EventDigest(event)
	require.NoError(t, err)
	sig, err := cryptoprimitives.SignDigest(sk, digest)
	require.NoError(t, err)

	require.NoError(t, client.Submit(context.Background(), event, sig))

	got, found, err := client.GetRandomness(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, event.RandomNumber, got.RandomNumber)

	_, found, err = client.GetRandomness(context.Background(), 999)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClient_Submit_DuplicateIsPermanentFailure(t *testing.T) {
	state := ledger.New()
	sk, pk, err := cryptoprimitives.GenerateKeypair()
	require.NoError(t, err)
	require.NoError(t, state.Instantiate(pk.SerializeCompressed()))

	srv := httptest.NewServer(ledger.NewServer(state).Handler())
	defer srv.Close()
	client := New(srv.URL, pk.SerializeCompressed(), srv.Client())

	event := wire.RandomnessEvent{RoundID: 5}
	digest, err := wire.EventDigest(event)
	require.NoError(t, err)
	sig, err := cryptoprimitives.SignDigest(sk, digest)
	require.NoError(t, err)
	require.NoError(t, client.Submit(context.Background(), event, sig))

	err = client.Submit(context.Background(), event, sig)
	require.Error(t, err)
	kind, ok := apierror.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, apierror.DuplicateSubmission, kind)
}
