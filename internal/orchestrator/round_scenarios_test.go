// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

package orchestrator

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/entropybeacon/beacon/internal/cryptoprimitives"
	"github.com/entropybeacon/beacon/internal/tee"
	"github.com/entropybeacon/beacon/internal/wire"
)

// signedCommitment builds a fresh keypair, commits to secret under
// roundID, and signs the commitment, mirroring worker.Engine's
// HandleStartCommitment without depending on *testing.T.
func signedCommitment(roundID uint64, nodeID wire.NodeID, secret [32]byte) (wire.CommitmentMsg, []byte) {
	sk, pk, err := cryptoprimitives.GenerateKeypair()
	Expect(err).NotTo(HaveOccurred())
	commitment := cryptoprimitives.Commit(secret, roundID)
	sig, err := cryptoprimitives.Sign(sk, roundID, commitment)
	Expect(err).NotTo(HaveOccurred())
	return wire.CommitmentMsg{
		RoundID: roundID,
		Payload: wire.CommitmentPayload{
			RoundID:    roundID,
			Commitment: commitment,
			Signature:  sig,
		},
		NodeID: nodeID,
	}, pk.SerializeCompressed()
}

var _ = Describe("round progression", func() {
	var (
		pub *fakePublisher
		agg *Aggregator
	)

	BeforeEach(func() {
		pub = &fakePublisher{}
		sk, _, err := cryptoprimitives.GenerateKeypair()
		Expect(err).NotTo(HaveOccurred())
		agg = NewAggregator(sk, tee.NewMockEnclave(), pub, fastConfig())
	})

	Context("with a quorum of honest committee members and one laggard", func() {
		It("aggregates and publishes once threshold reveals arrive, ignoring the laggard", func() {
			_, err := agg.StartNewRound(10, []wire.NodeID{"a", "b", "c"}, 2)
			Expect(err).NotTo(HaveOccurred())

			var secretA, secretB [32]byte
			secretA[0] = 0x01
			secretB[0] = 0x02

			msgA, pkA := signedCommitment(10, "a", secretA)
			msgB, pkB := signedCommitment(10, "b", secretB)
			Expect(agg.ProcessCommitment(msgA, pkA)).To(Succeed())
			Expect(agg.ProcessCommitment(msgB, pkB)).To(Succeed())

			Expect(agg.ProcessReveal(wire.RevealMsg{
				RoundID: 10, NodeID: "a",
				Payload: wire.RevealPayload{RoundID: 10, Secret: secretA},
			})).To(Succeed())
			Expect(agg.ProcessReveal(wire.RevealMsg{
				RoundID: 10, NodeID: "b",
				Payload: wire.RevealPayload{RoundID: 10, Secret: secretB},
			})).To(Succeed())

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			Expect(agg.RunWithTimeout(ctx)).To(Succeed())

			Expect(pub.submittedRounds()).To(Equal([]uint64{10}))
		})
	})

	Context("when too few commitments arrive before the commitment deadline", func() {
		It("abandons the round back to idle without ever publishing", func() {
			_, err := agg.StartNewRound(11, []wire.NodeID{"a", "b", "c"}, 2)
			Expect(err).NotTo(HaveOccurred())

			var secretA [32]byte
			secretA[0] = 0x03
			msgA, pkA := signedCommitment(11, "a", secretA)
			Expect(agg.ProcessCommitment(msgA, pkA)).To(Succeed())

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			Expect(agg.RunWithTimeout(ctx)).To(Succeed())

			Expect(pub.submittedRounds()).To(BeEmpty())
		})
	})

	Context("when a revealed secret does not match its earlier commitment", func() {
		It("rejects the mismatched reveal and still abandons the round on reveal timeout", func() {
			_, err := agg.StartNewRound(12, []wire.NodeID{"a", "b"}, 2)
			Expect(err).NotTo(HaveOccurred())

			var committed, revealed [32]byte
			committed[0] = 0x04
			revealed[0] = 0x05

			msgA, pkA := signedCommitment(12, "a", committed)
			msgB, pkB := signedCommitment(12, "b", committed)
			Expect(agg.ProcessCommitment(msgA, pkA)).To(Succeed())
			Expect(agg.ProcessCommitment(msgB, pkB)).To(Succeed())

			err = agg.ProcessReveal(wire.RevealMsg{
				RoundID: 12, NodeID: "a",
				Payload: wire.RevealPayload{RoundID: 12, Secret: revealed},
			})
			Expect(err).To(HaveOccurred())

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			Expect(agg.RunWithTimeout(ctx)).To(Succeed())

			Expect(pub.submittedRounds()).To(BeEmpty())
		})
	})
})
