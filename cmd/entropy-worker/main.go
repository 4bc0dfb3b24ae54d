// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/entropybeacon/beacon/internal/apierror"
	"github.com/entropybeacon/beacon/internal/config"
	"github.com/entropybeacon/beacon/internal/logging"
	"github.com/entropybeacon/beacon/internal/wire"
	"github.com/entropybeacon/beacon/internal/worker"
)

var log = logging.Logger("entropy-worker")

var (
	nodeID         string
	aggregatorAddr string
	logLevel       string

	rootCmd = &cobra.Command{
		Use:   "entropy-worker",
		Short: "Runs one committee member of the entropy beacon",
		Long: `entropy-worker connects to an aggregator, waits for a StartCommitment
message, generates and commits to a secret, then waits for StartReveal and
discloses that secret, repeating for every round the aggregator starts.`,
		RunE: run,
	}
)

func init() {
	rootCmd.Flags().StringVarP(&nodeID, "node-id", "n", "", "This worker's committee node id (required)")
	rootCmd.Flags().StringVarP(&aggregatorAddr, "aggregator-addr", "a", "localhost:7000", "Aggregator TCP address")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.MarkFlagRequired("node-id")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if err := logging.SetLevel(logLevel); err != nil {
		return err
	}

	cfg := config.WorkerConfig{NodeID: nodeID, AggregatorAddr: aggregatorAddr}
	if err := cfg.Validate(); err != nil {
		return err
	}

	engine, err := worker.New(wire.NodeID(cfg.NodeID))
	if err != nil {
		return err
	}
	log.Infow("worker key generated", "node_id", engine.NodeID(), "public_key", fmt.Sprintf("%x", engine.PublicKeyBytes()))

	client := worker.NewClient(cfg.AggregatorAddr)
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go heartbeatLoop(ctx, client, engine.NodeID())

	for {
		if err := handleOneRound(ctx, engine, client); err != nil {
			if ctx.Err() != nil {
				log.Infow("shutting down")
				return nil
			}
			log.Warnw("round handling failed, waiting for next round", "err", err)
			engine.ResetState()
		}
	}
}

// handleOneRound waits for StartCommitment, submits a commitment, waits
// for StartReveal, then submits the reveal — the worker-side half of §4.2.
func handleOneRound(ctx context.Context, engine *worker.Engine, client *worker.Client) error {
	startCommitment, err := client.ReceiveStartCommitment(ctx)
	if err != nil {
		return err
	}

	payload, err := engine.HandleStartCommitment(startCommitment)
	if err != nil {
		if kind, ok := apierror.KindOf(err); ok && kind == apierror.NotInCommittee {
			log.Debugw("not a member of this round's committee", "round_id", startCommitment.RoundID)
			return nil
		}
		return err
	}

	commitMsg := wire.CommitmentMsg{
		RoundID:      payload.RoundID,
		Payload:      payload,
		NodeID:       engine.NodeID(),
		TimestampSec: uint64(time.Now().Unix()),
	}
	if err := client.Send(ctx, commitMsg); err != nil {
		return err
	}
	log.Infow("commitment sent", "round_id", payload.RoundID)

	startReveal, err := client.ReceiveStartReveal(ctx)
	if err != nil {
		return err
	}
	if startReveal.RoundID != payload.RoundID {
		log.Warnw("reveal notification for unexpected round", "got", startReveal.RoundID, "want", payload.RoundID)
		return nil
	}

	reveal, err := engine.CreateRevealMessage(time.Now())
	if err != nil {
		return err
	}
	if err := client.Send(ctx, reveal); err != nil {
		return err
	}
	log.Infow("reveal sent", "round_id", reveal.RoundID)

	engine.ResetState()
	return nil
}

func heartbeatLoop(ctx context.Context, client *worker.Client, nodeID wire.NodeID) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.SendHeartbeat(ctx, nodeID, "alive", time.Now()); err != nil {
				log.Warnw("heartbeat failed", "err", err)
			}
		}
	}
}
