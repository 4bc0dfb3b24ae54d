// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/entropybeacon/beacon/internal/beacon/bridge"
	"github.com/entropybeacon/beacon/internal/committee"
	"github.com/entropybeacon/beacon/internal/config"
	"github.com/entropybeacon/beacon/internal/cryptoprimitives"
	"github.com/entropybeacon/beacon/internal/logging"
	"github.com/entropybeacon/beacon/internal/orchestrator"
	"github.com/entropybeacon/beacon/internal/tee"
	"github.com/entropybeacon/beacon/internal/wire"
)

var log = logging.Logger("entropy-aggregator")

var (
	committeeMembers []string
	threshold        int
	port             int
	ledgerAddr       string
	logLevel         string

	rootCmd = &cobra.Command{
		Use:   "entropy-aggregator",
		Short: "Runs the entropy beacon's committee aggregator",
		Long: `entropy-aggregator operates one committee's commit-reveal-aggregate-publish
round: it accepts worker connections, drives the round state machine, calls into
a TEE enclave to aggregate accepted secrets, and publishes the result to a beacon
ledger.`,
		RunE: run,
	}
)

func init() {
	rootCmd.Flags().StringSliceVarP(&committeeMembers, "committee", "c", nil, "Committee member node ids (required)")
	rootCmd.Flags().IntVarP(&threshold, "threshold", "t", 0, "Quorum threshold (required)")
	rootCmd.Flags().IntVarP(&port, "port", "p", 7000, "TCP port workers connect to")
	rootCmd.Flags().StringVar(&ledgerAddr, "ledger-addr", "http://localhost:8090", "Beacon ledger base URL")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.MarkFlagRequired("committee")
	rootCmd.MarkFlagRequired("threshold")
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

	members := make([]wire.NodeID, len(committeeMembers))
	for i, m := range committeeMembers {
		members[i] = wire.NodeID(m)
	}
	cfg := config.AggregatorConfig{
		CommitteeSize: len(members),
		Threshold:     threshold,
		Port:          port,
		LedgerAddr:    ledgerAddr,
		UseMockTEE:    config.UseMockTEEFromEnv(),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sk, pk, err := cryptoprimitives.GenerateKeypair()
	if err != nil {
		return err
	}
	log.Infow("aggregator key generated", "public_key", fmt.Sprintf("%x", pk.SerializeCompressed()))

	enclave := tee.New(cfg.UseMockTEE)
	publisher := bridge.New(cfg.LedgerAddr, pk.SerializeCompressed(), &http.Client{Timeout: 10 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := publisher.Instantiate(ctx, pk.SerializeCompressed()); err != nil {
		log.Warnw("ledger instantiate failed (already instantiated by a prior run?)", "err", err)
	}

	agg := orchestrator.NewAggregator(sk, enclave, publisher, orchestrator.DefaultConfig())

	// TODO(entropybeacon): load each committee member's public key from a
	// provisioning file instead of an empty directory once that format is
	// decided; until then, commitments from this committee are rejected
	// unless the operator wires keys in via Directory.Set after startup.
	dir := committee.NewDirectory(nil)
	server := orchestrator.NewServer(agg, dir)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe(sigCtx, fmt.Sprintf(":%d", cfg.Port))
	}()

	startMsg, err := agg.StartNewRound(1, members, cfg.Threshold)
	if err != nil {
		return err
	}
	server.Broadcast(startMsg)

	go func() {
		for {
			if err := agg.RunWithTimeout(sigCtx); err != nil {
				log.Warnw("round driver returned an error", "err", err)
			}
			select {
			case <-sigCtx.Done():
				return
			default:
			}
		}
	}()

	select {
	case <-sigCtx.Done():
		log.Infow("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}
