// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/entropybeacon/beacon/internal/beacon/ledger"
	"github.com/entropybeacon/beacon/internal/config"
	"github.com/entropybeacon/beacon/internal/logging"
)

var log = logging.Logger("beacon-ledger")

var (
	port     int
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "beacon-ledger",
		Short: "Runs the append-only entropy beacon ledger",
		Long: `beacon-ledger accepts a one-time admin key via /instantiate, then serves
/submit-randomness and /randomness over HTTP+JSON, rejecting any second
submission for a round it has already recorded.`,
		RunE: run,
	}
)

func init() {
	rootCmd.Flags().IntVarP(&port, "port", "p", 8090, "HTTP listen port")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
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

	cfg := config.LedgerConfig{Port: port}
	if err := cfg.Validate(); err != nil {
		return err
	}

	state := ledger.New()
	server := ledger.NewServer(state)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infow("beacon ledger listening", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Infow("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
