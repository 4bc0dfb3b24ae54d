// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

// Package logging wires up the module's structured subsystem loggers.
// Every package that needs to log calls logging.Logger(name) once at
// init time and keeps the result, mirroring common.Logger in the
// teacher's tss-lib (itself backed by github.com/ipfs/go-log).
package logging

import (
	logging "github.com/ipfs/go-log/v2"
)

// Logger returns the subsystem logger for name, creating it on first use.
// Subsystem names are short and stable: "orchestrator", "worker",
// "beacon-bridge", "beacon-ledger", and one per binary
// ("entropy-aggregator", "entropy-worker").
func Logger(name string) *logging.ZapEventLogger {
	return logging.Logger(name)
}

// SetLevel sets the global log level for every subsystem registered so far,
// driven by each binary's --log-level CLI flag.
func SetLevel(level string) error {
	lvl, err := logging.LevelFromString(level)
	if err != nil {
		return err
	}
	logging.SetAllLoggers(lvl)
	return nil
}
