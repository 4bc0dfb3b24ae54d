// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

// Package config holds the construction-time parameters for each of the
// three processes (aggregator, worker, beacon ledger), validated the way
// tss.Parameters validates a protocol run before it starts rather than
// failing partway through.
package config

import (
	"github.com/hashicorp/go-multierror"

	"github.com/entropybeacon/beacon/internal/apierror"
	"github.com/entropybeacon/beacon/internal/tee"
)

// AggregatorConfig holds the CLI surface from §6: committee_size,
// threshold, listen port, plus the beacon ledger address the aggregator
// publishes to and whether to run the mock TEE.
type AggregatorConfig struct {
	CommitteeSize int
	Threshold     int
	Port          int
	LedgerAddr    string
	UseMockTEE    bool
}

// Validate enforces the construction-time invariants from §4.3: a
// misconfigured threshold is a ConfigError, not a runtime rejection. Every
// violated field is reported at once rather than stopping at the first,
// the way round_6's peer validation collects every failure into one
// multierror instead of returning on the first bad peer.
func (c AggregatorConfig) Validate() error {
	var result *multierror.Error
	if c.CommitteeSize < 1 {
		result = multierror.Append(result, apierror.New(apierror.ConfigError, "aggregator_config").WithNode("committee_size"))
	}
	if c.Threshold < 1 || c.Threshold > c.CommitteeSize {
		result = multierror.Append(result, apierror.New(apierror.ConfigError, "aggregator_config").WithNode("threshold"))
	}
	if c.Port < 1 || c.Port > 65535 {
		result = multierror.Append(result, apierror.New(apierror.ConfigError, "aggregator_config").WithNode("port"))
	}
	if c.LedgerAddr == "" {
		result = multierror.Append(result, apierror.New(apierror.ConfigError, "aggregator_config").WithNode("ledger_addr"))
	}
	return result.ErrorOrNil()
}

// WorkerConfig holds one worker process's identity and the aggregator it
// connects to.
type WorkerConfig struct {
	NodeID         string
	AggregatorAddr string
}

// Validate enforces that a worker always knows who it is and where to
// connect. Rejecting an empty NodeID here is a CLI-layer guard against an
// unset --node-id flag, not a restriction from the Worker/Committee types
// themselves — a committee whose sole member's node_id is the empty
// string is a valid committee, just not one this flag can ever name.
func (c WorkerConfig) Validate() error {
	var result *multierror.Error
	if c.NodeID == "" {
		result = multierror.Append(result, apierror.New(apierror.ConfigError, "worker_config").WithNode("node_id"))
	}
	if c.AggregatorAddr == "" {
		result = multierror.Append(result, apierror.New(apierror.ConfigError, "worker_config").WithNode("aggregator_addr"))
	}
	return result.ErrorOrNil()
}

// LedgerConfig holds the beacon ledger HTTP server's listen port.
type LedgerConfig struct {
	Port int
}

// Validate checks the listen port is in the valid TCP range.
func (c LedgerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return apierror.New(apierror.ConfigError, "ledger_config").WithNode("port")
	}
	return nil
}

// UseMockTEEFromEnv implements the ENTROPY_USE_MOCK_TEE contract: unset
// or unparseable is treated as false. Delegates to internal/tee so the
// env var's parsing rule is defined in exactly one place.
func UseMockTEEFromEnv() bool {
	return tee.UseMockFromEnv()
}
