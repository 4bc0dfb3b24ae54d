// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

// Package bridge implements the aggregator's client to the beacon ledger:
// §4.4's submit_randomness, over the HTTP+JSON RPC transport from §6.
//
// Grounded on internal/beacon/ledger's server for the wire shapes, and on
// entropy-aggregator's beacon bridge concept (a thin client the
// orchestrator calls through the Publisher interface so it never depends
// on this package's transport).
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/entropybeacon/beacon/internal/apierror"
	"github.com/entropybeacon/beacon/internal/logging"
	"github.com/entropybeacon/beacon/internal/wire"
)

var log = logging.Logger("beacon-bridge")

// Client submits randomness events to a beacon ledger over HTTP.
// internal/orchestrator depends only on the Publisher interface it
// satisfies, not on this package.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	callerPublicKey []byte
}

// New constructs a Client pointed at a beacon ledger's base URL (e.g.
// "http://localhost:8090"), authenticating as callerPublicKey — the
// aggregator's long-term public key, which must equal the ledger's admin
// key for submissions to be accepted.
func New(baseURL string, callerPublicKey []byte, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, callerPublicKey: callerPublicKey, httpClient: httpClient}
}

type submitRandomnessRequest struct {
	CallerPublicKey []byte               `json:"caller_public_key"`
	Event           wire.RandomnessEvent `json:"event"`
	Signature       []byte               `json:"signature"`
}

type apiErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Submit implements orchestrator.Publisher: it posts event and signature
// (over wire.EventDigest(event)) to the ledger's /submit-randomness
// endpoint, classifying network failures, 5xx responses and non-2xx
// responses without an error kind as TransportError (retryable by the
// caller) and the ledger's own kinded rejections (Unauthorized,
// InvalidSignature, DuplicateSubmission) as permanent.
func (c *Client) Submit(ctx context.Context, event wire.RandomnessEvent, signature []byte) error {
	reqBody, err := json.Marshal(submitRandomnessRequest{
		CallerPublicKey: c.callerPublicKey,
		Event:           event,
		Signature:       signature,
	})
	if err != nil {
		return apierror.Wrap(apierror.ConfigError, "bridge_submit_randomness", err).WithRound(event.RoundID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submit-randomness", bytes.NewReader(reqBody))
	if err != nil {
		return apierror.Wrap(apierror.TransportError, "bridge_submit_randomness", err).WithRound(event.RoundID)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierror.Wrap(apierror.TransportError, "bridge_submit_randomness", err).WithRound(event.RoundID)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		log.Infow("randomness submitted to ledger", "round_id", event.RoundID)
		return nil
	}

	var apiErr apiErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)

	if resp.StatusCode >= 500 {
		return apierror.Wrap(apierror.TransportError, "bridge_submit_randomness", errors.Errorf("ledger returned %d: %s", resp.StatusCode, apiErr.Message)).WithRound(event.RoundID)
	}

	kind := apierror.Kind(apiErr.Kind)
	if kind == "" {
		kind = apierror.TransportError
	}
	return apierror.Wrap(kind, "bridge_submit_randomness", errors.Errorf("ledger rejected submission: %s", apiErr.Message)).WithRound(event.RoundID)
}

// GetRandomness queries the ledger for round_id's stored event.
func (c *Client) GetRandomness(ctx context.Context, roundID uint64) (wire.RandomnessEvent, bool, error) {
	url := fmt.Sprintf("%s/randomness?round_id=%d", c.baseURL, roundID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return wire.RandomnessEvent{}, false, apierror.Wrap(apierror.TransportError, "bridge_get_randomness", err).WithRound(roundID)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wire.RandomnessEvent{}, false, apierror.Wrap(apierror.TransportError, "bridge_get_randomness", err).WithRound(roundID)
	}
	defer resp.Body.Close()

	var out struct {
		Found bool                  `json:"found"`
		Event *wire.RandomnessEvent `json:"event,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return wire.RandomnessEvent{}, false, apierror.Wrap(apierror.TransportError, "bridge_get_randomness", err).WithRound(roundID)
	}
	if !out.Found {
		return wire.RandomnessEvent{}, false, nil
	}
	return *out.Event, true, nil
}

// Instantiate calls the ledger's one-shot Instantiate operation.
func (c *Client) Instantiate(ctx context.Context, adminPublicKey []byte) error {
	reqBody, err := json.Marshal(struct {
		AdminPublicKey []byte `json:"admin_public_key"`
	}{AdminPublicKey: adminPublicKey})
	if err != nil {
		return apierror.Wrap(apierror.ConfigError, "bridge_instantiate", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/instantiate", bytes.NewReader(reqBody))
	if err != nil {
		return apierror.Wrap(apierror.TransportError, "bridge_instantiate", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierror.Wrap(apierror.TransportError, "bridge_instantiate", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apierror.New(apierror.ConfigError, "bridge_instantiate")
	}
	return nil
}
