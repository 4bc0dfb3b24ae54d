// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

package ledger

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/entropybeacon/beacon/internal/apierror"
	"github.com/entropybeacon/beacon/internal/logging"
	"github.com/entropybeacon/beacon/internal/wire"
)

var log = logging.Logger("beacon-ledger")

// Server exposes State over the RPC-over-HTTP transport from §6:
// Instantiate and SubmitRandomness as operations, GetRandomness as a
// query. The teacher has no HTTP surface of its own (tss-lib is a
// message-passing library, not a service); the handler shape follows the
// coinjoin engine's HTTP server, but the transport stays on stdlib
// net/http with a JSON body rather than adopting that engine's router
// framework.
type Server struct {
	state *State
}

// NewServer wraps state in an HTTP handler.
func NewServer(state *State) *Server {
	return &Server{state: state}
}

// Handler returns the beacon ledger's http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/instantiate", s.withCorrelation(s.handleInstantiate))
	mux.HandleFunc("/submit-randomness", s.withCorrelation(s.handleSubmitRandomness))
	mux.HandleFunc("/randomness", s.withCorrelation(s.handleGetRandomness))
	return mux
}

// withCorrelation assigns each request a correlation id for structured
// logging, following the coinjoin engine's use of google/uuid for
// request correlation.
func (s *Server) withCorrelation(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		corrID := uuid.NewString()
		log.Debugw("request received", "correlation_id", corrID, "path", r.URL.Path, "method", r.Method)
		next(w, r)
	}
}

type instantiateRequest struct {
	AdminPublicKey []byte `json:"admin_public_key"`
}

func (s *Server) handleInstantiate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, apierror.New(apierror.ConfigError, "instantiate"))
		return
	}
	var req instantiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apierror.Wrap(apierror.ConfigError, "instantiate", err))
		return
	}
	if err := s.state.Instantiate(req.AdminPublicKey); err != nil {
		writeAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type submitRandomnessRequest struct {
	CallerPublicKey []byte               `json:"caller_public_key"`
	Event           wire.RandomnessEvent `json:"event"`
	Signature       []byte               `json:"signature"`
}

func (s *Server) handleSubmitRandomness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, apierror.New(apierror.ConfigError, "submit_randomness"))
		return
	}
	var req submitRandomnessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apierror.Wrap(apierror.ConfigError, "submit_randomness", err))
		return
	}
	if err := s.state.SubmitRandomness(req.CallerPublicKey, req.Event, req.Signature); err != nil {
		writeAPIError(w, err)
		return
	}
	log.Infow("randomness submitted", "round_id", req.Event.RoundID)
	w.WriteHeader(http.StatusOK)
}

type getRandomnessResponse struct {
	Found bool                  `json:"found"`
	Event *wire.RandomnessEvent `json:"event,omitempty"`
}

func (s *Server) handleGetRandomness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, apierror.New(apierror.ConfigError, "get_randomness"))
		return
	}
	roundID, err := parseRoundID(r.URL.Query().Get("round_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, apierror.Wrap(apierror.ConfigError, "get_randomness", err))
		return
	}
	event, ok := s.state.GetRandomness(roundID)
	resp := getRandomnessResponse{Found: ok}
	if ok {
		resp.Event = &event
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func parseRoundID(raw string) (uint64, error) {
	return strconv.ParseUint(raw, 10, 64)
}

type apiErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeAPIError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	kind, ok := apierror.KindOf(err)
	if ok {
		switch kind {
		case apierror.Unauthorized, apierror.InvalidSignature:
			status = http.StatusUnauthorized
		case apierror.DuplicateSubmission:
			status = http.StatusConflict
		case apierror.ConfigError:
			status = http.StatusInternalServerError
		default:
			status = http.StatusBadRequest
		}
	}
	writeError(w, status, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	kind, ok := apierror.KindOf(err)
	resp := apiErrorResponse{Message: err.Error()}
	if ok {
		resp.Kind = string(kind)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
