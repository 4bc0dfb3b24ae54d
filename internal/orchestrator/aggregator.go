// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/entropybeacon/beacon/internal/apierror"
	"github.com/entropybeacon/beacon/internal/committee"
	"github.com/entropybeacon/beacon/internal/cryptoprimitives"
	"github.com/entropybeacon/beacon/internal/logging"
	"github.com/entropybeacon/beacon/internal/tee"
	"github.com/entropybeacon/beacon/internal/wire"
)

var log = logging.Logger("orchestrator")

// Publisher submits a signed randomness event to the beacon ledger.
// Implemented by internal/beacon/bridge.Client; kept as an interface here
// so this package never imports the HTTP transport.
type Publisher interface {
	Submit(ctx context.Context, event wire.RandomnessEvent, signature []byte) error
}

// Config bounds the aggregator's phase timeouts and publication retry
// policy. Zero-valued fields are replaced with the defaults in
// DefaultConfig by NewAggregator.
type Config struct {
	CommitmentTimeout  time.Duration
	RevealTimeout      time.Duration
	MaxPublishRetries  int
	PublishBackoffInit time.Duration
	PublishBackoffMax  time.Duration
}

// DefaultConfig matches the concurrency model's suggested figures: 30s
// acceptor read timeout's neighborhood for phase collection, and the
// worker reconnect policy's base/cap for publication retries.
func DefaultConfig() Config {
	return Config{
		CommitmentTimeout:  30 * time.Second,
		RevealTimeout:      30 * time.Second,
		MaxPublishRetries:  5,
		PublishBackoffInit: 100 * time.Millisecond,
		PublishBackoffMax:  30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CommitmentTimeout <= 0 {
		c.CommitmentTimeout = d.CommitmentTimeout
	}
	if c.RevealTimeout <= 0 {
		c.RevealTimeout = d.RevealTimeout
	}
	if c.MaxPublishRetries <= 0 {
		c.MaxPublishRetries = d.MaxPublishRetries
	}
	if c.PublishBackoffInit <= 0 {
		c.PublishBackoffInit = d.PublishBackoffInit
	}
	if c.PublishBackoffMax <= 0 {
		c.PublishBackoffMax = d.PublishBackoffMax
	}
	return c
}

// Aggregator drives a single committee's commit-reveal-aggregate-publish
// round. One Aggregator handles one round at a time; a completed or
// abandoned round returns it to idleState, ready for the next
// StartNewRound call.
//
// Locking discipline follows v2/tss/party.go's BaseParty: the mutex
// protects state transitions and map mutation only, and is never held
// across the enclave call or the publish RPC in runAggregating/
// runPublishing.
type Aggregator struct {
	sk      *btcec.PrivateKey
	enclave tee.Enclave
	pub     Publisher
	cfg     Config

	mu            sync.Mutex
	state         aggregatorState
	phaseDeadline time.Time
	notifyCh      chan struct{}

	startRevealCh chan wire.StartRevealMsg
}

// NewAggregator constructs an idle Aggregator bound to its long-term
// signing key, TEE enclave, and beacon publisher.
func NewAggregator(sk *btcec.PrivateKey, enclave tee.Enclave, pub Publisher, cfg Config) *Aggregator {
	return &Aggregator{
		sk:            sk,
		enclave:       enclave,
		pub:           pub,
		cfg:           cfg.withDefaults(),
		state:         idleState{},
		notifyCh:      make(chan struct{}),
		startRevealCh: make(chan wire.StartRevealMsg, 1),
	}
}

// StartRevealNotifications returns the channel StartReveal notifications
// are posted to when a round reaches commitment quorum. Delivery is
// best-effort (capacity 1, non-blocking send): a slow subscriber may miss
// a notification for a round that has already advanced.
func (a *Aggregator) StartRevealNotifications() <-chan wire.StartRevealMsg {
	return a.startRevealCh
}

// wakeLocked must be called with a.mu held, after mutating a.state or
// a.phaseDeadline, to unblock anything parked in waitForDeadlineOrNotify.
func (a *Aggregator) wakeLocked() {
	close(a.notifyCh)
	a.notifyCh = make(chan struct{})
}

// StartNewRound begins a new round for committee, requiring threshold
// commitments before reveal collection opens. It fails with WrongState
// unless the aggregator is idle, and with ConfigError if the committee or
// threshold are invalid.
func (a *Aggregator) StartNewRound(roundID uint64, members []wire.NodeID, threshold int) (wire.StartCommitmentMsg, error) {
	c, err := committee.New(members)
	if err != nil {
		return wire.StartCommitmentMsg{}, err
	}
	if err := committee.ValidateThreshold(threshold, c.Size()); err != nil {
		return wire.StartCommitmentMsg{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.state.(idleState); !ok {
		return wire.StartCommitmentMsg{}, apierror.New(apierror.WrongState, "start_new_round").WithRound(roundID)
	}

	a.state = &collectingCommitmentsState{
		roundID:   roundID,
		committee: c.Members(),
		threshold: threshold,
		commits:   make(map[wire.NodeID]commitRecord),
	}
	a.phaseDeadline = time.Now().Add(a.cfg.CommitmentTimeout)
	a.wakeLocked()

	log.Infow("round started", "round_id", roundID, "committee_size", c.Size(), "threshold", threshold)

	return wire.StartCommitmentMsg{RoundID: roundID, Committee: c.Members()}, nil
}

// ProcessCommitment validates and records one worker's commitment. On
// reaching threshold commitments it synchronously transitions to reveal
// collection and posts a StartReveal notification.
func (a *Aggregator) ProcessCommitment(msg wire.CommitmentMsg, workerPK []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.state.(*collectingCommitmentsState)
	if !ok {
		return apierror.New(apierror.WrongState, "process_commitment").WithRound(msg.RoundID).WithNode(msg.NodeID)
	}
	if msg.RoundID != s.roundID {
		return apierror.New(apierror.InvalidRound, "process_commitment").WithRound(msg.RoundID).WithNode(msg.NodeID)
	}
	if !s.isMember(msg.NodeID) {
		return apierror.New(apierror.NotInCommittee, "process_commitment").WithRound(msg.RoundID).WithNode(msg.NodeID)
	}
	if _, dup := s.commits[msg.NodeID]; dup {
		return apierror.New(apierror.DuplicateSubmission, "process_commitment").WithRound(msg.RoundID).WithNode(msg.NodeID)
	}
	if err := cryptoprimitives.VerifyOrError(workerPK, msg.RoundID, msg.Payload.Commitment, msg.Payload.Signature); err != nil {
		return err
	}

	s.commits[msg.NodeID] = commitRecord{commitment: msg.Payload.Commitment}
	log.Infow("commitment accepted", "round_id", msg.RoundID, "node_id", msg.NodeID, "count", len(s.commits), "threshold", s.threshold)

	if len(s.commits) >= s.threshold {
		next := &collectingRevealsState{
			roundID:   s.roundID,
			threshold: s.threshold,
			commits:   s.commits,
			reveals:   make(map[wire.NodeID]revealRecord),
		}
		a.state = next
		a.phaseDeadline = time.Now().Add(a.cfg.RevealTimeout)
		a.wakeLocked()

		select {
		case a.startRevealCh <- wire.StartRevealMsg{RoundID: s.roundID}:
		default:
		}
		log.Infow("commitment quorum reached", "round_id", s.roundID)
	}
	return nil
}

// ProcessReveal validates and records one worker's reveal against its
// stored commitment. On reaching threshold reveals it synchronously
// transitions to aggregation.
func (a *Aggregator) ProcessReveal(msg wire.RevealMsg) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.state.(*collectingRevealsState)
	if !ok {
		return apierror.New(apierror.WrongState, "process_reveal").WithRound(msg.RoundID).WithNode(msg.NodeID)
	}
	if msg.RoundID != s.roundID {
		return apierror.New(apierror.InvalidRound, "process_reveal").WithRound(msg.RoundID).WithNode(msg.NodeID)
	}
	commit, known := s.commits[msg.NodeID]
	if !known {
		return apierror.New(apierror.NotInCommittee, "process_reveal").WithRound(msg.RoundID).WithNode(msg.NodeID)
	}
	if _, dup := s.reveals[msg.NodeID]; dup {
		return apierror.New(apierror.DuplicateSubmission, "process_reveal").WithRound(msg.RoundID).WithNode(msg.NodeID)
	}
	if cryptoprimitives.Commit(msg.Payload.Secret, msg.RoundID) != commit.commitment {
		return apierror.New(apierror.RevealMismatch, "process_reveal").WithRound(msg.RoundID).WithNode(msg.NodeID)
	}

	s.reveals[msg.NodeID] = revealRecord{secret: msg.Payload.Secret}
	log.Infow("reveal accepted", "round_id", msg.RoundID, "node_id", msg.NodeID, "count", len(s.reveals), "threshold", s.threshold)

	if len(s.reveals) >= s.threshold {
		a.state = &aggregatingState{roundID: s.roundID, reveals: s.reveals}
		a.wakeLocked()
		log.Infow("reveal quorum reached", "round_id", s.roundID)
	}
	return nil
}

// RunWithTimeout drives the state machine for one pass: it waits out the
// commit/reveal phases (enforcing their timeouts), performs TEE
// aggregation, and publishes the result, returning once the round reaches
// idleState again. It returns nil for a clean completion (including a
// timed-out, abandoned round) and a non-nil error only when TEE
// aggregation fails, publication permanently fails, or ctx is cancelled
// while waiting.
//
// It never holds a.mu across the enclave call or the publish RPC, matching
// tss.BaseParty's rule against holding a lock across a suspension point.
func (a *Aggregator) RunWithTimeout(ctx context.Context) error {
	for {
		a.mu.Lock()
		state := a.state
		deadline := a.phaseDeadline
		notify := a.notifyCh
		a.mu.Unlock()

		switch s := state.(type) {
		case idleState:
			return nil

		case *collectingCommitmentsState:
			if err := a.waitDeadlineOrNotify(ctx, deadline, notify); err != nil {
				return err
			}
			a.expirePhase(s.roundID, func(cur aggregatorState) bool {
				c, ok := cur.(*collectingCommitmentsState)
				return ok && c.roundID == s.roundID
			}, "commitment")

		case *collectingRevealsState:
			if err := a.waitDeadlineOrNotify(ctx, deadline, notify); err != nil {
				return err
			}
			a.expirePhase(s.roundID, func(cur aggregatorState) bool {
				r, ok := cur.(*collectingRevealsState)
				return ok && r.roundID == s.roundID
			}, "reveal")

		case *aggregatingState:
			if err := a.runAggregating(ctx, s); err != nil {
				return err
			}

		case *publishingState:
			return a.runPublishing(ctx, s)

		default:
			return fmt.Errorf("orchestrator: unreachable state %T", state)
		}
	}
}

// waitDeadlineOrNotify blocks until deadline, notify fires, or ctx is
// cancelled. It returns ctx.Err() only on cancellation; a deadline or
// notify firing is not an error, since the caller re-reads state to find
// out what actually changed.
func (a *Aggregator) waitDeadlineOrNotify(ctx context.Context, deadline time.Time, notify <-chan struct{}) error {
	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-notify:
		return nil
	case <-timer.C:
		return nil
	}
}

// expirePhase clears the round and returns the aggregator to idleState if
// it is still in the phase matching stillActive by the time the deadline
// fired and phaseDeadline has actually elapsed (a notify wakeup for a
// quorum transition races benignly with the timer and is a no-op here).
func (a *Aggregator) expirePhase(roundID uint64, stillActive func(aggregatorState) bool, phase string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !stillActive(a.state) {
		return
	}
	if time.Now().Before(a.phaseDeadline) {
		return
	}
	a.state = idleState{}
	a.wakeLocked()
	log.Warnw("phase timed out, round abandoned", "round_id", roundID, "phase", phase)
}

// runAggregating builds the deterministic seed, invokes the TEE, and
// transitions to publishingState, without holding a.mu across the
// enclave call.
func (a *Aggregator) runAggregating(ctx context.Context, s *aggregatingState) error {
	seed := buildSeed(s.reveals)
	result, err := a.enclave.Aggregate(ctx, seed)

	a.mu.Lock()
	defer a.mu.Unlock()
	cur, ok := a.state.(*aggregatingState)
	if !ok || cur.roundID != s.roundID {
		return nil // superseded; nothing to do
	}
	if err != nil {
		a.state = idleState{}
		a.wakeLocked()
		return apierror.Wrap(apierror.TEEError, "run_with_timeout_aggregate", err).WithRound(s.roundID)
	}
	a.state = &publishingState{
		roundID:      s.roundID,
		randomNumber: result.RandomNumber,
		nonce:        result.Nonce,
		attestation:  result.Report,
	}
	a.wakeLocked()
	return nil
}

// buildSeed implements the normative seed construction: accepted secrets
// concatenated in bytewise-ascending node_id order.
func buildSeed(reveals map[wire.NodeID]revealRecord) []byte {
	ids := make([]wire.NodeID, 0, len(reveals))
	for id := range reveals {
		ids = append(ids, id)
	}
	ids = committee.SortNodeIDs(ids)

	seed := make([]byte, 0, len(ids)*cryptoprimitives.SecretSize)
	for _, id := range ids {
		secret := reveals[id].secret
		seed = append(seed, secret[:]...)
	}
	return seed
}

// runPublishing signs and submits the randomness event with bounded
// retries, then returns the aggregator to idleState regardless of
// outcome. A permanent publish failure loses the round under this
// round_id; per spec.md §9 it may not be republished under the same id.
func (a *Aggregator) runPublishing(ctx context.Context, s *publishingState) error {
	event := wire.RandomnessEvent{
		RoundID:      s.roundID,
		RandomNumber: s.randomNumber,
		Nonce:        s.nonce,
		Attestation:  s.attestation,
	}

	pubErr := a.publishWithRetries(ctx, event)

	a.mu.Lock()
	if cur, ok := a.state.(*publishingState); ok && cur.roundID == s.roundID {
		a.state = idleState{}
		a.wakeLocked()
	}
	a.mu.Unlock()

	if pubErr != nil {
		log.Warnw("round publication failed permanently, round lost", "round_id", s.roundID, "err", pubErr)
		return pubErr
	}
	log.Infow("round published", "round_id", s.roundID)
	return nil
}

// publishWithRetries signs event with the aggregator's long-term key and
// submits it, retrying transient (TransportError) failures with
// exponential backoff up to cfg.MaxPublishRetries. A permanent failure
// (e.g. DuplicateSubmission, Unauthorized) is returned immediately without
// retrying.
func (a *Aggregator) publishWithRetries(ctx context.Context, event wire.RandomnessEvent) error {
	digest, err := wire.EventDigest(event)
	if err != nil {
		return apierror.Wrap(apierror.ConfigError, "publish_randomness_event", err).WithRound(event.RoundID)
	}
	sig, err := cryptoprimitives.SignDigest(a.sk, digest)
	if err != nil {
		return apierror.Wrap(apierror.ConfigError, "publish_randomness_event", err).WithRound(event.RoundID)
	}

	wait := a.cfg.PublishBackoffInit
	var lastErr error
	for attempt := 0; attempt <= a.cfg.MaxPublishRetries; attempt++ {
		err := a.pub.Submit(ctx, event, sig)
		if err == nil {
			return nil
		}
		lastErr = err
		if kind, ok := apierror.KindOf(err); !ok || kind != apierror.TransportError {
			return err // permanent failure, don't retry
		}
		if attempt == a.cfg.MaxPublishRetries {
			break
		}
		select {
		case <-ctx.Done():
			return apierror.Wrap(apierror.TransportError, "publish_randomness_event", ctx.Err()).WithRound(event.RoundID)
		case <-time.After(wait):
		}
		wait *= 2
		if wait > a.cfg.PublishBackoffMax {
			wait = a.cfg.PublishBackoffMax
		}
	}
	return apierror.Wrap(apierror.TransportError, "publish_randomness_event", lastErr).WithRound(event.RoundID)
}
