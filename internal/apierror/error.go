// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

// Package apierror defines the stable error taxonomy shared by the worker
// engine, the aggregator orchestrator, and the beacon bridge/ledger.
package apierror

import "fmt"

// Kind is one of the stable error kinds from the protocol's error taxonomy.
// Callers should compare against these constants, never against message text.
type Kind string

const (
	Unauthorized        Kind = "Unauthorized"
	InvalidSignature     Kind = "InvalidSignature"
	InvalidRound         Kind = "InvalidRound"
	WrongState           Kind = "WrongState"
	DuplicateSubmission  Kind = "DuplicateSubmission"
	RevealMismatch       Kind = "RevealMismatch"
	CommitmentTimeout    Kind = "CommitmentTimeout"
	RevealTimeout        Kind = "RevealTimeout"
	NotInCommittee       Kind = "NotInCommittee"
	AlreadyParticipating Kind = "AlreadyParticipating"
	NotParticipating     Kind = "NotParticipating"
	TransportError       Kind = "TransportError"
	TEEError             Kind = "TEEError"
	ConfigError          Kind = "ConfigError"
)

// Error is the typed error carried across this module's components. It
// mirrors tss.Error's task/round/victim/cause shape: a stable Kind for
// programmatic dispatch, contextual fields for logging, and an optional
// wrapped cause.
type Error struct {
	Kind    Kind
	Task    string
	RoundID uint64
	NodeID  string
	cause   error
}

// New constructs an Error of the given kind with no wrapped cause.
func New(kind Kind, task string) *Error {
	return &Error{Kind: kind, Task: task}
}

// Wrap constructs an Error of the given kind wrapping cause.
func Wrap(kind Kind, task string, cause error) *Error {
	return &Error{Kind: kind, Task: task, cause: cause}
}

// WithRound returns a copy of err annotated with the round it occurred in.
func (e *Error) WithRound(roundID uint64) *Error {
	cp := *e
	cp.RoundID = roundID
	return &cp
}

// WithNode returns a copy of err annotated with the offending/victim node.
func (e *Error) WithNode(nodeID string) *Error {
	cp := *e
	cp.NodeID = nodeID
	return &cp
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return "<nil apierror.Error>"
	case e.NodeID != "" && e.cause != nil:
		return fmt.Sprintf("%s: task %s, round %d, node %s: %v", e.Kind, e.Task, e.RoundID, e.NodeID, e.cause)
	case e.NodeID != "":
		return fmt.Sprintf("%s: task %s, round %d, node %s", e.Kind, e.Task, e.RoundID, e.NodeID)
	case e.cause != nil:
		return fmt.Sprintf("%s: task %s, round %d: %v", e.Kind, e.Task, e.RoundID, e.cause)
	default:
		return fmt.Sprintf("%s: task %s, round %d", e.Kind, e.Task, e.RoundID)
	}
}

func (e *Error) Unwrap() error { return e.cause }

// Cause returns the wrapped error, if any, matching the pkg/errors idiom
// used elsewhere in this module.
func (e *Error) Cause() error { return e.cause }

// Is reports whether target is an *Error with the same Kind, so callers can
// do errors.Is(err, apierror.New(apierror.WrongState, "")).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, and
// reports ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if e == nil {
		return "", false
	}
	return e.Kind, true
}
