// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxFrameBytes bounds the length prefix so a misbehaving peer can't make
// us allocate an unbounded buffer.
const MaxFrameBytes = 1 << 20 // 1 MiB

// ResponseToken is one of the fixed ASCII tokens the aggregator replies
// with on the worker connection (§6).
type ResponseToken string

const (
	ACK                ResponseToken = "ACK"
	NACK               ResponseToken = "NACK"
	ERROR              ResponseToken = "ERROR"
	UnknownMessageType ResponseToken = "UNKNOWN_MESSAGE_TYPE"
)

// WriteFrame writes a 4-byte big-endian length prefix followed by the
// JSON-encoded body of v.
func WriteFrame(w io.Writer, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("wire: marshal frame body: %w", err)
	}
	if len(body) > MaxFrameBytes {
		return fmt.Errorf("wire: frame body of %d bytes exceeds max %d", len(body), MaxFrameBytes)
	}
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(body)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("wire: write length prefix: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("wire: write frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed JSON frame and returns its raw body.
// Callers decide how to interpret/dispatch the body (see Sniff).
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return nil, fmt.Errorf("wire: read length prefix: %w", err)
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	if n > MaxFrameBytes {
		return nil, fmt.Errorf("wire: frame of %d bytes exceeds max %d", n, MaxFrameBytes)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("wire: read frame body: %w", err)
	}
	return body, nil
}

// InboundKind distinguishes the recognized inbound body shapes (§6).
type InboundKind int

const (
	InboundUnknown InboundKind = iota
	InboundCommitment
	InboundReveal
	InboundHeartbeat
)

// envelope is used only to sniff which concrete message a frame carries,
// by checking which discriminating fields are present. This mirrors a
// routing/dispatch vs content split without pulling in a protobuf Any
// wrapper, since frames on this wire are plain JSON.
type envelope struct {
	Payload *json.RawMessage `json:"payload"`
	Status  *string          `json:"status"`
}

// Sniff inspects a raw frame body and reports which recognized message
// type it is, without fully decoding it. CommitmentMsg and RevealMsg both
// carry a "payload" object but differ in its shape (commitment vs secret),
// so Sniff peeks one level deeper.
func Sniff(body []byte) (InboundKind, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return InboundUnknown, fmt.Errorf("wire: sniff frame: %w", err)
	}
	if env.Status != nil {
		return InboundHeartbeat, nil
	}
	if env.Payload == nil {
		return InboundUnknown, nil
	}
	var probe struct {
		Commitment *[32]byte `json:"commitment"`
		Secret     *[32]byte `json:"secret"`
	}
	if err := json.Unmarshal(*env.Payload, &probe); err != nil {
		return InboundUnknown, nil
	}
	switch {
	case probe.Commitment != nil:
		return InboundCommitment, nil
	case probe.Secret != nil:
		return InboundReveal, nil
	default:
		return InboundUnknown, nil
	}
}
