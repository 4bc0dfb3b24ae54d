// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/entropybeacon/beacon/internal/apierror"
	"github.com/entropybeacon/beacon/internal/wire"
)

// backoff mirrors entropy-worker/src/network.rs's reconnect policy: start
// at initial, double on each failure, cap at max. Reimplemented around
// context.Context cancellation instead of the original's recursive retry
// function so a caller can bound total reconnect time with a deadline.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{initial: 100 * time.Millisecond, max: 30 * time.Second, current: 0}
}

func (b *backoff) next() time.Duration {
	if b.current == 0 {
		b.current = b.initial
	} else {
		b.current *= 2
		if b.current > b.max {
			b.current = b.max
		}
	}
	return b.current
}

func (b *backoff) reset() { b.current = 0 }

// Client is a worker's connection to its aggregator: a length-prefixed
// JSON stream over TCP, reconnected with exponential backoff on failure.
type Client struct {
	addr string

	mu   sync.Mutex
	conn net.Conn
}

// NewClient creates a client bound to the aggregator's address. Dial is
// lazy; the first Send or Receive call connects.
func NewClient(addr string) *Client {
	return &Client{addr: addr}
}

// Close closes the underlying connection, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// connect dials the aggregator, retrying with exponential backoff until
// ctx is done.
func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	b := newBackoff()
	var dialer net.Dialer
	for {
		conn, err := dialer.DialContext(ctx, "tcp", c.addr)
		if err == nil {
			return conn, nil
		}
		wait := b.next()
		log.Warnw("aggregator connect failed, retrying", "addr", c.addr, "wait", wait, "err", err)
		select {
		case <-ctx.Done():
			return nil, apierror.Wrap(apierror.TransportError, "worker_connect", ctx.Err())
		case <-time.After(wait):
		}
	}
}

func (c *Client) ensureConn(ctx context.Context) (net.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return conn, nil
}

func (c *Client) dropConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Send transmits v to the aggregator as a length-prefixed JSON frame,
// reconnecting once and retrying on a transport failure.
func (c *Client) Send(ctx context.Context, v interface{}) error {
	conn, err := c.ensureConn(ctx)
	if err != nil {
		return err
	}
	if err := wire.WriteFrame(conn, v); err != nil {
		c.dropConn()
		conn, err2 := c.ensureConn(ctx)
		if err2 != nil {
			return err2
		}
		if err := wire.WriteFrame(conn, v); err != nil {
			c.dropConn()
			return apierror.Wrap(apierror.TransportError, "worker_send", err)
		}
	}
	return nil
}

// ReceiveStartCommitment blocks for the next frame from the aggregator and
// decodes it as a StartCommitmentMsg.
func (c *Client) ReceiveStartCommitment(ctx context.Context) (wire.StartCommitmentMsg, error) {
	var msg wire.StartCommitmentMsg
	body, err := c.receiveFrame(ctx)
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, apierror.Wrap(apierror.TransportError, "worker_decode_start_commitment", err)
	}
	return msg, nil
}

// ReceiveStartReveal blocks for the next frame from the aggregator and
// decodes it as a StartRevealMsg.
func (c *Client) ReceiveStartReveal(ctx context.Context) (wire.StartRevealMsg, error) {
	var msg wire.StartRevealMsg
	body, err := c.receiveFrame(ctx)
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, apierror.Wrap(apierror.TransportError, "worker_decode_start_reveal", err)
	}
	return msg, nil
}

func (c *Client) receiveFrame(ctx context.Context) ([]byte, error) {
	conn, err := c.ensureConn(ctx)
	if err != nil {
		return nil, err
	}
	body, err := wire.ReadFrame(conn)
	if err != nil {
		c.dropConn()
		return nil, apierror.Wrap(apierror.TransportError, "worker_receive", err)
	}
	return body, nil
}

// SendHeartbeat reports liveness to the aggregator, per the supplemental
// HeartbeatMsg type.
func (c *Client) SendHeartbeat(ctx context.Context, nodeID wire.NodeID, status string, now time.Time) error {
	return c.Send(ctx, wire.HeartbeatMsg{
		NodeID:       nodeID,
		TimestampSec: uint64(now.Unix()),
		Status:       status,
	})
}

// String implements fmt.Stringer for diagnostic logging.
func (c *Client) String() string {
	return fmt.Sprintf("worker.Client{addr=%s}", c.addr)
}
