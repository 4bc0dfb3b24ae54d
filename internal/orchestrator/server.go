// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

package orchestrator

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/entropybeacon/beacon/internal/apierror"
	"github.com/entropybeacon/beacon/internal/committee"
	"github.com/entropybeacon/beacon/internal/wire"
)

// readTimeout bounds how long an acceptor task waits for a frame from a
// worker connection, per §6's "Connection-level read timeout 30 s".
const readTimeout = 30 * time.Second

// Server is the worker-facing TCP acceptor: one task per inbound
// connection (dispatching CommitmentMsg/RevealMsg into the Aggregator and
// acknowledging HeartbeatMsg itself) plus a broadcaster that relays StartCommitment and
// StartReveal to every connected worker.
//
// Grounded on the concurrency model's "one acceptor task per inbound
// connection" (§5), implemented with golang.org/x/sync/errgroup for
// fan-in of per-connection goroutines, never holding a lock across a
// network read.
type Server struct {
	agg *Aggregator
	dir *committee.Directory

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer builds a Server over agg, resolving commitment signer public
// keys through dir.
func NewServer(agg *Aggregator, dir *committee.Directory) *Server {
	return &Server{agg: agg, dir: dir, conns: make(map[net.Conn]struct{})}
}

// ListenAndServe accepts worker connections on addr until ctx is
// cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return apierror.Wrap(apierror.TransportError, "aggregator_listen", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		ln.Close()
		return nil
	})
	g.Go(func() error {
		return s.broadcastStartReveal(gctx)
	})

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-gctx.Done():
				return g.Wait()
			default:
				return apierror.Wrap(apierror.TransportError, "aggregator_accept", err)
			}
		}
		s.register(conn)
		g.Go(func() error {
			defer s.unregister(conn)
			s.handleConn(gctx, conn)
			return nil
		})
	}
}

func (s *Server) register(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) unregister(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
	conn.Close()
}

// Broadcast sends v to every currently connected worker, dropping (and
// closing) any connection that fails to accept the write.
func (s *Server) Broadcast(v interface{}) {
	s.mu.Lock()
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		if err := wire.WriteFrame(c, v); err != nil {
			log.Warnw("broadcast to worker failed, dropping connection", "err", err)
			s.unregister(c)
		}
	}
}

// broadcastStartReveal relays the Aggregator's internal StartReveal
// notifications to every connected worker.
func (s *Server) broadcastStartReveal(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-s.agg.StartRevealNotifications():
			s.Broadcast(msg)
		}
	}
}

// handleConn reads frames from one worker connection until it errors or
// ctx is cancelled, dispatching each to the Aggregator and replying with
// the response token from §6.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		body, err := wire.ReadFrame(conn)
		if err != nil {
			return
		}

		kind, err := wire.Sniff(body)
		if err != nil {
			s.reply(conn, wire.ERROR)
			continue
		}

		switch kind {
		case wire.InboundCommitment:
			s.handleCommitment(conn, body)
		case wire.InboundReveal:
			s.handleReveal(conn, body)
		case wire.InboundHeartbeat:
			var hb wire.HeartbeatMsg
			if err := unmarshalOrReply(conn, body, &hb); err != nil {
				continue
			}
			log.Debugw("worker heartbeat", "node_id", hb.NodeID, "status", hb.Status)
			s.reply(conn, wire.ACK)
		default:
			s.reply(conn, wire.UnknownMessageType)
		}
	}
}

func (s *Server) handleCommitment(conn net.Conn, body []byte) {
	var msg wire.CommitmentMsg
	if err := unmarshalOrReply(conn, body, &msg); err != nil {
		return
	}
	pk, err := s.dir.Lookup(msg.NodeID)
	if err != nil {
		log.Warnw("commitment from unregistered node", "node_id", msg.NodeID)
		s.reply(conn, wire.NACK)
		return
	}
	if err := s.agg.ProcessCommitment(msg, pk); err != nil {
		log.Warnw("commitment rejected", "node_id", msg.NodeID, "err", err)
		s.reply(conn, wire.NACK)
		return
	}
	s.reply(conn, wire.ACK)
}

func (s *Server) handleReveal(conn net.Conn, body []byte) {
	var msg wire.RevealMsg
	if err := unmarshalOrReply(conn, body, &msg); err != nil {
		return
	}
	if err := s.agg.ProcessReveal(msg); err != nil {
		log.Warnw("reveal rejected", "node_id", msg.NodeID, "err", err)
		s.reply(conn, wire.NACK)
		return
	}
	s.reply(conn, wire.ACK)
}

func (s *Server) reply(conn net.Conn, token wire.ResponseToken) {
	if err := wire.WriteFrame(conn, token); err != nil {
		log.Warnw("failed to write response token", "err", err)
	}
}

// unmarshalOrReply decodes body into v, replying ERROR and returning a
// non-nil error on failure so the caller can bail out of handling this
// frame.
func unmarshalOrReply(conn net.Conn, body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		wire.WriteFrame(conn, wire.ERROR)
		return err
	}
	return nil
}
