// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

package committee

import (
	"sync"

	"github.com/entropybeacon/beacon/internal/apierror"
	"github.com/entropybeacon/beacon/internal/wire"
)

// Directory maps a committee member's NodeID to its long-term public key,
// out of band from the commit/reveal wire messages (which never carry a
// key). A deployment populates this once per committee, the way tss.
// PeerContext carries each PartyID's static identity alongside the
// protocol's per-round messages.
type Directory struct {
	mu   sync.RWMutex
	keys map[wire.NodeID][]byte
}

// NewDirectory builds a Directory from a NodeID-to-public-key map.
func NewDirectory(keys map[wire.NodeID][]byte) *Directory {
	d := &Directory{keys: make(map[wire.NodeID][]byte, len(keys))}
	for id, key := range keys {
		cp := make([]byte, len(key))
		copy(cp, key)
		d.keys[id] = cp
	}
	return d
}

// Lookup returns nodeID's public key, or an Unauthorized error if it is
// not registered.
func (d *Directory) Lookup(nodeID wire.NodeID) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	key, ok := d.keys[nodeID]
	if !ok {
		return nil, apierror.New(apierror.Unauthorized, "directory_lookup").WithNode(nodeID)
	}
	return key, nil
}

// Set registers or replaces nodeID's public key.
func (d *Directory) Set(nodeID wire.NodeID, key []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]byte, len(key))
	copy(cp, key)
	d.keys[nodeID] = cp
}
