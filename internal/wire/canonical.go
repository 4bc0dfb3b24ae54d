// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

package wire

import (
	"crypto/sha256"
	"encoding/json"
)

// EventDigest computes SHA-256 over event's canonical encoding. A
// deployment fixes exactly one canonical serialization for signatures to
// verify against; this one picks struct-order JSON, since
// encoding/json preserves a struct's declared field order deterministically.
// Both the aggregator (signing) and the beacon ledger (verifying) call this
// same function so they never disagree on what was signed.
func EventDigest(event RandomnessEvent) ([32]byte, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(b), nil
}
