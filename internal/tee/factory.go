// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

package tee

import (
	"crypto/sha256"
	"os"
	"strconv"
)

// UseMockFromEnv implements §6's ENTROPY_USE_MOCK_TEE contract: unset or
// unparseable is treated as false.
func UseMockFromEnv() bool {
	v, ok := os.LookupEnv("ENTROPY_USE_MOCK_TEE")
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

// New builds the configured Enclave implementation. When useMock is false,
// it returns an SGXEnclave — callers that need full vendor quote
// verification must additionally wrap it (see SGXEnclave's doc comment).
func New(useMock bool) Enclave {
	if useMock {
		return NewMockEnclave()
	}
	return NewSGXEnclave(sha256.Sum256([]byte("entropybeacon-production-enclave-v1")))
}
