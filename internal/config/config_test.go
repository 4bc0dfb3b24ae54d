// Copyright © 2026 entropybeacon contributors
//
// This file is part of entropybeacon. The full license notice, including
// terms governing use, modification, and redistribution, is contained in
// the file LICENSE at the root of the source code distribution tree.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregatorConfig_Validate(t *testing.T) {
	valid := AggregatorConfig{CommitteeSize: 3, Threshold: 2, Port: 9000, LedgerAddr: "http://localhost:9090"}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.Threshold = 4
	assert.Error(t, bad.Validate())

	bad = valid
	bad.CommitteeSize = 0
	assert.Error(t, bad.Validate())

	bad = valid
	bad.LedgerAddr = ""
	assert.Error(t, bad.Validate())
}

func TestWorkerConfig_Validate(t *testing.T) {
	valid := WorkerConfig{NodeID: "n1", AggregatorAddr: "localhost:9000"}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.NodeID = ""
	assert.Error(t, bad.Validate())
}
