// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func assertReader(s string) io.Reader {
	return strings.NewReader(s)
}

func TestCheckInRequestValidation(t *testing.T) {
	ten, eleven, negative := 10, 11, -1

	assert.NoError(t, (&CheckInRequest{RPE: &ten}).validate())
	assert.Error(t, (&CheckInRequest{RPE: &eleven}).validate())
	assert.Error(t, (&CheckInRequest{PainScore: &negative}).validate())
	assert.Error(t, (&CheckInRequest{SleepQuality: &eleven}).validate())
	assert.NoError(t, (&CheckInRequest{}).validate())
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	var req IntentUpdateRequest
	err := decode(strings.NewReader(`{"user_intent": "Tempo", "bogus": 1}`), &req)
	assert.Error(t, err)

	err = decode(strings.NewReader(`{"user_intent": "Tempo"}`), &req)
	require.NoError(t, err)
	require.NotNil(t, req.UserIntent)
	assert.Equal(t, "Tempo", *req.UserIntent)
}
