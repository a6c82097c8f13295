// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stridelab/stride-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyWebhook(t *testing.T) {
	config.Keys.StravaWebhookVerifyToken = "sesame"
	api := &RestApi{}

	t.Run("echoes challenge for a valid handshake", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			"/api/webhooks/strava?hub.mode=subscribe&hub.verify_token=sesame&hub.challenge=abc123", nil)
		rw := httptest.NewRecorder()

		api.verifyWebhook(rw, req)

		assert.Equal(t, http.StatusOK, rw.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
		assert.Equal(t, "abc123", body["hub.challenge"])
	})

	t.Run("rejects a wrong token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			"/api/webhooks/strava?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=abc123", nil)
		rw := httptest.NewRecorder()

		api.verifyWebhook(rw, req)
		assert.Equal(t, http.StatusForbidden, rw.Code)
	})

	t.Run("rejects a wrong mode", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			"/api/webhooks/strava?hub.mode=unsubscribe&hub.verify_token=sesame&hub.challenge=abc123", nil)
		rw := httptest.NewRecorder()

		api.verifyWebhook(rw, req)
		assert.Equal(t, http.StatusForbidden, rw.Code)
	})
}

func TestReceiveWebhookIgnoresNonActivities(t *testing.T) {
	api := &RestApi{}

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/strava",
		jsonBody(t, StravaEvent{ObjectType: "athlete", ObjectID: 1, AspectType: "update"}))
	rw := httptest.NewRecorder()

	api.receiveWebhook(rw, req)

	assert.Equal(t, http.StatusOK, rw.Code)
	var body WebhookResponse
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	assert.Equal(t, "ignored", body.Status)
	assert.Equal(t, "not_activity", body.Reason)
}

func TestReceiveWebhookUnknownAspect(t *testing.T) {
	api := &RestApi{}

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/strava",
		jsonBody(t, StravaEvent{ObjectType: "activity", ObjectID: 1, AspectType: "replace"}))
	rw := httptest.NewRecorder()

	api.receiveWebhook(rw, req)

	assert.Equal(t, http.StatusOK, rw.Code)
	var body WebhookResponse
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	assert.Equal(t, "ignored", body.Status)
	assert.Equal(t, "unknown_aspect", body.Reason)
}

func TestReceiveWebhookBadBodyStays2xx(t *testing.T) {
	api := &RestApi{}

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/strava",
		assertReader("{not json"))
	rw := httptest.NewRecorder()

	api.receiveWebhook(rw, req)
	assert.Equal(t, http.StatusOK, rw.Code)
}
