// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/stridelab/stride-backend/internal/config"
	"github.com/stridelab/stride-backend/internal/ingest"
	"github.com/stridelab/stride-backend/internal/queue"
	"github.com/stridelab/stride-backend/pkg/log"
)

// StravaEvent is the provider's webhook body.
// https://developers.strava.com/docs/webhooks/
type StravaEvent struct {
	ObjectType     string                 `json:"object_type"` // activity, athlete
	ObjectID       int64                  `json:"object_id"`
	AspectType     string                 `json:"aspect_type"` // create, update, delete
	OwnerID        int64                  `json:"owner_id"`
	SubscriptionID int64                  `json:"subscription_id"`
	Updates        map[string]interface{} `json:"updates"`
	EventTime      int64                  `json:"event_time"`
}

// WebhookResponse model
type WebhookResponse struct {
	Status string `json:"status"`
	Action string `json:"action,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// verifyWebhook answers the provider's subscription handshake: echo
// the challenge for a matching verify token, 403 otherwise.
func (api *RestApi) verifyWebhook(rw http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "subscribe" || token != config.Keys.StravaWebhookVerifyToken {
		handleError(fmt.Errorf("invalid verification token"), http.StatusForbidden, rw)
		return
	}

	writeJSON(rw, http.StatusOK, map[string]string{"hub.challenge": challenge})
}

// receiveWebhook acknowledges within the provider's retry budget: the
// delete aspect flips the soft-delete flag inline, create/update only
// enqueue. Never errors to the transport.
func (api *RestApi) receiveWebhook(rw http.ResponseWriter, r *http.Request) {
	var event StravaEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		log.Warnf("webhook: undecodable body: %v", err)
		writeJSON(rw, http.StatusOK, WebhookResponse{Status: "ignored", Reason: "bad_body"})
		return
	}

	if event.ObjectType != "activity" {
		writeJSON(rw, http.StatusOK, WebhookResponse{Status: "ignored", Reason: "not_activity"})
		return
	}

	switch event.AspectType {
	case "delete":
		if err := api.Activities.SoftDeleteByStravaId(event.ObjectID); err != nil {
			log.Errorf("webhook: soft delete of %d failed: %v", event.ObjectID, err)
		}
		writeJSON(rw, http.StatusOK, WebhookResponse{Status: "processed", Action: "deleted"})

	case "create", "update":
		payload, _ := json.Marshal(ingest.SyncActivityPayload{
			StravaAthleteID:  event.OwnerID,
			StravaActivityID: event.ObjectID,
		})
		job := queue.Job{
			ID:      ingest.SyncJobID(event.ObjectID, event.EventTime),
			Name:    ingest.JobSyncActivity,
			Payload: payload,
		}

		enqueued, err := api.Queue.Enqueue(r.Context(), job, queue.DefaultResultTTL)
		if err != nil {
			log.Errorf("webhook: enqueue of %s failed: %v", job.ID, err)
			writeJSON(rw, http.StatusOK, WebhookResponse{Status: "error", Reason: "enqueue_failed"})
			return
		}
		if !enqueued {
			writeJSON(rw, http.StatusOK, WebhookResponse{Status: "processed", Action: "duplicate"})
			return
		}
		writeJSON(rw, http.StatusOK, WebhookResponse{Status: "processed", Action: "enqueued"})

	default:
		writeJSON(rw, http.StatusOK, WebhookResponse{Status: "ignored", Reason: "unknown_aspect"})
	}
}
