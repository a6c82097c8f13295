// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api is the thin JSON adapter over the processing core. All
// heavy work (fetching, analysis) either happens behind an enqueued
// job or synchronously in the explicit re-process endpoints.
package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/stridelab/stride-backend/internal/contextpack"
	"github.com/stridelab/stride-backend/internal/ingest"
	"github.com/stridelab/stride-backend/internal/processing"
	"github.com/stridelab/stride-backend/internal/queue"
	"github.com/stridelab/stride-backend/internal/repository"
	"github.com/stridelab/stride-backend/internal/strava"
	"github.com/stridelab/stride-backend/internal/trends"
	"github.com/stridelab/stride-backend/pkg/log"

	"github.com/gorilla/mux"
)

type RestApi struct {
	Client      *strava.Client
	SyncService *ingest.Service
	Queue       *queue.Queue
	Engine      *processing.Engine
	Trends      *trends.Aggregator
	PackBuilder *contextpack.Builder

	Users      *repository.UserRepository
	Activities *repository.ActivityRepository
}

func New(client *strava.Client, q *queue.Queue) *RestApi {
	return &RestApi{
		Client:      client,
		SyncService: ingest.NewService(client),
		Queue:       q,
		Engine:      processing.NewEngine(),
		Trends:      trends.NewAggregator(),
		PackBuilder: contextpack.NewBuilder(),
		Users:       repository.GetUserRepository(),
		Activities:  repository.GetActivityRepository(),
	}
}

func (api *RestApi) MountRoutes(r *mux.Router) {
	r = r.PathPrefix("/api").Subrouter()
	r.StrictSlash(true)

	r.HandleFunc("/health", api.health).Methods(http.MethodGet)

	r.HandleFunc("/auth/strava/login", api.stravaLogin).Methods(http.MethodGet)
	r.HandleFunc("/auth/strava/callback", api.stravaCallback).Methods(http.MethodGet)

	r.HandleFunc("/sync", api.manualSync).Methods(http.MethodPost)

	r.HandleFunc("/activities", api.listActivities).Methods(http.MethodGet)
	r.HandleFunc("/activities/{id}", api.getActivity).Methods(http.MethodGet)
	r.HandleFunc("/activities/{id}/intent", api.setIntent).Methods(http.MethodPut)
	r.HandleFunc("/activities/{id}/checkin", api.upsertCheckIn).Methods(http.MethodPost)
	r.HandleFunc("/activities/{id}/process_deep", api.processDeep).Methods(http.MethodPost)
	r.HandleFunc("/activities/{id}/context_pack", api.getContextPack).Methods(http.MethodGet)

	r.HandleFunc("/profile", api.getProfile).Methods(http.MethodGet)
	r.HandleFunc("/profile", api.updateProfile).Methods(http.MethodPut)

	r.HandleFunc("/trends", api.getTrends).Methods(http.MethodGet)
	r.HandleFunc("/trends/types", api.getTrendTypes).Methods(http.MethodGet)

	r.HandleFunc("/webhooks/strava", api.verifyWebhook).Methods(http.MethodGet)
	r.HandleFunc("/webhooks/strava", api.receiveWebhook).Methods(http.MethodPost)
}

// ErrorResponse model
type ErrorResponse struct {
	// Statustext of Errorcode
	Status string `json:"status"`
	Error  string `json:"error"` // Error Message
}

func handleError(err error, statusCode int, rw http.ResponseWriter) {
	log.Warnf("REST ERROR : %s", err.Error())
	rw.Header().Add("Content-Type", "application/json")
	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(ErrorResponse{
		Status: http.StatusText(statusCode),
		Error:  err.Error(),
	})
}

func writeJSON(rw http.ResponseWriter, statusCode int, val interface{}) {
	rw.Header().Add("Content-Type", "application/json")
	rw.WriteHeader(statusCode)
	if err := json.NewEncoder(rw).Encode(val); err != nil {
		log.Errorf("encoding response: %v", err)
	}
}

func decode(r io.Reader, val interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(val)
}

// HealthResponse model
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (api *RestApi) health(rw http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Database: "ok"}
	if err := repository.Ping(); err != nil {
		resp.Database = "error: " + err.Error()
	}
	writeJSON(rw, http.StatusOK, resp)
}
