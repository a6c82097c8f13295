// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stridelab/stride-backend/internal/queue"
	"github.com/stridelab/stride-backend/internal/repository"
	"github.com/stridelab/stride-backend/pkg/log"
)

// Queue job names.
const (
	JobSyncActivity = "sync_activity"
	JobSyncAccount  = "sync_account"
)

// SyncActivityPayload is the webhook-driven single-activity job.
type SyncActivityPayload struct {
	StravaAthleteID  int64 `json:"strava_athlete_id"`
	StravaActivityID int64 `json:"strava_activity_id"`
}

// SyncAccountPayload triggers a full 30-day sweep of one account.
type SyncAccountPayload struct {
	AccountID int64 `json:"account_id"`
}

// SyncJobID builds the deterministic queue id that deduplicates
// repeated deliveries of one provider event.
func SyncJobID(objectID, eventTime int64) string {
	return fmt.Sprintf("sync_%d_%d", objectID, eventTime)
}

// RegisterJobs attaches the ingest handlers to a worker.
func (s *Service) RegisterJobs(w *queue.Worker) {
	w.Register(JobSyncActivity, s.handleSyncActivity)
	w.Register(JobSyncAccount, s.handleSyncAccount)
}

func (s *Service) handleSyncActivity(ctx context.Context, payload json.RawMessage) error {
	var p SyncActivityPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decoding sync_activity payload: %w", err)
	}

	account, err := s.users.FindAccountByAthlete(p.StravaAthleteID)
	if err == repository.ErrNotFound {
		// Events for unlinked athletes are not failures.
		log.Warnf("skipping sync: unknown athlete %d", p.StravaAthleteID)
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.SyncActivityByID(ctx, account, p.StravaActivityID); err != nil {
		return fmt.Errorf("syncing activity %d: %w", p.StravaActivityID, err)
	}
	log.Infof("synced activity %d for athlete %d", p.StravaActivityID, p.StravaAthleteID)
	return nil
}

func (s *Service) handleSyncAccount(ctx context.Context, payload json.RawMessage) error {
	var p SyncAccountPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decoding sync_account payload: %w", err)
	}

	account, err := s.users.FindAccount(p.AccountID)
	if err == repository.ErrNotFound {
		log.Warnf("skipping sync: unknown account %d", p.AccountID)
		return nil
	}
	if err != nil {
		return err
	}

	stats := s.SyncRecent(ctx, account)
	if len(stats.Errors) > 0 {
		log.Warnf("account %d sync finished with %d errors", p.AccountID, len(stats.Errors))
	}
	log.Infof("account %d sync: fetched=%d upserted=%d analyzed=%d",
		p.AccountID, stats.Fetched, stats.Upserted, stats.Analyzed)
	return nil
}
