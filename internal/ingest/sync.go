// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ingest pulls provider activities into the canonical store:
// the 30-day manual sync, the single-activity webhook path and the
// stream refetch. Per-activity failures become entries in the sync
// response; they never abort the batch.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stridelab/stride-backend/internal/processing"
	"github.com/stridelab/stride-backend/internal/repository"
	"github.com/stridelab/stride-backend/internal/strava"
	"github.com/stridelab/stride-backend/pkg/log"
	"github.com/stridelab/stride-backend/pkg/schema"
)

const (
	// Manual sync reaches back this far.
	syncWindow = 30 * 24 * time.Hour

	// Summaries fetched per page.
	syncPageSize = 50
)

// SyncResponse reports one manual sync run. Partial failures land in
// Errors; a global failure sets Errors[0] and short-circuits.
type SyncResponse struct {
	Fetched  int      `json:"fetched"`
	Upserted int      `json:"upserted"`
	Skipped  int      `json:"skipped"`
	Analyzed int      `json:"analyzed"`
	Errors   []string `json:"errors"`
}

// Service wires the provider client to the repositories and the
// processing engine.
type Service struct {
	client     *strava.Client
	users      *repository.UserRepository
	activities *repository.ActivityRepository
	engine     *processing.Engine
}

func NewService(client *strava.Client) *Service {
	return &Service{
		client:     client,
		users:      repository.GetUserRepository(),
		activities: repository.GetActivityRepository(),
		engine:     processing.NewEngine(),
	}
}

// ParseActivity extracts the canonical fields from a raw provider
// payload. The payload itself is retained verbatim on the record.
func ParseActivity(raw json.RawMessage, userID string) (*schema.Activity, error) {
	var summary struct {
		ID                 int64    `json:"id"`
		Name               string   `json:"name"`
		Type               string   `json:"type"`
		StartDate          string   `json:"start_date"`
		Distance           float64  `json:"distance"`
		MovingTime         int      `json:"moving_time"`
		ElapsedTime        int      `json:"elapsed_time"`
		TotalElevationGain float64  `json:"total_elevation_gain"`
		AverageHeartrate   *float64 `json:"average_heartrate"`
		MaxHeartrate       *float64 `json:"max_heartrate"`
		AverageCadence     *float64 `json:"average_cadence"`
		AverageSpeed       *float64 `json:"average_speed"`
	}
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("malformed provider payload: %w", err)
	}
	if summary.ID == 0 {
		return nil, fmt.Errorf("provider payload without activity id")
	}

	startDate, err := time.Parse("2006-01-02T15:04:05Z", summary.StartDate)
	if err != nil {
		// Some payloads carry an offset instead of Zulu.
		startDate, err = time.Parse(time.RFC3339, summary.StartDate)
		if err != nil {
			return nil, fmt.Errorf("malformed start_date %q: %w", summary.StartDate, err)
		}
	}

	name := summary.Name
	if name == "" {
		name = "Unknown Run"
	}
	typ := summary.Type
	if typ == "" {
		typ = "Run"
	}

	return &schema.Activity{
		UserID:           userID,
		StravaActivityID: summary.ID,
		Name:             name,
		Type:             typ,
		StartDate:        startDate,
		DistanceM:        int(summary.Distance),
		MovingTimeS:      summary.MovingTime,
		ElapsedTimeS:     summary.ElapsedTime,
		ElevGainM:        summary.TotalElevationGain,
		AvgHR:            summary.AverageHeartrate,
		MaxHR:            summary.MaxHeartrate,
		AvgCadence:       summary.AverageCadence,
		AverageSpeedMps:  summary.AverageSpeed,
		RawSummary:       raw,
	}, nil
}

// FetchAndStoreStreams refetches every channel of an activity and
// replaces the stored rows wholesale.
func (s *Service) FetchAndStoreStreams(ctx context.Context, account *schema.StravaAccount, activity *schema.Activity) error {
	token, err := s.client.EnsureValidToken(ctx, s.users, account)
	if err != nil {
		return err
	}

	channels, err := s.client.FetchStreams(ctx, token, activity.StravaActivityID, schema.StreamChannels)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		return nil
	}

	return s.activities.ReplaceStreams(activity.ID, channels)
}

// SyncRecent fetches the last 30 days of summaries and runs the
// upsert-streams-analyze pipeline per activity. Each activity commits
// on its own so partial progress survives.
func (s *Service) SyncRecent(ctx context.Context, account *schema.StravaAccount) *SyncResponse {
	stats := &SyncResponse{Errors: []string{}}

	token, err := s.client.EnsureValidToken(ctx, s.users, account)
	if err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("Sync failed globally: %v", err))
		return stats
	}

	after := time.Now().Add(-syncWindow).Unix()
	rawActivities, err := s.client.FetchActivitiesSince(ctx, token, after, syncPageSize)
	if err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("Sync failed globally: %v", err))
		return stats
	}
	stats.Fetched = len(rawActivities)

	for _, raw := range rawActivities {
		if err := s.syncOne(ctx, account, raw, stats); err != nil {
			var id int64
			var probe struct {
				ID int64 `json:"id"`
			}
			if json.Unmarshal(raw, &probe) == nil {
				id = probe.ID
			}
			msg := fmt.Sprintf("Error processing activity %d: %v", id, err)
			log.Error(msg)
			stats.Errors = append(stats.Errors, msg)
		}
	}

	return stats
}

func (s *Service) syncOne(ctx context.Context, account *schema.StravaAccount, raw json.RawMessage, stats *SyncResponse) error {
	parsed, err := ParseActivity(raw, account.UserID)
	if err != nil {
		return err
	}

	activity, err := s.activities.Upsert(parsed)
	if err != nil {
		return err
	}
	stats.Upserted++

	if err := s.FetchAndStoreStreams(ctx, account, activity); err != nil {
		return err
	}

	// Analysis is skipped when a derived metric already exists;
	// re-analysis runs through the explicit endpoints.
	_, err = s.activities.FindMetric(activity.ID)
	switch err {
	case nil:
		stats.Skipped++
	case repository.ErrNotFound:
		if _, err := s.engine.ProcessActivity(activity.ID); err != nil {
			return err
		}
		stats.Analyzed++
	default:
		return err
	}
	return nil
}

// SyncActivityByID is the webhook worker path: fetch one activity
// detail, upsert it, replace its streams and reprocess.
func (s *Service) SyncActivityByID(ctx context.Context, account *schema.StravaAccount, stravaActivityID int64) error {
	token, err := s.client.EnsureValidToken(ctx, s.users, account)
	if err != nil {
		return err
	}

	raw, err := s.client.FetchActivity(ctx, token, stravaActivityID)
	if err != nil {
		return err
	}

	parsed, err := ParseActivity(raw, account.UserID)
	if err != nil {
		return err
	}

	activity, err := s.activities.Upsert(parsed)
	if err != nil {
		return err
	}

	if err := s.FetchAndStoreStreams(ctx, account, activity); err != nil {
		return err
	}

	_, err = s.engine.ProcessActivity(activity.ID)
	return err
}

// ProcessDeep refetches streams and reruns the full pipeline. Used by
// the re-analysis endpoint.
func (s *Service) ProcessDeep(ctx context.Context, activityID string) (*schema.DerivedMetric, error) {
	activity, err := s.activities.FindById(activityID)
	if err != nil {
		return nil, err
	}

	account, err := s.users.FindAccountByUser(activity.UserID)
	if err != nil && err != repository.ErrNotFound {
		return nil, err
	}
	if account != nil {
		if err := s.FetchAndStoreStreams(ctx, account, activity); err != nil {
			log.Warnf("stream refetch for %s failed: %v", activityID, err)
		}
	}

	return s.engine.ProcessActivity(activityID)
}
