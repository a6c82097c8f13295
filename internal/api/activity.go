// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/stridelab/stride-backend/internal/config"
	"github.com/stridelab/stride-backend/internal/contextpack"
	"github.com/stridelab/stride-backend/internal/processing"
	"github.com/stridelab/stride-backend/internal/repository"
	"github.com/stridelab/stride-backend/pkg/log"
	"github.com/stridelab/stride-backend/pkg/schema"
	"github.com/stridelab/stride-backend/pkg/units"

	"github.com/gorilla/mux"
)

// manualSync triggers a synchronous 30-day sync for the linked
// account. Partial failures are reported per activity in the response.
func (api *RestApi) manualSync(rw http.ResponseWriter, r *http.Request) {
	var account *schema.StravaAccount
	var err error

	if athleteParam := r.URL.Query().Get("strava_athlete_id"); athleteParam != "" {
		athleteID, perr := strconv.ParseInt(athleteParam, 10, 64)
		if perr != nil {
			handleError(fmt.Errorf("invalid strava_athlete_id: %w", perr), http.StatusBadRequest, rw)
			return
		}
		account, err = api.Users.FindAccountByAthlete(athleteID)
	} else {
		// Single-player mode: default to the only linked account.
		var accounts []*schema.StravaAccount
		accounts, err = api.Users.ListAccounts()
		if err == nil && len(accounts) > 0 {
			account = accounts[0]
		} else if err == nil {
			err = repository.ErrNotFound
		}
	}

	if err == repository.ErrNotFound || account == nil {
		handleError(fmt.Errorf("no linked Strava account found, connect Strava first"), http.StatusNotFound, rw)
		return
	}
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}

	writeJSON(rw, http.StatusOK, api.SyncService.SyncRecent(r.Context(), account))
}

func (api *RestApi) listActivities(rw http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 20)

	user, err := api.Users.FirstUser()
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}

	activities, err := api.Activities.List(user.ID, skip, limit)
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}
	writeJSON(rw, http.StatusOK, activities)
}

// ActivityDetail is the detail read: the activity with its metric
// record, check-in, raw stream channels and computed splits. Cadence
// is normalized to steps/min at this boundary.
type ActivityDetail struct {
	*schema.Activity
	AvgCadence *float64                   `json:"avg_cadence"`
	Metrics    *schema.DerivedMetric      `json:"metrics"`
	CheckIn    *schema.CheckIn            `json:"check_in"`
	Streams    map[string]json.RawMessage `json:"streams"`
	Splits     []processing.Split         `json:"splits"`
}

func (api *RestApi) getActivity(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	activity, err := api.Activities.FindById(id)
	if err == repository.ErrNotFound {
		handleError(fmt.Errorf("activity not found"), http.StatusNotFound, rw)
		return
	}
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}

	metric, err := api.Activities.FindMetric(id)
	if err != nil && err != repository.ErrNotFound {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}

	checkIn, err := api.Activities.FindCheckIn(id)
	if err != nil && err != repository.ErrNotFound {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}

	streamRows, err := api.Activities.FetchStreams(id)
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}
	streams := schema.DecodeStreams(streamRows)

	// Stale 'Easy Run' labels on what is really an indoor ride or a walk
	// are repaired on read, so old rows heal without a full re-sync.
	if config.Keys.LazyClassRepair && metric != nil && metric.ActivityClass == schema.ClassEasyRun {
		if current := processing.Classify(activity, nil); current == schema.ClassIndoorRide || current == schema.ClassLeisureWalk {
			if err := api.Activities.UpdateMetricClass(id, current); err != nil {
				log.Warnf("class repair for %s failed: %v", id, err)
			} else {
				metric.ActivityClass = current
			}
		}
	}

	detail := ActivityDetail{
		Activity:   activity,
		AvgCadence: units.NormalizeCadencePtr(activity.AvgCadence),
		Metrics:    metric,
		CheckIn:    checkIn,
		Streams:    map[string]json.RawMessage{},
		Splits:     processing.CalculateSplits(streams, 1000),
	}
	for _, row := range streamRows {
		detail.Streams[row.Type] = row.RawData
	}

	writeJSON(rw, http.StatusOK, detail)
}

// IntentUpdateRequest model
type IntentUpdateRequest struct {
	UserIntent *string `json:"user_intent"`
}

// setIntent stores the manual class override and reprocesses so the
// class, flags and risk reflect it.
func (api *RestApi) setIntent(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req IntentUpdateRequest
	if err := decode(r.Body, &req); err != nil {
		handleError(fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest, rw)
		return
	}

	if err := api.Activities.SetUserIntent(id, req.UserIntent); err != nil {
		if err == repository.ErrNotFound {
			handleError(fmt.Errorf("activity not found"), http.StatusNotFound, rw)
		} else {
			handleError(err, http.StatusInternalServerError, rw)
		}
		return
	}

	if _, err := api.Engine.ProcessActivity(id); err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}

	activity, err := api.Activities.FindById(id)
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}
	writeJSON(rw, http.StatusOK, activity)
}

// CheckInRequest model
type CheckInRequest struct {
	RPE          *int    `json:"rpe"`
	PainScore    *int    `json:"pain_score"`
	PainLocation *string `json:"pain_location"`
	SleepQuality *int    `json:"sleep_quality"`
	Notes        *string `json:"notes"`
}

func (req *CheckInRequest) validate() error {
	inRange := func(name string, v *int) error {
		if v != nil && (*v < 0 || *v > 10) {
			return fmt.Errorf("%s must be between 0 and 10", name)
		}
		return nil
	}
	if err := inRange("rpe", req.RPE); err != nil {
		return err
	}
	if err := inRange("pain_score", req.PainScore); err != nil {
		return err
	}
	return inRange("sleep_quality", req.SleepQuality)
}

// upsertCheckIn stores the self-report and reprocesses so flags and
// risk incorporate it.
func (api *RestApi) upsertCheckIn(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := api.Activities.FindById(id); err != nil {
		if err == repository.ErrNotFound {
			handleError(fmt.Errorf("activity not found"), http.StatusNotFound, rw)
		} else {
			handleError(err, http.StatusInternalServerError, rw)
		}
		return
	}

	var req CheckInRequest
	if err := decode(r.Body, &req); err != nil {
		handleError(fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest, rw)
		return
	}
	if err := req.validate(); err != nil {
		handleError(err, http.StatusBadRequest, rw)
		return
	}

	checkIn, err := api.Activities.UpsertCheckIn(&schema.CheckIn{
		ActivityID:   id,
		RPE:          req.RPE,
		PainScore:    req.PainScore,
		PainLocation: req.PainLocation,
		SleepQuality: req.SleepQuality,
		Notes:        req.Notes,
	})
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}

	if _, err := api.Engine.ProcessActivity(id); err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}
	writeJSON(rw, http.StatusOK, checkIn)
}

// processDeep refetches streams and reruns the full pipeline.
func (api *RestApi) processDeep(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	metric, err := api.SyncService.ProcessDeep(r.Context(), id)
	if err != nil {
		handleError(fmt.Errorf("processing failed or activity not found: %w", err), http.StatusBadRequest, rw)
		return
	}
	writeJSON(rw, http.StatusOK, metric)
}

// ContextPackResponse model
type ContextPackResponse struct {
	Pack      map[string]interface{} `json:"pack"`
	InputHash string                 `json:"input_hash"`
}

// getContextPack serves the deterministic document the coaching layer
// consumes read-only.
func (api *RestApi) getContextPack(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	pack, err := api.PackBuilder.Build(id)
	if err == repository.ErrNotFound {
		handleError(fmt.Errorf("activity not found"), http.StatusNotFound, rw)
		return
	}
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}

	hash, err := contextpack.Hash(pack)
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}
	writeJSON(rw, http.StatusOK, ContextPackResponse{Pack: pack, InputHash: hash})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
