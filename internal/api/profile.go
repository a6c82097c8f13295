// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/stridelab/stride-backend/pkg/schema"
)

// getProfile returns the current user's profile, creating the default
// one (and the user) on first read.
func (api *RestApi) getProfile(rw http.ResponseWriter, r *http.Request) {
	user, err := api.Users.FirstUser()
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}

	profile, err := api.Users.GetOrCreateProfile(user.ID)
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}
	writeJSON(rw, http.StatusOK, profile)
}

// ProfileUpdateRequest model. Absent fields keep their stored value.
type ProfileUpdateRequest struct {
	GoalType            *string       `json:"goal_type"`
	TargetDate          *time.Time    `json:"target_date"`
	ExperienceLevel     *string       `json:"experience_level"`
	WeeklyDaysAvailable *int          `json:"weekly_days_available"`
	CurrentWeeklyKm     *float64      `json:"current_weekly_km"`
	MaxHR               *int          `json:"max_hr"`
	MaxHRSource         *string       `json:"max_hr_source"`
	InjuryNotes         *string       `json:"injury_notes"`
	UpcomingRaces       []schema.Race `json:"upcoming_races"`
}

func (api *RestApi) updateProfile(rw http.ResponseWriter, r *http.Request) {
	var req ProfileUpdateRequest
	if err := decode(r.Body, &req); err != nil {
		handleError(fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest, rw)
		return
	}

	user, err := api.Users.FirstUser()
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}

	profile, err := api.Users.GetOrCreateProfile(user.ID)
	if err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}

	if req.GoalType != nil {
		profile.GoalType = *req.GoalType
	}
	if req.TargetDate != nil {
		profile.TargetDate = req.TargetDate
	}
	if req.ExperienceLevel != nil {
		profile.ExperienceLevel = *req.ExperienceLevel
	}
	if req.WeeklyDaysAvailable != nil {
		profile.WeeklyDaysAvailable = *req.WeeklyDaysAvailable
	}
	if req.CurrentWeeklyKm != nil {
		profile.CurrentWeeklyKm = req.CurrentWeeklyKm
	}
	if req.MaxHR != nil {
		profile.MaxHR = req.MaxHR
	}
	if req.MaxHRSource != nil {
		profile.MaxHRSource = req.MaxHRSource
	}
	if req.InjuryNotes != nil {
		profile.InjuryNotes = req.InjuryNotes
	}
	if req.UpcomingRaces != nil {
		profile.UpcomingRaces = req.UpcomingRaces
	}

	if err := api.Users.SaveProfile(profile); err != nil {
		handleError(err, http.StatusInternalServerError, rw)
		return
	}
	writeJSON(rw, http.StatusOK, profile)
}
