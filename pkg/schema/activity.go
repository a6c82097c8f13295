// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

import (
	"encoding/json"
	"time"
)

// Activity is the canonical per-activity record, keyed on the
// provider-assigned activity id. The raw provider payload is retained
// verbatim alongside the extracted fields.
type Activity struct {
	ID               string          `json:"id" db:"id"`
	UserID           string          `json:"user_id" db:"user_id"`
	StravaActivityID int64           `json:"strava_activity_id" db:"strava_activity_id"`
	Name             string          `json:"name" db:"name"`
	Type             string          `json:"type" db:"type"`
	StartDate        time.Time       `json:"start_date" db:"start_date"`
	DistanceM        int             `json:"distance_m" db:"distance_m"`
	MovingTimeS      int             `json:"moving_time_s" db:"moving_time_s"`
	ElapsedTimeS     int             `json:"elapsed_time_s" db:"elapsed_time_s"`
	ElevGainM        float64         `json:"elev_gain_m" db:"elev_gain_m"`
	AvgHR            *float64        `json:"avg_hr" db:"avg_hr"`
	MaxHR            *float64        `json:"max_hr" db:"max_hr"`
	AvgCadence       *float64        `json:"avg_cadence" db:"avg_cadence"`
	AverageSpeedMps  *float64        `json:"average_speed_mps" db:"average_speed_mps"`
	UserIntent       *string         `json:"user_intent" db:"user_intent"`
	RawSummary       json.RawMessage `json:"-" db:"raw_summary"`
	IsDeleted        bool            `json:"is_deleted" db:"is_deleted"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// EffectiveType is the user's intent override when set, otherwise the
// provider-reported type.
func (a *Activity) EffectiveType() string {
	if a.UserIntent != nil && *a.UserIntent != "" {
		return *a.UserIntent
	}
	return a.Type
}

// RawField returns a field of the raw provider summary. Absence is the
// zero value, never an error.
func (a *Activity) RawField(key string) interface{} {
	if len(a.RawSummary) == 0 {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(a.RawSummary, &m); err != nil {
		return nil
	}
	return m[key]
}

// RawBool reads a boolean field of the raw summary, false when absent.
func (a *Activity) RawBool(key string) bool {
	v, ok := a.RawField(key).(bool)
	return ok && v
}

// RawString reads a string field of the raw summary, "" when absent.
func (a *Activity) RawString(key string) string {
	v, _ := a.RawField(key).(string)
	return v
}

// CheckIn is the optional per-activity self-report. One-to-one with
// Activity, upserted by the owning user.
type CheckIn struct {
	ID           int64     `json:"id" db:"id"`
	ActivityID   string    `json:"activity_id" db:"activity_id"`
	RPE          *int      `json:"rpe" db:"rpe"`
	PainScore    *int      `json:"pain_score" db:"pain_score"`
	PainLocation *string   `json:"pain_location" db:"pain_location"`
	SleepQuality *int      `json:"sleep_quality" db:"sleep_quality"`
	Notes        *string   `json:"notes" db:"notes"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
