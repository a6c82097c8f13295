// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

import "time"

// User owns all other per-user entities. Users are created implicitly
// on first provider-account linkage.
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     *string   `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// StravaAccount holds the OAuth credentials for one linked provider
// account. One-to-one with User. Mutated only by the token store during
// refresh or initial linkage.
type StravaAccount struct {
	ID              int64  `json:"id" db:"id"`
	UserID          string `json:"user_id" db:"user_id"`
	StravaAthleteID int64  `json:"strava_athlete_id" db:"strava_athlete_id"`
	AccessToken     string `json:"-" db:"access_token"`
	RefreshToken    string `json:"-" db:"refresh_token"`
	ExpiresAt       int64  `json:"expires_at" db:"expires_at"` // unix seconds
	Scope           string `json:"scope" db:"scope"`
}

// UserProfile carries the semi-stable athlete context used by the
// metrics engine (max HR) and the coaching layer.
type UserProfile struct {
	UserID              string     `json:"user_id" db:"user_id"`
	GoalType            string     `json:"goal_type" db:"goal_type"`
	TargetDate          *time.Time `json:"target_date" db:"target_date"`
	ExperienceLevel     string     `json:"experience_level" db:"experience_level"`
	WeeklyDaysAvailable int        `json:"weekly_days_available" db:"weekly_days_available"`
	CurrentWeeklyKm     *float64   `json:"current_weekly_km" db:"current_weekly_km"`
	MaxHR               *int       `json:"max_hr" db:"max_hr"`
	MaxHRSource         *string    `json:"max_hr_source" db:"max_hr_source"`
	InjuryNotes         *string    `json:"injury_notes" db:"injury_notes"`
	RawUpcomingRaces    []byte     `json:"-" db:"upcoming_races"`
	UpcomingRaces       []Race     `json:"upcoming_races" db:"-"`
}

// Race is one entry of a profile's upcoming_races list.
type Race struct {
	Name       string  `json:"name"`
	Date       string  `json:"date"`
	DistanceKm float64 `json:"distance_km"`
}

// DefaultMaxHR is used by the metrics engine whenever the profile max
// HR is missing or implausible (<= 100).
const DefaultMaxHR = 190

// EffectiveMaxHR resolves the max HR to use for zone computation.
func (p *UserProfile) EffectiveMaxHR() int {
	if p != nil && p.MaxHR != nil && *p.MaxHR > 100 {
		return *p.MaxHR
	}
	return DefaultMaxHR
}

// ZonesCalibrated reports whether HR zones rest on an explicit,
// attributed max HR rather than the built-in default.
func (p *UserProfile) ZonesCalibrated() bool {
	return p != nil && p.MaxHR != nil && *p.MaxHR > 100 &&
		p.MaxHRSource != nil && *p.MaxHRSource != ""
}
