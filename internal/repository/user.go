// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/stridelab/stride-backend/pkg/log"
	"github.com/stridelab/stride-backend/pkg/lrucache"
	"github.com/stridelab/stride-backend/pkg/schema"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("no such row")

var (
	userRepoOnce     sync.Once
	userRepoInstance *UserRepository
)

// UserRepository owns users, linked provider accounts and profiles.
type UserRepository struct {
	DB *sqlx.DB

	stmtCache *sq.StmtCache
	cache     *lrucache.Cache
}

func GetUserRepository() *UserRepository {
	userRepoOnce.Do(func() {
		db := GetConnection()

		userRepoInstance = &UserRepository{
			DB:        db.DB,
			stmtCache: sq.NewStmtCache(db.DB),
			cache:     lrucache.New(256 * 1024),
		}
	})

	return userRepoInstance
}

func (r *UserRepository) CreateUser(email *string) (*schema.User, error) {
	user := &schema.User{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := qb().Insert("users").
		Columns("id", "email", "created_at").
		Values(user.ID, user.Email, user.CreatedAt).
		RunWith(r.DB).Exec(); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) FindUser(id string) (*schema.User, error) {
	user := &schema.User{}
	err := qb().Select("id", "email", "created_at").From("users").
		Where("users.id = ?", id).
		RunWith(r.stmtCache).QueryRow().
		Scan(&user.ID, &user.Email, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return user, err
}

// FirstUser returns the oldest user, creating one if none exists yet.
// Single-player mode: endpoints without explicit user scoping act on
// this user.
func (r *UserRepository) FirstUser() (*schema.User, error) {
	user := &schema.User{}
	err := qb().Select("id", "email", "created_at").From("users").
		OrderBy("created_at ASC").Limit(1).
		RunWith(r.stmtCache).QueryRow().
		Scan(&user.ID, &user.Email, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return r.CreateUser(nil)
	}
	return user, err
}

/* Linked accounts */

var accountColumns = []string{
	"strava_accounts.id", "strava_accounts.user_id", "strava_accounts.strava_athlete_id",
	"strava_accounts.access_token", "strava_accounts.refresh_token",
	"strava_accounts.expires_at", "strava_accounts.scope",
}

func scanAccount(row interface{ Scan(...interface{}) error }) (*schema.StravaAccount, error) {
	acc := &schema.StravaAccount{}
	if err := row.Scan(&acc.ID, &acc.UserID, &acc.StravaAthleteID,
		&acc.AccessToken, &acc.RefreshToken, &acc.ExpiresAt, &acc.Scope); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return acc, nil
}

func (r *UserRepository) FindAccountByAthlete(athleteID int64) (*schema.StravaAccount, error) {
	q := qb().Select(accountColumns...).From("strava_accounts").
		Where("strava_accounts.strava_athlete_id = ?", athleteID)
	return scanAccount(q.RunWith(r.stmtCache).QueryRow())
}

func (r *UserRepository) FindAccountByUser(userID string) (*schema.StravaAccount, error) {
	q := qb().Select(accountColumns...).From("strava_accounts").
		Where("strava_accounts.user_id = ?", userID)
	return scanAccount(q.RunWith(r.stmtCache).QueryRow())
}

func (r *UserRepository) FindAccount(id int64) (*schema.StravaAccount, error) {
	q := qb().Select(accountColumns...).From("strava_accounts").
		Where("strava_accounts.id = ?", id)
	return scanAccount(q.RunWith(r.stmtCache).QueryRow())
}

// ListAccounts returns every linked account, for the periodic sweep.
func (r *UserRepository) ListAccounts() ([]*schema.StravaAccount, error) {
	rows, err := qb().Select(accountColumns...).From("strava_accounts").
		OrderBy("strava_accounts.id ASC").
		RunWith(r.stmtCache).Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]*schema.StravaAccount, 0, 8)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

// LinkAccount upserts the provider account for athleteID, creating the
// owning user implicitly on first linkage.
func (r *UserRepository) LinkAccount(
	athleteID int64,
	accessToken string,
	refreshToken string,
	expiresAt int64,
	scope string,
) (*schema.StravaAccount, error) {
	existing, err := r.FindAccountByAthlete(athleteID)
	if err != nil && err != ErrNotFound {
		return nil, err
	}

	if existing != nil {
		_, err := qb().Update("strava_accounts").
			Set("access_token", accessToken).
			Set("refresh_token", refreshToken).
			Set("expires_at", expiresAt).
			Set("scope", scope).
			Where("strava_accounts.id = ?", existing.ID).
			RunWith(r.DB).Exec()
		if err != nil {
			return nil, err
		}
		return r.FindAccount(existing.ID)
	}

	user, err := r.CreateUser(nil)
	if err != nil {
		return nil, err
	}

	res, err := qb().Insert("strava_accounts").
		Columns("user_id", "strava_athlete_id", "access_token", "refresh_token", "expires_at", "scope").
		Values(user.ID, athleteID, accessToken, refreshToken, expiresAt, scope).
		RunWith(r.DB).Exec()
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		// Postgres does not report LastInsertId; re-read by athlete id.
		return r.FindAccountByAthlete(athleteID)
	}
	return r.FindAccount(id)
}

// SwapTokens atomically replaces the token triple, but only if the row
// still carries the expiry the caller refreshed from. Returns false
// when another worker already refreshed; the caller should re-read.
func (r *UserRepository) SwapTokens(
	accountID int64,
	oldExpiresAt int64,
	accessToken string,
	refreshToken string,
	expiresAt int64,
) (bool, error) {
	res, err := qb().Update("strava_accounts").
		Set("access_token", accessToken).
		Set("refresh_token", refreshToken).
		Set("expires_at", expiresAt).
		Where("strava_accounts.id = ?", accountID).
		Where("strava_accounts.expires_at = ?", oldExpiresAt).
		RunWith(r.DB).Exec()
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

/* Profiles */

var profileColumns = []string{
	"user_profiles.user_id", "user_profiles.goal_type", "user_profiles.target_date",
	"user_profiles.experience_level", "user_profiles.weekly_days_available",
	"user_profiles.current_weekly_km", "user_profiles.max_hr", "user_profiles.max_hr_source",
	"user_profiles.injury_notes", "user_profiles.upcoming_races",
}

func scanProfile(row interface{ Scan(...interface{}) error }) (*schema.UserProfile, error) {
	p := &schema.UserProfile{}
	if err := row.Scan(&p.UserID, &p.GoalType, &p.TargetDate, &p.ExperienceLevel,
		&p.WeeklyDaysAvailable, &p.CurrentWeeklyKm, &p.MaxHR, &p.MaxHRSource,
		&p.InjuryNotes, &p.RawUpcomingRaces); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if len(p.RawUpcomingRaces) > 0 {
		if err := json.Unmarshal(p.RawUpcomingRaces, &p.UpcomingRaces); err != nil {
			log.Warnf("decoding upcoming_races for user %s: %v", p.UserID, err)
		}
	}
	p.RawUpcomingRaces = nil
	return p, nil
}

func (r *UserRepository) FindProfile(userID string) (*schema.UserProfile, error) {
	q := qb().Select(profileColumns...).From("user_profiles").
		Where("user_profiles.user_id = ?", userID)
	return scanProfile(q.RunWith(r.stmtCache).QueryRow())
}

// GetOrCreateProfile returns the user's profile, creating the default
// one on first read.
func (r *UserRepository) GetOrCreateProfile(userID string) (*schema.UserProfile, error) {
	profile, err := r.FindProfile(userID)
	if err == nil {
		return profile, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	defaultKm := 20.0
	defaultMax := schema.DefaultMaxHR
	profile = &schema.UserProfile{
		UserID:              userID,
		GoalType:            "general",
		ExperienceLevel:     "intermediate",
		WeeklyDaysAvailable: 4,
		CurrentWeeklyKm:     &defaultKm,
		MaxHR:               &defaultMax,
		UpcomingRaces:       []schema.Race{},
	}
	return profile, r.SaveProfile(profile)
}

func (r *UserRepository) SaveProfile(p *schema.UserProfile) error {
	races, err := json.Marshal(p.UpcomingRaces)
	if err != nil {
		return err
	}

	res, err := qb().Update("user_profiles").
		Set("goal_type", p.GoalType).
		Set("target_date", p.TargetDate).
		Set("experience_level", p.ExperienceLevel).
		Set("weekly_days_available", p.WeeklyDaysAvailable).
		Set("current_weekly_km", p.CurrentWeeklyKm).
		Set("max_hr", p.MaxHR).
		Set("max_hr_source", p.MaxHRSource).
		Set("injury_notes", p.InjuryNotes).
		Set("upcoming_races", races).
		Where("user_profiles.user_id = ?", p.UserID).
		RunWith(r.DB).Exec()
	if err != nil {
		return err
	}

	if n, _ := res.RowsAffected(); n == 0 {
		_, err = qb().Insert("user_profiles").
			Columns("user_id", "goal_type", "target_date", "experience_level",
				"weekly_days_available", "current_weekly_km", "max_hr", "max_hr_source",
				"injury_notes", "upcoming_races").
			Values(p.UserID, p.GoalType, p.TargetDate, p.ExperienceLevel,
				p.WeeklyDaysAvailable, p.CurrentWeeklyKm, p.MaxHR, p.MaxHRSource,
				p.InjuryNotes, races).
			RunWith(r.DB).Exec()
	}
	return err
}
