// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"sync"
	"time"

	"github.com/stridelab/stride-backend/pkg/lrucache"
	"github.com/stridelab/stride-backend/pkg/schema"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	activityRepoOnce     sync.Once
	activityRepoInstance *ActivityRepository
)

// ActivityRepository owns activities and their dependent rows
// (streams, derived metrics, check-ins).
type ActivityRepository struct {
	DB *sqlx.DB

	stmtCache *sq.StmtCache
	cache     *lrucache.Cache
}

func GetActivityRepository() *ActivityRepository {
	activityRepoOnce.Do(func() {
		db := GetConnection()

		activityRepoInstance = &ActivityRepository{
			DB:        db.DB,
			stmtCache: sq.NewStmtCache(db.DB),
			cache:     lrucache.New(1024 * 1024),
		}
	})

	return activityRepoInstance
}

var activityColumns = []string{
	"activities.id", "activities.user_id", "activities.strava_activity_id",
	"activities.name", "activities.type", "activities.start_date",
	"activities.distance_m", "activities.moving_time_s", "activities.elapsed_time_s",
	"activities.elev_gain_m", "activities.avg_hr", "activities.max_hr",
	"activities.avg_cadence", "activities.average_speed_mps", "activities.user_intent",
	"activities.raw_summary", "activities.is_deleted",
	"activities.created_at", "activities.updated_at",
}

func scanActivity(row interface{ Scan(...interface{}) error }) (*schema.Activity, error) {
	a := &schema.Activity{}
	var raw []byte
	if err := row.Scan(&a.ID, &a.UserID, &a.StravaActivityID, &a.Name, &a.Type,
		&a.StartDate, &a.DistanceM, &a.MovingTimeS, &a.ElapsedTimeS, &a.ElevGainM,
		&a.AvgHR, &a.MaxHR, &a.AvgCadence, &a.AverageSpeedMps, &a.UserIntent,
		&raw, &a.IsDeleted, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.RawSummary = raw
	return a, nil
}

func (r *ActivityRepository) scanAll(q sq.SelectBuilder) ([]*schema.Activity, error) {
	rows, err := q.RunWith(r.stmtCache).Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]*schema.Activity, 0, 20)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func (r *ActivityRepository) FindById(id string) (*schema.Activity, error) {
	q := qb().Select(activityColumns...).From("activities").
		Where("activities.id = ?", id)
	return scanActivity(q.RunWith(r.stmtCache).QueryRow())
}

func (r *ActivityRepository) FindByStravaId(stravaActivityID int64) (*schema.Activity, error) {
	q := qb().Select(activityColumns...).From("activities").
		Where("activities.strava_activity_id = ?", stravaActivityID)
	return scanActivity(q.RunWith(r.stmtCache).QueryRow())
}

// List returns non-deleted activities of a user, newest first.
func (r *ActivityRepository) List(userID string, skip, limit int) ([]*schema.Activity, error) {
	q := qb().Select(activityColumns...).From("activities").
		Where("activities.user_id = ?", userID).
		Where("activities.is_deleted = ?", false).
		OrderBy("activities.start_date DESC").
		Offset(uint64(skip)).Limit(uint64(limit))
	return r.scanAll(q)
}

// History returns up to limit activities of the same user strictly
// before the given start time, newest first. Soft-deleted rows stay
// visible to processing.
func (r *ActivityRepository) History(userID string, before time.Time, limit int) ([]*schema.Activity, error) {
	q := qb().Select(activityColumns...).From("activities").
		Where("activities.user_id = ?", userID).
		Where("activities.start_date < ?", before).
		OrderBy("activities.start_date DESC").
		Limit(uint64(limit))
	return r.scanAll(q)
}

// InRange returns non-deleted activities with start_date in
// [from, to), oldest first. Used by trends and the context pack.
func (r *ActivityRepository) InRange(userID string, from, to *time.Time) ([]*schema.Activity, error) {
	q := qb().Select(activityColumns...).From("activities").
		Where("activities.user_id = ?", userID).
		Where("activities.is_deleted = ?", false).
		OrderBy("activities.start_date ASC")
	if from != nil {
		q = q.Where("activities.start_date >= ?", *from)
	}
	if to != nil {
		q = q.Where("activities.start_date < ?", *to)
	}
	return r.scanAll(q)
}

// DistinctTypes lists the provider types seen for a user, cached
// briefly since the set changes only on sync.
func (r *ActivityRepository) DistinctTypes(userID string) ([]string, error) {
	var err error
	types := r.cache.Get("types:"+userID, func() (interface{}, time.Duration, int) {
		out := []string{}
		if err = r.DB.Select(&out, r.DB.Rebind(
			`SELECT DISTINCT activities.type FROM activities
			 WHERE activities.user_id = ? AND activities.is_deleted = ? ORDER BY activities.type`),
			userID, false); err != nil {
			return nil, 0, 1000
		}
		return out, 1 * time.Minute, len(out)*16 + 1
	})
	if err != nil {
		return nil, err
	}
	return types.([]string), nil
}

// Upsert inserts or overwrites the canonical fields keyed on the
// provider activity id. The stored id, user and user_intent survive an
// overwrite; the raw payload is re-attached verbatim.
func (r *ActivityRepository) Upsert(a *schema.Activity) (*schema.Activity, error) {
	existing, err := r.FindByStravaId(a.StravaActivityID)
	if err != nil && err != ErrNotFound {
		return nil, err
	}

	now := time.Now().UTC()
	if existing != nil {
		_, err := qb().Update("activities").
			Set("name", a.Name).
			Set("type", a.Type).
			Set("start_date", a.StartDate).
			Set("distance_m", a.DistanceM).
			Set("moving_time_s", a.MovingTimeS).
			Set("elapsed_time_s", a.ElapsedTimeS).
			Set("elev_gain_m", a.ElevGainM).
			Set("avg_hr", a.AvgHR).
			Set("max_hr", a.MaxHR).
			Set("avg_cadence", a.AvgCadence).
			Set("average_speed_mps", a.AverageSpeedMps).
			Set("raw_summary", []byte(a.RawSummary)).
			Set("updated_at", now).
			Where("activities.id = ?", existing.ID).
			RunWith(r.DB).Exec()
		if err != nil {
			return nil, err
		}
		return r.FindById(existing.ID)
	}

	a.ID = uuid.NewString()
	a.CreatedAt = now
	a.UpdatedAt = now
	_, err = qb().Insert("activities").
		Columns("id", "user_id", "strava_activity_id", "name", "type", "start_date",
			"distance_m", "moving_time_s", "elapsed_time_s", "elev_gain_m",
			"avg_hr", "max_hr", "avg_cadence", "average_speed_mps", "user_intent",
			"raw_summary", "is_deleted", "created_at", "updated_at").
		Values(a.ID, a.UserID, a.StravaActivityID, a.Name, a.Type, a.StartDate,
			a.DistanceM, a.MovingTimeS, a.ElapsedTimeS, a.ElevGainM,
			a.AvgHR, a.MaxHR, a.AvgCadence, a.AverageSpeedMps, a.UserIntent,
			[]byte(a.RawSummary), false, a.CreatedAt, a.UpdatedAt).
		RunWith(r.DB).Exec()
	if err != nil {
		return nil, err
	}
	return a, nil
}

// SetUserIntent stores the manual class override (nil clears it).
func (r *ActivityRepository) SetUserIntent(id string, intent *string) error {
	res, err := qb().Update("activities").
		Set("user_intent", intent).
		Set("updated_at", time.Now().UTC()).
		Where("activities.id = ?", id).
		RunWith(r.DB).Exec()
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteByStravaId marks the matching activity deleted. Deleted
// rows remain visible to processing but vanish from listings and
// trends.
func (r *ActivityRepository) SoftDeleteByStravaId(stravaActivityID int64) error {
	_, err := qb().Update("activities").
		Set("is_deleted", true).
		Set("updated_at", time.Now().UTC()).
		Where("activities.strava_activity_id = ?", stravaActivityID).
		RunWith(r.DB).Exec()
	return err
}
