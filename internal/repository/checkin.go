// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"database/sql"
	"time"

	"github.com/stridelab/stride-backend/pkg/schema"
)

var checkInColumns = []string{
	"check_ins.id", "check_ins.activity_id", "check_ins.rpe", "check_ins.pain_score",
	"check_ins.pain_location", "check_ins.sleep_quality", "check_ins.notes",
	"check_ins.created_at", "check_ins.updated_at",
}

func scanCheckIn(row interface{ Scan(...interface{}) error }) (*schema.CheckIn, error) {
	c := &schema.CheckIn{}
	if err := row.Scan(&c.ID, &c.ActivityID, &c.RPE, &c.PainScore,
		&c.PainLocation, &c.SleepQuality, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *ActivityRepository) FindCheckIn(activityID string) (*schema.CheckIn, error) {
	q := qb().Select(checkInColumns...).From("check_ins").
		Where("check_ins.activity_id = ?", activityID)
	return scanCheckIn(q.RunWith(r.stmtCache).QueryRow())
}

// UpsertCheckIn writes the one-per-activity self-report. Fields left
// nil on an update keep their stored value.
func (r *ActivityRepository) UpsertCheckIn(c *schema.CheckIn) (*schema.CheckIn, error) {
	existing, err := r.FindCheckIn(c.ActivityID)
	if err != nil && err != ErrNotFound {
		return nil, err
	}

	now := time.Now().UTC()
	if existing != nil {
		stmt := qb().Update("check_ins").Set("updated_at", now)
		if c.RPE != nil {
			stmt = stmt.Set("rpe", c.RPE)
		}
		if c.PainScore != nil {
			stmt = stmt.Set("pain_score", c.PainScore)
		}
		if c.PainLocation != nil {
			stmt = stmt.Set("pain_location", c.PainLocation)
		}
		if c.SleepQuality != nil {
			stmt = stmt.Set("sleep_quality", c.SleepQuality)
		}
		if c.Notes != nil {
			stmt = stmt.Set("notes", c.Notes)
		}
		if _, err := stmt.Where("check_ins.activity_id = ?", c.ActivityID).
			RunWith(r.DB).Exec(); err != nil {
			return nil, err
		}
		return r.FindCheckIn(c.ActivityID)
	}

	if _, err := qb().Insert("check_ins").
		Columns("activity_id", "rpe", "pain_score", "pain_location", "sleep_quality",
			"notes", "created_at", "updated_at").
		Values(c.ActivityID, c.RPE, c.PainScore, c.PainLocation, c.SleepQuality,
			c.Notes, now, now).
		RunWith(r.DB).Exec(); err != nil {
		return nil, err
	}
	return r.FindCheckIn(c.ActivityID)
}
