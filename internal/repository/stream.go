// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"encoding/json"
	"time"

	"github.com/stridelab/stride-backend/pkg/schema"
)

// FetchStreams loads all stored channels of one activity.
func (r *ActivityRepository) FetchStreams(activityID string) ([]*schema.Stream, error) {
	rows, err := qb().Select("activity_streams.id", "activity_streams.activity_id",
		"activity_streams.stream_type", "activity_streams.data", "activity_streams.created_at").
		From("activity_streams").
		Where("activity_streams.activity_id = ?", activityID).
		OrderBy("activity_streams.stream_type ASC").
		RunWith(r.stmtCache).Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	streams := make([]*schema.Stream, 0, len(schema.StreamChannels))
	for rows.Next() {
		s := &schema.Stream{}
		var raw []byte
		if err := rows.Scan(&s.ID, &s.ActivityID, &s.Type, &raw, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.RawData = raw
		streams = append(streams, s)
	}
	return streams, rows.Err()
}

// ReplaceStreams swaps out every channel of an activity in one
// transaction. Streams are never partially mutated: a refetch drops
// the old rows wholesale.
func (r *ActivityRepository) ReplaceStreams(activityID string, channels map[string]json.RawMessage) error {
	tx, err := r.DB.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(tx.Rebind(`DELETE FROM activity_streams WHERE activity_id = ?`), activityID); err != nil {
		return err
	}

	now := time.Now().UTC()
	insert := tx.Rebind(`INSERT INTO activity_streams (activity_id, stream_type, data, created_at) VALUES (?, ?, ?, ?)`)
	for channel, data := range channels {
		if _, err := tx.Exec(insert, activityID, channel, []byte(data), now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// HasStreams is a cheap existence probe used to decide whether a
// refetch is needed.
func (r *ActivityRepository) HasStreams(activityID string) (bool, error) {
	var count int
	err := qb().Select("count(*)").From("activity_streams").
		Where("activity_streams.activity_id = ?", activityID).
		RunWith(r.stmtCache).QueryRow().Scan(&count)
	return count > 0, err
}
