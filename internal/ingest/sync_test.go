// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActivity(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 1234567890,
		"name": "Morning Run",
		"type": "Run",
		"start_date": "2024-03-10T08:30:00Z",
		"distance": 5012.3,
		"moving_time": 1500,
		"elapsed_time": 1560,
		"total_elevation_gain": 42.5,
		"average_heartrate": 151.2,
		"max_heartrate": 172.0,
		"average_cadence": 84.0,
		"average_speed": 3.34,
		"trainer": false,
		"sport_type": "Run"
	}`)

	a, err := ParseActivity(raw, "user-1")
	require.NoError(t, err)

	assert.Equal(t, "user-1", a.UserID)
	assert.Equal(t, int64(1234567890), a.StravaActivityID)
	assert.Equal(t, "Morning Run", a.Name)
	assert.Equal(t, 5012, a.DistanceM)
	assert.Equal(t, 1500, a.MovingTimeS)
	assert.Equal(t, 1560, a.ElapsedTimeS)
	assert.Equal(t, 42.5, a.ElevGainM)
	require.NotNil(t, a.AvgHR)
	assert.Equal(t, 151.2, *a.AvgHR)
	assert.Equal(t, 2024, a.StartDate.Year())

	// Raw payload retained verbatim.
	assert.JSONEq(t, string(raw), string(a.RawSummary))
	// Raw field access for the classifier.
	assert.Equal(t, "Run", a.RawString("sport_type"))
	assert.False(t, a.RawBool("trainer"))
}

func TestParseActivityDefaults(t *testing.T) {
	raw := json.RawMessage(`{"id": 42, "start_date": "2024-03-10T08:30:00Z"}`)
	a, err := ParseActivity(raw, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Unknown Run", a.Name)
	assert.Equal(t, "Run", a.Type)
	assert.Nil(t, a.AvgHR)
}

func TestParseActivityRejectsGarbage(t *testing.T) {
	_, err := ParseActivity(json.RawMessage(`{]`), "user-1")
	assert.Error(t, err)

	_, err = ParseActivity(json.RawMessage(`{"name": "no id", "start_date": "2024-03-10T08:30:00Z"}`), "user-1")
	assert.Error(t, err)

	_, err = ParseActivity(json.RawMessage(`{"id": 42, "start_date": "yesterday"}`), "user-1")
	assert.Error(t, err)
}

func TestParseActivityOffsetDate(t *testing.T) {
	raw := json.RawMessage(`{"id": 42, "start_date": "2024-03-10T08:30:00+02:00"}`)
	a, err := ParseActivity(raw, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 10, a.StartDate.Day())
}

func TestSyncJobID(t *testing.T) {
	assert.Equal(t, "sync_987_1700000000", SyncJobID(987, 1700000000))
}
